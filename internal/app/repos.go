package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/repos"
)

type Repos struct {
	User         repos.UserRepo
	UserToken    repos.UserTokenRepo
	Folder       repos.FolderRepo
	File         repos.FileRepo
	DocumentText repos.DocumentTextRepo
	Review       repos.ReviewRepo
	ReviewColumn repos.ReviewColumnRepo
	ReviewFile   repos.ReviewFileRepo
	ReviewResult repos.ReviewResultRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		UserToken:    repos.NewUserTokenRepo(db, log),
		Folder:       repos.NewFolderRepo(db, log),
		File:         repos.NewFileRepo(db, log),
		DocumentText: repos.NewDocumentTextRepo(db, log),
		Review:       repos.NewReviewRepo(db, log),
		ReviewColumn: repos.NewReviewColumnRepo(db, log),
		ReviewFile:   repos.NewReviewFileRepo(db, log),
		ReviewResult: repos.NewReviewResultRepo(db, log),
	}
}
