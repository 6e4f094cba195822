package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/repos"
	"github.com/yungbote/docreview-backend/internal/types"
)

type FolderService interface {
	CreateFolder(ctx context.Context, userID uuid.UUID, name string) (*types.Folder, error)
	GetFolder(ctx context.Context, folderID, userID uuid.UUID) (*types.Folder, []*types.File, error)
	ListFolders(ctx context.Context, userID uuid.UUID) ([]*types.Folder, error)
	DeleteFolder(ctx context.Context, folderID, userID uuid.UUID) error
}

type folderService struct {
	db         *gorm.DB
	log        *logger.Logger
	folderRepo repos.FolderRepo
	fileRepo   repos.FileRepo
}

func NewFolderService(db *gorm.DB, log *logger.Logger, folderRepo repos.FolderRepo, fileRepo repos.FileRepo) FolderService {
	return &folderService{
		db:         db,
		log:        log.With("service", "FolderService"),
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
	}
}

func (fs *folderService) CreateFolder(ctx context.Context, userID uuid.UUID, name string) (*types.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("folder name required")
	}
	folder := &types.Folder{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
	}
	if _, err := fs.folderRepo.Create(ctx, nil, []*types.Folder{folder}); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	return folder, nil
}

func (fs *folderService) GetFolder(ctx context.Context, folderID, userID uuid.UUID) (*types.Folder, []*types.File, error) {
	folder, err := fs.folderRepo.GetByIDForUser(ctx, nil, folderID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("folder not found")
	}
	files, err := fs.fileRepo.ListByUser(ctx, nil, userID, &folderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list folder files: %w", err)
	}
	return folder, files, nil
}

func (fs *folderService) ListFolders(ctx context.Context, userID uuid.UUID) ([]*types.Folder, error) {
	folders, err := fs.folderRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

func (fs *folderService) DeleteFolder(ctx context.Context, folderID, userID uuid.UUID) error {
	if _, err := fs.folderRepo.GetByIDForUser(ctx, nil, folderID, userID); err != nil {
		return fmt.Errorf("folder not found")
	}
	return fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// files keep existing but fall out of the folder
		if uErr := tx.WithContext(ctx).
			Model(&types.File{}).
			Where("folder_id = ? AND user_id = ?", folderID, userID).
			Update("folder_id", nil).Error; uErr != nil {
			return fmt.Errorf("failed to detach files: %w", uErr)
		}
		if dErr := fs.folderRepo.Delete(ctx, tx, folderID, userID); dErr != nil {
			return fmt.Errorf("failed to delete folder: %w", dErr)
		}
		return nil
	})
}
