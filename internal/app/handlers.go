package app

import (
	"github.com/yungbote/docreview-backend/internal/handlers"
	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	Review *handlers.ReviewHandler
	File   *handlers.FileHandler
	Folder *handlers.FolderHandler
	Stream *handlers.StreamHandler
	Socket *handlers.SocketHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:   handlers.NewAuthHandler(serviceset.Auth),
		Review: handlers.NewReviewHandler(serviceset.Review, serviceset.Export),
		File:   handlers.NewFileHandler(serviceset.File),
		Folder: handlers.NewFolderHandler(serviceset.Folder),
		Stream: handlers.NewStreamHandler(log, hub, serviceset.Notifier, serviceset.Review),
		Socket: handlers.NewSocketHandler(log, hub, serviceset.Notifier, serviceset.Review),
	}
}
