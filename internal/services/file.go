package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/repos"
	"github.com/yungbote/docreview-backend/internal/types"
)

type RegisterFileInput struct {
	OriginalFilename string     `json:"original_filename" binding:"required"`
	FileSize         int64      `json:"file_size"`
	FolderID         *uuid.UUID `json:"folder_id"`
}

type FileService interface {
	RegisterFile(ctx context.Context, userID uuid.UUID, input RegisterFileInput) (*types.File, error)
	IngestText(ctx context.Context, fileID, userID uuid.UUID, content string) error
	MarkFailed(ctx context.Context, fileID, userID uuid.UUID) error
	GetFile(ctx context.Context, fileID, userID uuid.UUID) (*types.File, error)
	ListFiles(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]*types.File, error)
	DeleteFile(ctx context.Context, fileID, userID uuid.UUID) error
}

type fileService struct {
	db          *gorm.DB
	log         *logger.Logger
	fileRepo    repos.FileRepo
	docTextRepo repos.DocumentTextRepo
	folderRepo  repos.FolderRepo
}

func NewFileService(
	db *gorm.DB,
	log *logger.Logger,
	fileRepo repos.FileRepo,
	docTextRepo repos.DocumentTextRepo,
	folderRepo repos.FolderRepo,
) FileService {
	return &fileService{
		db:          db,
		log:         log.With("service", "FileService"),
		fileRepo:    fileRepo,
		docTextRepo: docTextRepo,
		folderRepo:  folderRepo,
	}
}

func (fs *fileService) RegisterFile(ctx context.Context, userID uuid.UUID, input RegisterFileInput) (*types.File, error) {
	if input.FolderID != nil {
		if _, err := fs.folderRepo.GetByIDForUser(ctx, nil, *input.FolderID, userID); err != nil {
			return nil, fmt.Errorf("folder not found")
		}
	}
	file := &types.File{
		ID:               uuid.New(),
		UserID:           userID,
		FolderID:         input.FolderID,
		OriginalFilename: input.OriginalFilename,
		FileSize:         input.FileSize,
		Status:           types.FileStatusProcessing,
	}
	if _, err := fs.fileRepo.Create(ctx, nil, []*types.File{file}); err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

// IngestText stores the extracted plain text for a file and marks it ready
// for analysis. Called by the ingestion pipeline once text extraction is done.
func (fs *fileService) IngestText(ctx context.Context, fileID, userID uuid.UUID, content string) error {
	files, err := fs.fileRepo.GetByIDsForUser(ctx, nil, []uuid.UUID{fileID}, userID)
	if err != nil {
		return fmt.Errorf("failed to load file: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("file not found")
	}
	return fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if uErr := fs.docTextRepo.Upsert(ctx, tx, &types.DocumentText{
			FileID:  fileID,
			UserID:  userID,
			Content: content,
		}); uErr != nil {
			return fmt.Errorf("failed to store document text: %w", uErr)
		}
		if sErr := fs.fileRepo.UpdateStatus(ctx, tx, fileID, types.FileStatusCompleted); sErr != nil {
			return fmt.Errorf("failed to mark file completed: %w", sErr)
		}
		return nil
	})
}

func (fs *fileService) MarkFailed(ctx context.Context, fileID, userID uuid.UUID) error {
	files, err := fs.fileRepo.GetByIDsForUser(ctx, nil, []uuid.UUID{fileID}, userID)
	if err != nil {
		return fmt.Errorf("failed to load file: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("file not found")
	}
	return fs.fileRepo.UpdateStatus(ctx, nil, fileID, types.FileStatusFailed)
}

func (fs *fileService) GetFile(ctx context.Context, fileID, userID uuid.UUID) (*types.File, error) {
	files, err := fs.fileRepo.GetByIDsForUser(ctx, nil, []uuid.UUID{fileID}, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("file not found")
	}
	return files[0], nil
}

func (fs *fileService) ListFiles(ctx context.Context, userID uuid.UUID, folderID *uuid.UUID) ([]*types.File, error) {
	files, err := fs.fileRepo.ListByUser(ctx, nil, userID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

func (fs *fileService) DeleteFile(ctx context.Context, fileID, userID uuid.UUID) error {
	files, err := fs.fileRepo.GetByIDsForUser(ctx, nil, []uuid.UUID{fileID}, userID)
	if err != nil {
		return fmt.Errorf("failed to load file: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("file not found")
	}
	return fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := tx.WithContext(ctx).Where("file_id = ?", fileID).Delete(&types.DocumentText{}).Error; dErr != nil {
			return fmt.Errorf("failed to delete document text: %w", dErr)
		}
		if dErr := fs.fileRepo.Delete(ctx, tx, fileID, userID); dErr != nil {
			return fmt.Errorf("failed to delete file: %w", dErr)
		}
		return nil
	})
}
