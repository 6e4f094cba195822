package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
)

type FileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, files []*types.File) ([]*types.File, error)
	GetByIDsForUser(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID, userID uuid.UUID) ([]*types.File, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, folderID *uuid.UUID) ([]*types.File, error)
	ListCompletedByFolder(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) ([]*types.File, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, status string) error
	Delete(ctx context.Context, tx *gorm.DB, fileID, userID uuid.UUID) error
}

type fileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	return &fileRepo{db: db, log: baseLog.With("repo", "FileRepo")}
}

func (fr *fileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.File) ([]*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if len(files) == 0 {
		return []*types.File{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (fr *fileRepo) GetByIDsForUser(ctx context.Context, tx *gorm.DB, fileIDs []uuid.UUID, userID uuid.UUID) ([]*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.File
	if len(fileIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ? AND user_id = ?", fileIDs, userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *fileRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, folderID *uuid.UUID) ([]*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	query := transaction.WithContext(ctx).Where("user_id = ?", userID)
	if folderID != nil {
		query = query.Where("folder_id = ?", *folderID)
	}
	var results []*types.File
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *fileRepo) ListCompletedByFolder(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) ([]*types.File, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.File
	if err := transaction.WithContext(ctx).
		Where("folder_id = ? AND user_id = ? AND status = ?", folderID, userID, types.FileStatusCompleted).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *fileRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, fileID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.File{}).
		Where("id = ?", fileID).
		Update("status", status).Error
}

func (fr *fileRepo) Delete(ctx context.Context, tx *gorm.DB, fileID, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", fileID, userID).
		Delete(&types.File{}).Error
}
