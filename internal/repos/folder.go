package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
)

type FolderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, folders []*types.Folder) ([]*types.Folder, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) (*types.Folder, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error)
	Delete(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) error
}

type folderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFolderRepo(db *gorm.DB, baseLog *logger.Logger) FolderRepo {
	return &folderRepo{db: db, log: baseLog.With("repo", "FolderRepo")}
}

func (fr *folderRepo) Create(ctx context.Context, tx *gorm.DB, folders []*types.Folder) ([]*types.Folder, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if len(folders) == 0 {
		return []*types.Folder{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&folders).Error; err != nil {
		return nil, err
	}
	return folders, nil
}

func (fr *folderRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) (*types.Folder, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var folder types.Folder
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", folderID, userID).
		First(&folder).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

func (fr *folderRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.Folder
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *folderRepo) Delete(ctx context.Context, tx *gorm.DB, folderID, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", folderID, userID).
		Delete(&types.Folder{}).Error
}
