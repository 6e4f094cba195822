package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
)

type DocumentTextRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, docText *types.DocumentText) error
	GetByFileID(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) (*types.DocumentText, error)
}

type documentTextRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentTextRepo(db *gorm.DB, baseLog *logger.Logger) DocumentTextRepo {
	return &documentTextRepo{db: db, log: baseLog.With("repo", "DocumentTextRepo")}
}

func (dr *documentTextRepo) Upsert(ctx context.Context, tx *gorm.DB, docText *types.DocumentText) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).
		Create(docText).Error
}

func (dr *documentTextRepo) GetByFileID(ctx context.Context, tx *gorm.DB, fileID uuid.UUID) (*types.DocumentText, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var result types.DocumentText
	if err := transaction.WithContext(ctx).
		Where("file_id = ?", fileID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
