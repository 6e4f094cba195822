package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
)

type ReviewColumnRepo interface {
	Create(ctx context.Context, tx *gorm.DB, columns []*types.ReviewColumn) ([]*types.ReviewColumn, error)
	GetByID(ctx context.Context, tx *gorm.DB, columnID, reviewID uuid.UUID) (*types.ReviewColumn, error)
	ListByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) ([]*types.ReviewColumn, error)
	MaxOrder(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (int, error)
	Update(ctx context.Context, tx *gorm.DB, column *types.ReviewColumn) error
	Delete(ctx context.Context, tx *gorm.DB, columnID, reviewID uuid.UUID) error
}

type reviewColumnRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewColumnRepo(db *gorm.DB, baseLog *logger.Logger) ReviewColumnRepo {
	return &reviewColumnRepo{db: db, log: baseLog.With("repo", "ReviewColumnRepo")}
}

func (cr *reviewColumnRepo) Create(ctx context.Context, tx *gorm.DB, columns []*types.ReviewColumn) ([]*types.ReviewColumn, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if len(columns) == 0 {
		return []*types.ReviewColumn{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

func (cr *reviewColumnRepo) GetByID(ctx context.Context, tx *gorm.DB, columnID, reviewID uuid.UUID) (*types.ReviewColumn, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var result types.ReviewColumn
	if err := transaction.WithContext(ctx).
		Where("id = ? AND review_id = ?", columnID, reviewID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *reviewColumnRepo) ListByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) ([]*types.ReviewColumn, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.ReviewColumn
	if err := transaction.WithContext(ctx).
		Where("review_id = ?", reviewID).
		Order("column_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *reviewColumnRepo) MaxOrder(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var max *int
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewColumn{}).
		Select("MAX(column_order)").
		Where("review_id = ?", reviewID).
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

func (cr *reviewColumnRepo) Update(ctx context.Context, tx *gorm.DB, column *types.ReviewColumn) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ReviewColumn{}).
		Where("id = ? AND review_id = ?", column.ID, column.ReviewID).
		Updates(map[string]interface{}{
			"column_name": column.ColumnName,
			"prompt":      column.Prompt,
			"data_type":   column.DataType,
		}).Error
}

func (cr *reviewColumnRepo) Delete(ctx context.Context, tx *gorm.DB, columnID, reviewID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ? AND review_id = ?", columnID, reviewID).
		Delete(&types.ReviewColumn{}).Error
}
