package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
)

type ReviewRepo interface {
	Create(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, reviewID, userID uuid.UUID) (*types.Review, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string, folderID *uuid.UUID, limit, offset int) ([]*types.Review, int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID, status string) error
	TouchProcessed(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID, at time.Time) error
	ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]*types.Review, error)
	CountByUserAndStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int64, error)
	Delete(ctx context.Context, tx *gorm.DB, reviewID, userID uuid.UUID) error
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	return &reviewRepo{db: db, log: baseLog.With("repo", "ReviewRepo")}
}

func (rr *reviewRepo) Create(ctx context.Context, tx *gorm.DB, review *types.Review) (*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (rr *reviewRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, reviewID, userID uuid.UUID) (*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result types.Review
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", reviewID, userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *reviewRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string, folderID *uuid.UUID, limit, offset int) ([]*types.Review, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	query := transaction.WithContext(ctx).Model(&types.Review{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if folderID != nil {
		query = query.Where("folder_id = ?", *folderID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Review
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (rr *reviewRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Review{}).
		Where("id = ?", reviewID).
		Update("status", status).Error
}

func (rr *reviewRepo) TouchProcessed(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Review{}).
		Where("id = ?", reviewID).
		Update("last_processed_at", at).Error
}

func (rr *reviewRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]*types.Review, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.Review
	if err := transaction.WithContext(ctx).
		Where("status = ?", status).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *reviewRepo) CountByUserAndStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := transaction.WithContext(ctx).
		Model(&types.Review{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (rr *reviewRepo) Delete(ctx context.Context, tx *gorm.DB, reviewID, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", reviewID, userID).
		Delete(&types.Review{}).Error
}
