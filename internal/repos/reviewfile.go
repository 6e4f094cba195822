package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
)

type ReviewFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, links []*types.ReviewFile) ([]*types.ReviewFile, error)
	ListByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) ([]*types.ReviewFile, error)
	ListFileIDs(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) ([]uuid.UUID, error)
	ExistingFileIDs(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID, fileIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	Count(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (int64, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
}

type reviewFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewFileRepo(db *gorm.DB, baseLog *logger.Logger) ReviewFileRepo {
	return &reviewFileRepo{db: db, log: baseLog.With("repo", "ReviewFileRepo")}
}

func (fr *reviewFileRepo) Create(ctx context.Context, tx *gorm.DB, links []*types.ReviewFile) ([]*types.ReviewFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if len(links) == 0 {
		return []*types.ReviewFile{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (fr *reviewFileRepo) ListByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) ([]*types.ReviewFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.ReviewFile
	if err := transaction.WithContext(ctx).
		Where("review_id = ?", reviewID).
		Order("added_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *reviewFileRepo) ListFileIDs(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewFile{}).
		Where("review_id = ?", reviewID).
		Pluck("file_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (fr *reviewFileRepo) ExistingFileIDs(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID, fileIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	existing := make(map[uuid.UUID]bool)
	if len(fileIDs) == 0 {
		return existing, nil
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewFile{}).
		Where("review_id = ? AND file_id IN ?", reviewID, fileIDs).
		Pluck("file_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}

func (fr *reviewFileRepo) Count(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewFile{}).
		Where("review_id = ?", reviewID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (fr *reviewFileRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewFile{}).
		Joins("JOIN review ON review.id = review_file.review_id").
		Where("review.user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
