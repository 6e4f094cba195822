package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/types"
)

type ReviewResultRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, result *types.ReviewResult) error
	GetByIDForReview(ctx context.Context, tx *gorm.DB, resultID, reviewID uuid.UUID) (*types.ReviewResult, error)
	ListByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) ([]*types.ReviewResult, error)
	Update(ctx context.Context, tx *gorm.DB, result *types.ReviewResult) error
	DeleteByColumn(ctx context.Context, tx *gorm.DB, reviewID, columnID uuid.UUID) error
	DeleteByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) error
	CountByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (int64, error)
	SummaryByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, float64, error)
	ExistingCells(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (map[[2]uuid.UUID]bool, error)
}

type reviewResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewResultRepo(db *gorm.DB, baseLog *logger.Logger) ReviewResultRepo {
	return &reviewResultRepo{db: db, log: baseLog.With("repo", "ReviewResultRepo")}
}

// Upsert writes a cell result with last-write-wins semantics on the
// (review_id, file_id, column_id) unique index.
func (rr *reviewResultRepo) Upsert(ctx context.Context, tx *gorm.DB, result *types.ReviewResult) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "review_id"},
				{Name: "file_id"},
				{Name: "column_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"extracted_value",
				"confidence_score",
				"source_reference",
				"updated_at",
			}),
		}).
		Create(result).Error
}

func (rr *reviewResultRepo) GetByIDForReview(ctx context.Context, tx *gorm.DB, resultID, reviewID uuid.UUID) (*types.ReviewResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result types.ReviewResult
	if err := transaction.WithContext(ctx).
		Where("id = ? AND review_id = ?", resultID, reviewID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *reviewResultRepo) ListByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) ([]*types.ReviewResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.ReviewResult
	if err := transaction.WithContext(ctx).
		Where("review_id = ?", reviewID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *reviewResultRepo) Update(ctx context.Context, tx *gorm.DB, result *types.ReviewResult) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ReviewResult{}).
		Where("id = ? AND review_id = ?", result.ID, result.ReviewID).
		Updates(map[string]interface{}{
			"extracted_value":  result.ExtractedValue,
			"confidence_score": result.ConfidenceScore,
			"source_reference": result.SourceReference,
		}).Error
}

func (rr *reviewResultRepo) DeleteByColumn(ctx context.Context, tx *gorm.DB, reviewID, columnID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Where("review_id = ? AND column_id = ?", reviewID, columnID).
		Delete(&types.ReviewResult{}).Error
}

func (rr *reviewResultRepo) DeleteByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Where("review_id = ?", reviewID).
		Delete(&types.ReviewResult{}).Error
}

func (rr *reviewResultRepo) CountByReview(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewResult{}).
		Where("review_id = ?", reviewID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SummaryByUser returns the stored-result count and average confidence across
// every review the user owns.
func (rr *reviewResultRepo) SummaryByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, float64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	type row struct {
		Count int64
		Avg   float64
	}
	var r row
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewResult{}).
		Select("COUNT(*) as count, COALESCE(AVG(confidence_score), 0) as avg").
		Joins("JOIN review ON review.id = review_result.review_id").
		Where("review.user_id = ?", userID).
		Scan(&r).Error; err != nil {
		return 0, 0, err
	}
	return r.Count, r.Avg, nil
}

// ExistingCells returns the set of (file_id, column_id) pairs that already
// hold a stored result, used to skip cells when resuming an interrupted run.
func (rr *reviewResultRepo) ExistingCells(ctx context.Context, tx *gorm.DB, reviewID uuid.UUID) (map[[2]uuid.UUID]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	type row struct {
		FileID   uuid.UUID
		ColumnID uuid.UUID
	}
	var rows []row
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewResult{}).
		Select("file_id, column_id").
		Where("review_id = ?", reviewID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	cells := make(map[[2]uuid.UUID]bool, len(rows))
	for _, r := range rows {
		cells[[2]uuid.UUID{r.FileID, r.ColumnID}] = true
	}
	return cells, nil
}
