package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/repos"
	"github.com/yungbote/docreview-backend/internal/scheduler"
	"github.com/yungbote/docreview-backend/internal/types"
)

type CreateColumnInput struct {
	ColumnName string `json:"column_name" binding:"required"`
	Prompt     string `json:"prompt" binding:"required"`
	DataType   string `json:"data_type"`
}

type CreateReviewInput struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	ReviewScope string              `json:"review_scope"`
	FolderID    *uuid.UUID          `json:"folder_id"`
	FileIDs     []uuid.UUID         `json:"file_ids"`
	Columns     []CreateColumnInput `json:"columns"`
}

type UpdateColumnInput struct {
	ColumnName string `json:"column_name"`
	Prompt     string `json:"prompt"`
	DataType   string `json:"data_type"`
}

type UpdateResultInput struct {
	ExtractedValue  *string  `json:"extracted_value"`
	ConfidenceScore *float64 `json:"confidence_score"`
	SourceReference *string  `json:"source_reference"`
}

type ReviewSummary struct {
	Review               *types.Review `json:"review"`
	FileCount            int64         `json:"file_count"`
	ColumnCount          int           `json:"column_count"`
	CompletionPercentage float64       `json:"completion_percentage"`
}

type ReviewDetail struct {
	Review  *types.Review         `json:"review"`
	Columns []*types.ReviewColumn `json:"columns"`
	Files   []*types.File         `json:"files"`
	Results []*types.ReviewResult `json:"results"`
}

type ReviewProgress struct {
	Status         string  `json:"status"`
	TotalCells     int     `json:"total_cells"`
	CompletedCells int     `json:"completed_cells"`
	Percentage     float64 `json:"percentage"`
}

// ReviewStats is the confidence distribution over one review's stored
// results.
type ReviewStats struct {
	TotalResults          int     `json:"total_results"`
	HighConfidenceResults int     `json:"high_confidence_results"`
	LowConfidenceResults  int     `json:"low_confidence_results"`
	AverageConfidence     float64 `json:"average_confidence"`
}

// UserReviewSummary aggregates review and extraction totals across every
// review the user owns.
type UserReviewSummary struct {
	TotalReviews            int64   `json:"total_reviews"`
	ActiveReviews           int64   `json:"active_reviews"`
	CompletedReviews        int64   `json:"completed_reviews"`
	FailedReviews           int64   `json:"failed_reviews"`
	TotalDocumentsProcessed int64   `json:"total_documents_processed"`
	TotalExtractions        int64   `json:"total_extractions"`
	AverageConfidence       float64 `json:"average_confidence"`
}

type ReviewService interface {
	CreateReview(ctx context.Context, userID uuid.UUID, input CreateReviewInput) (*types.Review, error)
	ListReviews(ctx context.Context, userID uuid.UUID, status string, folderID *uuid.UUID, limit, offset int) ([]*ReviewSummary, int64, error)
	GetReview(ctx context.Context, reviewID, userID uuid.UUID, includeResults bool) (*ReviewDetail, error)
	DeleteReview(ctx context.Context, reviewID, userID uuid.UUID) error
	StartAnalysis(ctx context.Context, reviewID, userID uuid.UUID, forceReprocess bool) error
	AddFiles(ctx context.Context, reviewID, userID uuid.UUID, fileIDs []uuid.UUID) ([]*types.File, error)
	AddColumn(ctx context.Context, reviewID, userID uuid.UUID, input CreateColumnInput) (*types.ReviewColumn, error)
	UpdateColumn(ctx context.Context, reviewID, columnID, userID uuid.UUID, input UpdateColumnInput) (*types.ReviewColumn, error)
	DeleteColumn(ctx context.Context, reviewID, columnID, userID uuid.UUID) error
	UpdateResult(ctx context.Context, reviewID, resultID, userID uuid.UUID, input UpdateResultInput) (*types.ReviewResult, error)
	GetProgress(ctx context.Context, reviewID, userID uuid.UUID) (*ReviewProgress, error)
	GetStats(ctx context.Context, reviewID, userID uuid.UUID) (*ReviewStats, error)
	GetSummary(ctx context.Context, userID uuid.UUID) (*UserReviewSummary, error)
	IsRetained(reviewID uuid.UUID) bool
}

type reviewService struct {
	db         *gorm.DB
	log        *logger.Logger
	sched      *scheduler.Scheduler
	notify     NotifierService
	reviewRepo repos.ReviewRepo
	columnRepo repos.ReviewColumnRepo
	linkRepo   repos.ReviewFileRepo
	resultRepo repos.ReviewResultRepo
	fileRepo   repos.FileRepo
	folderRepo repos.FolderRepo
}

func NewReviewService(
	db *gorm.DB,
	log *logger.Logger,
	sched *scheduler.Scheduler,
	notify NotifierService,
	reviewRepo repos.ReviewRepo,
	columnRepo repos.ReviewColumnRepo,
	linkRepo repos.ReviewFileRepo,
	resultRepo repos.ReviewResultRepo,
	fileRepo repos.FileRepo,
	folderRepo repos.FolderRepo,
) ReviewService {
	return &reviewService{
		db:         db,
		log:        log.With("service", "ReviewService"),
		sched:      sched,
		notify:     notify,
		reviewRepo: reviewRepo,
		columnRepo: columnRepo,
		linkRepo:   linkRepo,
		resultRepo: resultRepo,
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
	}
}

func (rs *reviewService) CreateReview(ctx context.Context, userID uuid.UUID, input CreateReviewInput) (*types.Review, error) {
	scope := input.ReviewScope
	if scope == "" {
		scope = types.ReviewScopeFiles
	}
	if scope != types.ReviewScopeFiles && scope != types.ReviewScopeFolder {
		return nil, fmt.Errorf("invalid review scope %q", scope)
	}

	var fileIDs []uuid.UUID
	switch scope {
	case types.ReviewScopeFolder:
		if input.FolderID == nil {
			return nil, fmt.Errorf("folder_id required for folder scope")
		}
		if _, err := rs.folderRepo.GetByIDForUser(ctx, nil, *input.FolderID, userID); err != nil {
			return nil, fmt.Errorf("folder not found")
		}
		files, err := rs.fileRepo.ListCompletedByFolder(ctx, nil, *input.FolderID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list folder files: %w", err)
		}
		for _, f := range files {
			fileIDs = append(fileIDs, f.ID)
		}
	default:
		files, err := rs.fileRepo.GetByIDsForUser(ctx, nil, input.FileIDs, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load files: %w", err)
		}
		if len(files) != len(input.FileIDs) {
			return nil, fmt.Errorf("one or more files not found")
		}
		for _, f := range files {
			if f.Status != types.FileStatusCompleted {
				return nil, fmt.Errorf("file %s is not ready for analysis", f.ID)
			}
			fileIDs = append(fileIDs, f.ID)
		}
	}

	review := &types.Review{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
		Status:      types.ReviewStatusPending,
		ReviewScope: scope,
		FolderID:    input.FolderID,
	}

	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, cErr := rs.reviewRepo.Create(ctx, tx, review); cErr != nil {
			return fmt.Errorf("failed to create review: %w", cErr)
		}
		columns := make([]*types.ReviewColumn, 0, len(input.Columns))
		for i, col := range input.Columns {
			dataType := col.DataType
			if dataType == "" {
				dataType = "text"
			}
			columns = append(columns, &types.ReviewColumn{
				ID:          uuid.New(),
				ReviewID:    review.ID,
				ColumnName:  col.ColumnName,
				Prompt:      col.Prompt,
				DataType:    dataType,
				ColumnOrder: i,
			})
		}
		if _, cErr := rs.columnRepo.Create(ctx, tx, columns); cErr != nil {
			return fmt.Errorf("failed to create columns: %w", cErr)
		}
		links := make([]*types.ReviewFile, 0, len(fileIDs))
		for _, fid := range fileIDs {
			links = append(links, &types.ReviewFile{
				ID:       uuid.New(),
				ReviewID: review.ID,
				FileID:   fid,
			})
		}
		if _, lErr := rs.linkRepo.Create(ctx, tx, links); lErr != nil {
			return fmt.Errorf("failed to link files: %w", lErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Analysis kicks off as soon as the review exists; a start failure
	// leaves the review pending so a later analyze call can recover it.
	if sErr := rs.sched.StartReview(ctx, nil, review); sErr != nil {
		rs.log.Error("failed to start analysis on create", "reviewID", review.ID, "error", sErr)
	} else {
		review.Status = types.ReviewStatusProcessing
	}
	return review, nil
}

func (rs *reviewService) ListReviews(ctx context.Context, userID uuid.UUID, status string, folderID *uuid.UUID, limit, offset int) ([]*ReviewSummary, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	reviews, total, err := rs.reviewRepo.ListByUser(ctx, nil, userID, status, folderID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	summaries := make([]*ReviewSummary, 0, len(reviews))
	for _, review := range reviews {
		fileCount, cErr := rs.linkRepo.Count(ctx, nil, review.ID)
		if cErr != nil {
			return nil, 0, fmt.Errorf("failed to count files: %w", cErr)
		}
		columns, colErr := rs.columnRepo.ListByReview(ctx, nil, review.ID)
		if colErr != nil {
			return nil, 0, fmt.Errorf("failed to list columns: %w", colErr)
		}
		stored, sErr := rs.resultRepo.CountByReview(ctx, nil, review.ID)
		if sErr != nil {
			return nil, 0, fmt.Errorf("failed to count results: %w", sErr)
		}
		totalCells := int(fileCount) * len(columns)
		pct := 0.0
		if totalCells > 0 {
			done := int(stored)
			if done > totalCells {
				done = totalCells
			}
			pct = float64(done) / float64(totalCells) * 100.0
		}
		summaries = append(summaries, &ReviewSummary{
			Review:               review,
			FileCount:            fileCount,
			ColumnCount:          len(columns),
			CompletionPercentage: pct,
		})
	}
	return summaries, total, nil
}

func (rs *reviewService) GetReview(ctx context.Context, reviewID, userID uuid.UUID, includeResults bool) (*ReviewDetail, error) {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("review not found")
	}
	columns, err := rs.columnRepo.ListByReview(ctx, nil, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	fileIDs, err := rs.linkRepo.ListFileIDs(ctx, nil, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review files: %w", err)
	}
	files, err := rs.fileRepo.GetByIDsForUser(ctx, nil, fileIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load files: %w", err)
	}
	var results []*types.ReviewResult
	if includeResults {
		results, err = rs.resultRepo.ListByReview(ctx, nil, reviewID)
		if err != nil {
			return nil, fmt.Errorf("failed to list results: %w", err)
		}
	}
	return &ReviewDetail{
		Review:  review,
		Columns: columns,
		Files:   files,
		Results: results,
	}, nil
}

func (rs *reviewService) DeleteReview(ctx context.Context, reviewID, userID uuid.UUID) error {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return fmt.Errorf("review not found")
	}
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := rs.resultRepo.DeleteByReview(ctx, tx, review.ID); dErr != nil {
			return fmt.Errorf("failed to delete results: %w", dErr)
		}
		if dErr := tx.WithContext(ctx).Where("review_id = ?", review.ID).Delete(&types.ReviewFile{}).Error; dErr != nil {
			return fmt.Errorf("failed to delete file links: %w", dErr)
		}
		if dErr := tx.WithContext(ctx).Where("review_id = ?", review.ID).Delete(&types.ReviewColumn{}).Error; dErr != nil {
			return fmt.Errorf("failed to delete columns: %w", dErr)
		}
		if dErr := rs.reviewRepo.Delete(ctx, tx, review.ID, userID); dErr != nil {
			return fmt.Errorf("failed to delete review: %w", dErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	rs.sched.DropReview(review.ID)
	rs.notify.DropReview(review.ID)
	return nil
}

func (rs *reviewService) StartAnalysis(ctx context.Context, reviewID, userID uuid.UUID, forceReprocess bool) error {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return fmt.Errorf("review not found")
	}
	if review.Status == types.ReviewStatusProcessing {
		return fmt.Errorf("review is already processing")
	}
	if forceReprocess {
		if dErr := rs.resultRepo.DeleteByReview(ctx, nil, review.ID); dErr != nil {
			return fmt.Errorf("failed to clear results: %w", dErr)
		}
	}
	return rs.sched.StartReview(ctx, nil, review)
}

func (rs *reviewService) AddFiles(ctx context.Context, reviewID, userID uuid.UUID, fileIDs []uuid.UUID) ([]*types.File, error) {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("review not found")
	}
	files, err := rs.fileRepo.GetByIDsForUser(ctx, nil, fileIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load files: %w", err)
	}
	if len(files) != len(fileIDs) {
		return nil, fmt.Errorf("one or more files not found")
	}
	for _, f := range files {
		if f.Status != types.FileStatusCompleted {
			return nil, fmt.Errorf("file %s is not ready for analysis", f.ID)
		}
	}

	existing, err := rs.linkRepo.ExistingFileIDs(ctx, nil, review.ID, fileIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing files: %w", err)
	}
	var added []*types.File
	var links []*types.ReviewFile
	for _, f := range files {
		if existing[f.ID] {
			continue
		}
		added = append(added, f)
		links = append(links, &types.ReviewFile{
			ID:       uuid.New(),
			ReviewID: review.ID,
			FileID:   f.ID,
		})
	}
	if len(added) == 0 {
		return []*types.File{}, nil
	}
	if _, err := rs.linkRepo.Create(ctx, nil, links); err != nil {
		return nil, fmt.Errorf("failed to link files: %w", err)
	}

	addedIDs := make([]uuid.UUID, 0, len(added))
	for _, f := range added {
		addedIDs = append(addedIDs, f.ID)
	}
	rs.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventFilesAdded,
		ReviewID: review.ID,
		UserID:   userID,
		Payload: map[string]any{
			"file_ids": addedIDs,
		},
		Timestamp: time.Now().UTC(),
	})

	// New files are picked up immediately regardless of review state.
	if review.Status != types.ReviewStatusProcessing {
		if uErr := rs.reviewRepo.UpdateStatus(ctx, nil, review.ID, types.ReviewStatusProcessing); uErr != nil {
			return nil, fmt.Errorf("failed to mark processing: %w", uErr)
		}
	}
	if sErr := rs.sched.AddFiles(ctx, nil, review, added); sErr != nil {
		return nil, fmt.Errorf("failed to queue new files: %w", sErr)
	}
	return added, nil
}

func (rs *reviewService) AddColumn(ctx context.Context, reviewID, userID uuid.UUID, input CreateColumnInput) (*types.ReviewColumn, error) {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("review not found")
	}
	maxOrder, err := rs.columnRepo.MaxOrder(ctx, nil, review.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute column order: %w", err)
	}
	dataType := input.DataType
	if dataType == "" {
		dataType = "text"
	}
	column := &types.ReviewColumn{
		ID:          uuid.New(),
		ReviewID:    review.ID,
		ColumnName:  input.ColumnName,
		Prompt:      input.Prompt,
		DataType:    dataType,
		ColumnOrder: maxOrder + 1,
	}
	if _, err := rs.columnRepo.Create(ctx, nil, []*types.ReviewColumn{column}); err != nil {
		return nil, fmt.Errorf("failed to create column: %w", err)
	}

	rs.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventColumnAdded,
		ReviewID: review.ID,
		UserID:   userID,
		Payload: map[string]any{
			"column_id":   column.ID,
			"column_name": column.ColumnName,
		},
		Timestamp: time.Now().UTC(),
	})

	if review.Status != types.ReviewStatusProcessing {
		if uErr := rs.reviewRepo.UpdateStatus(ctx, nil, review.ID, types.ReviewStatusProcessing); uErr != nil {
			return nil, fmt.Errorf("failed to mark processing: %w", uErr)
		}
	}
	if sErr := rs.sched.AddColumn(ctx, nil, review, column); sErr != nil {
		return nil, fmt.Errorf("failed to queue new column: %w", sErr)
	}
	return column, nil
}

func (rs *reviewService) UpdateColumn(ctx context.Context, reviewID, columnID, userID uuid.UUID, input UpdateColumnInput) (*types.ReviewColumn, error) {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("review not found")
	}
	column, err := rs.columnRepo.GetByID(ctx, nil, columnID, review.ID)
	if err != nil {
		return nil, fmt.Errorf("column not found")
	}

	promptChanged := input.Prompt != "" && input.Prompt != column.Prompt
	if input.ColumnName != "" {
		column.ColumnName = input.ColumnName
	}
	if input.Prompt != "" {
		column.Prompt = input.Prompt
	}
	if input.DataType != "" {
		column.DataType = input.DataType
	}
	if err := rs.columnRepo.Update(ctx, nil, column); err != nil {
		return nil, fmt.Errorf("failed to update column: %w", err)
	}

	rs.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventColumnUpdated,
		ReviewID: review.ID,
		UserID:   userID,
		Payload: map[string]any{
			"column_id":      column.ID,
			"column_name":    column.ColumnName,
			"prompt_changed": promptChanged,
		},
		Timestamp: time.Now().UTC(),
	})

	// An edited prompt invalidates every stored value in the column, so the
	// stale results are dropped and the column re-analyzed.
	if promptChanged {
		if dErr := rs.resultRepo.DeleteByColumn(ctx, nil, review.ID, column.ID); dErr != nil {
			return nil, fmt.Errorf("failed to clear column results: %w", dErr)
		}
		if uErr := rs.reviewRepo.UpdateStatus(ctx, nil, review.ID, types.ReviewStatusProcessing); uErr != nil {
			return nil, fmt.Errorf("failed to mark processing: %w", uErr)
		}
		if sErr := rs.sched.AddColumn(ctx, nil, review, column); sErr != nil {
			return nil, fmt.Errorf("failed to queue column re-analysis: %w", sErr)
		}
	}
	return column, nil
}

func (rs *reviewService) DeleteColumn(ctx context.Context, reviewID, columnID, userID uuid.UUID) error {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return fmt.Errorf("review not found")
	}
	column, err := rs.columnRepo.GetByID(ctx, nil, columnID, review.ID)
	if err != nil {
		return fmt.Errorf("column not found")
	}
	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := rs.resultRepo.DeleteByColumn(ctx, tx, review.ID, column.ID); dErr != nil {
			return fmt.Errorf("failed to delete column results: %w", dErr)
		}
		if dErr := rs.columnRepo.Delete(ctx, tx, column.ID, review.ID); dErr != nil {
			return fmt.Errorf("failed to delete column: %w", dErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	rs.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventColumnDeleted,
		ReviewID: review.ID,
		UserID:   userID,
		Payload: map[string]any{
			"column_id": column.ID,
		},
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (rs *reviewService) UpdateResult(ctx context.Context, reviewID, resultID, userID uuid.UUID, input UpdateResultInput) (*types.ReviewResult, error) {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("review not found")
	}
	result, err := rs.resultRepo.GetByIDForReview(ctx, nil, resultID, review.ID)
	if err != nil {
		return nil, fmt.Errorf("result not found")
	}
	if input.ExtractedValue != nil {
		result.ExtractedValue = input.ExtractedValue
	}
	if input.ConfidenceScore != nil {
		result.ConfidenceScore = *input.ConfidenceScore
	}
	if input.SourceReference != nil {
		result.SourceReference = *input.SourceReference
	}
	if err := rs.resultRepo.Update(ctx, nil, result); err != nil {
		return nil, fmt.Errorf("failed to update result: %w", err)
	}

	rs.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventResultUpdated,
		ReviewID: review.ID,
		UserID:   userID,
		Payload: map[string]any{
			"result_id":        result.ID,
			"file_id":          result.FileID,
			"column_id":        result.ColumnID,
			"extracted_value":  result.ExtractedValue,
			"confidence_score": result.ConfidenceScore,
		},
		Timestamp: time.Now().UTC(),
	})
	return result, nil
}

func (rs *reviewService) GetProgress(ctx context.Context, reviewID, userID uuid.UUID) (*ReviewProgress, error) {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("review not found")
	}

	if done, total, ok := rs.sched.Progress(review.ID); ok {
		return progressOf(review.Status, done, total), nil
	}

	// Not tracked in this process; fall back to stored results.
	fileCount, err := rs.linkRepo.Count(ctx, nil, review.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	columns, err := rs.columnRepo.ListByReview(ctx, nil, review.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	stored, err := rs.resultRepo.CountByReview(ctx, nil, review.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	total := int(fileCount) * len(columns)
	done := int(stored)
	if done > total {
		done = total
	}
	return progressOf(review.Status, done, total), nil
}

func progressOf(status string, done, total int) *ReviewProgress {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100.0
	}
	return &ReviewProgress{
		Status:         status,
		TotalCells:     total,
		CompletedCells: done,
		Percentage:     pct,
	}
}

func (rs *reviewService) GetStats(ctx context.Context, reviewID, userID uuid.UUID) (*ReviewStats, error) {
	review, err := rs.reviewRepo.GetByIDForUser(ctx, nil, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("review not found")
	}
	results, err := rs.resultRepo.ListByReview(ctx, nil, review.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	stats := &ReviewStats{TotalResults: len(results)}
	var sum float64
	for _, r := range results {
		sum += r.ConfidenceScore
		if r.ConfidenceScore > 0.8 {
			stats.HighConfidenceResults++
		}
		if r.ConfidenceScore < 0.5 {
			stats.LowConfidenceResults++
		}
	}
	if len(results) > 0 {
		stats.AverageConfidence = sum / float64(len(results))
	}
	return stats, nil
}

func (rs *reviewService) GetSummary(ctx context.Context, userID uuid.UUID) (*UserReviewSummary, error) {
	counts, err := rs.reviewRepo.CountByUserAndStatus(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	documents, err := rs.linkRepo.CountByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	extractions, avgConfidence, err := rs.resultRepo.SummaryByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize results: %w", err)
	}
	return &UserReviewSummary{
		TotalReviews:            total,
		ActiveReviews:           counts[types.ReviewStatusProcessing],
		CompletedReviews:        counts[types.ReviewStatusCompleted],
		FailedReviews:           counts[types.ReviewStatusFailed],
		TotalDocumentsProcessed: documents,
		TotalExtractions:        extractions,
		AverageConfidence:       avgConfidence,
	}, nil
}

// IsRetained reports whether a review's replay buffer should be kept alive,
// which is the case while the review is still running.
func (rs *reviewService) IsRetained(reviewID uuid.UUID) bool {
	review := &types.Review{}
	if err := rs.db.Where("id = ?", reviewID).First(review).Error; err != nil {
		return false
	}
	return review.Status == types.ReviewStatusPending || review.Status == types.ReviewStatusProcessing
}
