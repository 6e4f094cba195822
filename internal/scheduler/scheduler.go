package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/repos"
	"github.com/yungbote/docreview-backend/internal/types"
)

// Job is one extraction unit: a single (file, column) cell of a review.
type Job struct {
	ReviewID   uuid.UUID
	UserID     uuid.UUID
	FileID     uuid.UUID
	ColumnID   uuid.UUID
	FileName   string
	ColumnName string
	Prompt     string
	DataType   string
}

// Notifier publishes a review event to connected clients and the buffer.
type Notifier interface {
	Publish(ctx context.Context, ev realtime.Event)
}

// tracker holds in-memory completion accounting for one running review.
// done counts settled jobs (success or error) plus the stored-result
// baseline captured when the run was expanded.
type tracker struct {
	userID    uuid.UUID
	total     int
	done      int
	completed bool
}

// Scheduler expands reviews into cell jobs on a bounded queue and detects
// run completion as workers settle jobs.
type Scheduler struct {
	log    *logger.Logger
	queue  chan Job
	notify Notifier

	reviewRepo repos.ReviewRepo
	fileRepo   repos.FileRepo
	linkRepo   repos.ReviewFileRepo
	columnRepo repos.ReviewColumnRepo
	resultRepo repos.ReviewResultRepo

	mu       sync.Mutex
	trackers map[uuid.UUID]*tracker
}

func NewScheduler(
	queueSize int,
	notify Notifier,
	reviewRepo repos.ReviewRepo,
	fileRepo repos.FileRepo,
	linkRepo repos.ReviewFileRepo,
	columnRepo repos.ReviewColumnRepo,
	resultRepo repos.ReviewResultRepo,
	baseLog *logger.Logger,
) *Scheduler {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Scheduler{
		log:        baseLog.With("component", "Scheduler"),
		queue:      make(chan Job, queueSize),
		notify:     notify,
		reviewRepo: reviewRepo,
		fileRepo:   fileRepo,
		linkRepo:   linkRepo,
		columnRepo: columnRepo,
		resultRepo: resultRepo,
		trackers:   make(map[uuid.UUID]*tracker),
	}
}

// Jobs exposes the queue to the worker pool.
func (s *Scheduler) Jobs() <-chan Job {
	return s.queue
}

func (s *Scheduler) enqueue(ctx context.Context, job Job) error {
	select {
	case s.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartReview transitions a review to processing and enqueues one job per
// missing (file, column) cell. Cells that already hold a stored result are
// counted as done instead of re-queued, which makes the call safe to repeat
// after a restart.
func (s *Scheduler) StartReview(ctx context.Context, tx *gorm.DB, review *types.Review) error {
	columns, err := s.columnRepo.ListByReview(ctx, tx, review.ID)
	if err != nil {
		return fmt.Errorf("list columns: %w", err)
	}
	fileIDs, err := s.linkRepo.ListFileIDs(ctx, tx, review.ID)
	if err != nil {
		return fmt.Errorf("list review files: %w", err)
	}
	files, err := s.fileRepo.GetByIDsForUser(ctx, tx, fileIDs, review.UserID)
	if err != nil {
		return fmt.Errorf("load files: %w", err)
	}
	existing, err := s.resultRepo.ExistingCells(ctx, tx, review.ID)
	if err != nil {
		return fmt.Errorf("load existing cells: %w", err)
	}

	total := len(files) * len(columns)

	if err := s.reviewRepo.UpdateStatus(ctx, tx, review.ID, types.ReviewStatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	s.mu.Lock()
	s.trackers[review.ID] = &tracker{
		userID: review.UserID,
		total:  total,
		done:   len(existing),
	}
	s.mu.Unlock()

	s.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventAnalysisStarted,
		ReviewID: review.ID,
		UserID:   review.UserID,
		Payload: map[string]any{
			"total_files":   len(files),
			"total_columns": len(columns),
			"total_cells":   total,
		},
		Timestamp: time.Now().UTC(),
	})

	queued := 0
	for _, f := range files {
		for _, c := range columns {
			if existing[[2]uuid.UUID{f.ID, c.ID}] {
				continue
			}
			job := Job{
				ReviewID:   review.ID,
				UserID:     review.UserID,
				FileID:     f.ID,
				ColumnID:   c.ID,
				FileName:   f.OriginalFilename,
				ColumnName: c.ColumnName,
				Prompt:     c.Prompt,
				DataType:   c.DataType,
			}
			if err := s.enqueue(ctx, job); err != nil {
				return err
			}
			queued++
		}
	}
	s.log.Info("review expanded", "reviewID", review.ID, "queued", queued, "total", total)

	// A review with nothing left to do completes immediately.
	s.checkCompletion(ctx, review.ID)
	return nil
}

// AddFiles grows a running review's matrix by the given files: one job per
// new file per existing column.
func (s *Scheduler) AddFiles(ctx context.Context, tx *gorm.DB, review *types.Review, files []*types.File) error {
	columns, err := s.columnRepo.ListByReview(ctx, tx, review.ID)
	if err != nil {
		return fmt.Errorf("list columns: %w", err)
	}

	added := len(files) * len(columns)
	s.growTracker(review.ID, review.UserID, added)

	s.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventFilesAnalysisStarted,
		ReviewID: review.ID,
		UserID:   review.UserID,
		Payload: map[string]any{
			"file_count": len(files),
			"cell_count": added,
		},
		Timestamp: time.Now().UTC(),
	})

	for _, f := range files {
		for _, c := range columns {
			job := Job{
				ReviewID:   review.ID,
				UserID:     review.UserID,
				FileID:     f.ID,
				ColumnID:   c.ID,
				FileName:   f.OriginalFilename,
				ColumnName: c.ColumnName,
				Prompt:     c.Prompt,
				DataType:   c.DataType,
			}
			if err := s.enqueue(ctx, job); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddColumn grows the matrix by one column: one job per file already in the
// review. Also used for re-analysis after a prompt edit, once the column's
// stale results have been deleted.
func (s *Scheduler) AddColumn(ctx context.Context, tx *gorm.DB, review *types.Review, column *types.ReviewColumn) error {
	fileIDs, err := s.linkRepo.ListFileIDs(ctx, tx, review.ID)
	if err != nil {
		return fmt.Errorf("list review files: %w", err)
	}
	files, err := s.fileRepo.GetByIDsForUser(ctx, tx, fileIDs, review.UserID)
	if err != nil {
		return fmt.Errorf("load files: %w", err)
	}

	s.growTracker(review.ID, review.UserID, len(files))

	s.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventColumnAnalysisStarted,
		ReviewID: review.ID,
		UserID:   review.UserID,
		Payload: map[string]any{
			"column_id":   column.ID,
			"column_name": column.ColumnName,
			"cell_count":  len(files),
		},
		Timestamp: time.Now().UTC(),
	})

	for _, f := range files {
		job := Job{
			ReviewID:   review.ID,
			UserID:     review.UserID,
			FileID:     f.ID,
			ColumnID:   column.ID,
			FileName:   f.OriginalFilename,
			ColumnName: column.ColumnName,
			Prompt:     column.Prompt,
			DataType:   column.DataType,
		}
		if err := s.enqueue(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) growTracker(reviewID, userID uuid.UUID, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[reviewID]
	if !ok {
		t = &tracker{userID: userID}
		s.trackers[reviewID] = t
	}
	t.total += delta
	t.completed = false
}

// JobSettled records one finished job, success or failure, and flips the
// review to completed exactly once when the last job settles.
func (s *Scheduler) JobSettled(ctx context.Context, reviewID uuid.UUID) {
	s.mu.Lock()
	t, ok := s.trackers[reviewID]
	if ok {
		t.done++
		if t.done > t.total {
			t.done = t.total
		}
	}
	s.mu.Unlock()

	s.checkCompletion(ctx, reviewID)
}

func (s *Scheduler) checkCompletion(ctx context.Context, reviewID uuid.UUID) {
	s.mu.Lock()
	t, ok := s.trackers[reviewID]
	if !ok || t.completed || t.done < t.total {
		s.mu.Unlock()
		return
	}
	t.completed = true
	userID := t.userID
	total := t.total
	delete(s.trackers, reviewID)
	s.mu.Unlock()

	now := time.Now().UTC()
	if err := s.reviewRepo.UpdateStatus(ctx, nil, reviewID, types.ReviewStatusCompleted); err != nil {
		s.log.Error("failed to mark review completed", "reviewID", reviewID, "error", err)
	}
	if err := s.reviewRepo.TouchProcessed(ctx, nil, reviewID, now); err != nil {
		s.log.Error("failed to touch last_processed_at", "reviewID", reviewID, "error", err)
	}

	s.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventAnalysisCompleted,
		ReviewID: reviewID,
		UserID:   userID,
		Payload: map[string]any{
			"total_cells": total,
		},
		Timestamp: now,
	})
	s.log.Info("review completed", "reviewID", reviewID, "totalCells", total)
}

// Progress reports in-memory completion counters for a running review.
// ok is false once the review has completed or was never expanded in this
// process, in which case callers fall back to stored-result counts.
func (s *Scheduler) Progress(reviewID uuid.UUID) (done, total int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.trackers[reviewID]
	if !found {
		return 0, 0, false
	}
	return t.done, t.total, true
}

// DropReview discards tracking for a deleted review.
func (s *Scheduler) DropReview(reviewID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trackers, reviewID)
}

// Resume re-expands every review left in processing state, typically after
// a restart. Cells that already hold a stored result are skipped.
func (s *Scheduler) Resume(ctx context.Context) error {
	reviews, err := s.reviewRepo.ListByStatus(ctx, nil, types.ReviewStatusProcessing)
	if err != nil {
		return fmt.Errorf("list processing reviews: %w", err)
	}
	for _, review := range reviews {
		if err := s.StartReview(ctx, nil, review); err != nil {
			s.log.Error("failed to resume review", "reviewID", review.ID, "error", err)
		}
	}
	if len(reviews) > 0 {
		s.log.Info("resumed interrupted reviews", "count", len(reviews))
	}
	return nil
}
