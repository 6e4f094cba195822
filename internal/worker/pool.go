package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/repos"
	"github.com/yungbote/docreview-backend/internal/scheduler"
	"github.com/yungbote/docreview-backend/internal/services"
	"github.com/yungbote/docreview-backend/internal/types"
)

const degradedSourceReference = "Analysis failed"

// A transient store failure should not lose the cell, so the upsert is
// retried a few times with doubling backoff before the cell is declared
// errored.
const (
	upsertAttempts = 3
	upsertBackoff  = 200 * time.Millisecond
)

// Settler is notified once per job regardless of outcome, so completion
// accounting never hangs on a failed cell.
type Settler interface {
	JobSettled(ctx context.Context, reviewID uuid.UUID)
}

// Pool runs a fixed number of workers over the scheduler's job queue. Each
// job produces either a stored extraction result or, when the engine fails,
// a stored degraded result; only a storage failure leaves the cell without
// a row.
type Pool struct {
	log        *logger.Logger
	jobs       <-chan scheduler.Job
	size       int
	extractor  services.ExtractionClient
	resultRepo repos.ReviewResultRepo
	notify     scheduler.Notifier
	settle     Settler
	cache      *docCache
	wg         sync.WaitGroup
}

func NewPool(
	size int,
	jobs <-chan scheduler.Job,
	extractor services.ExtractionClient,
	docTextRepo repos.DocumentTextRepo,
	resultRepo repos.ReviewResultRepo,
	notify scheduler.Notifier,
	settle Settler,
	cacheTTL time.Duration,
	baseLog *logger.Logger,
) *Pool {
	if size <= 0 {
		size = 5
	}
	return &Pool{
		log:        baseLog.With("component", "WorkerPool"),
		jobs:       jobs,
		size:       size,
		extractor:  extractor,
		resultRepo: resultRepo,
		notify:     notify,
		settle:     settle,
		cache:      newDocCache(docTextRepo, cacheTTL),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.log.Info("worker pool started", "workers", p.size)
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processJob(ctx, log, job)
		}
	}
}

func (p *Pool) processJob(ctx context.Context, log *logger.Logger, job scheduler.Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing job", "reviewID", job.ReviewID, "fileID", job.FileID, "columnID", job.ColumnID, "panic", r)
			p.settle.JobSettled(ctx, job.ReviewID)
		}
	}()

	p.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventCellProcessingStarted,
		ReviewID: job.ReviewID,
		UserID:   job.UserID,
		Payload: map[string]any{
			"file_id":     job.FileID,
			"column_id":   job.ColumnID,
			"file_name":   job.FileName,
			"column_name": job.ColumnName,
		},
		Timestamp: time.Now().UTC(),
	})

	result := p.extract(ctx, log, job)

	row := &types.ReviewResult{
		ID:              uuid.New(),
		ReviewID:        job.ReviewID,
		FileID:          job.FileID,
		ColumnID:        job.ColumnID,
		ExtractedValue:  result.Value,
		ConfidenceScore: result.ConfidenceScore,
		SourceReference: result.SourceReference,
	}
	if err := p.storeResult(ctx, log, job, row); err != nil {
		log.Error("failed to store cell result", "reviewID", job.ReviewID, "fileID", job.FileID, "columnID", job.ColumnID, "error", err)
		p.notify.Publish(ctx, realtime.Event{
			Type:     realtime.EventCellError,
			ReviewID: job.ReviewID,
			UserID:   job.UserID,
			Payload: map[string]any{
				"file_id":   job.FileID,
				"column_id": job.ColumnID,
				"error":     "failed to store result",
			},
			Timestamp: time.Now().UTC(),
		})
		p.settle.JobSettled(ctx, job.ReviewID)
		return
	}

	p.notify.Publish(ctx, realtime.Event{
		Type:     realtime.EventCellCompleted,
		ReviewID: job.ReviewID,
		UserID:   job.UserID,
		Payload: map[string]any{
			"result_id":        row.ID,
			"file_id":          job.FileID,
			"column_id":        job.ColumnID,
			"extracted_value":  row.ExtractedValue,
			"confidence_score": row.ConfidenceScore,
			"source_reference": row.SourceReference,
		},
		Timestamp: time.Now().UTC(),
	})
	p.settle.JobSettled(ctx, job.ReviewID)
}

func (p *Pool) storeResult(ctx context.Context, log *logger.Logger, job scheduler.Job, row *types.ReviewResult) error {
	backoff := upsertBackoff
	var err error
	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		if err = p.resultRepo.Upsert(ctx, nil, row); err == nil {
			return nil
		}
		if attempt == upsertAttempts {
			break
		}
		log.Warn("retrying cell result upsert", "reviewID", job.ReviewID, "fileID", job.FileID, "columnID", job.ColumnID, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// extract runs the engine for one cell. Any failure, missing document text
// included, degrades to a null value with zero confidence rather than
// abandoning the cell.
func (p *Pool) extract(ctx context.Context, log *logger.Logger, job scheduler.Job) *services.ExtractionResult {
	degraded := &services.ExtractionResult{
		Value:           nil,
		ConfidenceScore: 0.0,
		SourceReference: degradedSourceReference,
	}

	text, err := p.cache.Get(ctx, job.FileID)
	if err != nil {
		log.Warn("document text unavailable", "fileID", job.FileID, "error", err)
		return degraded
	}

	result, err := p.extractor.ExtractField(ctx, services.ExtractionRequest{
		FileName:     job.FileName,
		ColumnName:   job.ColumnName,
		Prompt:       job.Prompt,
		DataType:     job.DataType,
		DocumentText: text,
	})
	if err != nil {
		log.Warn("extraction failed", "reviewID", job.ReviewID, "fileID", job.FileID, "columnID", job.ColumnID, "error", err)
		return degraded
	}
	return result
}
