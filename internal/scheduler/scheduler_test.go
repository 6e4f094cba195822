package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/repos"
	"github.com/yungbote/docreview-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (fn *fakeNotifier) Publish(_ context.Context, ev realtime.Event) {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	fn.events = append(fn.events, ev)
}

func (fn *fakeNotifier) byType(et realtime.EventType) []realtime.Event {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	var out []realtime.Event
	for _, ev := range fn.events {
		if ev.Type == et {
			out = append(out, ev)
		}
	}
	return out
}

type fakeReviewRepo struct {
	repos.ReviewRepo
	mu         sync.Mutex
	statuses   map[uuid.UUID][]string
	processing []*types.Review
}

func (fr *fakeReviewRepo) UpdateStatus(_ context.Context, _ *gorm.DB, reviewID uuid.UUID, status string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.statuses == nil {
		fr.statuses = make(map[uuid.UUID][]string)
	}
	fr.statuses[reviewID] = append(fr.statuses[reviewID], status)
	return nil
}

func (fr *fakeReviewRepo) TouchProcessed(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ time.Time) error {
	return nil
}

func (fr *fakeReviewRepo) ListByStatus(_ context.Context, _ *gorm.DB, _ string) ([]*types.Review, error) {
	return fr.processing, nil
}

func (fr *fakeReviewRepo) statusHistory(reviewID uuid.UUID) []string {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return append([]string(nil), fr.statuses[reviewID]...)
}

type fakeFileRepo struct {
	repos.FileRepo
	files map[uuid.UUID]*types.File
}

func (ff *fakeFileRepo) GetByIDsForUser(_ context.Context, _ *gorm.DB, fileIDs []uuid.UUID, _ uuid.UUID) ([]*types.File, error) {
	var out []*types.File
	for _, id := range fileIDs {
		if f, ok := ff.files[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

type fakeLinkRepo struct {
	repos.ReviewFileRepo
	fileIDs []uuid.UUID
}

func (fl *fakeLinkRepo) ListFileIDs(_ context.Context, _ *gorm.DB, _ uuid.UUID) ([]uuid.UUID, error) {
	return fl.fileIDs, nil
}

type fakeColumnRepo struct {
	repos.ReviewColumnRepo
	columns []*types.ReviewColumn
}

func (fc *fakeColumnRepo) ListByReview(_ context.Context, _ *gorm.DB, _ uuid.UUID) ([]*types.ReviewColumn, error) {
	return fc.columns, nil
}

type fakeResultRepo struct {
	repos.ReviewResultRepo
	existing map[[2]uuid.UUID]bool
}

func (fr *fakeResultRepo) ExistingCells(_ context.Context, _ *gorm.DB, _ uuid.UUID) (map[[2]uuid.UUID]bool, error) {
	if fr.existing == nil {
		return map[[2]uuid.UUID]bool{}, nil
	}
	return fr.existing, nil
}

type fixture struct {
	sched    *Scheduler
	notifier *fakeNotifier
	reviews  *fakeReviewRepo
	review   *types.Review
	files    []*types.File
	columns  []*types.ReviewColumn
}

func newFixture(t *testing.T, fileCount, columnCount int, existing map[[2]uuid.UUID]bool) *fixture {
	t.Helper()
	userID := uuid.New()
	review := &types.Review{ID: uuid.New(), UserID: userID, Status: types.ReviewStatusPending}

	fileMap := make(map[uuid.UUID]*types.File)
	var files []*types.File
	var fileIDs []uuid.UUID
	for i := 0; i < fileCount; i++ {
		f := &types.File{ID: uuid.New(), UserID: userID, OriginalFilename: "doc.pdf", Status: types.FileStatusCompleted}
		fileMap[f.ID] = f
		files = append(files, f)
		fileIDs = append(fileIDs, f.ID)
	}
	var columns []*types.ReviewColumn
	for i := 0; i < columnCount; i++ {
		columns = append(columns, &types.ReviewColumn{ID: uuid.New(), ReviewID: review.ID, ColumnName: "col", Prompt: "extract", DataType: "text", ColumnOrder: i})
	}

	notifier := &fakeNotifier{}
	reviews := &fakeReviewRepo{}
	sched := NewScheduler(
		64,
		notifier,
		reviews,
		&fakeFileRepo{files: fileMap},
		&fakeLinkRepo{fileIDs: fileIDs},
		&fakeColumnRepo{columns: columns},
		&fakeResultRepo{existing: existing},
		mustTestLogger(t),
	)
	return &fixture{sched: sched, notifier: notifier, reviews: reviews, review: review, files: files, columns: columns}
}

func drainJobs(t *testing.T, sched *Scheduler) []Job {
	t.Helper()
	var jobs []Job
	for {
		select {
		case job := <-sched.Jobs():
			jobs = append(jobs, job)
		case <-time.After(100 * time.Millisecond):
			return jobs
		}
	}
}

func TestStartReviewExpandsMatrix(t *testing.T) {
	fx := newFixture(t, 2, 3, nil)

	if err := fx.sched.StartReview(context.Background(), nil, fx.review); err != nil {
		t.Fatalf("StartReview: %v", err)
	}

	jobs := drainJobs(t, fx.sched)
	if len(jobs) != 6 {
		t.Fatalf("queued jobs: want=6 got=%d", len(jobs))
	}
	seen := make(map[[2]uuid.UUID]bool)
	for _, job := range jobs {
		if job.ReviewID != fx.review.ID || job.UserID != fx.review.UserID {
			t.Fatalf("job carries wrong identifiers: %+v", job)
		}
		seen[[2]uuid.UUID{job.FileID, job.ColumnID}] = true
	}
	if len(seen) != 6 {
		t.Fatalf("distinct cells: want=6 got=%d", len(seen))
	}

	history := fx.reviews.statusHistory(fx.review.ID)
	if len(history) != 1 || history[0] != types.ReviewStatusProcessing {
		t.Fatalf("status history: want=[processing] got=%v", history)
	}
	if started := fx.notifier.byType(realtime.EventAnalysisStarted); len(started) != 1 {
		t.Fatalf("analysis_started events: want=1 got=%d", len(started))
	}
	done, total, ok := fx.sched.Progress(fx.review.ID)
	if !ok || done != 0 || total != 6 {
		t.Fatalf("progress: want=0/6 got=%d/%d ok=%v", done, total, ok)
	}
}

func TestStartReviewSkipsStoredCells(t *testing.T) {
	fx := newFixture(t, 2, 3, nil)

	// one cell already holds a stored result
	fx.sched.resultRepo = &fakeResultRepo{existing: map[[2]uuid.UUID]bool{
		{fx.files[0].ID, fx.columns[0].ID}: true,
	}}

	if err := fx.sched.StartReview(context.Background(), nil, fx.review); err != nil {
		t.Fatalf("StartReview: %v", err)
	}

	jobs := drainJobs(t, fx.sched)
	if len(jobs) != 5 {
		t.Fatalf("queued jobs: want=5 got=%d", len(jobs))
	}
	for _, job := range jobs {
		if job.FileID == fx.files[0].ID && job.ColumnID == fx.columns[0].ID {
			t.Fatalf("stored cell was re-queued")
		}
	}
	done, total, ok := fx.sched.Progress(fx.review.ID)
	if !ok || done != 1 || total != 6 {
		t.Fatalf("progress: want=1/6 got=%d/%d ok=%v", done, total, ok)
	}
}

func TestCompletionFlipsExactlyOnce(t *testing.T) {
	fx := newFixture(t, 1, 2, nil)
	ctx := context.Background()

	if err := fx.sched.StartReview(ctx, nil, fx.review); err != nil {
		t.Fatalf("StartReview: %v", err)
	}
	drainJobs(t, fx.sched)

	fx.sched.JobSettled(ctx, fx.review.ID)
	if completed := fx.notifier.byType(realtime.EventAnalysisCompleted); len(completed) != 0 {
		t.Fatalf("review completed early with %d/%d cells settled", 1, 2)
	}

	fx.sched.JobSettled(ctx, fx.review.ID)
	if completed := fx.notifier.byType(realtime.EventAnalysisCompleted); len(completed) != 1 {
		t.Fatalf("analysis_completed events: want=1 got=%d", len(completed))
	}

	// late settles after completion must not re-fire
	fx.sched.JobSettled(ctx, fx.review.ID)
	fx.sched.JobSettled(ctx, fx.review.ID)
	if completed := fx.notifier.byType(realtime.EventAnalysisCompleted); len(completed) != 1 {
		t.Fatalf("analysis_completed after extra settles: want=1 got=%d", len(completed))
	}

	history := fx.reviews.statusHistory(fx.review.ID)
	if len(history) != 2 || history[1] != types.ReviewStatusCompleted {
		t.Fatalf("status history: want=[processing completed] got=%v", history)
	}
	if _, _, ok := fx.sched.Progress(fx.review.ID); ok {
		t.Fatalf("tracker should be dropped after completion")
	}
}

func TestEmptyReviewCompletesImmediately(t *testing.T) {
	fx := newFixture(t, 0, 2, nil)

	if err := fx.sched.StartReview(context.Background(), nil, fx.review); err != nil {
		t.Fatalf("StartReview: %v", err)
	}
	if jobs := drainJobs(t, fx.sched); len(jobs) != 0 {
		t.Fatalf("queued jobs: want=0 got=%d", len(jobs))
	}
	if completed := fx.notifier.byType(realtime.EventAnalysisCompleted); len(completed) != 1 {
		t.Fatalf("analysis_completed events: want=1 got=%d", len(completed))
	}
}

func TestAddFilesGrowsMatrix(t *testing.T) {
	fx := newFixture(t, 1, 3, nil)
	ctx := context.Background()

	if err := fx.sched.StartReview(ctx, nil, fx.review); err != nil {
		t.Fatalf("StartReview: %v", err)
	}
	drainJobs(t, fx.sched)

	newFile := &types.File{ID: uuid.New(), UserID: fx.review.UserID, OriginalFilename: "late.pdf", Status: types.FileStatusCompleted}
	if err := fx.sched.AddFiles(ctx, nil, fx.review, []*types.File{newFile}); err != nil {
		t.Fatalf("AddFiles: %v", err)
	}

	jobs := drainJobs(t, fx.sched)
	if len(jobs) != 3 {
		t.Fatalf("jobs for new file: want=3 got=%d", len(jobs))
	}
	for _, job := range jobs {
		if job.FileID != newFile.ID {
			t.Fatalf("job targets wrong file: %s", job.FileID)
		}
	}
	done, total, ok := fx.sched.Progress(fx.review.ID)
	if !ok || done != 0 || total != 6 {
		t.Fatalf("progress after growth: want=0/6 got=%d/%d ok=%v", done, total, ok)
	}
}

func TestAddColumnGrowsMatrix(t *testing.T) {
	fx := newFixture(t, 2, 1, nil)
	ctx := context.Background()

	if err := fx.sched.StartReview(ctx, nil, fx.review); err != nil {
		t.Fatalf("StartReview: %v", err)
	}
	drainJobs(t, fx.sched)

	column := &types.ReviewColumn{ID: uuid.New(), ReviewID: fx.review.ID, ColumnName: "extra", Prompt: "find it", DataType: "text"}
	if err := fx.sched.AddColumn(ctx, nil, fx.review, column); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}

	jobs := drainJobs(t, fx.sched)
	if len(jobs) != 2 {
		t.Fatalf("jobs for new column: want=2 got=%d", len(jobs))
	}
	for _, job := range jobs {
		if job.ColumnID != column.ID || job.Prompt != "find it" {
			t.Fatalf("job carries wrong column data: %+v", job)
		}
	}
	if started := fx.notifier.byType(realtime.EventColumnAnalysisStarted); len(started) != 1 {
		t.Fatalf("column_analysis_started events: want=1 got=%d", len(started))
	}
}
