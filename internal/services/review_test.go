package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils/tests"

	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/repos"
	"github.com/yungbote/docreview-backend/internal/scheduler"
	"github.com/yungbote/docreview-backend/internal/types"
)

// stubTxConn satisfies gorm's transaction committer so db.Transaction runs
// its body without a live connection; the repo fakes ignore the tx anyway.
type stubTxConn struct{}

func (stubTxConn) PrepareContext(context.Context, string) (*sql.Stmt, error) { return nil, nil }
func (stubTxConn) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (stubTxConn) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (stubTxConn) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (stubTxConn) Commit() error                                                    { return nil }
func (stubTxConn) Rollback() error                                                  { return nil }

func mustStubDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{
		ConnPool:                 stubTxConn{},
		SkipDefaultTransaction:   true,
		DisableNestedTransaction: true,
		Logger:                   gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db
}

type fakeReviewRepo struct {
	repos.ReviewRepo
	review        *types.Review
	statusHistory []string
}

func (fr *fakeReviewRepo) Create(_ context.Context, _ *gorm.DB, review *types.Review) (*types.Review, error) {
	fr.review = review
	return review, nil
}

func (fr *fakeReviewRepo) GetByIDForUser(_ context.Context, _ *gorm.DB, reviewID, userID uuid.UUID) (*types.Review, error) {
	if fr.review == nil || fr.review.ID != reviewID || fr.review.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return fr.review, nil
}

func (fr *fakeReviewRepo) UpdateStatus(_ context.Context, _ *gorm.DB, _ uuid.UUID, status string) error {
	fr.statusHistory = append(fr.statusHistory, status)
	return nil
}

func (fr *fakeReviewRepo) TouchProcessed(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ time.Time) error {
	return nil
}

type fakeColumnRepo struct {
	repos.ReviewColumnRepo
	column   *types.ReviewColumn
	maxOrder int
	updated  *types.ReviewColumn
	created  []*types.ReviewColumn
}

func (fc *fakeColumnRepo) GetByID(_ context.Context, _ *gorm.DB, columnID, reviewID uuid.UUID) (*types.ReviewColumn, error) {
	if fc.column == nil || fc.column.ID != columnID || fc.column.ReviewID != reviewID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *fc.column
	return &cp, nil
}

func (fc *fakeColumnRepo) ListByReview(_ context.Context, _ *gorm.DB, _ uuid.UUID) ([]*types.ReviewColumn, error) {
	if fc.column == nil {
		return nil, nil
	}
	return []*types.ReviewColumn{fc.column}, nil
}

func (fc *fakeColumnRepo) MaxOrder(_ context.Context, _ *gorm.DB, _ uuid.UUID) (int, error) {
	return fc.maxOrder, nil
}

func (fc *fakeColumnRepo) Update(_ context.Context, _ *gorm.DB, column *types.ReviewColumn) error {
	fc.updated = column
	return nil
}

func (fc *fakeColumnRepo) Create(_ context.Context, _ *gorm.DB, columns []*types.ReviewColumn) ([]*types.ReviewColumn, error) {
	fc.created = append(fc.created, columns...)
	return columns, nil
}

type fakeLinkRepo struct {
	repos.ReviewFileRepo
	fileIDs []uuid.UUID
}

func (fl *fakeLinkRepo) Create(_ context.Context, _ *gorm.DB, links []*types.ReviewFile) ([]*types.ReviewFile, error) {
	known := make(map[uuid.UUID]bool, len(fl.fileIDs))
	for _, id := range fl.fileIDs {
		known[id] = true
	}
	for _, link := range links {
		if !known[link.FileID] {
			fl.fileIDs = append(fl.fileIDs, link.FileID)
		}
	}
	return links, nil
}

func (fl *fakeLinkRepo) ListFileIDs(_ context.Context, _ *gorm.DB, _ uuid.UUID) ([]uuid.UUID, error) {
	return fl.fileIDs, nil
}

func (fl *fakeLinkRepo) ExistingFileIDs(_ context.Context, _ *gorm.DB, _ uuid.UUID, fileIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	known := make(map[uuid.UUID]bool, len(fl.fileIDs))
	for _, id := range fl.fileIDs {
		known[id] = true
	}
	out := make(map[uuid.UUID]bool)
	for _, id := range fileIDs {
		if known[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (fl *fakeLinkRepo) Count(_ context.Context, _ *gorm.DB, _ uuid.UUID) (int64, error) {
	return int64(len(fl.fileIDs)), nil
}

type fakeFileRepo struct {
	repos.FileRepo
	files []*types.File
}

func (ff *fakeFileRepo) GetByIDsForUser(_ context.Context, _ *gorm.DB, fileIDs []uuid.UUID, _ uuid.UUID) ([]*types.File, error) {
	wanted := make(map[uuid.UUID]bool, len(fileIDs))
	for _, id := range fileIDs {
		wanted[id] = true
	}
	var out []*types.File
	for _, f := range ff.files {
		if wanted[f.ID] {
			out = append(out, f)
		}
	}
	return out, nil
}

type fakeResultRepo struct {
	repos.ReviewResultRepo
	stored         int64
	deletedColumns []uuid.UUID
}

func (fr *fakeResultRepo) DeleteByColumn(_ context.Context, _ *gorm.DB, _, columnID uuid.UUID) error {
	fr.deletedColumns = append(fr.deletedColumns, columnID)
	return nil
}

func (fr *fakeResultRepo) CountByReview(_ context.Context, _ *gorm.DB, _ uuid.UUID) (int64, error) {
	return fr.stored, nil
}

func (fr *fakeResultRepo) ExistingCells(_ context.Context, _ *gorm.DB, _ uuid.UUID) (map[[2]uuid.UUID]bool, error) {
	return map[[2]uuid.UUID]bool{}, nil
}

type capturingNotifier struct {
	NotifierService
	events []realtime.Event
}

func (cn *capturingNotifier) Publish(_ context.Context, ev realtime.Event) {
	cn.events = append(cn.events, ev)
}

func (cn *capturingNotifier) byType(t realtime.EventType) []realtime.Event {
	var out []realtime.Event
	for _, ev := range cn.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type reviewFixture struct {
	svc     ReviewService
	sched   *scheduler.Scheduler
	reviews *fakeReviewRepo
	columns *fakeColumnRepo
	files   *fakeFileRepo
	results *fakeResultRepo
	notify  *capturingNotifier
	review  *types.Review
	column  *types.ReviewColumn
	userID  uuid.UUID
}

func newReviewFixture(t *testing.T, status string, fileCount int) *reviewFixture {
	t.Helper()

	userID := uuid.New()
	review := &types.Review{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        "contract batch",
		Status:      status,
		ReviewScope: types.ReviewScopeFiles,
	}
	column := &types.ReviewColumn{
		ID:          uuid.New(),
		ReviewID:    review.ID,
		ColumnName:  "Effective Date",
		Prompt:      "Extract the contract effective date",
		DataType:    "date",
		ColumnOrder: 0,
	}

	files := make([]*types.File, 0, fileCount)
	fileIDs := make([]uuid.UUID, 0, fileCount)
	for i := 0; i < fileCount; i++ {
		f := &types.File{
			ID:               uuid.New(),
			UserID:           userID,
			OriginalFilename: fmt.Sprintf("contract-%d.pdf", i),
			Status:           types.FileStatusCompleted,
		}
		files = append(files, f)
		fileIDs = append(fileIDs, f.ID)
	}

	reviews := &fakeReviewRepo{review: review}
	columns := &fakeColumnRepo{column: column}
	links := &fakeLinkRepo{fileIDs: fileIDs}
	fileRepo := &fakeFileRepo{files: files}
	results := &fakeResultRepo{}
	notify := &capturingNotifier{}

	sched := scheduler.NewScheduler(64, notify, reviews, fileRepo, links, columns, results, mustTestLogger(t))
	svc := NewReviewService(mustStubDB(t), mustTestLogger(t), sched, notify, reviews, columns, links, results, fileRepo, nil)

	return &reviewFixture{
		svc:     svc,
		sched:   sched,
		reviews: reviews,
		columns: columns,
		files:   fileRepo,
		results: results,
		notify:  notify,
		review:  review,
		column:  column,
		userID:  userID,
	}
}

func collectJobs(t *testing.T, jobs <-chan scheduler.Job, want int) []scheduler.Job {
	t.Helper()
	out := make([]scheduler.Job, 0, want)
	for len(out) < want {
		select {
		case job := <-jobs:
			out = append(out, job)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("collected %d jobs, want %d", len(out), want)
		}
	}
	return out
}

func TestUpdateColumnPromptEditReanalyzes(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusCompleted, 3)

	column, err := fx.svc.UpdateColumn(context.Background(), fx.review.ID, fx.column.ID, fx.userID, UpdateColumnInput{
		Prompt: "Extract the termination date instead",
	})
	require.NoError(t, err)
	assert.Equal(t, "Extract the termination date instead", column.Prompt)
	require.NotNil(t, fx.columns.updated)
	assert.Equal(t, "Extract the termination date instead", fx.columns.updated.Prompt)

	require.Equal(t, []uuid.UUID{fx.column.ID}, fx.results.deletedColumns)
	require.Equal(t, []string{types.ReviewStatusProcessing}, fx.reviews.statusHistory)

	jobs := collectJobs(t, fx.sched.Jobs(), 3)
	for _, job := range jobs {
		assert.Equal(t, fx.column.ID, job.ColumnID)
		assert.Equal(t, "Extract the termination date instead", job.Prompt)
	}

	updated := fx.notify.byType(realtime.EventColumnUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, true, updated[0].Payload["prompt_changed"])
	require.Len(t, fx.notify.byType(realtime.EventColumnAnalysisStarted), 1)
}

func TestUpdateColumnNameOnlyEditSkipsReanalysis(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusCompleted, 3)

	column, err := fx.svc.UpdateColumn(context.Background(), fx.review.ID, fx.column.ID, fx.userID, UpdateColumnInput{
		ColumnName: "Start Date",
	})
	require.NoError(t, err)
	assert.Equal(t, "Start Date", column.ColumnName)
	assert.Equal(t, fx.column.Prompt, column.Prompt)

	assert.Empty(t, fx.results.deletedColumns)
	assert.Empty(t, fx.reviews.statusHistory)
	assert.Len(t, fx.sched.Jobs(), 0)

	updated := fx.notify.byType(realtime.EventColumnUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, false, updated[0].Payload["prompt_changed"])
}

func TestUpdateColumnPromptEditOnPendingReviewReanalyzes(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusPending, 2)

	_, err := fx.svc.UpdateColumn(context.Background(), fx.review.ID, fx.column.ID, fx.userID, UpdateColumnInput{
		Prompt: "Extract the governing law clause",
	})
	require.NoError(t, err)

	require.Equal(t, []uuid.UUID{fx.column.ID}, fx.results.deletedColumns)
	require.Equal(t, []string{types.ReviewStatusProcessing}, fx.reviews.statusHistory)

	jobs := collectJobs(t, fx.sched.Jobs(), 2)
	for _, job := range jobs {
		assert.Equal(t, "Extract the governing law clause", job.Prompt)
	}
}

func TestAddColumnOnCompletedReviewQueuesCells(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusCompleted, 2)
	fx.columns.maxOrder = 0

	column, err := fx.svc.AddColumn(context.Background(), fx.review.ID, fx.userID, CreateColumnInput{
		ColumnName: "Total Value",
		Prompt:     "Extract the total contract value",
	})
	require.NoError(t, err)
	assert.Equal(t, "text", column.DataType)
	assert.Equal(t, 1, column.ColumnOrder)
	require.Len(t, fx.columns.created, 1)

	require.Equal(t, []string{types.ReviewStatusProcessing}, fx.reviews.statusHistory)

	jobs := collectJobs(t, fx.sched.Jobs(), 2)
	for _, job := range jobs {
		assert.Equal(t, column.ID, job.ColumnID)
	}

	require.Len(t, fx.notify.byType(realtime.EventColumnAdded), 1)
	require.Len(t, fx.notify.byType(realtime.EventColumnAnalysisStarted), 1)
}

func TestAddColumnOnPendingReviewQueuesCells(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusPending, 2)

	column, err := fx.svc.AddColumn(context.Background(), fx.review.ID, fx.userID, CreateColumnInput{
		ColumnName: "Governing Law",
		Prompt:     "Extract the governing law clause",
	})
	require.NoError(t, err)

	require.Equal(t, []string{types.ReviewStatusProcessing}, fx.reviews.statusHistory)

	jobs := collectJobs(t, fx.sched.Jobs(), 2)
	for _, job := range jobs {
		assert.Equal(t, column.ID, job.ColumnID)
	}
	require.Len(t, fx.notify.byType(realtime.EventColumnAnalysisStarted), 1)
}

func TestAddFilesOnPendingReviewQueuesCells(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusPending, 1)
	newFile := &types.File{
		ID:               uuid.New(),
		UserID:           fx.userID,
		OriginalFilename: "contract-late.pdf",
		Status:           types.FileStatusCompleted,
	}
	fx.files.files = append(fx.files.files, newFile)

	added, err := fx.svc.AddFiles(context.Background(), fx.review.ID, fx.userID, []uuid.UUID{newFile.ID})
	require.NoError(t, err)
	require.Len(t, added, 1)

	require.Equal(t, []string{types.ReviewStatusProcessing}, fx.reviews.statusHistory)

	jobs := collectJobs(t, fx.sched.Jobs(), 1)
	assert.Equal(t, newFile.ID, jobs[0].FileID)
	require.Len(t, fx.notify.byType(realtime.EventFilesAdded), 1)
	require.Len(t, fx.notify.byType(realtime.EventFilesAnalysisStarted), 1)
}

func TestCreateReviewStartsAnalysis(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusPending, 2)

	fileIDs := make([]uuid.UUID, 0, len(fx.files.files))
	for _, f := range fx.files.files {
		fileIDs = append(fileIDs, f.ID)
	}

	review, err := fx.svc.CreateReview(context.Background(), fx.userID, CreateReviewInput{
		Name:    "contract batch",
		FileIDs: fileIDs,
		Columns: []CreateColumnInput{{ColumnName: "Effective Date", Prompt: "Extract the contract effective date"}},
	})
	require.NoError(t, err)
	require.Equal(t, types.ReviewStatusProcessing, review.Status)
	require.Equal(t, []string{types.ReviewStatusProcessing}, fx.reviews.statusHistory)

	jobs := collectJobs(t, fx.sched.Jobs(), 2)
	for _, job := range jobs {
		assert.Equal(t, review.ID, job.ReviewID)
	}

	started := fx.notify.byType(realtime.EventAnalysisStarted)
	require.Len(t, started, 1)
	assert.Equal(t, 2, started[0].Payload["total_cells"])
}

func TestCreateReviewRejectsInvalidScope(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusPending, 0)

	_, err := fx.svc.CreateReview(context.Background(), fx.userID, CreateReviewInput{
		Name:        "bad scope",
		ReviewScope: "everything",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid review scope")

	_, err = fx.svc.CreateReview(context.Background(), fx.userID, CreateReviewInput{
		Name:        "missing folder",
		ReviewScope: types.ReviewScopeFolder,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folder_id required")
}

func TestGetProgressFallsBackToStoredCounts(t *testing.T) {
	fx := newReviewFixture(t, types.ReviewStatusProcessing, 4)
	fx.results.stored = 3

	progress, err := fx.svc.GetProgress(context.Background(), fx.review.ID, fx.userID)
	require.NoError(t, err)
	assert.Equal(t, types.ReviewStatusProcessing, progress.Status)
	assert.Equal(t, 4, progress.TotalCells)
	assert.Equal(t, 3, progress.CompletedCells)
	assert.InDelta(t, 75.0, progress.Percentage, 0.001)
}
