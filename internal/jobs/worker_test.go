package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
	"github.com/yourusername/pdf-opticompress/internal/pdf"
)

type memStore struct {
	mu       sync.Mutex
	records  map[string]*Record
	progress []ProgressInfo
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*Record)}
}

func (s *memStore) Get(ctx context.Context, jobID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[jobID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) Upsert(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.JobID] = &cp
	return nil
}

func (s *memStore) update(jobID string, mutate func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[jobID]
	if !ok {
		return ErrJobNotFound
	}
	mutate(r)
	return nil
}

func (s *memStore) UpdateProgress(ctx context.Context, jobID string, progress ProgressInfo) error {
	return s.update(jobID, func(r *Record) {
		s.progress = append(s.progress, progress)
		r.Progress = progress
	})
}

func (s *memStore) MarkDone(ctx context.Context, jobID string, downloadURL string, meta any) error {
	return s.update(jobID, func(r *Record) { markDone(r, downloadURL, meta) })
}

func (s *memStore) MarkFailed(ctx context.Context, jobID string, errInfo *ErrorInfo) error {
	return s.update(jobID, func(r *Record) { markFailed(r, errInfo) })
}

type stubRunner struct {
	result *pdf.Result
	err    error
}

func (r *stubRunner) RunJob(ctx context.Context, jobID string, reporter pdf.ProgressReporter) (*pdf.Result, error) {
	if reporter != nil {
		reporter(optimizer.StageImages, 50)
	}
	return r.result, r.err
}

func newTestTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()
	task, err := newTask(&TaskPayload{JobID: jobID, Operation: pdf.OperationOptimize})
	require.NoError(t, err)
	return task
}

func TestWorkerMarksDone(t *testing.T) {
	store := newMemStore()
	meta := &pdf.OptimizeMeta{OriginalSize: 1000, OutputSize: 400}
	runner := &stubRunner{result: &pdf.Result{JobID: "job-1", OutputFilename: "a.optimized.pdf", Meta: meta}}
	worker := NewWorker(runner, store, "", nil)

	require.NoError(t, worker.ProcessTask(context.Background(), newTestTask(t, "job-1")))

	record, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, StatusSucceeded, record.Status)
	assert.Equal(t, 100, record.Progress.Percent)
	assert.Equal(t, optimizer.StageCompleted, record.Progress.Stage)
	assert.Equal(t, "/api/jobs/job-1/download", record.DownloadURL)
	assert.Same(t, meta, record.Meta)
	assert.Nil(t, record.Error)
	assert.Equal(t, []ProgressInfo{{Stage: optimizer.StageImages, Percent: 50}}, store.progress)
}

func TestWorkerRecordsErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "coded error",
			err:      optimizer.NewError(optimizer.CodeUnsupportedPDF, "PDFを読み込めません。", errors.New("xref")),
			wantCode: optimizer.CodeUnsupportedPDF,
		},
		{
			name:     "canceled",
			err:      context.Canceled,
			wantCode: "REQUEST_CANCELED",
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			wantCode: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			worker := NewWorker(&stubRunner{err: tt.err}, store, "", nil)

			require.NoError(t, worker.ProcessTask(context.Background(), newTestTask(t, "job-2")))

			record, err := store.Get(context.Background(), "job-2")
			require.NoError(t, err)
			require.NotNil(t, record.Error)
			assert.Equal(t, StatusFailed, record.Status)
			assert.Equal(t, tt.wantCode, record.Error.Code)
		})
	}
}

func TestWorkerRejectsBadPayload(t *testing.T) {
	worker := NewWorker(&stubRunner{}, newMemStore(), "", nil)

	err := worker.ProcessTask(context.Background(), asynq.NewTask(taskTypePDF, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = worker.ProcessTask(context.Background(), asynq.NewTask(taskTypePDF, []byte(`{"operation":"optimize"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestBuildDownloadURL(t *testing.T) {
	result := &pdf.Result{JobID: "abc", OutputFilename: "報告 書.optimized.pdf"}

	assert.Equal(t, "/api/jobs/abc/download", NewWorker(nil, nil, "", nil).buildDownloadURL(result))
	assert.Equal(t,
		"https://cdn.example.com/results/abc/%E5%A0%B1%E5%91%8A%20%E6%9B%B8.optimized.pdf",
		NewWorker(nil, nil, "https://cdn.example.com/results/", nil).buildDownloadURL(result),
	)
}

func TestNewTask(t *testing.T) {
	_, err := newTask(nil)
	assert.Error(t, err)
	_, err = newTask(&TaskPayload{})
	assert.Error(t, err)

	task, err := newTask(&TaskPayload{JobID: "job-3", Operation: pdf.OperationOptimize})
	require.NoError(t, err)
	assert.Equal(t, taskTypePDF, task.Type())

	var payload TaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "job-3", payload.JobID)
	assert.Equal(t, pdf.OperationOptimize, payload.Operation)
}

func TestWorkerSkipsFinishedJob(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Upsert(context.Background(), &Record{JobID: "job-4", Status: StatusSucceeded, DownloadURL: "/dl"}))
	runner := &stubRunner{err: errors.New("must not run")}

	require.NoError(t, NewWorker(runner, store, "", nil).ProcessTask(context.Background(), newTestTask(t, "job-4")))

	record, err := store.Get(context.Background(), "job-4")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, record.Status)
	assert.Equal(t, "/dl", record.DownloadURL)
	assert.Empty(t, store.progress)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
