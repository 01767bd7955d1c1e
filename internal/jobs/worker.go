package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pdf-opticompress/internal/logging"
	"github.com/yourusername/pdf-opticompress/internal/optimizer"
	"github.com/yourusername/pdf-opticompress/internal/pdf"
)

// Runner はジョブIDに対応する処理を実行します。pdf.Service が実装します。
type Runner interface {
	RunJob(ctx context.Context, jobID string, reporter pdf.ProgressReporter) (*pdf.Result, error)
}

// Worker は asynq のタスクを受け取り、Runner を実行して状態を記録します。
type Worker struct {
	runner  Runner
	store   StateStore
	baseURL string
	logger  logrus.FieldLogger
}

// NewWorker は Worker を作成します。baseURL が空の場合は /api/jobs/<id>/download を返します。
func NewWorker(runner Runner, store StateStore, baseURL string, logger logrus.FieldLogger) *Worker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Worker{
		runner:  runner,
		store:   store,
		baseURL: baseURL,
		logger:  logger,
	}
}

// ProcessTask は asynq.Handler の実装です。
// ジョブ自体の失敗は状態に記録し、再試行させないため nil を返します。
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload: %w", asynq.SkipRetry)
	}

	log := w.logger.WithField("jobId", payload.JobID)

	record, err := w.store.Get(ctx, payload.JobID)
	if err != nil {
		return err
	}
	if record == nil {
		record = &Record{JobID: payload.JobID, Operation: payload.Operation}
	}
	if record.Status.Terminal() {
		log.WithField("status", record.Status).Info("job already finished, skipping")
		return nil
	}
	record.Status = StatusRunning
	record.Progress = ProgressInfo{Percent: 0, Stage: optimizer.StageLoad}
	if err := w.store.Upsert(ctx, record); err != nil {
		return err
	}

	result, err := w.runner.RunJob(ctx, payload.JobID, func(stage string, percent int) {
		if err := w.store.UpdateProgress(ctx, payload.JobID, ProgressInfo{
			Stage:   stage,
			Percent: percent,
		}); err != nil {
			log.WithError(err).Warn("failed to update progress")
		}
	})
	if err != nil {
		log.WithError(err).Warn("job failed")
		return w.failJobWithError(ctx, payload.JobID, err)
	}
	log.Info("job completed")
	return w.finishJob(ctx, payload.JobID, result)
}

func (w *Worker) finishJob(ctx context.Context, jobID string, result *pdf.Result) error {
	if result == nil {
		return w.store.MarkFailed(ctx, jobID, &ErrorInfo{
			Code:    "INTERNAL_ERROR",
			Message: "処理結果が空です。",
		})
	}
	return w.store.MarkDone(ctx, jobID, w.buildDownloadURL(result), result.Meta)
}

func (w *Worker) failJobWithError(ctx context.Context, jobID string, err error) error {
	ctx = context.WithoutCancel(ctx)
	info := &ErrorInfo{Code: "INTERNAL_ERROR", Message: err.Error()}
	var apiErr *optimizer.Error
	switch {
	case errors.As(err, &apiErr):
		info = &ErrorInfo{Code: apiErr.Code, Message: apiErr.Message}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		info = &ErrorInfo{Code: "REQUEST_CANCELED", Message: "ジョブがキャンセルされました。"}
	}
	return w.store.MarkFailed(ctx, jobID, info)
}

func (w *Worker) buildDownloadURL(result *pdf.Result) string {
	if w.baseURL == "" {
		return fmt.Sprintf("/api/jobs/%s/download", result.JobID)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(w.baseURL, "/"), result.JobID, url.PathEscape(result.OutputFilename))
}
