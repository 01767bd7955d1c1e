package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pdf-opticompress/internal/config"
	"github.com/yourusername/pdf-opticompress/internal/logging"
	"github.com/yourusername/pdf-opticompress/internal/pdf"
)

const (
	taskTypePDF = "pdf:process"
	queueName   = "pdf"

	defaultConcurrency = 4
)

// TaskPayload はPDF操作ジョブのペイロードです。
type TaskPayload struct {
	JobID     string            `json:"jobId"`
	Operation pdf.OperationType `json:"operation"`
}

// Manager はジョブの投入とワーカーの起動・停止を担います。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  StateStore
	logger logrus.FieldLogger
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, runner Runner, store StateStore, logger logrus.FieldLogger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if runner == nil {
		return nil, errors.New("runner is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queueName: 1,
			},
			Logger: asynqLogger{logger.WithField("component", "asynq")},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(taskTypePDF, NewWorker(runner, store, cfg.JobResultBaseURL, logger))

	return &Manager{
		client: asynq.NewClient(opt),
		server: server,
		mux:    mux,
		store:  store,
		logger: logger,
	}, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.WithError(err).Error("asynq server stopped")
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	return m.client.Close()
}

// Enqueue はジョブ状態を queued で保存してからキューに投入します。
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) (string, error) {
	task, err := newTask(payload)
	if err != nil {
		return "", err
	}

	record := &Record{
		JobID:     payload.JobID,
		Operation: payload.Operation,
		Status:    StatusQueued,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   StageQueued,
		},
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return "", err
	}

	info, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(0))
	if err != nil {
		return "", err
	}
	m.logger.WithFields(logrus.Fields{
		"jobId":  payload.JobID,
		"taskId": info.ID,
	}).Info("job enqueued")
	return info.ID, nil
}

// GetRecord はジョブ情報を取得します。
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}

func newTask(payload *TaskPayload) (*asynq.Task, error) {
	if payload == nil {
		return nil, fmt.Errorf("payload is nil")
	}
	if payload.JobID == "" {
		return nil, fmt.Errorf("payload.JobID is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskTypePDF, body, asynq.Queue(queueName)), nil
}

// asynqLogger は asynq のログを logrus に流します。
type asynqLogger struct {
	logrus.FieldLogger
}
