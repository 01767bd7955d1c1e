// Package jobs は Asynq と Redis による非同期ジョブの投入・実行・状態管理を提供します。
package jobs

import (
	"time"

	"github.com/yourusername/pdf-opticompress/internal/pdf"
)

// Status はジョブの実行状態を表します。queued → running → done|error の順に進みます。
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "done"
	StatusFailed    Status = "error"
)

// Terminal は以後状態が変わらない場合に true を返します。
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// StageQueued はワーカーが取り出す前のステージです。以降は optimizer のステージを記録します。
const StageQueued = "queued"

// ProgressInfo は進捗です。Stage には optimizer.Stage* の値が入ります。
type ProgressInfo struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorInfo は失敗時のコード（optimizer.Code* など）とメッセージです。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record は Redis に保存するジョブの現在状態です。Meta は完了時の pdf.OptimizeMeta です。
type Record struct {
	JobID       string            `json:"jobId"`
	Operation   pdf.OperationType `json:"operation"`
	Status      Status            `json:"status"`
	Progress    ProgressInfo      `json:"progress"`
	DownloadURL string            `json:"downloadUrl,omitempty"`
	Meta        any               `json:"meta,omitempty"`
	Error       *ErrorInfo        `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}
