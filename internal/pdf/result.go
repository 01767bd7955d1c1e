package pdf

import (
	"sync"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
	"github.com/yourusername/pdf-opticompress/internal/storage"
)

// OperationType はPDF処理の種別を表します。
type OperationType string

const (
	OperationOptimize OperationType = "optimize"
)

// ResultKind は生成される成果物の種別を表します。
type ResultKind string

const (
	ResultKindPDF ResultKind = "pdf"
)

// Result はPDF処理の成果を表します。
type Result struct {
	JobID          string        `json:"jobId"`
	Operation      OperationType `json:"operation"`
	OutputPath     string        `json:"outputPath"`
	OutputFilename string        `json:"outputFilename"`
	OutputSize     int64         `json:"outputSize"`
	ResultKind     ResultKind    `json:"resultKind"`
	Meta           any           `json:"meta,omitempty"`

	jobDir      string
	cleanupOnce sync.Once
	cleanupErr  error
}

// Cleanup は作業ディレクトリを削除します。
func (r *Result) Cleanup() error {
	if r == nil {
		return nil
	}
	r.cleanupOnce.Do(func() {
		r.cleanupErr = storage.RemoveDir(r.jobDir)
	})
	return r.cleanupErr
}

// SourceFileMeta は入力ファイルの情報です。
type SourceFileMeta struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages"`
}

// OptimizeMeta は最適化処理のメタデータです。
type OptimizeMeta struct {
	OriginalSize    int64               `json:"originalSize"`
	OutputSize      int64               `json:"outputSize"`
	SavedBytes      int64               `json:"savedBytes"`
	SavedPercent    float64             `json:"savedPercent"`
	ImagesOptimized int                 `json:"imagesOptimized"`
	Preset          optimizer.Preset    `json:"preset"`
	Quality         int                 `json:"quality"`
	ElapsedMillis   int64               `json:"elapsedMs"`
	Analysis        *optimizer.Analysis `json:"analysis,omitempty"`
	Source          SourceFileMeta      `json:"source"`
}

// AnalyzeResult は解析エンドポイントの応答です。
type AnalyzeResult struct {
	Source   SourceFileMeta      `json:"source"`
	Analysis *optimizer.Analysis `json:"analysis"`
}
