// Package pdf はアップロードされたPDFの最適化・解析をHTTP経由で提供します。
//
// 入力は作業ディレクトリ（<root>/<jobId>/in）に保存し、マニフェストを書き出してから
// 同期実行または非同期ジョブとして処理します。
package pdf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pdf-opticompress/internal/config"
	"github.com/yourusername/pdf-opticompress/internal/logging"
	"github.com/yourusername/pdf-opticompress/internal/optimizer"
	"github.com/yourusername/pdf-opticompress/internal/storage"
)

const defaultCleanupMin = 10

// ProgressReporter は進捗更新用コールバックです。
type ProgressReporter = optimizer.ProgressReporter

// Optimizer はサービスが利用する最適化パイプラインです。
type Optimizer interface {
	OptimizeFile(ctx context.Context, input, output string, opts optimizer.Options) (*optimizer.Result, error)
	AnalyzeFile(ctx context.Context, input string) (*optimizer.FileReport, error)
}

// Service はPDF処理のユースケースをまとめます。
type Service struct {
	cfg        *config.Config
	optimizer  Optimizer
	workspaces *storage.Workspaces
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewService は Service を生成します。logger が nil の場合はログを出力しません。
func NewService(cfg *config.Config, opt Optimizer, workspaces *storage.Workspaces, logger logrus.FieldLogger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if opt == nil {
		return nil, errors.New("optimizer is nil")
	}
	if workspaces == nil {
		return nil, errors.New("workspaces is nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if err := os.MkdirAll(workspaces.Root(), 0o750); err != nil {
		return nil, fmt.Errorf("作業ディレクトリのルート作成に失敗しました: %w", err)
	}
	return &Service{
		cfg:        cfg,
		optimizer:  opt,
		workspaces: workspaces,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *Service) expireMinutes() int {
	if s.cfg.JobExpireMinutes <= 0 {
		return defaultCleanupMin
	}
	return s.cfg.JobExpireMinutes
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o640)
}
