package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RunJob はジョブIDに対応するPDF処理を実行します。失敗時は作業ディレクトリを削除します。
func (s *Service) RunJob(ctx context.Context, jobID string, reporter ProgressReporter) (*Result, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	ws, err := s.workspaces.For(jobID)
	if err != nil {
		return nil, err
	}
	manifest, err := loadManifest(ws)
	if err != nil {
		_ = s.workspaces.Remove(ws)
		return nil, err
	}

	var (
		result *Result
		runErr error
	)

	switch manifest.Operation {
	case OperationOptimize:
		state := &optimizeState{
			ws:      ws,
			file:    manifest.Files[0].storedIn(ws.InDir),
			preset:  manifest.Preset,
			quality: manifest.Quality,
		}
		result, runErr = s.executeOptimize(ctx, state, reporter)
	default:
		runErr = fmt.Errorf("unsupported operation: %s", manifest.Operation)
	}

	if runErr != nil {
		if cleanupErr := s.workspaces.Remove(ws); cleanupErr != nil {
			runErr = fmt.Errorf("%w (ワークスペースの削除にも失敗しました: %v)", runErr, cleanupErr)
		}
		s.logger.WithField("jobId", jobID).WithError(runErr).Warn("job failed")
		return nil, runErr
	}

	return result, nil
}

// DiscardJob は未実行ジョブの作業ディレクトリを削除します。
func (s *Service) DiscardJob(jobID string) error {
	ws, err := s.workspaces.For(jobID)
	if err != nil {
		return err
	}
	return s.workspaces.Remove(ws)
}

var operationOutput = map[OperationType]ResultKind{
	OperationOptimize: ResultKindPDF,
}

// OpenResultFile はジョブIDに対応する成果物ファイルを開き、Result 情報とファイルハンドルを返します。
func (s *Service) OpenResultFile(jobID string) (*Result, *os.File, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, nil, fmt.Errorf("jobID is required")
	}

	ws, err := s.workspaces.For(jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", os.ErrNotExist, err)
	}
	manifest, err := loadManifest(ws)
	if err != nil {
		return nil, nil, err
	}
	kind, ok := operationOutput[manifest.Operation]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported operation for result download: %s", manifest.Operation)
	}

	outputPath := filepath.Join(ws.OutDir, optimizedFilename)
	file, err := os.Open(outputPath)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	result := &Result{
		JobID:          jobID,
		Operation:      manifest.Operation,
		OutputPath:     outputPath,
		OutputFilename: outputFilename(manifest.Files[0].OriginalName),
		OutputSize:     info.Size(),
		ResultKind:     kind,
		jobDir:         ws.Dir,
	}

	return result, file, nil
}
