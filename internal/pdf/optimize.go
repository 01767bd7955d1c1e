package pdf

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
	"github.com/yourusername/pdf-opticompress/internal/storage"
)

const optimizedFilename = "optimized.pdf"

type optimizeState struct {
	ws      storage.Workspace
	file    storedFile
	preset  optimizer.Preset
	quality int
}

// PrepareOptimizeJob はアップロードを保存してマニフェストを作成します。処理はまだ行いません。
func (s *Service) PrepareOptimizeJob(ctx context.Context, file *multipart.FileHeader, preset optimizer.Preset, quality int) (*JobManifest, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if file == nil {
		return nil, optimizer.NewError(optimizer.CodeInvalidInput, "PDFファイルを選択してください。", nil)
	}
	if quality < 0 || quality > 100 {
		return nil, optimizer.NewError(optimizer.CodeInvalidInput, fmt.Sprintf("qualityは0〜100で指定してください (received: %d)", quality), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ws, err := s.workspaces.Create()
	if err != nil {
		return nil, err
	}

	stored, err := s.storeMultipartFile(ctx, file, ws.InDir)
	if err != nil {
		_ = s.workspaces.Remove(ws)
		return nil, err
	}

	manifest := &JobManifest{
		JobID:     ws.JobID,
		Operation: OperationOptimize,
		Files:     []JobFile{newJobFile(stored)},
		Preset:    preset,
		Quality:   quality,
		CreatedAt: s.now().UTC(),
	}
	if err := writeManifest(ws, manifest); err != nil {
		_ = s.workspaces.Remove(ws)
		return nil, fmt.Errorf("ジョブマニフェストの保存に失敗しました: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"jobId":  ws.JobID,
		"file":   stored.originalName,
		"size":   stored.size,
		"pages":  stored.pages,
		"preset": preset,
	}).Info("optimize job prepared")
	return manifest, nil
}

func (s *Service) executeOptimize(ctx context.Context, state *optimizeState, progress ProgressReporter) (*Result, error) {
	ws := state.ws
	stored := state.file
	outputPath := filepath.Join(ws.OutDir, optimizedFilename)

	res, err := s.optimizer.OptimizeFile(ctx, stored.path, outputPath, optimizer.Options{
		Quality:  state.quality,
		Preset:   state.preset,
		Progress: progress,
	})
	if err != nil {
		return nil, err
	}

	outInfo, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("最適化後ファイルの確認に失敗しました: %w", err)
	}

	meta := &OptimizeMeta{
		OriginalSize:    res.OriginalSize,
		OutputSize:      outInfo.Size(),
		SavedBytes:      res.OriginalSize - outInfo.Size(),
		SavedPercent:    optimizer.SavedPercent(res.OriginalSize, outInfo.Size()),
		ImagesOptimized: res.ImagesOptimized,
		Preset:          res.Preset,
		Quality:         res.Quality,
		ElapsedMillis:   res.Elapsed.Milliseconds(),
		Analysis:        res.Analysis,
		Source: SourceFileMeta{
			Name:  stored.originalName,
			Size:  stored.size,
			Pages: stored.pages,
		},
	}

	metaPayload := struct {
		Type      OperationType `json:"type"`
		CreatedAt string        `json:"createdAt"`
		*OptimizeMeta
	}{
		Type:         OperationOptimize,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
		OptimizeMeta: meta,
	}
	if err := writeJSON(ws.Path("meta.json"), metaPayload); err != nil {
		return nil, fmt.Errorf("メタデータの保存に失敗しました: %w", err)
	}

	s.workspaces.ExpireAfter(ws, time.Duration(s.expireMinutes())*time.Minute)

	return &Result{
		JobID:          ws.JobID,
		Operation:      OperationOptimize,
		OutputPath:     outputPath,
		OutputFilename: outputFilename(stored.originalName),
		OutputSize:     outInfo.Size(),
		ResultKind:     ResultKindPDF,
		Meta:           meta,
		jobDir:         ws.Dir,
	}, nil
}

// outputFilename は元のファイル名から <name>.optimized.pdf を作ります。
func outputFilename(original string) string {
	if original == "" || original == "." {
		return optimizedFilename
	}
	return filepath.Base(optimizer.OutputPath(original, ""))
}
