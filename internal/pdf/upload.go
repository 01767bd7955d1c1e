package pdf

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
)

const sourceFilename = "source.pdf"

type storedFile struct {
	path         string
	originalName string
	size         int64
	pages        int
	analysis     *optimizer.Analysis
}

// storeMultipartFile はアップロードファイルを dir に保存し、PDFであることを確認します。
func (s *Service) storeMultipartFile(ctx context.Context, file *multipart.FileHeader, dir string) (storedFile, error) {
	if file == nil {
		return storedFile{}, optimizer.NewError(optimizer.CodeInvalidInput, "PDFファイルを選択してください。", nil)
	}
	limit := s.cfg.MaxFileSize
	if limit > 0 && file.Size > limit {
		return storedFile{}, limitExceeded(limit)
	}

	src, err := file.Open()
	if err != nil {
		return storedFile{}, fmt.Errorf("アップロードファイルを開けません: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, sourceFilename)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return storedFile{}, fmt.Errorf("アップロードファイルの保存に失敗しました: %w", err)
	}

	var reader io.Reader = src
	if limit > 0 {
		reader = io.LimitReader(src, limit+1)
	}
	n, copyErr := io.Copy(dst, reader)
	if closeErr := dst.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return storedFile{}, fmt.Errorf("アップロードファイルの保存に失敗しました: %w", copyErr)
	}
	if limit > 0 && n > limit {
		return storedFile{}, limitExceeded(limit)
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return storedFile{}, fmt.Errorf("ファイル形式の判定に失敗しました: %w", err)
	}
	if !mime.Is("application/pdf") {
		return storedFile{}, optimizer.NewError(optimizer.CodeInvalidInput, fmt.Sprintf("PDFファイルのみ処理できます (detected: %s)", mime.String()), nil)
	}

	report, err := s.optimizer.AnalyzeFile(ctx, path)
	if err != nil {
		return storedFile{}, err
	}

	return storedFile{
		path:         path,
		originalName: filepath.Base(file.Filename),
		size:         n,
		pages:        report.Pages,
		analysis:     report.Analysis,
	}, nil
}

func limitExceeded(limit int64) error {
	return optimizer.NewError(optimizer.CodeLimitExceeded, fmt.Sprintf("ファイルサイズが上限（%s）を超えています。", optimizer.FormatBytes(limit)), nil)
}
