package pdf

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
)

// JobRunner はジョブを実行できるサービスが実装します。
type JobRunner interface {
	RunJob(ctx context.Context, jobID string, reporter ProgressReporter) (*Result, error)
	DiscardJob(jobID string) error
}

// OptimizeService は最適化ジョブの準備と実行を提供します。
type OptimizeService interface {
	JobRunner
	PrepareOptimizeJob(ctx context.Context, file *multipart.FileHeader, preset optimizer.Preset, quality int) (*JobManifest, error)
}

// AnalyzeService は解析を提供します。
type AnalyzeService interface {
	AnalyzeMultipart(ctx context.Context, file *multipart.FileHeader) (*AnalyzeResult, error)
}

// JobScheduler はジョブを非同期キューに投入するためのインターフェースです。
type JobScheduler interface {
	Schedule(ctx context.Context, op OperationType, jobID string) error
}

// HandlerOptions は同期/非同期切り替えと既定値の設定です。
type HandlerOptions struct {
	Scheduler           JobScheduler
	AsyncThresholdBytes int64
	AsyncThresholdPages int
	DefaultQuality      int
	DefaultPreset       optimizer.Preset
}

// OptimizeHandler は POST /api/pdf/optimize のハンドラーを返します。
func OptimizeHandler(svc OptimizeService, opts HandlerOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    optimizer.CodeInvalidInput,
				"message": "multipart/form-data でPDFファイルを送信してください。",
			})
			return
		}
		defer form.RemoveAll()

		file, err := extractSingleFile(form)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    optimizer.CodeInvalidInput,
				"message": err.Error(),
			})
			return
		}

		preset := opts.DefaultPreset
		if raw := strings.TrimSpace(c.PostForm("preset")); raw != "" {
			preset, err = optimizer.ParsePreset(raw)
			if err != nil {
				respondWithError(c, err)
				return
			}
		}

		quality, err := parseQuality(c.PostForm("quality"), opts.DefaultQuality)
		if err != nil {
			respondWithError(c, err)
			return
		}

		manifest, err := svc.PrepareOptimizeJob(c.Request.Context(), file, preset, quality)
		if err != nil {
			respondWithError(c, err)
			return
		}

		if shouldProcessAsync(manifest, opts) {
			if err := opts.Scheduler.Schedule(c.Request.Context(), manifest.Operation, manifest.JobID); err != nil {
				if cleanupErr := svc.DiscardJob(manifest.JobID); cleanupErr != nil {
					err = fmt.Errorf("%w (cleanup failed: %v)", err, cleanupErr)
				}
				respondWithError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"jobId": manifest.JobID})
			return
		}

		result, err := svc.RunJob(c.Request.Context(), manifest.JobID, nil)
		if err != nil {
			respondWithError(c, err)
			return
		}
		defer result.Cleanup()

		if err := streamResult(c, result, "最適化結果の読み込みに失敗しました"); err != nil {
			respondWithError(c, err)
		}
	}
}

// AnalyzeHandler は POST /api/pdf/analyze のハンドラーを返します。
func AnalyzeHandler(svc AnalyzeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    optimizer.CodeInvalidInput,
				"message": "multipart/form-data でPDFファイルを送信してください。",
			})
			return
		}
		defer form.RemoveAll()

		file, err := extractSingleFile(form)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    optimizer.CodeInvalidInput,
				"message": err.Error(),
			})
			return
		}

		result, err := svc.AnalyzeMultipart(c.Request.Context(), file)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func shouldProcessAsync(manifest *JobManifest, opts HandlerOptions) bool {
	if manifest == nil || opts.Scheduler == nil {
		return false
	}
	if opts.AsyncThresholdBytes > 0 && manifest.TotalSize() > opts.AsyncThresholdBytes {
		return true
	}
	return opts.AsyncThresholdPages > 0 && manifest.TotalPages() > opts.AsyncThresholdPages
}

func parseQuality(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	q, err := strconv.Atoi(raw)
	if err != nil || q < 0 || q > 100 {
		return 0, optimizer.NewError(optimizer.CodeInvalidInput, "qualityは0〜100の整数で指定してください。", nil)
	}
	return q, nil
}

func respondWithError(c *gin.Context, err error) {
	var apiErr *optimizer.Error
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		switch apiErr.Code {
		case optimizer.CodeLimitExceeded:
			status = http.StatusRequestEntityTooLarge
		case optimizer.CodeUnsupportedPDF, optimizer.CodeCodec:
			status = http.StatusUnprocessableEntity
		case optimizer.CodeIO:
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}

func extractSingleFile(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, errors.New("PDFファイルを選択してください。")
	}
	for _, key := range []string{"file", "file[]", "files", "files[]"} {
		if files := form.File[key]; len(files) > 0 {
			return files[0], nil
		}
	}
	return nil, errors.New("PDFファイルを選択してください。")
}

// ServeResult は成果物をダウンロードとして返します。
func ServeResult(c *gin.Context, result *Result, file *os.File) {
	writeResultHeaders(c, result)
	c.DataFromReader(http.StatusOK, result.OutputSize, contentTypeOf(result), file, nil)
}

func streamResult(c *gin.Context, result *Result, readErrMsg string) error {
	file, err := os.Open(result.OutputPath)
	if err != nil {
		return fmt.Errorf("%s: %w", readErrMsg, err)
	}
	defer file.Close()

	ServeResult(c, result, file)
	return nil
}

func contentTypeOf(result *Result) string {
	if result.ResultKind == ResultKindPDF {
		return "application/pdf"
	}
	return "application/octet-stream"
}

func writeResultHeaders(c *gin.Context, result *Result) {
	encodedName := url.PathEscape(result.OutputFilename)
	c.Header("Content-Type", contentTypeOf(result))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", result.OutputFilename, encodedName))
	c.Header("Cache-Control", "no-store")
	c.Header("X-Job-Id", result.JobID)
	if meta, ok := result.Meta.(*OptimizeMeta); ok {
		c.Header("X-Original-Size", strconv.FormatInt(meta.OriginalSize, 10))
		c.Header("X-Saved-Percent", strconv.FormatFloat(meta.SavedPercent, 'f', 1, 64))
	}
}
