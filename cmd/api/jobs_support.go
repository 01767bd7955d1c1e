package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pdf-opticompress/internal/config"
	"github.com/yourusername/pdf-opticompress/internal/jobs"
	"github.com/yourusername/pdf-opticompress/internal/pdf"
)

const redisPingTimeout = 3 * time.Second

// jobEnqueuer は pdfJobScheduler が必要とする Manager の操作です。
type jobEnqueuer interface {
	Enqueue(ctx context.Context, payload *jobs.TaskPayload) (string, error)
}

// jobRecordReader はジョブ状態の参照です。
type jobRecordReader interface {
	GetRecord(ctx context.Context, jobID string) (*jobs.Record, error)
}

// resultOpener はジョブ成果物の参照です。
type resultOpener interface {
	OpenResultFile(jobID string) (*pdf.Result, *os.File, error)
}

type pdfJobScheduler struct {
	manager jobEnqueuer
}

func (s *pdfJobScheduler) Schedule(ctx context.Context, op pdf.OperationType, jobID string) error {
	_, err := s.manager.Enqueue(ctx, &jobs.TaskPayload{
		JobID:     jobID,
		Operation: op,
	})
	return err
}

// setupJobs は Redis に接続し、ジョブマネージャーを作成します。接続できない場合はエラーを返します。
func setupJobs(cfg *config.Config, pdfService *pdf.Service, logger logrus.FieldLogger) (*jobs.Manager, error) {
	if strings.TrimSpace(cfg.QueueRedisURL) == "" {
		return nil, errors.New("QUEUE_REDIS_URL is empty")
	}
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	ttlMinutes := cfg.JobExpireMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 10
	}
	store := jobs.NewStore(redisClient, time.Duration(ttlMinutes)*time.Minute)
	return jobs.NewManager(cfg, pdfService, store, logger)
}

func jobStatusHandler(manager jobRecordReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		if strings.TrimSpace(jobID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		record, err := manager.GetRecord(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブ情報の取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "指定されたジョブは存在しません。",
			})
			return
		}

		payload := gin.H{
			"jobId":     record.JobID,
			"operation": record.Operation,
			"status":    record.Status,
			"progress": gin.H{
				"percent": record.Progress.Percent,
				"stage":   record.Progress.Stage,
				"message": record.Progress.Message,
			},
			"updatedAt": record.UpdatedAt,
			"expiresAt": record.ExpiresAt,
		}
		if record.DownloadURL != "" {
			payload["downloadUrl"] = record.DownloadURL
		}
		if record.Meta != nil {
			payload["meta"] = record.Meta
		}
		if record.Error != nil {
			payload["error"] = record.Error
		}

		c.JSON(http.StatusOK, payload)
	}
}

func jobDownloadHandler(results resultOpener) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		if strings.TrimSpace(jobID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "jobId を指定してください。",
			})
			return
		}

		result, file, err := results.OpenResultFile(jobID)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.JSON(http.StatusNotFound, gin.H{
					"code":    "JOB_RESULT_NOT_FOUND",
					"message": "ジョブの成果物が見つかりませんでした。",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "ジョブの成果物取得に失敗しました。",
			})
			return
		}
		defer file.Close()

		pdf.ServeResult(c, result, file)
	}
}
