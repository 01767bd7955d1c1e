// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pdf-opticompress/internal/auth"
	"github.com/yourusername/pdf-opticompress/internal/config"
	"github.com/yourusername/pdf-opticompress/internal/imaging"
	"github.com/yourusername/pdf-opticompress/internal/jobs"
	"github.com/yourusername/pdf-opticompress/internal/logging"
	"github.com/yourusername/pdf-opticompress/internal/optimizer"
	"github.com/yourusername/pdf-opticompress/internal/pdf"
	"github.com/yourusername/pdf-opticompress/internal/pdfstore"
	"github.com/yourusername/pdf-opticompress/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, nil)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create logger")
	}

	gin.SetMode(cfg.GinMode)

	workspaces := storage.NewWorkspaces(filepath.Join(cfg.TempDir, "jobs"))
	opt := optimizer.New(pdfstore.New(), imaging.NewStandard(), optimizer.WithLogger(logger))
	pdfService, err := pdf.NewService(cfg, opt, workspaces, logger.WithField("component", "pdf"))
	if err != nil {
		logger.WithError(err).Fatal("failed to create pdf service")
	}

	// Redis が使えない場合は同期処理のみで起動する
	jobManager, err := setupJobs(cfg, pdfService, logger.WithField("component", "jobs"))
	if err != nil {
		logger.WithError(err).Warn("async jobs disabled")
	} else {
		jobManager.StartWorkers()
	}

	router := newRouter(cfg, logger, pdfService, jobManager)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithFields(logrus.Fields{"addr": srv.Addr, "mode": cfg.GinMode}).Info("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	if jobManager != nil {
		if err := jobManager.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("job manager shutdown failed")
		}
	}
}

// newRouter はミドルウェアとルーティングを組み立てます。jobManager が nil の場合は非同期処理を無効にします。
func newRouter(cfg *config.Config, logger *logrus.Logger, pdfService *pdf.Service, jobManager *jobs.Manager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// セッションストアの設定（クッキー署名鍵は必須）
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitOrigins(cfg.CORSAllowedOrigins)
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		"X-CSRF-Token",
	}
	// フロントエンドがレスポンスヘッダーから CSRF トークンと削減率を読み取れるように公開
	corsConfig.ExposeHeaders = []string{"X-CSRF-Token", "X-Job-Id", "X-Original-Size", "X-Saved-Percent", "Content-Disposition"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, logger, pdfService, jobManager)
	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "pdf-opticompress-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, logger *logrus.Logger, pdfService *pdf.Service, jobManager *jobs.Manager) {
	router.GET("/health", handleHealth)

	authManager := auth.NewManager(cfg, logger.WithField("component", "auth"))

	handlerOpts := pdf.HandlerOptions{
		AsyncThresholdBytes: cfg.AsyncThresholdBytes,
		AsyncThresholdPages: cfg.AsyncThresholdPages,
		DefaultQuality:      cfg.Quality,
		DefaultPreset:       optimizer.Preset(cfg.Preset),
	}
	if jobManager != nil {
		handlerOpts.Scheduler = &pdfJobScheduler{manager: jobManager}
	}

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			// ログイン時はセッション未生成なので CSRF 検証は不要
			authRoutes.POST("/login", authManager.Login)
			authRoutes.POST("/logout",
				authManager.RequireLogin(),
				authManager.VerifyCSRF(),
				authManager.Logout,
			)
		}

		protected := api.Group("")
		protected.Use(authManager.RequireLogin(), authManager.VerifyCSRF())
		{
			protected.POST("/pdf/optimize", pdf.OptimizeHandler(pdfService, handlerOpts))
			protected.POST("/pdf/analyze", pdf.AnalyzeHandler(pdfService))

			if jobManager != nil {
				protected.GET("/jobs/:id", jobStatusHandler(jobManager))
			}
			protected.GET("/jobs/:id/download", jobDownloadHandler(pdfService))
		}
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// requestLogger はリクエストごとに1行のアクセスログを出力します。
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("request")
	}
}
