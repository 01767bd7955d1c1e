// Package main は opticompress CLI のエントリーポイントです。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pdf-opticompress/internal/config"
	"github.com/yourusername/pdf-opticompress/internal/imaging"
	"github.com/yourusername/pdf-opticompress/internal/logging"
	"github.com/yourusername/pdf-opticompress/internal/optimizer"
	"github.com/yourusername/pdf-opticompress/internal/pdfstore"
	"github.com/yourusername/pdf-opticompress/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run はコマンドを実行し、終了コードを返します。
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "エラー: %s\n", describeError(err))
		return 1
	}
	return 0
}

// app はサブコマンド間で共有する依存関係です。PersistentPreRunE で組み立てます。
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	optimizer *optimizer.Optimizer

	stdout io.Writer
	stderr io.Writer

	logLevel  string
	logFormat string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "opticompress",
		Short:         "PDFのサイズを画像再圧縮と構造圧縮で削減します",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "ログ形式 (text, json)")

	root.AddCommand(
		newOptimizeCmd(a),
		newAnalyzeCmd(a),
		newBatchCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, a.stderr)
	if err != nil {
		return err
	}

	fetcher := storage.NewFetcher(&http.Client{Timeout: cfg.FetchTimeout}, cfg.TempDir, cfg.MaxFileSize)
	a.cfg = cfg
	a.logger = logger
	a.optimizer = optimizer.New(
		pdfstore.New(),
		imaging.NewStandard(),
		optimizer.WithStager(fetcher),
		optimizer.WithLogger(logger),
	)
	return nil
}

// qualityAndPreset はフラグ未指定の場合に環境変数（.env.local を含む）の値を使います。
func (a *app) qualityAndPreset(cmd *cobra.Command, quality int, preset string) (int, optimizer.Preset, error) {
	if !cmd.Flags().Changed("quality") {
		quality = a.cfg.Quality
	}
	if !cmd.Flags().Changed("preset") {
		preset = a.cfg.Preset
	}
	if quality < 0 || quality > 100 {
		return 0, "", optimizer.NewError(optimizer.CodeInvalidInput, fmt.Sprintf("qualityは0〜100で指定してください (received: %d)", quality), nil)
	}
	p, err := optimizer.ParsePreset(preset)
	if err != nil {
		return 0, "", err
	}
	return quality, p, nil
}

func describeError(err error) string {
	var coded *optimizer.Error
	if errors.As(err, &coded) {
		return fmt.Sprintf("[%s] %s", coded.Code, err.Error())
	}
	return err.Error()
}
