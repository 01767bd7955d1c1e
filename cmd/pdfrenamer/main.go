// Package main は pdfrenamer CLI のエントリーポイントです。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/pdf-opticompress/internal/config"
	"github.com/yourusername/pdf-opticompress/internal/logging"
	"github.com/yourusername/pdf-opticompress/internal/pdfstore"
	"github.com/yourusername/pdf-opticompress/internal/renamer"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run はコマンドを実行し、終了コードを返します。
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "エラー: %v\n", err)
		return 1
	}
	return 0
}

type options struct {
	input     string
	pattern   string
	threads   int
	dryRun    bool
	logLevel  string
	logFormat string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "pdfrenamer --input <file|dir>",
		Short: "PDFのメタデータ（Title/Author）からファイル名を付け直します",
		Long: `Title が無い場合は1ページ目の本文、それも無い場合は Untitled を使います。
Author があれば "<タイトル> - <著者>" とし、記号を '_' に置き換えて50文字に切り詰めます。
ディレクトリを指定すると直下の *.pdf をすべて処理します。`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(cmd, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "PDFファイルまたはディレクトリ")
	cmd.Flags().StringVarP(&opts.pattern, "pattern", "p", string(renamer.PatternTitle), "命名パターン (title, filename)")
	cmd.Flags().IntVarP(&opts.threads, "threads", "t", 0, "ディレクトリ処理のワーカー数（既定は OPTI_THREADS）")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "リネームせずに新しい名前だけを表示する")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "ログ形式 (text, json)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runRename(cmd *cobra.Command, opts options, stdout, stderr io.Writer) error {
	pattern, err := renamer.ParsePattern(opts.pattern)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return err
	}
	threads := opts.threads
	if threads <= 0 {
		threads = cfg.Threads
	}

	info, err := os.Stat(opts.input)
	if err != nil {
		return fmt.Errorf("入力を確認できません: %w", err)
	}

	r := renamer.New(pdfstore.New(), renamer.PlainText{}, logger)

	if !info.IsDir() {
		outcome := r.Rename(opts.input, pattern, opts.dryRun)
		printOutcome(stdout, stderr, outcome, opts.dryRun)
		return outcome.Err
	}

	fmt.Fprintf(stdout, "ディレクトリ内のPDFをリネームします: %s\n", opts.input)
	outcomes, err := r.RenameDir(cmd.Context(), opts.input, pattern, threads, opts.dryRun)
	if err != nil {
		return err
	}

	var failed int
	for _, o := range outcomes {
		printOutcome(stdout, stderr, o, opts.dryRun)
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 && failed == len(outcomes) {
		return errors.New("すべてのファイルのリネームに失敗しました")
	}
	return nil
}

func printOutcome(stdout, stderr io.Writer, o renamer.Outcome, dryRun bool) {
	switch {
	case o.Err != nil:
		fmt.Fprintf(stderr, "  ✗ %s: %v\n", o.From, o.Err)
	case o.To == o.From:
		fmt.Fprintf(stdout, "変更なし: %s\n", o.From)
	case dryRun:
		fmt.Fprintf(stdout, "[dry-run] %s -> %s\n", o.From, o.To)
	default:
		fmt.Fprintf(stdout, "リネーム: %s -> %s\n", o.From, o.To)
	}
}
