package main

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
)

var errNoneSucceeded = errors.New("すべてのファイルの最適化に失敗しました")

func newBatchCmd(a *app) *cobra.Command {
	var (
		outputDir string
		threads   int
		quality   int
		preset    string
	)

	cmd := &cobra.Command{
		Use:   "batch <files...>",
		Short: "複数のPDFを並列に最適化します",
		Long: `各ファイルを固定数のワーカーで最適化します。1ファイルの失敗は他に影響しません。
--output-dir を省略すると <名前>.optimized.pdf を入力と同じ場所に書き出します。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, p, err := a.qualityAndPreset(cmd, quality, preset)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threads") {
				threads = a.cfg.Threads
			}

			summary := a.optimizer.Batch(cmd.Context(), args, optimizer.BatchOptions{
				OutputDir: outputDir,
				Workers:   threads,
				Quality:   q,
				Preset:    p,
				OnItem: func(item optimizer.BatchItem) {
					optimizer.WriteBatchItem(a.stdout, a.stderr, item, len(args))
				},
			})

			optimizer.WriteBatchSummary(a.stdout, summary)
			a.logger.WithFields(logrus.Fields{
				"files":     len(args),
				"succeeded": summary.Succeeded,
				"failed":    summary.Failed,
			}).Debug("batch finished")
			if summary.Succeeded == 0 {
				return errNoneSucceeded
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "出力ディレクトリ")
	cmd.Flags().IntVarP(&threads, "threads", "t", optimizer.DefaultWorkers, "ワーカー数")
	cmd.Flags().IntVarP(&quality, "quality", "q", optimizer.DefaultQuality, "画像品質 (0-100)")
	cmd.Flags().StringVarP(&preset, "preset", "p", string(optimizer.DefaultPreset), "プリセット (web, print, archive, maximum)")
	return cmd
}
