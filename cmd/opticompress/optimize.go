package main

import (
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
)

var stageLabels = map[string]string{
	optimizer.StageLoad:      "読み込み",
	optimizer.StageAnalyze:   "解析",
	optimizer.StageImages:    "画像最適化",
	optimizer.StageCompress:  "構造圧縮",
	optimizer.StageWrite:     "書き込み",
	optimizer.StageCompleted: "完了",
}

func newOptimizeCmd(a *app) *cobra.Command {
	var (
		quality int
		preset  string
	)

	cmd := &cobra.Command{
		Use:   "optimize <input> <output>",
		Short: "1つのPDFを最適化します",
		Long: `画像を再圧縮・縮小し、オブジェクトストリームで構造を圧縮して出力します。
入力には http(s):// のURLも指定できます。`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, p, err := a.qualityAndPreset(cmd, quality, preset)
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(100,
				progressbar.OptionSetWriter(a.stderr),
				progressbar.OptionSetDescription(stageLabels[optimizer.StageLoad]),
				progressbar.OptionSetWidth(30),
				progressbar.OptionClearOnFinish(),
			)

			result, err := a.optimizer.OptimizeFile(cmd.Context(), args[0], args[1], optimizer.Options{
				Quality: q,
				Preset:  p,
				Progress: func(stage string, percent int) {
					bar.Describe(stageLabels[stage])
					_ = bar.Set(percent)
				},
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}

			optimizer.WriteResult(a.stdout, result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&quality, "quality", "q", optimizer.DefaultQuality, "画像品質 (0-100)")
	cmd.Flags().StringVarP(&preset, "preset", "p", string(optimizer.DefaultPreset), "プリセット (web, print, archive, maximum)")
	return cmd
}
