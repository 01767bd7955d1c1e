package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/pdf-opticompress/internal/optimizer"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var showSavings bool

	cmd := &cobra.Command{
		Use:   "analyze <input>",
		Short: "PDFの内訳を解析します（ファイルは変更しません）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.optimizer.AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			optimizer.WriteAnalysis(a.stdout, report.Analysis, showSavings)
			fmt.Fprintf(a.stdout, "\nページ数: %d\n", report.Pages)
			fmt.Fprintf(a.stdout, "ファイルサイズ: %s\n", optimizer.FormatBytes(report.Size))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSavings, "show-savings", false, "削減見積もりを表示する")
	return cmd
}
