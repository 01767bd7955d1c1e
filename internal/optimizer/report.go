package optimizer

import (
	"fmt"
	"io"
	"math"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes はバイト数を B/KB/MB/GB/TB 表記に変換します（KB以上は小数1桁）。
func FormatBytes(n int64) string {
	if n < 0 {
		return "-" + FormatBytes(-n)
	}
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", n, byteUnits[0])
	}
	return fmt.Sprintf("%.1f %s", size, byteUnits[unit])
}

// CompressionRatio は削減率（%）を返します。original が0以下なら0です。
// 出力が大きくなった場合は負の値になります。
func CompressionRatio(original, optimized int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-optimized) / float64(original) * 100
}

// SavedPercent は CompressionRatio を小数1桁に丸めた値です。
func SavedPercent(original, optimized int64) float64 {
	return math.Round(CompressionRatio(original, optimized)*10) / 10
}

// WriteResult は最適化結果を出力します。
func WriteResult(w io.Writer, r *Result) {
	fmt.Fprintln(w, "\n最適化結果:")
	fmt.Fprintln(w, "===========")
	fmt.Fprintf(w, "元のサイズ: %s\n", FormatBytes(r.OriginalSize))
	fmt.Fprintf(w, "最適化後のサイズ: %s\n", FormatBytes(r.OptimizedSize))
	fmt.Fprintf(w, "削減率: %.1f%%\n", r.Ratio)
	fmt.Fprintf(w, "最適化した画像: %d\n", r.ImagesOptimized)
	fmt.Fprintf(w, "処理時間: %.2fs\n", r.Elapsed.Seconds())
	if r.Ratio > 0 {
		fmt.Fprintf(w, "削減バイト数: %s\n", FormatBytes(r.OriginalSize-r.OptimizedSize))
	}
}

// WriteAnalysis は解析結果を出力します。showSavings が true なら削減見積もりも出力します。
func WriteAnalysis(w io.Writer, a *Analysis, showSavings bool) {
	fmt.Fprintln(w, "PDF解析結果:")
	fmt.Fprintln(w, "============")
	fmt.Fprintf(w, "オブジェクト総数: %d\n", a.TotalObjects)
	fmt.Fprintf(w, "画像: %d\n", a.ImageCount)
	fmt.Fprintf(w, "フォント: %d\n", a.FontCount)
	fmt.Fprintf(w, "テキストオブジェクト: %d\n", a.TextObjects)
	fmt.Fprintln(w)

	b := a.Breakdown
	fmt.Fprintln(w, "内訳:")
	fmt.Fprintf(w, "画像: %s\n", FormatBytes(b.ImagesSize))
	fmt.Fprintf(w, "フォント: %s\n", FormatBytes(b.FontsSize))
	fmt.Fprintf(w, "テキスト: %s\n", FormatBytes(b.TextSize))
	fmt.Fprintf(w, "その他: %s\n", FormatBytes(b.OtherSize))
	fmt.Fprintf(w, "合計: %s\n", FormatBytes(b.TotalSize))

	if showSavings {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "削減見積もり:")
		fmt.Fprintf(w, "画像圧縮: %.1f%%\n", a.Savings.ImageCompression)
		fmt.Fprintf(w, "構造最適化: %.1f%%\n", a.Savings.StructureOptimization)
		fmt.Fprintf(w, "合計見積もり: %.1f%%\n", a.Savings.TotalEstimated)
	}
}

// WriteBatchItem はバッチの1ファイル分の行を出力します。失敗は errW に出力します。
func WriteBatchItem(w, errW io.Writer, item BatchItem, total int) {
	fmt.Fprintf(w, "処理中 %d/%d: %s\n", item.Index+1, total, item.Input)
	if item.Err != nil {
		fmt.Fprintf(errW, "  ✗ 失敗: %v\n", item.Err)
		return
	}
	r := item.Result
	fmt.Fprintf(w, "  ✓ %.1f%% 削減 (%s)\n", r.Ratio, FormatBytes(r.OriginalSize-r.OptimizedSize))
}

// WriteBatchSummary はバッチ全体の集計を出力します。
func WriteBatchSummary(w io.Writer, s *BatchSummary) {
	fmt.Fprintln(w, "\nバッチ集計:")
	fmt.Fprintln(w, "===========")
	fmt.Fprintf(w, "処理済みファイル: %d/%d\n", s.Succeeded, len(s.Items))
	fmt.Fprintf(w, "元のサイズ合計: %s\n", FormatBytes(s.TotalOriginal))
	fmt.Fprintf(w, "最適化後のサイズ合計: %s\n", FormatBytes(s.TotalOptimized))
	fmt.Fprintf(w, "全体の削減率: %.1f%%\n", s.Ratio)
	fmt.Fprintf(w, "最適化した画像の合計: %d\n", s.TotalImages)
}
