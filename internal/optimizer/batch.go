package optimizer

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/pdf-opticompress/internal/storage"
)

// DefaultWorkers はバッチ処理の既定ワーカー数です。
const DefaultWorkers = 4

const optimizedExt = ".optimized.pdf"

// BatchOptions はバッチ処理の設定です。
type BatchOptions struct {
	OutputDir string
	Workers   int
	Quality   int
	Preset    Preset
	// OnItem は各ファイルの処理完了時に呼ばれます。呼び出しは直列化されます。
	OnItem func(BatchItem)
}

// BatchItem は1ファイル分の処理結果です。Result と Err のどちらか一方が設定されます。
type BatchItem struct {
	Index  int     `json:"index"`
	Input  string  `json:"input"`
	Output string  `json:"output"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// BatchSummary はバッチ全体の集計です。合計値は成功したファイルのみを数えます。
type BatchSummary struct {
	Items          []BatchItem `json:"items"`
	Succeeded      int         `json:"succeeded"`
	Failed         int         `json:"failed"`
	TotalOriginal  int64       `json:"totalOriginal"`
	TotalOptimized int64       `json:"totalOptimized"`
	TotalImages    int         `json:"totalImages"`
	Ratio          float64     `json:"compressionRatio"`
}

// OutputPath は入力に対応する出力パスを返します。
// outDir 指定時は outDir/<ベース名>、それ以外は拡張子を .optimized.pdf に置き換えます。
func OutputPath(input, outDir string) string {
	if storage.IsRemote(input) {
		base := path.Base(strings.SplitN(strings.SplitN(input, "?", 2)[0], "#", 2)[0])
		if base == "" || base == "/" || base == "." || strings.HasSuffix(input, "/") {
			base = "download.pdf"
		}
		if outDir != "" {
			return filepath.Join(outDir, base)
		}
		return strings.TrimSuffix(base, filepath.Ext(base)) + optimizedExt
	}
	if outDir != "" {
		return filepath.Join(outDir, filepath.Base(input))
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + optimizedExt
}

// Batch は inputs を固定数のワーカーで並列に最適化します。
// 1ファイルの失敗は他のファイルの処理を止めません。結果は入力順に並びます。
func (o *Optimizer) Batch(ctx context.Context, inputs []string, opts BatchOptions) *BatchSummary {
	if ctx == nil {
		ctx = context.Background()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	items := make([]BatchItem, len(inputs))
	var mu sync.Mutex

	var outDirErr error
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			outDirErr = NewError(CodeIO, "出力ディレクトリを作成できません: "+opts.OutputDir, err)
		}
	}

	outputs, clashes := assignOutputs(inputs, opts.OutputDir)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, input := range inputs {
		g.Go(func() error {
			item := BatchItem{Index: i, Input: input, Output: outputs[i]}
			switch {
			case outDirErr != nil:
				item.Err = outDirErr
			case clashes[i] != nil:
				item.Err = clashes[i]
			default:
				item.Result, item.Err = o.OptimizeFile(ctx, input, item.Output, Options{
					Quality: opts.Quality,
					Preset:  opts.Preset,
				})
			}
			if item.Err != nil {
				o.logger.WithField("input", input).WithError(item.Err).Warn("batch item failed")
			}

			mu.Lock()
			items[i] = item
			if opts.OnItem != nil {
				opts.OnItem(item)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return summarize(items)
}

// assignOutputs は各入力の出力パスを決め、先に現れた入力と同じ出力先になるものをエラーにします。
func assignOutputs(inputs []string, outDir string) ([]string, []error) {
	outputs := make([]string, len(inputs))
	clashes := make([]error, len(inputs))
	owner := make(map[string]string, len(inputs))
	for i, input := range inputs {
		outputs[i] = OutputPath(input, outDir)
		key := filepath.Clean(outputs[i])
		if first, taken := owner[key]; taken {
			clashes[i] = NewError(CodeInvalidInput, "出力先が "+first+" と重複しています: "+outputs[i], nil)
			continue
		}
		owner[key] = input
	}
	return outputs, clashes
}

func summarize(items []BatchItem) *BatchSummary {
	s := &BatchSummary{Items: items}
	for _, item := range items {
		if item.Err != nil || item.Result == nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.TotalOriginal += item.Result.OriginalSize
		s.TotalOptimized += item.Result.OptimizedSize
		s.TotalImages += item.Result.ImagesOptimized
	}
	s.Ratio = CompressionRatio(s.TotalOriginal, s.TotalOptimized)
	return s
}
