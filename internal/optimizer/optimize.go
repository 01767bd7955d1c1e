package optimizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pdf-opticompress/internal/imaging"
	"github.com/yourusername/pdf-opticompress/internal/logging"
	"github.com/yourusername/pdf-opticompress/internal/pdfdoc"
)

// Options は1ファイル分の最適化設定です。
type Options struct {
	Quality  int
	Preset   Preset
	Progress ProgressReporter
}

// Result は1ファイル分の最適化結果です。
type Result struct {
	Input           string        `json:"input"`
	Output          string        `json:"output"`
	OriginalSize    int64         `json:"originalSize"`
	OptimizedSize   int64         `json:"optimizedSize"`
	Ratio           float64       `json:"compressionRatio"`
	ImagesOptimized int           `json:"imagesOptimized"`
	Elapsed         time.Duration `json:"elapsed"`
	Preset          Preset        `json:"preset"`
	Quality         int           `json:"quality"`
	Analysis        *Analysis     `json:"analysis,omitempty"`
}

// FileReport は analyze の結果です。
type FileReport struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Pages    int       `json:"pages"`
	Analysis *Analysis `json:"analysis"`
}

// Optimizer はPDF最適化パイプラインを実行します。
// 状態を持たないため、複数のゴルーチンから同時に利用できます。
type Optimizer struct {
	store  pdfdoc.Store
	codec  imaging.Codec
	stager Stager
	logger logrus.FieldLogger
	now    func() time.Time
}

// Option は Optimizer の設定関数です。
type Option func(*Optimizer)

// WithStager はURL入力などのステージング方法を設定します。
func WithStager(s Stager) Option {
	return func(o *Optimizer) {
		if s != nil {
			o.stager = s
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock は経過時間計測用の時計を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) {
		if now != nil {
			o.now = now
		}
	}
}

// New は Optimizer を生成します。
func New(store pdfdoc.Store, codec imaging.Codec, opts ...Option) *Optimizer {
	o := &Optimizer{
		store:  store,
		codec:  codec,
		stager: localStager{},
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OptimizeFile は input を読み込み、最適化したPDFを output に書き出します。
func (o *Optimizer) OptimizeFile(ctx context.Context, input, output string, opts Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if output == "" {
		return nil, NewError(CodeInvalidInput, "出力先を指定してください。", nil)
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	settings := DeriveImageSettings(preset, opts.Quality)
	saveOpts := DeriveSaveOptions(preset)
	start := o.now()

	log := o.logger.WithFields(logrus.Fields{"input": input, "preset": preset, "quality": settings.Quality})

	path, cleanup, err := stageInput(ctx, o.stager, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	doc, err := o.load(path)
	if err != nil {
		return nil, err
	}
	reportProgress(opts.Progress, StageLoad, 10)

	if err := Validate(doc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis := Analyze(doc)
	log.WithFields(logrus.Fields{"objects": analysis.TotalObjects, "images": analysis.ImageCount}).Debug("analyzed document")
	reportProgress(opts.Progress, StageAnalyze, 20)

	optimized, err := OptimizeImages(doc, o.codec, settings)
	if err != nil {
		return nil, err
	}
	reportProgress(opts.Progress, StageImages, 50)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if saveOpts.Compress {
		if err := doc.Compress(); err != nil {
			return nil, NewError(CodeUnsupportedPDF, "PDFの構造圧縮に失敗しました。", err)
		}
	}
	reportProgress(opts.Progress, StageCompress, 80)

	if err := o.save(doc, output); err != nil {
		return nil, err
	}
	reportProgress(opts.Progress, StageWrite, 90)

	before, err := fileSize(path)
	if err != nil {
		return nil, err
	}
	after, err := fileSize(output)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Input:           input,
		Output:          output,
		OriginalSize:    before,
		OptimizedSize:   after,
		Ratio:           CompressionRatio(before, after),
		ImagesOptimized: optimized,
		Elapsed:         o.now().Sub(start),
		Preset:          preset,
		Quality:         settings.Quality,
		Analysis:        analysis,
	}
	reportProgress(opts.Progress, StageCompleted, 100)
	log.WithFields(logrus.Fields{
		"output":   output,
		"before":   before,
		"after":    after,
		"images":   optimized,
		"duration": result.Elapsed,
	}).Info("optimized pdf")
	return result, nil
}

// AnalyzeFile は input を読み込み、検証した上で内容を分類します。ファイルは変更しません。
func (o *Optimizer) AnalyzeFile(ctx context.Context, input string) (*FileReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path, cleanup, err := stageInput(ctx, o.stager, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	doc, err := o.load(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	pages, _ := doc.Pages()
	size, err := fileSize(path)
	if err != nil {
		return nil, err
	}
	return &FileReport{Path: input, Size: size, Pages: len(pages), Analysis: Analyze(doc)}, nil
}

// Validate はルートカタログとページの存在を確認します。
func Validate(doc pdfdoc.Document) error {
	root, ok := doc.Root()
	if !ok {
		return NewError(CodeUnsupportedPDF, "PDFのルートカタログがありません。", ErrMissingRoot)
	}
	if _, err := doc.Resolve(root.ID); err != nil {
		return NewError(CodeUnsupportedPDF, "PDFのルートカタログを解決できません。", fmt.Errorf("%w: %v", ErrMissingRoot, err))
	}
	pages, err := doc.Pages()
	if err != nil {
		return NewError(CodeUnsupportedPDF, "PDFのページツリーを読み取れません。", err)
	}
	if len(pages) == 0 {
		return NewError(CodeUnsupportedPDF, "PDFにページがありません。", ErrNoPages)
	}
	return nil
}

func (o *Optimizer) load(path string) (pdfdoc.Document, error) {
	if err := ValidateInputFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, NewError(CodeIO, fmt.Sprintf("入力ファイルを開けません: %s", path), err)
	}
	defer f.Close()

	doc, err := o.store.Load(f)
	if err != nil {
		return nil, NewError(CodeUnsupportedPDF, "PDFの読み込みに失敗しました。", err)
	}
	return doc, nil
}

func (o *Optimizer) save(doc pdfdoc.Document, output string) (err error) {
	f, err := os.Create(output)
	if err != nil {
		return NewError(CodeIO, fmt.Sprintf("出力ファイルを作成できません: %s", output), err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = NewError(CodeIO, "出力ファイルの書き込みに失敗しました。", closeErr)
		}
		if err != nil {
			_ = os.Remove(output)
		}
	}()

	if err := o.store.Save(doc, f); err != nil {
		var coded *Error
		if errors.As(err, &coded) {
			return err
		}
		return NewError(CodeIO, "PDFの書き出しに失敗しました。", err)
	}
	return nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, NewError(CodeIO, fmt.Sprintf("ファイルサイズを取得できません: %s", path), err)
	}
	return info.Size(), nil
}
