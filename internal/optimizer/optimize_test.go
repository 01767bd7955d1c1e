package optimizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pdf-opticompress/internal/pdfdoc"
	"github.com/yourusername/pdf-opticompress/internal/storage"
)

func TestOptimizeFile(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.pdf", "jpeg-document-padded-to-forty-bytes-----")
	output := filepath.Join(dir, "out.pdf")

	store := newFakeStore(10)
	var doc *pdfdoc.Memory
	store.register("jpeg-document-padded-to-forty-bytes-----", func() pdfdoc.Document {
		doc = docWithJPEG().(*pdfdoc.Memory)
		return doc
	})
	codec := newFakeCodec(10, 10)

	var stages []string
	opt := New(store, codec)
	res, err := opt.OptimizeFile(context.Background(), input, output, Options{
		Quality: 75,
		Preset:  PresetPrint,
		Progress: func(stage string, percent int) {
			stages = append(stages, stage)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(40), res.OriginalSize)
	assert.Equal(t, int64(10), res.OptimizedSize)
	assert.InDelta(t, 75.0, res.Ratio, 1e-9)
	assert.Equal(t, 1, res.ImagesOptimized)
	assert.Equal(t, PresetPrint, res.Preset)
	assert.Equal(t, 85, res.Quality)
	require.NotNil(t, res.Analysis)
	assert.Equal(t, 1, res.Analysis.ImageCount)
	assert.Equal(t, int64(64), res.Analysis.Breakdown.ImagesSize)
	assert.True(t, doc.Compressed())
	assert.Equal(t, []string{StageLoad, StageAnalyze, StageImages, StageCompress, StageWrite, StageCompleted}, stages)
	assert.FileExists(t, output)
}

func TestOptimizeFileNoPages(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.pdf", "empty")
	output := filepath.Join(dir, "out.pdf")

	store := newFakeStore(10)
	store.register("empty", func() pdfdoc.Document {
		return pdfdoc.NewMemory().
			AddDict(1, pdfdoc.Dict{"Type": pdfdoc.Name("Catalog"), "Pages": pdfdoc.Ref{ID: 2}}).
			AddDict(2, pdfdoc.Dict{"Type": pdfdoc.Name("Pages"), "Kids": []any{}}).
			AddStream(3, imageDict("DCTDecode"), []byte{1}).
			SetRoot(pdfdoc.Ref{ID: 1})
	})
	codec := newFakeCodec(10, 10)

	_, err := New(store, codec).OptimizeFile(context.Background(), input, output, Options{Quality: 80})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPages)
	assert.Equal(t, CodeUnsupportedPDF, CodeOf(err))
	assert.Zero(t, codec.calls())
	assert.Empty(t, store.saved)
	assert.NoFileExists(t, output)
}

func TestOptimizeFileMissingRoot(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.pdf", "rootless")

	store := newFakeStore(10)
	store.register("rootless", func() pdfdoc.Document {
		return pdfdoc.NewMemory().AddDict(2, pdfdoc.Dict{"Type": pdfdoc.Name("Page")}).SetRoot(pdfdoc.Ref{ID: 1})
	})

	_, err := New(store, newFakeCodec(1, 1)).OptimizeFile(context.Background(), input, filepath.Join(dir, "out.pdf"), Options{})
	assert.ErrorIs(t, err, ErrMissingRoot)
}

func TestOptimizeFileErrors(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore(10)
	opt := New(store, newFakeCodec(1, 1))

	_, err := opt.OptimizeFile(context.Background(), filepath.Join(dir, "missing.pdf"), filepath.Join(dir, "out.pdf"), Options{})
	assert.Equal(t, CodeIO, CodeOf(err))

	_, err = opt.OptimizeFile(context.Background(), dir, filepath.Join(dir, "out.pdf"), Options{})
	assert.Equal(t, CodeIO, CodeOf(err))

	broken := writeFile(t, dir, "broken.pdf", "garbage")
	_, err = opt.OptimizeFile(context.Background(), broken, filepath.Join(dir, "out.pdf"), Options{})
	assert.Equal(t, CodeUnsupportedPDF, CodeOf(err))
	assert.ErrorIs(t, err, errBroken)

	_, err = opt.OptimizeFile(context.Background(), broken, "", Options{})
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
}

func TestOptimizeFileRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.pdf", "doc")
	output := filepath.Join(dir, "out.pdf")

	store := newFakeStore(10)
	store.register("doc", docWithJPEG)
	store.saveErr = errors.New("disk full")

	_, err := New(store, newFakeCodec(1, 1)).OptimizeFile(context.Background(), input, output, Options{})
	assert.Equal(t, CodeIO, CodeOf(err))
	assert.NoFileExists(t, output)
}

func TestOptimizeFileCanceled(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.pdf", "doc")
	store := newFakeStore(10)
	store.register("doc", docWithJPEG)
	codec := newFakeCodec(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(store, codec).OptimizeFile(ctx, input, filepath.Join(dir, "out.pdf"), Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, codec.calls())
}

func TestOptimizeFileElapsedUsesClock(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.pdf", "doc")
	store := newFakeStore(10)
	store.register("doc", docWithJPEG)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 1500 * time.Millisecond)
	}

	res, err := New(store, newFakeCodec(1, 1), WithClock(clock)).OptimizeFile(context.Background(), input, filepath.Join(dir, "out.pdf"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, res.Elapsed)
}

type stubStager struct {
	path    string
	err     error
	cleaned bool
}

func (s *stubStager) Stage(context.Context, string) (string, func(), error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.path, func() { s.cleaned = true }, nil
}

func TestOptimizeFileUsesStager(t *testing.T) {
	dir := t.TempDir()
	staged := writeFile(t, dir, "fetch-1.pdf", "doc")
	store := newFakeStore(1)
	store.register("doc", docWithJPEG)

	stager := &stubStager{path: staged}
	res, err := New(store, newFakeCodec(1, 1), WithStager(stager)).
		OptimizeFile(context.Background(), "https://example.com/doc.pdf", filepath.Join(dir, "out.pdf"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/doc.pdf", res.Input)
	assert.Equal(t, int64(3), res.OriginalSize)
	assert.True(t, stager.cleaned)
}

func TestOptimizeFileStagerErrors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pdf")

	_, err := New(newFakeStore(1), newFakeCodec(1, 1), WithStager(&stubStager{err: storage.ErrTooLarge})).
		OptimizeFile(context.Background(), "https://example.com/a.pdf", out, Options{})
	assert.Equal(t, CodeLimitExceeded, CodeOf(err))

	_, err = New(newFakeStore(1), newFakeCodec(1, 1), WithStager(&stubStager{err: storage.ErrNotPDF})).
		OptimizeFile(context.Background(), "https://example.com/a.pdf", out, Options{})
	assert.Equal(t, CodeFetch, CodeOf(err))
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.pdf", "doc")
	store := newFakeStore(1)
	store.register("doc", docWithJPEG)
	codec := newFakeCodec(1, 1)

	report, err := New(store, codec).AnalyzeFile(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Size)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 1, report.Analysis.ImageCount)
	assert.Zero(t, codec.calls())
	assert.Empty(t, store.saved)
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, ValidateInputFile(writeFile(t, dir, "a.pdf", "x")))
	assert.Equal(t, CodeIO, CodeOf(ValidateInputFile(dir)))

	err := ValidateInputFile(filepath.Join(dir, "nope.pdf"))
	assert.Equal(t, CodeIO, CodeOf(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
