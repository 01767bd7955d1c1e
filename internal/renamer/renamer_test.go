package renamer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pdf-opticompress/internal/pdfdoc"
)

// metaStore はファイル内容をキーに文書情報を返します。
type metaStore map[string]pdfdoc.Metadata

func (s metaStore) Load(r io.ReadSeeker) (pdfdoc.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	meta, ok := s[string(data)]
	if !ok {
		return nil, errors.New("not a pdf")
	}
	return pdfdoc.NewSinglePage().SetInfo(meta), nil
}

func (metaStore) Save(pdfdoc.Document, io.Writer) error {
	return errors.New("read only")
}

type stubText map[string]string

func (s stubText) FirstPageText(path string) (string, error) {
	text, ok := s[filepath.Base(path)]
	if !ok {
		return "", errors.New("no text layer")
	}
	return text, nil
}

func writePDF(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConciseFilename(t *testing.T) {
	assert.Equal(t, "Annual Report 2024 - Jane Doe", ConciseFilename("Annual Report 2024 - Jane Doe"))
	assert.Equal(t, "a_b_c_d", ConciseFilename("a/b:c?d"))
	assert.Equal(t, "Résumé_日本語", ConciseFilename("Résumé.日本語"))
	assert.Equal(t, "x", ConciseFilename("   x   "))
	assert.Equal(t, "line_one_line two", ConciseFilename("line\none\nline two"))

	long := strings.Repeat("あ", 120)
	assert.Equal(t, strings.Repeat("あ", 50), ConciseFilename(long))
	assert.Len(t, []rune(ConciseFilename(strings.Repeat("abcd ", 30))), 49)
}

func TestProposeName(t *testing.T) {
	dir := t.TempDir()
	store := metaStore{
		"titled":   {Title: "Quarterly Results", Author: "ACME Corp."},
		"untitled": {Author: "Someone"},
		"blank":    {Title: "   "},
	}
	text := stubText{"b.pdf": "  Introduction to Go\nChapter 1  "}
	r := New(store, text, nil)

	name, err := r.ProposeName(writePDF(t, dir, "a.pdf", "titled"), PatternTitle)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Results - ACME Corp_.pdf", name)

	name, err = r.ProposeName(writePDF(t, dir, "b.pdf", "untitled"), PatternTitle)
	require.NoError(t, err)
	assert.Equal(t, "Introduction to Go_Chapter 1 - Someone.pdf", name)

	name, err = r.ProposeName(writePDF(t, dir, "c.pdf", "blank"), PatternTitle)
	require.NoError(t, err)
	assert.Equal(t, "Untitled.pdf", name)

	name, err = r.ProposeName(filepath.Join(dir, "keep me.pdf"), PatternFilename)
	require.NoError(t, err)
	assert.Equal(t, "keep me.pdf", name)

	_, err = r.ProposeName(writePDF(t, dir, "d.pdf", "garbage"), PatternTitle)
	assert.Error(t, err)
}

func TestRenameDryRun(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "scan001.pdf", "titled")
	r := New(metaStore{"titled": {Title: "Invoice"}}, nil, nil)

	out := r.Rename(path, PatternTitle, true)
	require.NoError(t, out.Err)
	assert.Equal(t, filepath.Join(dir, "Invoice.pdf"), out.To)
	assert.False(t, out.Renamed)
	assert.FileExists(t, path)
}

func TestRenameAvoidsOverwrite(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "Invoice.pdf", "existing")
	path := writePDF(t, dir, "scan001.pdf", "titled")
	r := New(metaStore{"titled": {Title: "Invoice"}}, nil, nil)

	out := r.Rename(path, PatternTitle, false)
	require.NoError(t, out.Err)
	assert.True(t, out.Renamed)
	assert.Equal(t, filepath.Join(dir, "Invoice (1).pdf"), out.To)
	assert.NoFileExists(t, path)

	data, err := os.ReadFile(filepath.Join(dir, "Invoice.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestRenameSameNameIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "Invoice.pdf", "titled")
	r := New(metaStore{"titled": {Title: "Invoice"}}, nil, nil)

	out := r.Rename(path, PatternTitle, false)
	require.NoError(t, out.Err)
	assert.False(t, out.Renamed)
	assert.Equal(t, path, out.To)
}

func TestRenameDir(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "one.pdf", "report")
	writePDF(t, dir, "TWO.PDF", "report")
	writePDF(t, dir, "three.pdf", "broken")
	writePDF(t, dir, "notes.txt", "report")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o750))

	r := New(metaStore{"report": {Title: "Report"}}, nil, nil)
	outcomes, err := r.RenameDir(context.Background(), dir, PatternTitle, 2, false)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	var renamed, failed int
	targets := map[string]bool{}
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		if o.Renamed {
			renamed++
			targets[filepath.Base(o.To)] = true
		}
	}
	assert.Equal(t, 2, renamed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, map[string]bool{"Report.pdf": true, "Report (1).pdf": true}, targets)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.FileExists(t, filepath.Join(dir, "three.pdf"))
}

func TestRenameDirDryRunReservesNames(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "a.pdf", "report")
	writePDF(t, dir, "b.pdf", "report")

	r := New(metaStore{"report": {Title: "Report"}}, nil, nil)
	outcomes, err := r.RenameDir(context.Background(), dir, PatternTitle, 0, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, filepath.Join(dir, "Report.pdf"), outcomes[0].To)
	assert.Equal(t, filepath.Join(dir, "Report (1).pdf"), outcomes[1].To)
	assert.FileExists(t, filepath.Join(dir, "a.pdf"))
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("")
	require.NoError(t, err)
	assert.Equal(t, PatternTitle, p)

	p, err = ParsePattern("FILENAME")
	require.NoError(t, err)
	assert.Equal(t, PatternFilename, p)

	_, err = ParsePattern("date")
	assert.Error(t, err)
}
