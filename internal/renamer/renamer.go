// Package renamer はPDFのメタデータ（Title/Author）や1ページ目の本文からファイル名を決め、リネームします。
package renamer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/pdf-opticompress/internal/logging"
	"github.com/yourusername/pdf-opticompress/internal/pdfdoc"
)

// Pattern はファイル名の決め方です。
type Pattern string

const (
	PatternTitle    Pattern = "title"
	PatternFilename Pattern = "filename"
)

const (
	untitled       = "Untitled"
	maxSourceRunes = 100
	maxNameRunes   = 50
	defaultThreads = 4
)

// ParsePattern はパターン名を解釈します。空文字は title です。
func ParsePattern(s string) (Pattern, error) {
	switch p := Pattern(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PatternTitle, nil
	case PatternTitle, PatternFilename:
		return p, nil
	default:
		return "", fmt.Errorf("unknown pattern %q (title or filename)", s)
	}
}

// TextExtractor は1ページ目のテキストを取り出します。
type TextExtractor interface {
	FirstPageText(path string) (string, error)
}

// Outcome は1ファイル分のリネーム結果です。
type Outcome struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Renamed bool   `json:"renamed"`
	Err     error  `json:"-"`
}

// Renamer はPDFのリネームを行います。
type Renamer struct {
	store  pdfdoc.Store
	text   TextExtractor
	logger logrus.FieldLogger
}

// New は Renamer を生成します。text が nil の場合は本文からの名前付けを行いません。
func New(store pdfdoc.Store, text TextExtractor, logger logrus.FieldLogger) *Renamer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Renamer{store: store, text: text, logger: logger}
}

// ProposeName は path に付けるべきファイル名（ディレクトリを含まない）を返します。
func (r *Renamer) ProposeName(path string, pattern Pattern) (string, error) {
	if pattern == PatternFilename {
		return filepath.Base(path), nil
	}

	meta, err := r.metadata(path)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = r.firstPageText(path)
	}
	if title == "" {
		title = untitled
	}

	base := title
	if author := strings.TrimSpace(meta.Author); author != "" {
		base = fmt.Sprintf("%s - %s", title, author)
	}

	name := ConciseFilename(base)
	if name == "" {
		name = untitled
	}
	return name + ".pdf", nil
}

// ConciseFilename は先頭100文字を取り、英数字・空白・'-'・'_' 以外を '_' に置き換え、
// 先頭50文字に切り詰めて前後の空白を除きます。
func ConciseFilename(name string) string {
	runes := []rune(name)
	if len(runes) > maxSourceRunes {
		runes = runes[:maxSourceRunes]
	}
	for i, c := range runes {
		if !unicode.IsLetter(c) && !unicode.IsNumber(c) && c != ' ' && c != '-' && c != '_' {
			runes[i] = '_'
		}
	}
	if len(runes) > maxNameRunes {
		runes = runes[:maxNameRunes]
	}
	return strings.TrimSpace(string(runes))
}

// Rename は1ファイルをリネームします。dryRun の場合は名前の決定だけを行います。
func (r *Renamer) Rename(path string, pattern Pattern, dryRun bool) Outcome {
	name, err := r.ProposeName(path, pattern)
	if err != nil {
		return Outcome{From: path, Err: err}
	}
	return r.apply(path, name, nil, dryRun)
}

// RenameDir はディレクトリ直下の *.pdf（大文字小文字を区別しない）をリネームします。
// 名前の決定は threads 個のワーカーで並列に行い、リネーム自体はファイル名順に直列で行います。
func (r *Renamer) RenameDir(ctx context.Context, dir string, pattern Pattern, threads int, dryRun bool) ([]Outcome, error) {
	paths, err := listPDFs(dir)
	if err != nil {
		return nil, err
	}
	if threads <= 0 {
		threads = defaultThreads
	}

	names := make([]string, len(paths))
	outcomes := make([]Outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name, err := r.ProposeName(path, pattern)
			if err != nil {
				outcomes[i] = Outcome{From: path, Err: err}
				return nil
			}
			names[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reserved := make(map[string]bool)
	for i, path := range paths {
		if outcomes[i].Err != nil {
			r.logger.WithField("file", path).WithError(outcomes[i].Err).Warn("skip rename")
			continue
		}
		outcomes[i] = r.apply(path, names[i], reserved, dryRun)
	}
	return outcomes, nil
}

var renameMu sync.Mutex

func (r *Renamer) apply(path, name string, reserved map[string]bool, dryRun bool) Outcome {
	renameMu.Lock()
	defer renameMu.Unlock()

	target := uniqueTarget(path, name, reserved)
	out := Outcome{From: path, To: target}
	if target == path {
		return out
	}
	if reserved != nil {
		reserved[target] = true
	}
	if dryRun {
		return out
	}
	if err := os.Rename(path, target); err != nil {
		out.Err = fmt.Errorf("rename %s: %w", path, err)
		return out
	}
	out.Renamed = true
	r.logger.WithFields(logrus.Fields{"from": path, "to": target}).Info("renamed pdf")
	return out
}

// uniqueTarget は既存ファイルと衝突しないパスを返します。衝突時は " (n)" を付けます。
func uniqueTarget(path, name string, reserved map[string]bool) string {
	dir := filepath.Dir(path)
	candidate := filepath.Join(dir, name)
	if candidate == path {
		return path
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; taken(candidate, reserved); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if candidate == path {
			return path
		}
	}
	return candidate
}

func taken(path string, reserved map[string]bool) bool {
	if reserved[path] {
		return true
	}
	_, err := os.Lstat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

func (r *Renamer) metadata(path string) (pdfdoc.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return pdfdoc.Metadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := r.store.Load(f)
	if err != nil {
		return pdfdoc.Metadata{}, fmt.Errorf("load %s: %w", path, err)
	}
	return doc.Info(), nil
}

func (r *Renamer) firstPageText(path string) string {
	if r.text == nil {
		return ""
	}
	text, err := r.text.FirstPageText(path)
	if err != nil {
		r.logger.WithField("file", path).WithError(err).Debug("first page text unavailable")
		return ""
	}
	return strings.TrimSpace(text)
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
