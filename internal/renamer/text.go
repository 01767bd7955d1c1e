package renamer

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PlainText はテキストレイヤーから1ページ目の本文を取り出します。
// スキャン画像のみのPDFでは空文字を返します。
type PlainText struct{}

func (PlainText) FirstPageText(path string) (text string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	// ledongthuc/pdf は壊れた入力で panic することがある
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("read pdf %s: %v", path, rec)
		}
	}()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			font := p.Font(name)
			fonts[name] = &font
		}
		content, pageErr := p.GetPlainText(fonts)
		if pageErr != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, pageErr)
		}
		return strings.TrimSpace(content), nil
	}
	return "", nil
}
