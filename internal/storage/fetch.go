package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const pdfMIME = "application/pdf"

var (
	// ErrTooLarge はダウンロードサイズが上限を超えた場合に返されます。
	ErrTooLarge = errors.New("remote file exceeds size limit")
	// ErrNotPDF は取得した内容がPDFではない場合に返されます。
	ErrNotPDF = errors.New("remote file is not a PDF")
)

// IsRemote は入力が http(s) URL かを返します。
func IsRemote(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Fetcher はURL入力を一時ファイルへダウンロードします。ローカルパスはそのまま返します。
type Fetcher struct {
	client   *http.Client
	tempDir  string
	maxBytes int64
}

// NewFetcher は Fetcher を返します。maxBytes が0以下なら上限なしです。
func NewFetcher(client *http.Client, tempDir string, maxBytes int64) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, tempDir: tempDir, maxBytes: maxBytes}
}

// Stage は処理用のローカルパスと後始末関数を返します。
func (f *Fetcher) Stage(ctx context.Context, input string) (string, func(), error) {
	if !IsRemote(input) {
		return input, func() {}, nil
	}

	path, err := f.download(ctx, input)
	if err != nil {
		return "", func() {}, err
	}
	return path, func() { _ = os.Remove(path) }, nil
}

func (f *Fetcher) download(ctx context.Context, url string) (_ string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return "", ErrTooLarge
	}

	if err := os.MkdirAll(f.tempDir, 0o750); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.tempDir, "fetch-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	n, copyErr := io.Copy(tmp, body)
	if closeErr := tmp.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return "", fmt.Errorf("download %s: %w", url, copyErr)
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return "", ErrTooLarge
	}

	mime, err := mimetype.DetectFile(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if !mime.Is(pdfMIME) {
		return "", fmt.Errorf("%w (detected %s)", ErrNotPDF, mime.String())
	}
	return tmp.Name(), nil
}
