package optimizer

import (
	"bytes"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/pdf-opticompress/internal/imaging"
	"github.com/yourusername/pdf-opticompress/internal/pdfdoc"
)

var errBroken = errors.New("broken pdf")

// fakeStore は入力内容をキーにドキュメントを返し、保存時は固定長のバイト列を書き出します。
type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]func() pdfdoc.Document
	output  []byte
	saved   []pdfdoc.Document
	saveErr error
}

func newFakeStore(outputSize int) *fakeStore {
	return &fakeStore{
		docs:   make(map[string]func() pdfdoc.Document),
		output: bytes.Repeat([]byte{'o'}, outputSize),
	}
}

func (s *fakeStore) register(content string, build func() pdfdoc.Document) {
	s.docs[content] = build
}

func (s *fakeStore) Load(r io.ReadSeeker) (pdfdoc.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	build, ok := s.docs[string(data)]
	if !ok {
		return nil, errBroken
	}
	return build(), nil
}

func (s *fakeStore) Save(doc pdfdoc.Document, w io.Writer) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	s.saved = append(s.saved, doc)
	s.mu.Unlock()
	_, err := w.Write(s.output)
	return err
}

// fakeCodec はデコード結果の寸法を固定し、呼び出し回数を記録します。
type fakeCodec struct {
	mu          sync.Mutex
	width       int
	height      int
	encoded     []byte
	decoded     image.Image
	decodeErr   error
	decodes     int
	encodes     int
	lossless    int
	resizedTo   [2]int
	lastQuality int
}

func newFakeCodec(w, h int) *fakeCodec {
	return &fakeCodec{width: w, height: h, encoded: []byte("re-encoded")}
}

func (c *fakeCodec) Decode(data []byte, hint imaging.Format) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decodes++
	if c.decodeErr != nil {
		return nil, c.decodeErr
	}
	if c.decoded != nil {
		return c.decoded, nil
	}
	return image.NewGray(image.Rect(0, 0, c.width, c.height)), nil
}

func (c *fakeCodec) Encode(img image.Image, format imaging.Format, quality int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodes++
	c.lastQuality = quality
	return c.encoded, nil
}

func (c *fakeCodec) Resize(img image.Image, width, height int, filter imaging.Filter) image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resizedTo = [2]int{width, height}
	return image.NewGray(image.Rect(0, 0, width, height))
}

func (c *fakeCodec) RecompressLossless(data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lossless++
	if len(data) == 0 {
		return data, nil
	}
	return data[:len(data)-1], nil
}

func (c *fakeCodec) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decodes + c.encodes + c.lossless
}

func imageDict(filter string) pdfdoc.Dict {
	d := pdfdoc.Dict{"Type": pdfdoc.Name("XObject"), "Subtype": pdfdoc.Name("Image"), "Width": 10, "Height": 10}
	if filter != "" {
		d["Filter"] = pdfdoc.Name(filter)
	}
	return d
}

// docWithJPEG は1ページと JPEG 画像1件を持つドキュメントを返します。
func docWithJPEG() pdfdoc.Document {
	return pdfdoc.NewSinglePage().AddStream(4, imageDict("DCTDecode"), bytes.Repeat([]byte{0xff}, 64))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
