// Package imaging はラスター画像のデコード・エンコード・リサイズを提供します。
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // image.Decode で判別できるよう登録
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format は画像フォーマットです。
type Format string

const (
	FormatJPEG  Format = "jpeg"
	FormatPNG   Format = "png"
	FormatOther Format = "other"
)

// Filter はリサイズ時の補間方式です。
type Filter int

const (
	// FilterHighQuality は Catmull-Rom 補間です。
	FilterHighQuality Filter = iota
	FilterBilinear
	FilterNearest
)

// ErrUnsupportedFormat はエンコード先が未対応の場合に返されます。
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Codec は画像コーデック機能の抽象です。
type Codec interface {
	Decode(data []byte, hint Format) (image.Image, error)
	Encode(img image.Image, format Format, quality int) ([]byte, error)
	Resize(img image.Image, width, height int, filter Filter) image.Image
	// RecompressLossless はピクセルを変えずに再圧縮します。
	RecompressLossless(data []byte) ([]byte, error)
}

// Standard は標準ライブラリと golang.org/x/image による Codec 実装です。
type Standard struct{}

// NewStandard は Standard を返します。
func NewStandard() *Standard {
	return &Standard{}
}

func (Standard) Decode(data []byte, hint Format) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch hint {
	case FormatJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", hint, err)
	}
	return img, nil
}

func (Standard) Encode(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return buf.Bytes(), nil
}

// Resize はグレースケール画像をグレースケールのまま縮小します。それ以外は RGBA になります。
func (Standard) Resize(img image.Image, width, height int, filter Filter) image.Image {
	rect := image.Rect(0, 0, width, height)
	var dst draw.Image
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		dst = image.NewGray(rect)
	default:
		dst = image.NewRGBA(rect)
	}
	interpolator(filter).Scale(dst, rect, img, img.Bounds(), draw.Over, nil)
	return dst
}

// RecompressLossless はPNGを最高圧縮レベルで再エンコードし、
// 元データより小さくならなければ元データをそのまま返します。
func (s Standard) RecompressLossless(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	out, err := s.Encode(img, FormatPNG, 100)
	if err != nil {
		return nil, err
	}
	if len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

func interpolator(f Filter) draw.Interpolator {
	switch f {
	case FilterBilinear:
		return draw.ApproxBiLinear
	case FilterNearest:
		return draw.NearestNeighbor
	default:
		return draw.CatmullRom
	}
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
