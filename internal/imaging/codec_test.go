package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	return img
}

func TestJPEGRoundTrip(t *testing.T) {
	codec := NewStandard()
	data, err := codec.Encode(gradient(40, 20), FormatJPEG, 75)
	require.NoError(t, err)

	img, err := codec.Decode(data, FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestDecodeOtherSniffsFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(5, 5)))

	img, err := NewStandard().Decode(buf.Bytes(), FormatOther)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := NewStandard().Decode([]byte("not an image"), FormatJPEG)
	assert.Error(t, err)
}

func TestEncodeUnsupported(t *testing.T) {
	_, err := NewStandard().Encode(gradient(2, 2), FormatOther, 80)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResize(t *testing.T) {
	out := NewStandard().Resize(gradient(100, 50), 20, 10, FilterHighQuality)
	assert.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
}

func TestResizeKeepsGrayscale(t *testing.T) {
	codec := NewStandard()
	src := image.NewGray(image.Rect(0, 0, 300, 4))
	for x := 0; x < 300; x++ {
		for y := 0; y < 4; y++ {
			src.SetGray(x, y, color.Gray{Y: uint8(x)})
		}
	}
	data, err := codec.Encode(src, FormatJPEG, 90)
	require.NoError(t, err)
	decoded, err := codec.Decode(data, FormatJPEG)
	require.NoError(t, err)

	out := codec.Resize(decoded, 100, 1, FilterHighQuality)
	assert.IsType(t, &image.Gray{}, out)

	data, err = codec.Encode(out, FormatJPEG, 80)
	require.NoError(t, err)
	reencoded, err := codec.Decode(data, FormatJPEG)
	require.NoError(t, err)
	assert.IsType(t, &image.Gray{}, reencoded)
	assert.Equal(t, 100, reencoded.Bounds().Dx())
}

func TestRecompressLosslessKeepsPixels(t *testing.T) {
	src := gradient(64, 64)
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, src))

	out, err := NewStandard().RecompressLossless(buf.Bytes())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), buf.Len())

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	for _, p := range []image.Point{{0, 0}, {10, 33}, {63, 63}} {
		r1, g1, b1, a1 := src.At(p.X, p.Y).RGBA()
		r2, g2, b2, a2 := decoded.At(p.X, p.Y).RGBA()
		assert.Equal(t, [4]uint32{r1, g1, b1, a1}, [4]uint32{r2, g2, b2, a2})
	}
}

func TestRecompressLosslessNeverGrows(t *testing.T) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	require.NoError(t, enc.Encode(&buf, gradient(16, 16)))

	out, err := NewStandard().RecompressLossless(buf.Bytes())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), buf.Len())
}

func TestRecompressLosslessRejectsNonPNG(t *testing.T) {
	_, err := NewStandard().RecompressLossless([]byte{0xff, 0xd8, 0xff})
	assert.Error(t, err)
}
