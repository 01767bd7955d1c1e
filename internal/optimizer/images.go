package optimizer

import (
	"bytes"
	"fmt"
	"image"

	"github.com/yourusername/pdf-opticompress/internal/imaging"
	"github.com/yourusername/pdf-opticompress/internal/pdfdoc"
)

var pngSignature = []byte("\x89PNG")

// OptimizeImages は画像ストリームを設定に従って再圧縮し、置き換えた件数を返します。
// 1件でも失敗した場合はそこで中断します（部分的なスキップはしません）。
func OptimizeImages(doc pdfdoc.Document, codec imaging.Codec, settings ImageSettings) (int, error) {
	optimized := 0
	for _, obj := range doc.Objects() {
		if !isImage(obj) {
			continue
		}
		replacement, err := optimizeImage(codec, obj.Stream, settings)
		if err != nil {
			return optimized, NewError(CodeCodec, fmt.Sprintf("画像オブジェクト %d の最適化に失敗しました", obj.ID), err)
		}
		if replacement == nil {
			continue
		}
		if err := doc.ReplaceStream(obj.ID, *replacement); err != nil {
			return optimized, fmt.Errorf("replace image stream %d: %w", obj.ID, err)
		}
		optimized++
	}
	return optimized, nil
}

// optimizeImage は置き換え後のストリームを返します。nil は変更なしです。
func optimizeImage(codec imaging.Codec, s *pdfdoc.Stream, settings ImageSettings) (*pdfdoc.Stream, error) {
	format := detectFormat(s)
	dict := s.Dict.Clone()

	var payload []byte
	switch format {
	case imaging.FormatPNG:
		if !settings.LosslessPNG {
			return nil, nil
		}
		out, err := codec.RecompressLossless(s.Payload)
		if err != nil {
			return nil, err
		}
		payload = out
	default:
		img, err := codec.Decode(s.Payload, format)
		if err != nil {
			return nil, err
		}
		if _, cmyk := img.(*image.CMYK); cmyk {
			// JPEG エンコーダーは3成分で書き出すため、/DeviceCMYK と食い違う。
			return nil, nil
		}
		img = resizeIfNeeded(codec, img, settings.MaxDimension, dict)
		out, err := codec.Encode(img, imaging.FormatJPEG, settings.Quality)
		if err != nil {
			return nil, err
		}
		if filter, _ := s.Dict.FirstName("Filter"); filter != "DCTDecode" {
			dict["Filter"] = pdfdoc.Name("DCTDecode")
			delete(dict, "DecodeParms")
		}
		payload = out
	}

	dict["Length"] = len(payload)
	return &pdfdoc.Stream{Dict: dict, Payload: payload}, nil
}

// detectFormat は /Filter を優先し、次にPNGシグネチャ、最後にJPEGとみなします。
func detectFormat(s *pdfdoc.Stream) imaging.Format {
	if filter, ok := s.Dict.FirstName("Filter"); ok {
		switch filter {
		case "DCTDecode":
			return imaging.FormatJPEG
		case "FlateDecode":
			if bytes.HasPrefix(s.Payload, pngSignature) {
				return imaging.FormatPNG
			}
		}
	}
	if bytes.HasPrefix(s.Payload, pngSignature) {
		return imaging.FormatPNG
	}
	return imaging.FormatJPEG
}

// resizeIfNeeded は長辺が maxDim を超える場合に縦横比を保って縮小し、
// /Width と /Height を新しい寸法に更新します。
func resizeIfNeeded(codec imaging.Codec, img image.Image, maxDim int, dict pdfdoc.Dict) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	nw, nh, ok := fitWithin(w, h, maxDim)
	if !ok {
		return img
	}
	dict["Width"] = nw
	dict["Height"] = nh
	return codec.Resize(img, nw, nh, imaging.FilterHighQuality)
}

func fitWithin(w, h, maxDim int) (int, int, bool) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) || w <= 0 || h <= 0 {
		return w, h, false
	}
	aspect := float64(w) / float64(h)
	var nw, nh int
	if w > h {
		nw, nh = maxDim, int(float64(maxDim)/aspect)
	} else {
		nw, nh = int(float64(maxDim)*aspect), maxDim
	}
	return max(nw, 1), max(nh, 1), true
}
