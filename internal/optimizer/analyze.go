package optimizer

import (
	"bytes"

	"github.com/yourusername/pdf-opticompress/internal/pdfdoc"
)

// textMarker はテキストオブジェクト開始（BT + 改行）の目安です。パースはしません。
var textMarker = []byte("BT\n")

const (
	otherObjectUnits     = 100
	largeDocumentObjects = 100
)

// ContentBreakdown はカテゴリ別のサイズです。other は概算値です。
type ContentBreakdown struct {
	ImagesSize int64 `json:"imagesSize"`
	FontsSize  int64 `json:"fontsSize"`
	TextSize   int64 `json:"textSize"`
	OtherSize  int64 `json:"otherSize"`
	TotalSize  int64 `json:"totalSize"`
}

// EstimatedSavings は削減率の見積もり（%）です。
type EstimatedSavings struct {
	ImageCompression      float64 `json:"imageCompression"`
	StructureOptimization float64 `json:"structureOptimization"`
	TotalEstimated        float64 `json:"totalEstimated"`
}

// Analysis は解析時点のドキュメントのスナップショットです。
// 画像最適化の後に取り直すと値が変わります。
type Analysis struct {
	TotalObjects int              `json:"totalObjects"`
	ImageCount   int              `json:"imageCount"`
	FontCount    int              `json:"fontCount"`
	TextObjects  int              `json:"textObjects"`
	Breakdown    ContentBreakdown `json:"breakdown"`
	Savings      EstimatedSavings `json:"estimatedSavings"`
}

// Analyze は全オブジェクトを1度だけ走査して分類します。ドキュメントは変更しません。
func Analyze(doc pdfdoc.Document) *Analysis {
	objects := doc.Objects()
	a := &Analysis{TotalObjects: len(objects)}

	for _, obj := range objects {
		switch obj.Kind {
		case pdfdoc.KindStream:
			size := int64(len(obj.Stream.Payload))
			if isImage(obj) {
				a.ImageCount++
				a.Breakdown.ImagesSize += size
			}
			if obj.Dict.Is("Type", "Font") {
				a.FontCount++
				a.Breakdown.FontsSize += size
			}
			if obj.Dict.Has("Length") && bytes.Contains(obj.Stream.Payload, textMarker) {
				a.TextObjects++
				a.Breakdown.TextSize += size
			}
		case pdfdoc.KindDict:
			if obj.Dict.Is("Type", "Font") {
				a.FontCount++
			}
		default:
			a.Breakdown.OtherSize += otherObjectUnits
		}
	}

	b := &a.Breakdown
	b.TotalSize = b.ImagesSize + b.FontsSize + b.TextSize + b.OtherSize
	a.Savings = estimateSavings(a)
	return a
}

// estimateSavings は画像圧縮 50%・構造最適化 10〜25% を目安に合算します。
func estimateSavings(a *Analysis) EstimatedSavings {
	var s EstimatedSavings
	if a.ImageCount > 0 {
		s.ImageCompression = 50
	}
	s.StructureOptimization = 10
	if a.TotalObjects > largeDocumentObjects {
		s.StructureOptimization = 25
	}
	s.TotalEstimated = s.ImageCompression*0.6 + s.StructureOptimization*0.4
	return s
}

func isImage(obj pdfdoc.Object) bool {
	return obj.Kind == pdfdoc.KindStream && obj.Dict.Is("Subtype", "Image")
}
