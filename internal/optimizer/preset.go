// Package optimizer はPDFサイズ最適化パイプラインを提供します。
//
// 分類（Analyze）→ プリセット方針（DeriveImageSettings）→ 画像最適化（OptimizeImages）
// → 構造圧縮・保存 の順に処理し、バッチ実行では固定数のワーカーに分配します。
package optimizer

import (
	"fmt"
	"strings"
)

// Preset は最適化プリセットの種類を表します。
type Preset string

const (
	PresetWeb     Preset = "web"
	PresetPrint   Preset = "print"
	PresetArchive Preset = "archive"
	PresetMaximum Preset = "maximum"
)

const (
	DefaultQuality = 80
	DefaultPreset  = PresetWeb

	webMaxDimension     = 1920
	maximumMaxDimension = 1024
	printMinQuality     = 85
	maximumMaxQuality   = 70
)

// Presets は利用可能なプリセットを返します。
func Presets() []Preset {
	return []Preset{PresetWeb, PresetPrint, PresetArchive, PresetMaximum}
}

// ParsePreset は大文字小文字を区別せずにプリセット名を解釈します。空文字は web です。
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DefaultPreset, nil
	case PresetWeb, PresetPrint, PresetArchive, PresetMaximum:
		return p, nil
	default:
		return "", NewError(CodeInvalidInput, fmt.Sprintf("presetには web, print, archive, maximum のいずれかを指定してください (received: %s)", s), nil)
	}
}

// ImageSettings は画像最適化の設定です。実行ごとに1度だけ導出し、以後変更しません。
type ImageSettings struct {
	Quality      int  `json:"quality"`
	LosslessPNG  bool `json:"losslessPng"`
	MaxDimension int  `json:"maxDimension,omitempty"` // 0 は制限なし
}

// DeriveImageSettings はプリセットと品質から画像設定を導出します。
// quality は 0..100 に丸めてから適用します。
func DeriveImageSettings(p Preset, quality int) ImageSettings {
	q := clamp(quality, 0, 100)
	switch p {
	case PresetPrint:
		return ImageSettings{Quality: max(q, printMinQuality), LosslessPNG: true}
	case PresetArchive:
		return ImageSettings{Quality: q, LosslessPNG: true}
	case PresetMaximum:
		return ImageSettings{Quality: min(q, maximumMaxQuality), LosslessPNG: true, MaxDimension: maximumMaxDimension}
	default:
		return ImageSettings{Quality: q, LosslessPNG: true, MaxDimension: webMaxDimension}
	}
}

// SaveOptions は保存時の設定です。
type SaveOptions struct {
	Compress bool `json:"compress"`
}

// DeriveSaveOptions は保存設定を返します。現状すべてのプリセットで構造圧縮を行います。
func DeriveSaveOptions(Preset) SaveOptions {
	return SaveOptions{Compress: true}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
