// Package pdfdoc はPDFオブジェクトグラフの抽象化を提供します。
//
// パース・シリアライズ・構造圧縮は Store 実装（pdfstore パッケージ）に委譲し、
// 最適化ロジックはこのパッケージの型だけを相手にします。
package pdfdoc

import (
	"errors"
	"io"
)

// ErrNotFound は参照先オブジェクトが存在しない場合に返されます。
var ErrNotFound = errors.New("pdf object not found")

// Name はPDFの名前オブジェクト（/Image など）です。
type Name string

// Ref は間接参照です。
type Ref struct {
	ID         int
	Generation int
}

// Opaque はこのパッケージが解釈しない値をそのまま保持します。
type Opaque struct {
	V any
}

// Dict はPDF辞書です。値は Name, int, float64, bool, Ref, []any, Dict, Opaque のいずれかです。
type Dict map[string]any

// Name はキーの値が名前であればそれを返します。
func (d Dict) Name(key string) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// Is はキーの値が指定した名前と一致するかを返します。
func (d Dict) Is(key string, want Name) bool {
	n, ok := d.Name(key)
	return ok && n == want
}

// Has はキーが存在するかを返します。
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Int はキーの値が整数であればそれを返します。
func (d Dict) Int(key string) (int, bool) {
	v, ok := d[key].(int)
	return v, ok
}

// Ref はキーの値が間接参照であればそれを返します。
func (d Dict) Ref(key string) (Ref, bool) {
	r, ok := d[key].(Ref)
	return r, ok
}

// Array はキーの値が配列であればそれを返します。
func (d Dict) Array(key string) ([]any, bool) {
	a, ok := d[key].([]any)
	return a, ok
}

// FirstName は名前、または配列の先頭要素の名前を返します（/Filter 用）。
func (d Dict) FirstName(key string) (Name, bool) {
	switch v := d[key].(type) {
	case Name:
		return v, true
	case []any:
		if len(v) == 0 {
			return "", false
		}
		n, ok := v[0].(Name)
		return n, ok
	}
	return "", false
}

// Clone は浅いコピーを返します。
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Stream は辞書とバイト列のペアです。
type Stream struct {
	Dict    Dict
	Payload []byte
}

// Kind はオブジェクトの種別です。
type Kind int

const (
	KindOther Kind = iota
	KindDict
	KindStream
)

// Object はドキュメント内の間接オブジェクト1件の読み取りビューです。
type Object struct {
	ID     int
	Kind   Kind
	Dict   Dict    // KindDict / KindStream
	Stream *Stream // KindStream のみ
}

// Metadata は文書情報辞書の一部です。
type Metadata struct {
	Title  string
	Author string
}

// Document はロード済みPDFのオブジェクトグラフです。
// 1回の処理の間は単一のゴルーチンが排他的に所有します。
type Document interface {
	// Objects はオブジェクト番号順のスナップショットを返します。
	Objects() []Object
	Resolve(id int) (Object, error)
	// ReplaceStream はストリームの辞書とペイロードを置き換えます。
	ReplaceStream(id int, s Stream) error
	// Pages はページオブジェクトの番号を文書順で返します。
	Pages() ([]int, error)
	// Root はトレーラーの /Root 参照を返します。
	Root() (Ref, bool)
	Info() Metadata
	// Compress は構造圧縮（オブジェクトストリーム化など）を行います。
	Compress() error
}

// Store はバイト列とドキュメントの相互変換を担います。
type Store interface {
	Load(r io.ReadSeeker) (Document, error)
	Save(doc Document, w io.Writer) error
}
