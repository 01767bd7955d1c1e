// Package pdfstore は pdfcpu を利用した pdfdoc.Store 実装です。
package pdfstore

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/yourusername/pdf-opticompress/internal/pdfdoc"
)

// Store は pdfcpu の Context をドキュメントとして扱います。
type Store struct {
	conf *model.Configuration
}

// New は設定ファイルディレクトリを使用しない緩和モードの Store を返します。
func New() *Store {
	model.ConfigPath = "disable"
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Store{conf: conf}
}

// Load はPDFを読み込み、全オブジェクトを解決済みの状態で返します。
func (s *Store) Load(r io.ReadSeeker) (pdfdoc.Document, error) {
	ctx, err := api.ReadContext(r, s.conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return &Document{ctx: ctx}, nil
}

// Save はドキュメントをPDFとして書き出します。
func (s *Store) Save(doc pdfdoc.Document, w io.Writer) error {
	d, ok := doc.(*Document)
	if !ok {
		return fmt.Errorf("pdfstore: unsupported document type %T", doc)
	}
	if err := api.WriteContext(d.ctx, w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Document は pdfcpu の Context を包んだ pdfdoc.Document です。
type Document struct {
	ctx *model.Context
}

func (d *Document) Objects() []pdfdoc.Object {
	ids := make([]int, 0, len(d.ctx.Table))
	for id, entry := range d.ctx.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	objs := make([]pdfdoc.Object, 0, len(ids))
	for _, id := range ids {
		obj, err := d.decoded(id, d.ctx.Table[id])
		if err != nil {
			objs = append(objs, pdfdoc.Object{ID: id, Kind: pdfdoc.KindOther})
			continue
		}
		objs = append(objs, toObject(id, obj))
	}
	return objs
}

func (d *Document) Resolve(id int) (pdfdoc.Object, error) {
	entry, ok := d.ctx.Table[id]
	if !ok || entry == nil || entry.Free || entry.Object == nil {
		return pdfdoc.Object{}, fmt.Errorf("object %d: %w", id, pdfdoc.ErrNotFound)
	}
	obj, err := d.decoded(id, entry)
	if err != nil {
		return pdfdoc.Object{}, fmt.Errorf("object %d: %w", id, err)
	}
	return toObject(id, obj), nil
}

// decoded はオブジェクトストリーム内の遅延オブジェクトを展開してから返します。
// 展開結果は XRef テーブルに書き戻されます。
func (d *Document) decoded(id int, entry *model.XRefTableEntry) (types.Object, error) {
	if _, lazy := entry.Object.(types.LazyObjectStreamObject); !lazy {
		return entry.Object, nil
	}
	gen := 0
	if entry.Generation != nil {
		gen = *entry.Generation
	}
	obj, err := d.ctx.Dereference(*types.NewIndirectRef(id, gen))
	if err != nil {
		return nil, fmt.Errorf("decode object stream member: %w", err)
	}
	return obj, nil
}

func (d *Document) ReplaceStream(id int, s pdfdoc.Stream) error {
	entry, ok := d.ctx.Table[id]
	if !ok || entry == nil || entry.Free {
		return fmt.Errorf("object %d: %w", id, pdfdoc.ErrNotFound)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return fmt.Errorf("object %d is not a stream (%T)", id, entry.Object)
	}

	oldFilter, _ := toDict(sd.Dict).FirstName("Filter")
	sd.Dict = fromDict(s.Dict)
	if newFilter, ok := s.Dict.FirstName("Filter"); ok && newFilter != oldFilter {
		sd.FilterPipeline = []types.PDFFilter{{Name: string(newFilter)}}
		delete(sd.Dict, "DecodeParms")
	}

	length := int64(len(s.Payload))
	sd.Raw = s.Payload
	sd.Content = nil
	sd.StreamLength = &length
	sd.StreamLengthObjNr = nil
	sd.Dict["Length"] = types.Integer(len(s.Payload))

	entry.Object = sd
	return nil
}

func (d *Document) Pages() ([]int, error) {
	return pdfdoc.WalkPages(d)
}

func (d *Document) Root() (pdfdoc.Ref, bool) {
	if d.ctx.Root == nil {
		return pdfdoc.Ref{}, false
	}
	return pdfdoc.Ref{ID: int(d.ctx.Root.ObjectNumber), Generation: int(d.ctx.Root.GenerationNumber)}, true
}

func (d *Document) Info() pdfdoc.Metadata {
	if d.ctx.Info == nil {
		return pdfdoc.Metadata{}
	}
	info, err := d.ctx.DereferenceDict(*d.ctx.Info)
	if err != nil || info == nil {
		return pdfdoc.Metadata{}
	}
	return pdfdoc.Metadata{
		Title:  d.text(info, "Title"),
		Author: d.text(info, "Author"),
	}
}

func (d *Document) text(dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found || obj == nil {
		return ""
	}
	obj, err := d.ctx.Dereference(obj)
	if err != nil {
		return ""
	}

	var s string
	switch v := obj.(type) {
	case types.StringLiteral:
		s, err = types.StringLiteralToString(v)
	case types.HexLiteral:
		s, err = types.HexLiteralToString(v)
	default:
		return ""
	}
	if err != nil {
		return ""
	}
	return s
}

// Compress は pdfcpu の最適化（重複リソース統合）を行い、
// 書き出し時にオブジェクトストリームとクロスリファレンスストリームを使用させます。
func (d *Document) Compress() error {
	if err := api.ValidateContext(d.ctx); err != nil {
		return fmt.Errorf("validate before optimize: %w", err)
	}
	if err := api.OptimizeContext(d.ctx); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	d.ctx.WriteObjectStream = true
	d.ctx.WriteXRefStream = true
	return nil
}

var errUnknownValue = errors.New("unsupported pdf value")

func toObject(id int, obj types.Object) pdfdoc.Object {
	switch o := obj.(type) {
	case types.StreamDict:
		dict := toDict(o.Dict)
		return pdfdoc.Object{
			ID:     id,
			Kind:   pdfdoc.KindStream,
			Dict:   dict,
			Stream: &pdfdoc.Stream{Dict: dict, Payload: o.Raw},
		}
	case types.ObjectStreamDict:
		return toObject(id, o.StreamDict)
	case types.XRefStreamDict:
		return toObject(id, o.StreamDict)
	case types.Dict:
		return pdfdoc.Object{ID: id, Kind: pdfdoc.KindDict, Dict: toDict(o)}
	default:
		return pdfdoc.Object{ID: id, Kind: pdfdoc.KindOther}
	}
}

func toDict(d types.Dict) pdfdoc.Dict {
	out := make(pdfdoc.Dict, len(d))
	for k, v := range d {
		out[k] = toValue(v)
	}
	return out
}

func toValue(obj types.Object) any {
	switch v := obj.(type) {
	case types.Name:
		return pdfdoc.Name(v)
	case types.Integer:
		return int(v)
	case types.Float:
		return float64(v)
	case types.Boolean:
		return bool(v)
	case types.IndirectRef:
		return pdfdoc.Ref{ID: int(v.ObjectNumber), Generation: int(v.GenerationNumber)}
	case *types.IndirectRef:
		return pdfdoc.Ref{ID: int(v.ObjectNumber), Generation: int(v.GenerationNumber)}
	case types.Array:
		arr := make([]any, len(v))
		for i, elem := range v {
			arr[i] = toValue(elem)
		}
		return arr
	case types.Dict:
		return toDict(v)
	default:
		return pdfdoc.Opaque{V: obj}
	}
}

func fromDict(d pdfdoc.Dict) types.Dict {
	out := types.Dict{}
	for k, v := range d {
		obj, err := fromValue(v)
		if err != nil {
			continue
		}
		out[k] = obj
	}
	return out
}

func fromValue(v any) (types.Object, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case pdfdoc.Name:
		return types.Name(val), nil
	case int:
		return types.Integer(val), nil
	case float64:
		return types.Float(val), nil
	case bool:
		return types.Boolean(val), nil
	case pdfdoc.Ref:
		return *types.NewIndirectRef(val.ID, val.Generation), nil
	case []any:
		arr := make(types.Array, 0, len(val))
		for _, elem := range val {
			obj, err := fromValue(elem)
			if err != nil {
				return nil, err
			}
			arr = append(arr, obj)
		}
		return arr, nil
	case pdfdoc.Dict:
		return fromDict(val), nil
	case pdfdoc.Opaque:
		if obj, ok := val.V.(types.Object); ok {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", errUnknownValue, v)
}
