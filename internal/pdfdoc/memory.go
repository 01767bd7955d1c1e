package pdfdoc

import (
	"fmt"
	"sort"
)

// Memory はメモリ上だけで完結する Document 実装です。
// テストや合成ドキュメントの組み立てに利用します。
type Memory struct {
	objects    map[int]Object
	root       Ref
	hasRoot    bool
	info       Metadata
	compressed bool
}

// NewMemory は空の Memory を返します。
func NewMemory() *Memory {
	return &Memory{objects: make(map[int]Object)}
}

// AddStream はストリームオブジェクトを追加します。
func (m *Memory) AddStream(id int, dict Dict, payload []byte) *Memory {
	if dict == nil {
		dict = Dict{}
	}
	m.objects[id] = Object{ID: id, Kind: KindStream, Dict: dict, Stream: &Stream{Dict: dict, Payload: payload}}
	return m
}

// AddDict は辞書オブジェクトを追加します。
func (m *Memory) AddDict(id int, dict Dict) *Memory {
	m.objects[id] = Object{ID: id, Kind: KindDict, Dict: dict}
	return m
}

// AddOther は辞書でもストリームでもないオブジェクトを追加します。
func (m *Memory) AddOther(id int) *Memory {
	m.objects[id] = Object{ID: id, Kind: KindOther}
	return m
}

// SetRoot はトレーラーの /Root を設定します。
func (m *Memory) SetRoot(ref Ref) *Memory {
	m.root = ref
	m.hasRoot = true
	return m
}

// SetInfo は文書情報を設定します。
func (m *Memory) SetInfo(info Metadata) *Memory {
	m.info = info
	return m
}

// Compressed は Compress が呼ばれたかを返します。
func (m *Memory) Compressed() bool {
	return m.compressed
}

func (m *Memory) Objects() []Object {
	ids := make([]int, 0, len(m.objects))
	for id := range m.objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]Object, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.objects[id])
	}
	return out
}

func (m *Memory) Resolve(id int) (Object, error) {
	obj, ok := m.objects[id]
	if !ok {
		return Object{}, fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	return obj, nil
}

func (m *Memory) ReplaceStream(id int, s Stream) error {
	obj, ok := m.objects[id]
	if !ok {
		return fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	if obj.Kind != KindStream {
		return fmt.Errorf("object %d is not a stream", id)
	}
	m.objects[id] = Object{ID: id, Kind: KindStream, Dict: s.Dict, Stream: &Stream{Dict: s.Dict, Payload: s.Payload}}
	return nil
}

func (m *Memory) Pages() ([]int, error) {
	return WalkPages(m)
}

func (m *Memory) Root() (Ref, bool) {
	return m.root, m.hasRoot
}

func (m *Memory) Info() Metadata {
	return m.info
}

func (m *Memory) Compress() error {
	m.compressed = true
	return nil
}

// NewSinglePage は1ページだけを持つ最小構成のドキュメントを返します。
// カタログは1番、ページツリーは2番、ページは3番を使用します。
func NewSinglePage() *Memory {
	return NewMemory().
		AddDict(1, Dict{"Type": Name("Catalog"), "Pages": Ref{ID: 2}}).
		AddDict(2, Dict{"Type": Name("Pages"), "Kids": []any{Ref{ID: 3}}, "Count": 1}).
		AddDict(3, Dict{"Type": Name("Page"), "Parent": Ref{ID: 2}}).
		SetRoot(Ref{ID: 1})
}
