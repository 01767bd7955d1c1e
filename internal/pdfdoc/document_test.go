package pdfdoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictFirstName(t *testing.T) {
	d := Dict{
		"Filter": []any{Name("FlateDecode"), Name("DCTDecode")},
		"Single": Name("DCTDecode"),
		"Empty":  []any{},
		"Number": 3,
	}

	n, ok := d.FirstName("Filter")
	require.True(t, ok)
	assert.Equal(t, Name("FlateDecode"), n)

	n, ok = d.FirstName("Single")
	require.True(t, ok)
	assert.Equal(t, Name("DCTDecode"), n)

	_, ok = d.FirstName("Empty")
	assert.False(t, ok)
	_, ok = d.FirstName("Number")
	assert.False(t, ok)
	_, ok = d.FirstName("Missing")
	assert.False(t, ok)
}

func TestMemoryObjectsSortedByID(t *testing.T) {
	m := NewMemory().AddOther(7).AddDict(2, Dict{}).AddStream(4, nil, []byte("x"))

	objs := m.Objects()
	require.Len(t, objs, 3)
	assert.Equal(t, []int{2, 4, 7}, []int{objs[0].ID, objs[1].ID, objs[2].ID})
	assert.Equal(t, KindStream, objs[1].Kind)
	assert.NotNil(t, objs[1].Dict)
}

func TestMemoryReplaceStream(t *testing.T) {
	m := NewMemory().AddStream(5, Dict{"Length": 1}, []byte("a")).AddDict(6, Dict{})

	require.NoError(t, m.ReplaceStream(5, Stream{Dict: Dict{"Length": 3}, Payload: []byte("abc")}))
	obj, err := m.Resolve(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), obj.Stream.Payload)

	assert.Error(t, m.ReplaceStream(6, Stream{}))
	err = m.ReplaceStream(99, Stream{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestWalkPagesNested(t *testing.T) {
	m := NewMemory().
		AddDict(1, Dict{"Type": Name("Catalog"), "Pages": Ref{ID: 2}}).
		AddDict(2, Dict{"Type": Name("Pages"), "Kids": []any{Ref{ID: 3}, Ref{ID: 5}}}).
		AddDict(3, Dict{"Type": Name("Pages"), "Kids": []any{Ref{ID: 4}}}).
		AddDict(4, Dict{"Type": Name("Page")}).
		AddDict(5, Dict{"Type": Name("Page")}).
		SetRoot(Ref{ID: 1})

	pages, err := m.Pages()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, pages)
}

func TestWalkPagesLoop(t *testing.T) {
	m := NewMemory().
		AddDict(1, Dict{"Type": Name("Catalog"), "Pages": Ref{ID: 2}}).
		AddDict(2, Dict{"Type": Name("Pages"), "Kids": []any{Ref{ID: 2}}}).
		SetRoot(Ref{ID: 1})

	_, err := m.Pages()
	assert.Error(t, err)
}

func TestWalkPagesWithoutPageTree(t *testing.T) {
	m := NewMemory().AddDict(1, Dict{"Type": Name("Catalog")}).SetRoot(Ref{ID: 1})

	pages, err := m.Pages()
	require.NoError(t, err)
	assert.Empty(t, pages)

	_, err = NewMemory().Pages()
	assert.Error(t, err)
}

func TestNewSinglePage(t *testing.T) {
	pages, err := NewSinglePage().Pages()
	require.NoError(t, err)
	assert.Equal(t, []int{3}, pages)
}
