package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newList(sizes ...int) List {
	l := make(List, len(sizes))
	for i, s := range sizes {
		l[i] = make(Segment, s)
	}
	return l
}

func TestList_Capacity(t *testing.T) {
	assert.Equal(t, 0, List(nil).Capacity())
	assert.Equal(t, 12, newList(4, 0, 8).Capacity())
}

func TestList_Walk(t *testing.T) {
	tests := []struct {
		name      string
		sizes     []int
		offset    int
		index     int
		segOffset int
		remaining int
	}{
		{
			name:      "start",
			sizes:     []int{4, 4},
			offset:    0,
			index:     0,
			segOffset: 0,
			remaining: 8,
		},
		{
			name:      "inside first",
			sizes:     []int{4, 4},
			offset:    3,
			index:     0,
			segOffset: 3,
			remaining: 5,
		},
		{
			name:      "exactly on boundary",
			sizes:     []int{4, 4},
			offset:    4,
			index:     1,
			segOffset: 0,
			remaining: 4,
		},
		{
			name:      "skips empty segments",
			sizes:     []int{4, 0, 0, 4},
			offset:    5,
			index:     3,
			segOffset: 1,
			remaining: 3,
		},
		{
			name:      "past the end",
			sizes:     []int{4, 4},
			offset:    9,
			index:     2,
			segOffset: 0,
			remaining: 0,
		},
		{
			name:      "negative offset clamps",
			sizes:     []int{4},
			offset:    -3,
			index:     0,
			segOffset: 0,
			remaining: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newList(tt.sizes...).Walk(tt.offset)
			assert.Equal(t, tt.index, w.index)
			assert.Equal(t, tt.segOffset, w.offset)
			assert.Equal(t, tt.remaining, w.Remaining())
		})
	}
}

func TestWalker_Take(t *testing.T) {
	l := List{
		Segment{0, 1, 2},
		Segment{},
		Segment{3, 4, 5, 6},
	}

	w := l.Walk(1)
	assert.Equal(t, []byte{1, 2}, w.Take(5))
	assert.Equal(t, []byte{3}, w.Take(1))
	assert.Equal(t, []byte{4, 5, 6}, w.Take(10))
	assert.True(t, w.Done())
	assert.Empty(t, w.Take(1))

	// Zero length requests never advance.
	w = l.Walk(0)
	assert.Empty(t, w.Take(0))
	assert.Equal(t, 7, w.Remaining())
}

func TestWalker_TakeAliasesSegments(t *testing.T) {
	l := newList(2, 2)
	w := l.Walk(1)

	b := w.Take(2)
	b[0] = 0xaa
	assert.Equal(t, Segment{0, 0xaa}, l[0])
	assert.Equal(t, Segment{0, 0}, l[1])
}

func TestWalker_CopyFromAndTo(t *testing.T) {
	l := newList(3, 1, 5)

	n := l.Walk(2).CopyFrom([]byte{1, 2, 3, 4, 5})
	assert.Equal(t, 5, n)
	assert.Equal(t, List{{0, 0, 1}, {2}, {3, 4, 5, 0, 0}}, l)

	out := make([]byte, 5)
	n = l.Walk(2).CopyTo(out)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, out)

	// Short on both directions.
	n = l.Walk(7).CopyFrom([]byte{9, 9, 9, 9})
	assert.Equal(t, 2, n)
	out = make([]byte, 4)
	n = l.Walk(7).CopyTo(out)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{9, 9, 0, 0}, out)
}
