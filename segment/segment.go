// Package segment models the scatter-gather memory backing a plane of a video
// resource. A [Segment] is a borrowed span of host memory, a [List] is the
// ordered set of spans backing one plane (or one whole resource) and a
// [Walker] moves over that list starting from a logical byte offset.
//
// Segments are produced by the memory mapping layer. Nothing in this package
// allocates, retains or frees them.
package segment

// Segment is a contiguous span of host-addressable memory.
type Segment []byte

// List is an ordered sequence of segments that together make up one logical,
// linear address space starting at offset zero.
type List []Segment

// Capacity returns the total number of bytes reachable through the list.
func (l List) Capacity() int {
	n := 0
	for _, s := range l {
		n += len(s)
	}
	return n
}

// Walk returns a [Walker] positioned at the given logical offset. Segments
// that lie entirely before offset are skipped. An offset at or beyond the
// capacity of the list yields an exhausted walker.
func (l List) Walk(offset int) *Walker {
	w := &Walker{segments: l}
	if offset < 0 {
		offset = 0
	}

	base := 0
	for w.index < len(l) {
		size := len(l[w.index])
		if offset < base+size {
			w.offset = offset - base
			return w
		}
		base += size
		w.index++
	}

	return w
}

// Walker yields the bytes of a [List] from a starting position onwards,
// splitting at segment boundaries. A Walker is not safe for concurrent use.
type Walker struct {
	segments List
	// index of the current segment.
	index int
	// offset into the current segment.
	offset int
}

// Take returns up to n bytes at the current position and advances past them.
// The returned slice never crosses a segment boundary, so it may be shorter
// than n even when more bytes are reachable. An empty slice means the list is
// exhausted.
func (w *Walker) Take(n int) []byte {
	for n > 0 && w.index < len(w.segments) {
		cur := w.segments[w.index]
		if w.offset >= len(cur) {
			w.index++
			w.offset = 0
			continue
		}

		end := min(w.offset+n, len(cur))
		b := cur[w.offset:end]
		w.offset = end
		return b
	}

	return nil
}

// Done reports whether there are no more bytes to take.
func (w *Walker) Done() bool {
	for w.index < len(w.segments) {
		if w.offset < len(w.segments[w.index]) {
			return false
		}
		w.index++
		w.offset = 0
	}
	return true
}

// Remaining returns the number of bytes still reachable from the current
// position.
func (w *Walker) Remaining() int {
	if w.index >= len(w.segments) {
		return 0
	}

	n := len(w.segments[w.index]) - w.offset
	for _, s := range w.segments[w.index+1:] {
		n += len(s)
	}
	return n
}

// CopyTo fills dst from the walker and returns the number of bytes copied.
// Fewer than len(dst) bytes are copied only when the walker is exhausted.
func (w *Walker) CopyTo(dst []byte) int {
	copied := 0
	for copied < len(dst) {
		b := w.Take(len(dst) - copied)
		if len(b) == 0 {
			break
		}
		copied += copy(dst[copied:], b)
	}
	return copied
}

// CopyFrom writes src into the walker and returns the number of bytes copied.
// Fewer than len(src) bytes are copied only when the walker is exhausted.
func (w *Walker) CopyFrom(src []byte) int {
	copied := 0
	for copied < len(src) {
		b := w.Take(len(src) - copied)
		if len(b) == 0 {
			break
		}
		copied += copy(b, src[copied:])
	}
	return copied
}
