// Package resource describes guest video buffers as the copy engine sees
// them: an addressing policy plus one segment list per plane.
package resource

import (
	"fmt"
	"sync"

	"github.com/slackhq/videocopy/protocol"
	"github.com/slackhq/videocopy/segment"
)

// Layout is the addressing policy relating plane offsets to segment lists.
type Layout uint32

const (
	// SingleBuffer places all planes in one resource-wide segment list; a
	// plane starts at a fixed offset into it.
	SingleBuffer = Layout(protocol.PlanesLayoutSingleBuffer)
	// PerPlane gives every plane its own segment list starting at zero.
	PerPlane = Layout(protocol.PlanesLayoutPerPlane)
)

func (l Layout) String() string {
	switch l {
	case SingleBuffer:
		return "single_buffer"
	case PerPlane:
		return "per_plane"
	default:
		return fmt.Sprintf("Layout(%d)", uint32(l))
	}
}

// Valid reports whether l is one of the known policies.
func (l Layout) Valid() bool {
	return l == SingleBuffer || l == PerPlane
}

// ParseLayout is the inverse of [Layout.String] for the known policies.
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "single_buffer":
		return SingleBuffer, true
	case "per_plane":
		return PerPlane, true
	default:
		return 0, false
	}
}

// Plane is the backing store of one plane.
type Plane struct {
	Segments segment.List
	// Offset of the plane's first byte within Segments. Only meaningful for
	// SingleBuffer, where every plane shares the resource-wide list.
	Offset int
}

// Resource is a guest buffer registered on a stream queue.
type Resource struct {
	ID     uint32
	Queue  protocol.QueueType
	Layout Layout
	Planes []Plane

	// Mapped is set when the whole resource is backed by one contiguous host
	// mapping, which lets single buffer copies skip the segment walk.
	Mapped []byte

	// holds are taken for reading by copies and for writing by Destroy.
	holds     sync.RWMutex
	destroyed bool
}

// NumPlanes returns the number of planes.
func (r *Resource) NumPlanes() int {
	return len(r.Planes)
}

// Capacity returns the number of bytes reachable from the start of a plane.
func (r *Resource) Capacity(plane int) int {
	if plane < 0 || plane >= len(r.Planes) {
		return 0
	}
	p := &r.Planes[plane]
	if r.Layout == SingleBuffer {
		return max(p.Segments.Capacity()-p.Offset, 0)
	}
	return p.Segments.Capacity()
}

// Hold pins the resource for the duration of a copy. Destroy waits until
// every hold is released. Holding a destroyed resource fails with
// [ErrResourceNotFound].
func (r *Resource) Hold() (release func(), err error) {
	r.holds.RLock()
	if r.destroyed {
		r.holds.RUnlock()
		return nil, fmt.Errorf("%w: %d was destroyed", ErrResourceNotFound, r.ID)
	}
	return r.holds.RUnlock, nil
}

// Destroy waits for in-flight copies and then drops every reference the
// resource holds to guest memory. Destroying twice is a no-op.
func (r *Resource) Destroy() {
	r.holds.Lock()
	defer r.holds.Unlock()

	r.destroyed = true
	for i := range r.Planes {
		r.Planes[i] = Plane{}
	}
	r.Planes = nil
	r.Mapped = nil
}
