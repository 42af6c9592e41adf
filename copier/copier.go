// Package copier moves frame data between linear host buffers and the
// scatter-gather planes of a [resource.Resource].
//
// All copies share one walk over the plane's segments, rooted at the plane
// offset for [resource.SingleBuffer] and at zero for [resource.PerPlane]. A
// Copier keeps no per-transfer state, so one instance may serve any number of
// goroutines as long as each resource stays untouched for the duration of a
// call.
package copier

import (
	"fmt"

	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/slackhq/videocopy/resource"
)

// Copier runs the copies and counts what they move. It is safe for
// concurrent use.
type Copier struct {
	l *logrus.Logger

	toResource    metrics.Counter
	fromResource  metrics.Counter
	shortTransfer metrics.Counter
	shortDump     metrics.Counter
	invalidLayout metrics.Counter
}

// New returns a Copier logging to l. Its counters are registered in the
// default go-metrics registry under copy.*.
func New(l *logrus.Logger) *Copier {
	return &Copier{
		l:             l,
		toResource:    metrics.GetOrRegisterCounter("copy.to_resource.bytes", nil),
		fromResource:  metrics.GetOrRegisterCounter("copy.from_resource.bytes", nil),
		shortTransfer: metrics.GetOrRegisterCounter("copy.short_transfer", nil),
		shortDump:     metrics.GetOrRegisterCounter("copy.short_dump", nil),
		invalidLayout: metrics.GetOrRegisterCounter("copy.invalid_layout", nil),
	}
}

// cursor is a position within a plane that bytes can be written to or read
// from. [segment.Walker] is the general one, window serves resources with a
// direct mapping.
type cursor interface {
	CopyFrom(src []byte) int
	CopyTo(dst []byte) int
}

type window struct {
	b []byte
}

func (w *window) CopyFrom(src []byte) int {
	n := copy(w.b, src)
	w.b = w.b[n:]
	return n
}

func (w *window) CopyTo(dst []byte) int {
	n := copy(dst, w.b)
	w.b = w.b[n:]
	return n
}

// walk positions a cursor at the first byte of a plane. The layout is checked
// before any segment is looked at.
func (c *Copier) walk(res *resource.Resource, plane int) (cursor, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil resource", ErrInvalidArguments)
	}
	if plane < 0 || plane >= len(res.Planes) {
		return nil, fmt.Errorf("%w: plane %d of resource %d with %d planes", ErrInvalidArguments, plane, res.ID, len(res.Planes))
	}

	p := &res.Planes[plane]
	switch res.Layout {
	case resource.SingleBuffer:
		if res.Mapped != nil {
			begin := min(max(p.Offset, 0), len(res.Mapped))
			return &window{b: res.Mapped[begin:]}, nil
		}
		return p.Segments.Walk(p.Offset), nil

	case resource.PerPlane:
		return p.Segments.Walk(0), nil

	default:
		c.invalidLayout.Inc(1)
		return nil, fmt.Errorf("%w: %d on resource %d", ErrInvalidLayout, uint32(res.Layout), res.ID)
	}
}

// CopyInto writes all of src into a plane starting at its first byte. When the
// plane cannot hold src a [*ShortTransferError] is returned after filling
// every byte that is available.
func (c *Copier) CopyInto(res *resource.Resource, plane int, src []byte) error {
	if src == nil {
		return fmt.Errorf("%w: nil source buffer", ErrInvalidArguments)
	}

	cur, err := c.walk(res, plane)
	if err != nil {
		return err
	}

	n := cur.CopyFrom(src)
	c.toResource.Inc(int64(n))
	return c.short(len(src) - n)
}

// CopyFrom fills dst from a plane starting at its first byte. When the plane
// holds fewer than len(dst) bytes a [*ShortTransferError] is returned after
// reading everything there is.
func (c *Copier) CopyFrom(res *resource.Resource, plane int, dst []byte) error {
	_, err := c.read(res, plane, dst)
	return err
}

// Dump behaves like [Copier.CopyFrom] but tolerates a short read: the
// shortfall is logged and the number of bytes read is returned with a nil
// error. Invalid arguments and layouts are still errors.
func (c *Copier) Dump(res *resource.Resource, plane int, dst []byte) (int, error) {
	n, err := c.read(res, plane, dst)
	if err != nil {
		if se, ok := err.(*ShortTransferError); ok {
			c.shortDump.Inc(1)
			c.l.WithField("resource", res.ID).
				WithField("plane", plane).
				WithField("remaining", se.Remaining).
				Warn("output buffer insufficient to contain the frame")
			return n, nil
		}
		return n, err
	}
	return n, nil
}

func (c *Copier) read(res *resource.Resource, plane int, dst []byte) (int, error) {
	if dst == nil {
		return 0, fmt.Errorf("%w: nil destination buffer", ErrInvalidArguments)
	}

	cur, err := c.walk(res, plane)
	if err != nil {
		return 0, err
	}

	n := cur.CopyTo(dst)
	c.fromResource.Inc(int64(n))
	return n, c.short(len(dst) - n)
}

// CopyNV12 writes a luma region followed immediately by a chroma region into
// plane 0, as one contiguous range. The two sources need not be adjacent.
func (c *Copier) CopyNV12(res *resource.Resource, y, uv []byte) error {
	if y == nil || uv == nil {
		return fmt.Errorf("%w: nil NV12 source region", ErrInvalidArguments)
	}

	cur, err := c.walk(res, 0)
	if err != nil {
		return err
	}

	n := cur.CopyFrom(y)
	if n == len(y) {
		n += cur.CopyFrom(uv)
	}
	c.toResource.Inc(int64(n))
	return c.short(len(y) + len(uv) - n)
}

func (c *Copier) short(remaining int) error {
	if remaining <= 0 {
		return nil
	}
	c.shortTransfer.Inc(1)
	return &ShortTransferError{Remaining: remaining}
}
