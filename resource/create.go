package resource

import (
	"errors"
	"fmt"

	"github.com/slackhq/videocopy/format"
	"github.com/slackhq/videocopy/protocol"
	"github.com/slackhq/videocopy/segment"
)

var (
	// ErrInvalidRequest is returned when a create request is inconsistent.
	ErrInvalidRequest = errors.New("invalid resource create request")

	// ErrNonContigUnsupported is returned when a plane is backed by more than
	// one memory entry without [protocol.FeatureResourceNonContig].
	ErrNonContigUnsupported = errors.New("non-contiguous resource memory was not negotiated")

	// ErrMapFailed is returned when a memory entry could not be mapped.
	ErrMapFailed = errors.New("failed to map resource memory")
)

// Mapper resolves guest memory into host memory. [guestmem.Memory] is the
// production implementation.
type Mapper interface {
	Map(addr uint64, length int) ([]byte, error)
}

// CreateRequest carries the contents of a RESOURCE_CREATE command.
type CreateRequest struct {
	ID     uint32
	Queue  protocol.QueueType
	Layout Layout
	// PlaneOffsets is the start of each plane within the single buffer.
	// Ignored for PerPlane.
	PlaneOffsets []uint32
	// NumEntries is the number of Entries backing each plane. For
	// SingleBuffer every entry backs the shared buffer and only the total
	// matters.
	NumEntries []uint32
	Entries    []protocol.MemEntry
	// Features negotiated with the driver.
	Features protocol.Feature
}

// Create maps the memory entries of req and builds the resource. The returned
// resource borrows host memory from m; it must be destroyed before that
// memory goes away.
func Create(m Mapper, req CreateRequest) (*Resource, error) {
	numPlanes := len(req.NumEntries)
	if numPlanes == 0 || numPlanes > format.MaxPlanes {
		return nil, fmt.Errorf("%w: %d planes", ErrInvalidRequest, numPlanes)
	}

	total := 0
	for _, n := range req.NumEntries {
		total += int(n)
	}
	if total != len(req.Entries) {
		return nil, fmt.Errorf("%w: %d entries declared, %d attached", ErrInvalidRequest, total, len(req.Entries))
	}

	nonContig := req.Features.Has(protocol.FeatureResourceNonContig)

	switch req.Layout {
	case SingleBuffer:
		return createSingleBuffer(m, req, numPlanes, nonContig)
	case PerPlane:
		return createPerPlane(m, req, numPlanes, nonContig)
	default:
		return nil, fmt.Errorf("%w: unknown layout %v", ErrInvalidRequest, req.Layout)
	}
}

func createSingleBuffer(m Mapper, req CreateRequest, numPlanes int, nonContig bool) (*Resource, error) {
	if len(req.PlaneOffsets) != numPlanes {
		return nil, fmt.Errorf("%w: %d plane offsets for %d planes", ErrInvalidRequest, len(req.PlaneOffsets), numPlanes)
	}
	if len(req.Entries) == 0 {
		return nil, fmt.Errorf("%w: no memory entries", ErrInvalidRequest)
	}
	if len(req.Entries) > 1 && !nonContig {
		return nil, fmt.Errorf("%w: %d entries for a single buffer", ErrNonContigUnsupported, len(req.Entries))
	}

	list, err := mapEntries(m, req.Entries)
	if err != nil {
		return nil, err
	}

	capacity := list.Capacity()
	res := &Resource{
		ID:     req.ID,
		Queue:  req.Queue,
		Layout: SingleBuffer,
		Planes: make([]Plane, numPlanes),
	}
	for i, off := range req.PlaneOffsets {
		if int(off) > capacity {
			return nil, fmt.Errorf("%w: plane %d offset %d beyond buffer size %d", ErrInvalidRequest, i, off, capacity)
		}
		res.Planes[i] = Plane{Segments: list, Offset: int(off)}
	}

	if contiguous(req.Entries) {
		// Not every guest-contiguous range is host-contiguous, so a failed
		// lookup just means no fast path.
		if mapped, err := m.Map(req.Entries[0].Addr, capacity); err == nil {
			res.Mapped = mapped
		}
	}

	return res, nil
}

func createPerPlane(m Mapper, req CreateRequest, numPlanes int, nonContig bool) (*Resource, error) {
	res := &Resource{
		ID:     req.ID,
		Queue:  req.Queue,
		Layout: PerPlane,
		Planes: make([]Plane, numPlanes),
	}

	entries := req.Entries
	for i, n := range req.NumEntries {
		if n == 0 {
			return nil, fmt.Errorf("%w: plane %d has no memory entries", ErrInvalidRequest, i)
		}
		if n > 1 && !nonContig {
			return nil, fmt.Errorf("%w: %d entries for plane %d", ErrNonContigUnsupported, n, i)
		}

		list, err := mapEntries(m, entries[:n])
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		res.Planes[i] = Plane{Segments: list}
		entries = entries[n:]
	}

	return res, nil
}

func mapEntries(m Mapper, entries []protocol.MemEntry) (segment.List, error) {
	list := make(segment.List, len(entries))
	for i, e := range entries {
		host, err := m.Map(e.Addr, int(e.Length))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%#x+%#x): %w", ErrMapFailed, i, e.Addr, e.Length, err)
		}
		list[i] = host
	}
	return list, nil
}

// contiguous reports whether the entries form one unbroken guest range.
func contiguous(entries []protocol.MemEntry) bool {
	for i := 1; i < len(entries); i++ {
		prev := entries[i-1]
		if prev.Addr+uint64(prev.Length) != entries[i].Addr {
			return false
		}
	}
	return len(entries) > 0
}
