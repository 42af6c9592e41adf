// Package guestmem maps guest physical address ranges to host memory. It is
// the only place that deals in guest addresses: everything downstream works
// with the host byte slices it hands out.
package guestmem

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	// ErrMemoryConflict is returned when a new region overlaps an existing one.
	ErrMemoryConflict = errors.New("memory regions conflict")

	// ErrMemoryNotFound is returned when a guest range is not fully contained
	// in a single region.
	ErrMemoryNotFound = errors.New("memory region not found")

	// ErrMemoryUnaligned is returned when an anonymous region is not page
	// aligned.
	ErrMemoryUnaligned = errors.New("memory not aligned")
)

// Region describes a range of guest physical memory and where it lives in the
// host.
type Region struct {
	// GuestAddress is the guest physical address of the first byte.
	GuestAddress uint64
	// Size of the region in bytes.
	Size uint64

	host []byte
	// anonymous regions were mmap'd by us and are unmapped on Close.
	anonymous bool
}

// End returns the first guest address after the region.
func (r *Region) End() uint64 {
	return r.GuestAddress + r.Size
}

// Overlaps reports whether [start, start+size) intersects the region.
func (r *Region) Overlaps(start, size uint64) bool {
	return start < r.End() && r.GuestAddress < start+size
}

// Contains reports whether [start, start+size) lies within the region.
func (r *Region) Contains(start, size uint64) bool {
	return r.GuestAddress <= start && start+size <= r.End() && start+size >= start
}

// Memory is the set of guest regions, sorted by guest address. It is safe for
// concurrent use.
type Memory struct {
	sync.RWMutex
	regions []*Region
}

func New() *Memory {
	return &Memory{}
}

// AddAnonymous allocates size bytes of zeroed host memory and exposes it to
// the guest at guestAddress. Both must be multiples of the page size.
func (m *Memory) AddAnonymous(guestAddress, size uint64) error {
	page := uint64(os.Getpagesize())
	if size == 0 || guestAddress%page != 0 || size%page != 0 {
		return fmt.Errorf("%w: %#x+%#x is not a multiple of %#x", ErrMemoryUnaligned, guestAddress, size, page)
	}

	m.Lock()
	defer m.Unlock()

	if m.conflicts(guestAddress, size) {
		return fmt.Errorf("%w: %#x+%#x", ErrMemoryConflict, guestAddress, size)
	}

	host, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return fmt.Errorf("allocate guest memory: %w", err)
	}

	m.insert(&Region{GuestAddress: guestAddress, Size: size, host: host, anonymous: true})
	return nil
}

// AddBacked exposes caller owned memory to the guest at guestAddress. The
// caller keeps ownership of data and must keep it alive while mapped.
func (m *Memory) AddBacked(guestAddress uint64, data []byte) error {
	size := uint64(len(data))
	if size == 0 {
		return fmt.Errorf("%w: empty region at %#x", ErrMemoryConflict, guestAddress)
	}

	m.Lock()
	defer m.Unlock()

	if m.conflicts(guestAddress, size) {
		return fmt.Errorf("%w: %#x+%#x", ErrMemoryConflict, guestAddress, size)
	}

	m.insert(&Region{GuestAddress: guestAddress, Size: size, host: data})
	return nil
}

// Map returns the host memory backing [addr, addr+length). The range must be
// fully contained in a single region.
func (m *Memory) Map(addr uint64, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrMemoryNotFound, length)
	}

	m.RLock()
	defer m.RUnlock()

	i := sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].End() > addr
	})
	if i < len(m.regions) && m.regions[i].Contains(addr, uint64(length)) {
		r := m.regions[i]
		off := addr - r.GuestAddress
		return r.host[off : off+uint64(length) : off+uint64(length)], nil
	}

	return nil, fmt.Errorf("%w: %#x+%#x", ErrMemoryNotFound, addr, length)
}

// Regions returns a copy of the current region list.
func (m *Memory) Regions() []Region {
	m.RLock()
	defer m.RUnlock()

	out := make([]Region, len(m.regions))
	for i, r := range m.regions {
		out[i] = *r
	}
	return out
}

// Close unmaps all anonymous regions and forgets every region. Slices handed
// out by Map must not be used afterwards.
func (m *Memory) Close() error {
	m.Lock()
	defer m.Unlock()

	var errs []error
	for _, r := range m.regions {
		if r.anonymous {
			if err := unix.Munmap(r.host); err != nil {
				errs = append(errs, fmt.Errorf("release guest memory at %#x: %w", r.GuestAddress, err))
			}
		}
		r.host = nil
	}
	m.regions = nil

	return errors.Join(errs...)
}

func (m *Memory) conflicts(start, size uint64) bool {
	for _, r := range m.regions {
		if r.Overlaps(start, size) {
			return true
		}
	}
	return false
}

func (m *Memory) insert(r *Region) {
	m.regions = append(m.regions, r)
	sort.Slice(m.regions, func(i, j int) bool {
		return m.regions[i].GuestAddress < m.regions[j].GuestAddress
	})
}
