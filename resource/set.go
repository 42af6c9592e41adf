package resource

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rcrowley/go-metrics"
	"github.com/slackhq/videocopy/protocol"
)

var (
	// ErrResourceExists is returned when an id is registered twice on a queue.
	ErrResourceExists = errors.New("resource id already in use")
	// ErrResourceNotFound is returned for ids that are not registered, or
	// resources destroyed while a caller still had them.
	ErrResourceNotFound = errors.New("resource not found")
)

// Set holds the resources registered on one stream queue.
type Set struct {
	sync.RWMutex
	queue     protocol.QueueType
	resources map[uint32]*Resource

	count metrics.Gauge
}

// NewSet returns an empty set for queue. The resource count is published as
// the resources.<queue>.count gauge.
func NewSet(queue protocol.QueueType) *Set {
	return &Set{
		queue:     queue,
		resources: make(map[uint32]*Resource),
		count:     metrics.GetOrRegisterGauge(fmt.Sprintf("resources.%s.count", queue), nil),
	}
}

// Queue returns the queue this set belongs to.
func (s *Set) Queue() protocol.QueueType {
	return s.queue
}

// Add registers r under its id.
func (s *Set) Add(r *Resource) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.resources[r.ID]; ok {
		return fmt.Errorf("%w: %d", ErrResourceExists, r.ID)
	}
	s.resources[r.ID] = r
	s.count.Update(int64(len(s.resources)))
	return nil
}

// Get returns the resource registered under id.
func (s *Set) Get(id uint32) (*Resource, error) {
	s.RLock()
	defer s.RUnlock()

	r, ok := s.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrResourceNotFound, id)
	}
	return r, nil
}

// Remove takes the resource out of the set and destroys it once its
// in-flight copies are done.
func (s *Set) Remove(id uint32) error {
	s.Lock()
	r, ok := s.resources[id]
	if !ok {
		s.Unlock()
		return fmt.Errorf("%w: %d", ErrResourceNotFound, id)
	}
	delete(s.resources, id)
	s.count.Update(int64(len(s.resources)))
	s.Unlock()

	r.Destroy()
	return nil
}

// DestroyAll destroys every resource in the set and returns how many there
// were. It returns after the last in-flight copy has finished.
func (s *Set) DestroyAll() int {
	s.Lock()
	removed := make([]*Resource, 0, len(s.resources))
	for id, r := range s.resources {
		removed = append(removed, r)
		delete(s.resources, id)
	}
	s.count.Update(0)
	s.Unlock()

	for _, r := range removed {
		r.Destroy()
	}
	return len(removed)
}

// Len returns the number of registered resources.
func (s *Set) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.resources)
}

// IDs returns the registered resource ids in ascending order.
func (s *Set) IDs() []uint32 {
	s.RLock()
	ids := make([]uint32, 0, len(s.resources))
	for id := range s.resources {
		ids = append(ids, id)
	}
	s.RUnlock()

	slices.Sort(ids)
	return ids
}
