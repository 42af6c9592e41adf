package videocopy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/slackhq/videocopy/copier"
	"github.com/slackhq/videocopy/format"
	"github.com/slackhq/videocopy/guestmem"
	"github.com/slackhq/videocopy/protocol"
	"github.com/slackhq/videocopy/resource"
)

// ErrStopped is returned for commands issued after Control.Stop.
var ErrStopped = errors.New("device stopped")

type resourceKey struct {
	queue protocol.QueueType
	id    uint32
}

// Control is the handle on a running device. It completes resource commands
// by moving frames between host buffers and guest resources and turning the
// outcome into protocol responses.
type Control struct {
	l        *logrus.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	copier   *copier.Copier
	memory   *guestmem.Memory
	features protocol.Feature
	streamID uint32
	queues   map[protocol.QueueType]*resource.Set
	formats  map[protocol.QueueType][]format.Format

	// stateLock is held for reading by every command touching guest memory
	// and for writing by Stop, which releases that memory.
	stateLock sync.RWMutex
	stopped   bool

	paramsLock sync.RWMutex
	params     map[resourceKey]format.Params
}

func newControl(ctx context.Context, l *logrus.Logger, mem *guestmem.Memory, features protocol.Feature, streamID uint32) *Control {
	ctx, cancel := context.WithCancel(ctx)
	return &Control{
		l:        l,
		ctx:      ctx,
		cancel:   cancel,
		copier:   copier.New(l),
		memory:   mem,
		features: features,
		streamID: streamID,
		queues: map[protocol.QueueType]*resource.Set{
			protocol.QueueInput:  resource.NewSet(protocol.QueueInput),
			protocol.QueueOutput: resource.NewSet(protocol.QueueOutput),
		},
		params: make(map[resourceKey]format.Params),
	}
}

// Context is cancelled once Stop has been called.
func (c *Control) Context() context.Context {
	return c.ctx
}

// Features returns the negotiated device features.
func (c *Control) Features() protocol.Feature {
	return c.features
}

func (c *Control) queue(q protocol.QueueType) (*resource.Set, error) {
	s, ok := c.queues[q]
	if !ok {
		return nil, fmt.Errorf("%w: unknown queue %#x", copier.ErrInvalidArguments, uint32(q))
	}
	return s, nil
}

// CreateResource maps the memory entries of req and registers the resource on
// its queue with the given stream parameters.
func (c *Control) CreateResource(req resource.CreateRequest, params format.Params) error {
	c.stateLock.RLock()
	defer c.stateLock.RUnlock()
	if c.stopped {
		return ErrStopped
	}

	s, err := c.queue(req.Queue)
	if err != nil {
		return err
	}
	if !params.Format.IsValid(int(params.NumPlanes)) {
		return fmt.Errorf("%w: %s with %d planes", resource.ErrInvalidRequest, params.Format, params.NumPlanes)
	}

	req.Features = c.features
	res, err := resource.Create(c.memory, req)
	if err != nil {
		return err
	}
	if err := s.Add(res); err != nil {
		res.Destroy()
		return err
	}

	c.paramsLock.Lock()
	c.params[resourceKey{req.Queue, req.ID}] = params
	c.paramsLock.Unlock()

	c.l.WithFields(logrus.Fields{
		"queue":    req.Queue,
		"resource": req.ID,
		"layout":   res.Layout,
		"format":   params.Format,
		"planes":   res.NumPlanes(),
		"mapped":   res.Mapped != nil,
	}).Info("Resource created")
	return nil
}

// Resources returns the ids registered on a queue.
func (c *Control) Resources(q protocol.QueueType) []uint32 {
	s, err := c.queue(q)
	if err != nil {
		return nil
	}
	return s.IDs()
}

func (c *Control) lookup(q protocol.QueueType, id uint32) (*resource.Resource, format.Params, error) {
	s, err := c.queue(q)
	if err != nil {
		return nil, format.Params{}, err
	}
	res, err := s.Get(id)
	if err != nil {
		return nil, format.Params{}, err
	}

	c.paramsLock.RLock()
	params := c.params[resourceKey{q, id}]
	c.paramsLock.RUnlock()
	return res, params, nil
}

// hold looks up a resource and pins it, and the guest memory behind it, until
// release is called.
func (c *Control) hold(q protocol.QueueType, id uint32) (*resource.Resource, format.Params, func(), error) {
	c.stateLock.RLock()
	if c.stopped {
		c.stateLock.RUnlock()
		return nil, format.Params{}, nil, ErrStopped
	}

	res, params, err := c.lookup(q, id)
	if err != nil {
		c.stateLock.RUnlock()
		return nil, format.Params{}, nil, err
	}

	release, err := res.Hold()
	if err != nil {
		c.stateLock.RUnlock()
		return nil, format.Params{}, nil, err
	}

	return res, params, func() {
		release()
		c.stateLock.RUnlock()
	}, nil
}

// Params returns the stream parameters a resource was created with.
func (c *Control) Params(q protocol.QueueType, id uint32) (format.Params, error) {
	_, params, err := c.lookup(q, id)
	return params, err
}

// QueueFrame copies frame into a resource and returns the completion for the
// RESOURCE_QUEUE command.
func (c *Control) QueueFrame(q protocol.QueueType, id uint32, frame Frame) protocol.ResourceQueueResp {
	resp := protocol.ResourceQueueResp{StreamID: c.streamID, Timestamp: frame.Timestamp}

	res, params, release, err := c.hold(q, id)
	if err == nil {
		err = TransferFrame(c.copier, res, params, frame)
		release()
	}
	if err != nil {
		c.l.WithError(err).
			WithField("queue", q).
			WithField("resource", id).
			Error("Failed to copy frame into resource")
		resp.Type = responseType(err)
		resp.Flags = protocol.BufferFlagErr
		return resp
	}

	resp.Type = protocol.RespOKNoData
	resp.Size = uint32(params.FrameSize())
	return resp
}

// DequeueFrame reads the planes of a resource. A resource holding less than a
// full frame yields what it has.
func (c *Control) DequeueFrame(q protocol.QueueType, id uint32) ([][]byte, protocol.ResourceQueueResp) {
	resp := protocol.ResourceQueueResp{StreamID: c.streamID}

	res, params, release, err := c.hold(q, id)
	var planes [][]byte
	if err == nil {
		planes, err = ReadFrame(c.copier, res, params)
		release()
	}
	if err != nil {
		c.l.WithError(err).
			WithField("queue", q).
			WithField("resource", id).
			Error("Failed to read frame from resource")
		resp.Type = responseType(err)
		resp.Flags = protocol.BufferFlagErr
		return nil, resp
	}

	size := 0
	for _, p := range planes {
		size += len(p)
	}
	resp.Type = protocol.RespOKNoData
	resp.Size = uint32(size)
	return planes, resp
}

// DestroyResource unregisters one resource, waiting for copies in flight on it.
func (c *Control) DestroyResource(q protocol.QueueType, id uint32) protocol.ResponseType {
	s, err := c.queue(q)
	if err == nil {
		err = s.Remove(id)
	}
	if err != nil {
		c.l.WithError(err).WithField("queue", q).WithField("resource", id).Error("Failed to destroy resource")
		return responseType(err)
	}

	c.paramsLock.Lock()
	delete(c.params, resourceKey{q, id})
	c.paramsLock.Unlock()
	return protocol.RespOKNoData
}

// DestroyAll completes RESOURCE_DESTROY_ALL for a queue. It returns once the
// copies still running on those resources are done.
func (c *Control) DestroyAll(q protocol.QueueType) protocol.ResponseType {
	c.stateLock.RLock()
	defer c.stateLock.RUnlock()
	if c.stopped {
		return protocol.RespOKNoData
	}
	return c.destroyAll(q)
}

func (c *Control) destroyAll(q protocol.QueueType) protocol.ResponseType {
	s, err := c.queue(q)
	if err != nil {
		c.l.WithError(err).Error("Failed to destroy resources")
		return responseType(err)
	}

	n := s.DestroyAll()

	c.paramsLock.Lock()
	for k := range c.params {
		if k.queue == q {
			delete(c.params, k)
		}
	}
	c.paramsLock.Unlock()

	c.l.WithField("queue", q).WithField("count", n).Info("Destroyed all resources")
	return protocol.RespOKNoData
}

// Stop waits for in-flight commands, destroys every resource and releases
// guest memory. Later commands fail with ErrStopped. Stop may be called more
// than once.
func (c *Control) Stop() {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true

	for q := range c.queues {
		c.destroyAll(q)
	}
	closeMemory(c.l, c.memory)
	c.cancel()
	c.l.Info("Goodbye")
}

// ShutdownBlock will listen for and block on term and interrupt signals, calling Control.Stop() once signalled
func (c *Control) ShutdownBlock() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	signal.Notify(sigChan, syscall.SIGINT)

	rawSig := <-sigChan
	signal.Stop(sigChan)
	c.l.WithField("signal", rawSig.String()).Info("Caught signal, shutting down")
	c.Stop()
}

func responseType(err error) protocol.ResponseType {
	switch {
	case err == nil:
		return protocol.RespOKNoData
	case errors.Is(err, resource.ErrResourceNotFound):
		return protocol.RespErrInvalidResourceID
	case errors.Is(err, copier.ErrInvalidArguments),
		errors.Is(err, ErrFrameMismatch),
		errors.Is(err, resource.ErrInvalidRequest),
		errors.Is(err, resource.ErrMapFailed):
		return protocol.RespErrInvalidParameter
	default:
		return protocol.RespErrInvalidOperation
	}
}
