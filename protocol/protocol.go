// Package protocol holds the virtio-video constants the copy engine and its
// callers share: command, response and event types, queue and memory types,
// buffer flags, plane layouts and the small wire structures exchanged with the
// driver.
//
// Source: https://docs.oasis-open.org/virtio/virtio/v1.3/csd01/virtio-v1.3-csd01.html#x1-6190007
package protocol

import (
	"encoding/binary"
	"errors"
)

type CommandType uint32

const (
	CmdQueryCapability    CommandType = 0x0100
	CmdStreamCreate       CommandType = 0x0101
	CmdStreamDestroy      CommandType = 0x0102
	CmdStreamDrain        CommandType = 0x0103
	CmdResourceCreate     CommandType = 0x0104
	CmdResourceQueue      CommandType = 0x0105
	CmdResourceDestroyAll CommandType = 0x0106
	CmdQueueClear         CommandType = 0x0107
	CmdGetParams          CommandType = 0x0108
	CmdSetParams          CommandType = 0x0109
	CmdQueryControl       CommandType = 0x010a
	CmdGetControl         CommandType = 0x010b
	CmdSetControl         CommandType = 0x010c
)

var commandNames = map[CommandType]string{
	CmdQueryCapability:    "QUERY_CAPABILITY",
	CmdStreamCreate:       "STREAM_CREATE",
	CmdStreamDestroy:      "STREAM_DESTROY",
	CmdStreamDrain:        "STREAM_DRAIN",
	CmdResourceCreate:     "RESOURCE_CREATE",
	CmdResourceDestroyAll: "RESOURCE_DESTROY_ALL",
	CmdResourceQueue:      "RESOURCE_QUEUE",
	CmdQueueClear:         "QUEUE_CLEAR",
	CmdGetParams:          "GET_PARAMS",
	CmdSetParams:          "SET_PARAMS",
	CmdQueryControl:       "QUERY_CONTROL",
	CmdGetControl:         "GET_CONTROL",
	CmdSetControl:         "SET_CONTROL",
}

func (c CommandType) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return "UNKNOWN_CMD"
}

type ResponseType uint32

const (
	RespOKNoData              ResponseType = 0x0100
	RespOKQueryCapability     ResponseType = 0x0101
	RespOKResourceQueue       ResponseType = 0x0102
	RespOKGetParams           ResponseType = 0x0103
	RespOKQueryControl        ResponseType = 0x0104
	RespOKGetControl          ResponseType = 0x0105
	RespErrInvalidOperation   ResponseType = 0x0200
	RespErrOutOfMemory        ResponseType = 0x0201
	RespErrInvalidStreamID    ResponseType = 0x0202
	RespErrInvalidResourceID  ResponseType = 0x0203
	RespErrInvalidParameter   ResponseType = 0x0204
	RespErrUnsupportedControl ResponseType = 0x0205
)

// OK reports whether the response type is one of the success responses.
func (r ResponseType) OK() bool {
	return r >= RespOKNoData && r < RespErrInvalidOperation
}

type EventType uint32

const (
	EventError                    EventType = 0x0100
	EventDecoderResolutionChanged EventType = 0x0200
)

func (e EventType) String() string {
	switch e {
	case EventError:
		return "ERROR"
	case EventDecoderResolutionChanged:
		return "DECODER_RESOLUTION_CHANGED"
	default:
		return "UNKNOWN"
	}
}

type QueueType uint32

const (
	QueueInput  QueueType = 0x0100
	QueueOutput QueueType = 0x0101
)

func (q QueueType) String() string {
	switch q {
	case QueueInput:
		return "input"
	case QueueOutput:
		return "output"
	default:
		return "unknown"
	}
}

// ParseQueueType is the inverse of [QueueType.String].
func ParseQueueType(s string) (QueueType, bool) {
	switch s {
	case "input":
		return QueueInput, true
	case "output":
		return QueueOutput, true
	default:
		return 0, false
	}
}

type MemType uint32

const (
	MemTypeGuestPages   MemType = 0
	MemTypeVirtioObject MemType = 1
)

// Plane layout bits as advertised in a format descriptor.
const (
	PlanesLayoutSingleBuffer uint32 = 1 << 0
	PlanesLayoutPerPlane     uint32 = 1 << 1
)

// BufferFlag describes a dequeued buffer.
type BufferFlag uint32

const (
	BufferFlagErr    BufferFlag = 0x0001
	BufferFlagEOS    BufferFlag = 0x0002
	BufferFlagIFrame BufferFlag = 0x0004
	BufferFlagPFrame BufferFlag = 0x0008
	BufferFlagBFrame BufferFlag = 0x0010
)

var frameTypeNames = map[BufferFlag]string{
	BufferFlagIFrame: "I-Frame",
	BufferFlagPFrame: "P-Frame",
	BufferFlagBFrame: "B-Frame",
}

// FrameTypeName names a single frame type flag.
func FrameTypeName(f BufferFlag) string {
	if n, ok := frameTypeNames[f]; ok {
		return n
	}
	return "UNKNOWN_FRAME_TYPE"
}

// MemEntrySize is the number of bytes a [MemEntry] occupies on the wire.
const MemEntrySize = 16

var ErrBufferTooSmall = errors.New("buffer is too small")

// MemEntry is one guest memory span of a resource, as attached by
// RESOURCE_CREATE.
type MemEntry struct {
	Addr   uint64
	Length uint32
}

// Decode reads a MemEntry from its little endian wire form.
func (e *MemEntry) Decode(b []byte) error {
	if len(b) < MemEntrySize {
		return ErrBufferTooSmall
	}
	e.Addr = binary.LittleEndian.Uint64(b[0:8])
	e.Length = binary.LittleEndian.Uint32(b[8:12])
	return nil
}

// DecodeMemEntries reads n consecutive entries.
func DecodeMemEntries(b []byte, n int) ([]MemEntry, error) {
	if len(b) < n*MemEntrySize {
		return nil, ErrBufferTooSmall
	}
	entries := make([]MemEntry, n)
	for i := range entries {
		if err := entries[i].Decode(b[i*MemEntrySize:]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// ResourceQueueRespSize is the number of bytes a [ResourceQueueResp] occupies
// on the wire.
const ResourceQueueRespSize = 24

// ResourceQueueResp completes a RESOURCE_QUEUE command.
type ResourceQueueResp struct {
	Type      ResponseType
	StreamID  uint32
	Timestamp uint64
	Flags     BufferFlag
	Size      uint32
}

// Encode writes the response in its little endian wire form into b and
// returns the used part of b.
func (r *ResourceQueueResp) Encode(b []byte) ([]byte, error) {
	if len(b) < ResourceQueueRespSize {
		return nil, ErrBufferTooSmall
	}
	b = b[:ResourceQueueRespSize]
	binary.LittleEndian.PutUint32(b[0:4], uint32(r.Type))
	binary.LittleEndian.PutUint32(b[4:8], r.StreamID)
	binary.LittleEndian.PutUint64(b[8:16], r.Timestamp)
	binary.LittleEndian.PutUint32(b[16:20], uint32(r.Flags))
	binary.LittleEndian.PutUint32(b[20:24], r.Size)
	return b, nil
}
