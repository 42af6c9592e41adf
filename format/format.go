// Package format describes the raw and coded frame formats a virtio-video
// stream can carry, along with the plane geometry each raw format implies.
package format

import (
	"strings"

	"github.com/slackhq/videocopy/protocol"
)

type Format uint32

const (
	ARGB8888 Format = 1 + iota
	BGRA8888
	NV12
	YUV420
	YVU420
)

const (
	MPEG2 Format = 0x1000 + iota
	MPEG4
	H264
	HEVC
	VP8
	VP9
)

var formatNames = map[Format]string{
	ARGB8888: "ARGB8",
	BGRA8888: "BGRA8",
	NV12:     "NV12",
	YUV420:   "YUV420(IYUV)",
	YVU420:   "YVU420(YV12)",
	MPEG2:    "MPEG-2",
	MPEG4:    "MPEG-4",
	H264:     "H.264(AVC)",
	HEVC:     "H.265(HEVC)",
	VP8:      "VP8",
	VP9:      "VP9",
}

// configNames are the spellings accepted by Parse.
var configNames = map[string]Format{
	"argb8888": ARGB8888,
	"bgra8888": BGRA8888,
	"nv12":     NV12,
	"yuv420":   YUV420,
	"yvu420":   YVU420,
	"mpeg2":    MPEG2,
	"mpeg4":    MPEG4,
	"h264":     H264,
	"hevc":     HEVC,
	"vp8":      VP8,
	"vp9":      VP9,
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "UNKNOWN_FORMAT"
}

// Parse looks up a format by its lower case config name, e.g. "nv12".
func Parse(s string) (Format, bool) {
	f, ok := configNames[strings.ToLower(s)]
	return f, ok
}

// IsCodec reports whether f is a coded bitstream format.
func (f Format) IsCodec() bool {
	switch f {
	case MPEG2, MPEG4, H264, HEVC, VP8, VP9:
		return true
	default:
		return false
	}
}

// Planes returns how many planes a buffer of this format has, or 0 for an
// unknown format. Bitstreams always use a single plane.
func (f Format) Planes() int {
	switch f {
	case ARGB8888, BGRA8888:
		return 1
	case NV12:
		return 2
	case YUV420, YVU420:
		return 3
	case MPEG2, MPEG4, H264, HEVC, VP8, VP9:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether numPlanes is the plane count required by f.
func (f Format) IsValid(numPlanes int) bool {
	n := f.Planes()
	return n != 0 && n == numPlanes
}

// Desc is the format descriptor reported by QUERY_CAPABILITY.
type Desc struct {
	Format       Format
	Mask         uint64
	PlanesLayout uint32
	PlaneAlign   uint32
	NumFrames    uint32
}

// InitDesc returns a descriptor for f that supports both plane layouts, has
// no alignment requirement and no frame sizes yet.
func InitDesc(f Format) Desc {
	return Desc{
		Format:       f,
		PlanesLayout: protocol.PlanesLayoutSingleBuffer | protocol.PlanesLayoutPerPlane,
	}
}
