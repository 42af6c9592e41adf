package format

// MaxPlanes is the largest plane count of any supported format.
const MaxPlanes = 3

// PlaneFormat is the size and row stride of one plane in bytes.
type PlaneFormat struct {
	PlaneSize uint32
	Stride    uint32
}

// Params are the stream parameters negotiated through GET_PARAMS and
// SET_PARAMS.
type Params struct {
	Format       Format
	FrameWidth   uint32
	FrameHeight  uint32
	NumPlanes    uint32
	PlaneFormats [MaxPlanes]PlaneFormat
}

// Fixup corrects NumPlanes when it does not match the format and recomputes
// the plane sizes and strides to match. It returns true when p was modified.
// Coded formats only get their plane count corrected.
func (p *Params) Fixup() bool {
	w, h := p.FrameWidth, p.FrameHeight

	switch p.Format {
	case ARGB8888, BGRA8888:
		if p.NumPlanes == 1 {
			return false
		}
		p.NumPlanes = 1
		p.PlaneFormats[0] = PlaneFormat{PlaneSize: w * h * 4, Stride: w * 4}

	case NV12:
		if p.NumPlanes == 2 {
			return false
		}
		p.NumPlanes = 2
		p.PlaneFormats[0] = PlaneFormat{PlaneSize: w * h, Stride: w}
		p.PlaneFormats[1] = PlaneFormat{PlaneSize: w * h / 2, Stride: w}

	case YUV420, YVU420:
		if p.NumPlanes == 3 {
			return false
		}
		p.NumPlanes = 3
		p.PlaneFormats[0] = PlaneFormat{PlaneSize: w * h, Stride: w}
		p.PlaneFormats[1] = PlaneFormat{PlaneSize: w * h / 4, Stride: w / 2}
		p.PlaneFormats[2] = PlaneFormat{PlaneSize: w * h / 4, Stride: w / 2}

	case MPEG2, MPEG4, H264, HEVC, VP8, VP9:
		if p.NumPlanes == 1 {
			return false
		}
		p.NumPlanes = 1

	default:
		return false
	}

	return true
}

// Geometry returns the tightly packed plane sizes and strides of a frame of
// the given format and size.
func Geometry(f Format, width, height uint32) Params {
	p := Params{Format: f, FrameWidth: width, FrameHeight: height}
	p.Fixup()
	return p
}

// FrameSize is the sum of all plane sizes.
func (p *Params) FrameSize() int {
	n := 0
	for i := 0; i < int(p.NumPlanes) && i < MaxPlanes; i++ {
		n += int(p.PlaneFormats[i].PlaneSize)
	}
	return n
}
