package videocopy

import (
	"errors"
	"fmt"

	"github.com/slackhq/videocopy/copier"
	"github.com/slackhq/videocopy/format"
	"github.com/slackhq/videocopy/resource"
	"golang.org/x/sync/errgroup"
)

// ErrFrameMismatch is returned when a frame or its parameters do not fit the
// format, for example too few planes.
var ErrFrameMismatch = errors.New("frame does not match the stream parameters")

// Frame is one raw or coded frame in host memory.
type Frame struct {
	// Planes holds the data of each plane, row by row.
	Planes [][]byte
	// Pitch is the distance in bytes between the starts of two rows of a
	// plane. A missing or zero pitch means the rows are tightly packed.
	Pitch []int

	Timestamp uint64
}

func (f *Frame) pitch(plane int, stride uint32) int {
	if plane < len(f.Pitch) && f.Pitch[plane] > 0 {
		return f.Pitch[plane]
	}
	return int(stride)
}

// TransferFrame writes a frame into a resource laid out according to params.
// Padded NV12 and ARGB frames going into a single buffer resource are repacked
// row by row so the planes end up tightly packed behind each other.
func TransferFrame(c *copier.Copier, res *resource.Resource, params format.Params, frame Frame) error {
	if res == nil {
		return fmt.Errorf("%w: nil resource", copier.ErrInvalidArguments)
	}
	numPlanes := int(params.NumPlanes)
	if numPlanes > format.MaxPlanes || !params.Format.IsValid(numPlanes) {
		return fmt.Errorf("%w: %s with %d planes", ErrFrameMismatch, params.Format, numPlanes)
	}
	if len(frame.Planes) < numPlanes {
		return fmt.Errorf("%w: %d planes for %s, want %d", ErrFrameMismatch, len(frame.Planes), params.Format, numPlanes)
	}

	w, h := int(params.FrameWidth), int(params.FrameHeight)

	switch params.Format {
	case format.NV12:
		if res.Layout != resource.SingleBuffer {
			break
		}
		if pitch := frame.pitch(0, params.PlaneFormats[0].Stride); pitch != w {
			return c.CopyNV12ByLine(res, frame.Planes[0], frame.Planes[1], w, h, pitch)
		}

		y, err := planeData(frame, params, 0)
		if err != nil {
			return err
		}
		uv, err := planeData(frame, params, 1)
		if err != nil {
			return err
		}
		return c.CopyNV12(res, y, uv)

	case format.ARGB8888, format.BGRA8888:
		if pitch := frame.pitch(0, params.PlaneFormats[0].Stride); pitch != w*4 {
			return c.CopyARGBByLine(res, frame.Planes[0], w, h, pitch)
		}
	}

	var g errgroup.Group
	for i := 0; i < numPlanes; i++ {
		g.Go(func() error {
			if err := transferPlane(c, res, params, frame, i); err != nil {
				return fmt.Errorf("plane %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func transferPlane(c *copier.Copier, res *resource.Resource, params format.Params, frame Frame, plane int) error {
	pf := params.PlaneFormats[plane]
	if params.Format.IsCodec() || pf.Stride == 0 {
		return c.CopyInto(res, plane, frame.Planes[plane])
	}

	stride := int(pf.Stride)
	if pitch := frame.pitch(plane, pf.Stride); pitch != stride {
		rows := int(pf.PlaneSize) / stride
		return c.CopyStrided(res, plane, frame.Planes[plane], nil, stride, rows, pitch, int(pf.PlaneSize), rows)
	}

	data, err := planeData(frame, params, plane)
	if err != nil {
		return err
	}
	return c.CopyInto(res, plane, data)
}

// planeData returns the PlaneSize bytes of a tightly packed plane.
func planeData(frame Frame, params format.Params, plane int) ([]byte, error) {
	size := int(params.PlaneFormats[plane].PlaneSize)
	if len(frame.Planes[plane]) < size {
		return nil, fmt.Errorf("%w: plane %d holds %d bytes, want %d", ErrFrameMismatch, plane, len(frame.Planes[plane]), size)
	}
	return frame.Planes[plane][:size], nil
}

// ReadFrame dumps every plane of a resource into new buffers sized after
// params. A plane that holds less than expected is returned short. Coded
// formats read the whole capacity of the plane.
func ReadFrame(c *copier.Copier, res *resource.Resource, params format.Params) ([][]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil resource", copier.ErrInvalidArguments)
	}
	if params.NumPlanes > format.MaxPlanes || !params.Format.IsValid(int(params.NumPlanes)) {
		return nil, fmt.Errorf("%w: %s with %d planes", ErrFrameMismatch, params.Format, params.NumPlanes)
	}

	planes := make([][]byte, params.NumPlanes)

	var g errgroup.Group
	for i := range planes {
		g.Go(func() error {
			size := int(params.PlaneFormats[i].PlaneSize)
			if params.Format.IsCodec() || size == 0 {
				size = res.Capacity(i)
			}

			buf := make([]byte, size)
			n, err := c.Dump(res, i, buf)
			if err != nil {
				return fmt.Errorf("plane %d: %w", i, err)
			}
			planes[i] = buf[:n]
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return planes, nil
}
