package copier

import (
	"fmt"

	"github.com/slackhq/videocopy/resource"
)

// CopyStrided writes totalHeight rows of width bytes into a plane. Rows are
// read pitch bytes apart, so anything between width and pitch is dropped.
// Rows [0, height) come from primary and the rest from secondary, each region
// starting at its own first byte.
//
// The copy is short, and a [*ShortTransferError] reports totalSize minus the
// bytes written, when the plane fills up early or the rows add up to less
// than totalSize.
func (c *Copier) CopyStrided(res *resource.Resource, plane int, primary, secondary []byte, width, height, pitch, totalSize, totalHeight int) error {
	if err := checkStrided(primary, secondary, width, height, pitch, totalSize, totalHeight); err != nil {
		return err
	}

	cur, err := c.walk(res, plane)
	if err != nil {
		return err
	}

	src := primary
	row := 0
	copied := 0
	for i := 0; i < totalHeight; i++ {
		if i == height {
			src = secondary
			row = 0
		}

		n := cur.CopyFrom(src[row : row+width])
		copied += n
		if n < width {
			break
		}
		row += pitch
	}

	c.toResource.Inc(int64(copied))
	return c.short(totalSize - copied)
}

// CopyNV12ByLine writes an NV12 frame with padded rows into plane 0: height
// luma rows from y followed by height/2 chroma rows from uv.
//
// An odd height is rejected up front with [ErrInvalidArguments] and nothing is
// copied. Letting it through would write one chroma row short of the frame
// size and surface as a [*ShortTransferError] instead, which callers report as
// an invalid operation rather than an invalid parameter.
func (c *Copier) CopyNV12ByLine(res *resource.Resource, y, uv []byte, width, height, pitch int) error {
	if height%2 != 0 {
		return fmt.Errorf("%w: NV12 frame height %d is odd", ErrInvalidArguments, height)
	}
	return c.CopyStrided(res, 0, y, uv, width, height, pitch, width*height*3/2, height*3/2)
}

// CopyARGBByLine writes a four byte per pixel frame with padded rows into
// plane 0. width is in pixels, pitch in bytes.
func (c *Copier) CopyARGBByLine(res *resource.Resource, src []byte, width, height, pitch int) error {
	return c.CopyStrided(res, 0, src, src, width*4, height, pitch, width*height*4, height)
}

func checkStrided(primary, secondary []byte, width, height, pitch, totalSize, totalHeight int) error {
	if primary == nil {
		return fmt.Errorf("%w: nil primary source", ErrInvalidArguments)
	}
	if width < 0 || height < 0 || pitch < 0 || totalSize < 0 || totalHeight < 0 {
		return fmt.Errorf("%w: negative geometry", ErrInvalidArguments)
	}
	if pitch < width {
		return fmt.Errorf("%w: pitch %d is less than width %d", ErrInvalidArguments, pitch, width)
	}
	if totalHeight > height && secondary == nil {
		return fmt.Errorf("%w: %d rows past height %d without a secondary source", ErrInvalidArguments, totalHeight-height, height)
	}
	if totalSize < width*totalHeight {
		return fmt.Errorf("%w: total size %d cannot hold %d rows of %d bytes", ErrInvalidArguments, totalSize, totalHeight, width)
	}

	if err := checkRows("primary", primary, min(height, totalHeight), width, pitch); err != nil {
		return err
	}
	return checkRows("secondary", secondary, totalHeight-height, width, pitch)
}

// checkRows makes sure every one of rows rows lies inside src.
func checkRows(name string, src []byte, rows, width, pitch int) error {
	if rows <= 0 {
		return nil
	}
	if end := (rows-1)*pitch + width; end > len(src) {
		return fmt.Errorf("%w: %s source holds %d bytes, row %d ends at %d", ErrInvalidArguments, name, len(src), rows-1, end)
	}
	return nil
}
