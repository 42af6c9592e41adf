package dump

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/slackhq/videocopy/format"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var (
	ErrNoPreview   = errors.New("format has no preview")
	ErrShortPlane  = errors.New("plane is shorter than the frame needs")
	ErrUnknownType = errors.New("unknown preview file type")
)

// Preview turns tightly packed planes of a raw frame into an image.
func Preview(params format.Params, planes [][]byte) (image.Image, error) {
	if !params.Format.IsValid(len(planes)) || params.Format.IsCodec() {
		return nil, fmt.Errorf("%w: %s with %d planes", ErrNoPreview, params.Format, len(planes))
	}

	w, h := int(params.FrameWidth), int(params.FrameHeight)
	for i, p := range planes {
		if want := int(params.PlaneFormats[i].PlaneSize); len(p) < want {
			return nil, fmt.Errorf("%w: plane %d holds %d of %d bytes", ErrShortPlane, i, len(p), want)
		}
	}

	switch params.Format {
	case format.NV12:
		img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
		copyRows(img.Y, img.YStride, planes[0], w, h)

		uv := planes[1]
		for row := 0; row < h/2; row++ {
			for col := 0; col < w/2; col++ {
				img.Cb[row*img.CStride+col] = uv[row*w+col*2]
				img.Cr[row*img.CStride+col] = uv[row*w+col*2+1]
			}
		}
		return img, nil

	case format.YUV420, format.YVU420:
		img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
		copyRows(img.Y, img.YStride, planes[0], w, h)

		cb, cr := planes[1], planes[2]
		if params.Format == format.YVU420 {
			cb, cr = cr, cb
		}
		copyRows(img.Cb, img.CStride, cb, w/2, h/2)
		copyRows(img.Cr, img.CStride, cr, w/2, h/2)
		return img, nil

	case format.ARGB8888, format.BGRA8888:
		// Both are little endian words: ARGB8888 sits in memory as B, G, R, A
		// and BGRA8888 as A, R, G, B.
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		src := planes[0]
		for i := 0; i < w*h; i++ {
			px := src[i*4 : i*4+4]
			out := img.Pix[i*4 : i*4+4]
			if params.Format == format.ARGB8888 {
				out[0], out[1], out[2], out[3] = px[2], px[1], px[0], px[3]
			} else {
				out[0], out[1], out[2], out[3] = px[1], px[2], px[3], px[0]
			}
		}
		return img, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoPreview, params.Format)
}

func copyRows(dst []byte, dstStride int, src []byte, width, height int) {
	for row := 0; row < height; row++ {
		copy(dst[row*dstStride:row*dstStride+width], src[row*width:row*width+width])
	}
}

// WritePreview encodes img into path, picking TIFF or BMP from the extension.
func WritePreview(path string, img image.Image) error {
	var encode func(f *os.File) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		encode = func(f *os.File) error {
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}
	case ".bmp":
		encode = func(f *os.File) error {
			return bmp.Encode(f, img)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownType, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
