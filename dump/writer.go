// Package dump writes frames read back from guest resources to disk, either
// as raw plane data or as a viewable preview image.
package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Writer appends raw planes to a file. Paths ending in .zst are compressed
// with zstd.
type Writer struct {
	f   *os.File
	buf *bufio.Writer
	enc *zstd.Encoder
	w   io.Writer
	n   int64
}

func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &Writer{f: f, buf: bufio.NewWriter(f)}
	w.w = w.buf

	if strings.HasSuffix(path, ".zst") {
		w.enc, err = zstd.NewWriter(w.buf, zstd.WithEncoderConcurrency(runtime.NumCPU()))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w.w = w.enc
	}

	return w, nil
}

// WritePlanes writes every plane back to back.
func (w *Writer) WritePlanes(planes [][]byte) error {
	for i, p := range planes {
		n, err := w.w.Write(p)
		w.n += int64(n)
		if err != nil {
			return fmt.Errorf("write plane %d: %w", i, err)
		}
	}
	return nil
}

// Written returns the number of uncompressed bytes written so far.
func (w *Writer) Written() int64 {
	return w.n
}

// Close flushes everything and closes the file.
func (w *Writer) Close() error {
	var errs []error
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
	}
	errs = append(errs, w.buf.Flush(), w.f.Close())
	return errors.Join(errs...)
}

// ReadFile reads a raw frame file, decompressing it when the path ends in
// .zst.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return io.ReadAll(f)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return io.ReadAll(dec)
}
