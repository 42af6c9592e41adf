package videocopy

import (
	"testing"

	"github.com/slackhq/videocopy/copier"
	"github.com/slackhq/videocopy/format"
	"github.com/slackhq/videocopy/resource"
	"github.com/slackhq/videocopy/segment"
	"github.com/slackhq/videocopy/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pad = 0xee

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

// singleBuffer backs a resource with one buffer cut into segments of the given
// sizes, with planes at offsets.
func singleBuffer(backing []byte, offsets []int, sizes ...int) *resource.Resource {
	var list segment.List
	rest := backing
	for _, n := range sizes {
		list = append(list, rest[:n:n])
		rest = rest[n:]
	}

	res := &resource.Resource{Layout: resource.SingleBuffer}
	for _, off := range offsets {
		res.Planes = append(res.Planes, resource.Plane{Segments: list, Offset: off})
	}
	return res
}

func perPlane(planes ...[]byte) *resource.Resource {
	res := &resource.Resource{Layout: resource.PerPlane}
	for _, p := range planes {
		res.Planes = append(res.Planes, resource.Plane{Segments: segment.List{p}})
	}
	return res
}

func TestTransferFrame_NV12SingleBuffer(t *testing.T) {
	c := copier.New(test.NewLogger())
	params := format.Geometry(format.NV12, 4, 2)

	t.Run("padded rows", func(t *testing.T) {
		backing := make([]byte, 12)
		res := singleBuffer(backing, []int{0, 8}, 5, 7)

		frame := Frame{
			Planes: [][]byte{
				{1, 2, 3, 4, pad, pad, 5, 6, 7, 8, pad, pad},
				{9, 10, 11, 12, pad, pad},
			},
			Pitch: []int{6, 6},
		}
		require.NoError(t, TransferFrame(c, res, params, frame))
		assert.Equal(t, seq(12, 1), backing)

		planes, err := ReadFrame(c, res, params)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{seq(8, 1), seq(4, 9)}, planes)
	})

	t.Run("tight rows", func(t *testing.T) {
		backing := make([]byte, 12)
		res := singleBuffer(backing, []int{0, 8}, 3, 9)

		// Trailing bytes past the plane size are not copied.
		frame := Frame{Planes: [][]byte{seq(8, 1), append(seq(4, 9), pad)}}
		require.NoError(t, TransferFrame(c, res, params, frame))
		assert.Equal(t, seq(12, 1), backing)
	})

	t.Run("plane too small", func(t *testing.T) {
		res := singleBuffer(make([]byte, 12), []int{0, 8}, 12)
		frame := Frame{Planes: [][]byte{seq(7, 1), seq(4, 9)}}
		assert.ErrorIs(t, TransferFrame(c, res, params, frame), ErrFrameMismatch)
	})

	t.Run("resource too small", func(t *testing.T) {
		backing := make([]byte, 10)
		res := singleBuffer(backing, []int{0, 8}, 10)
		frame := Frame{Planes: [][]byte{seq(8, 1), seq(4, 9)}}
		assert.ErrorIs(t, TransferFrame(c, res, params, frame), copier.ErrShortTransfer)
		assert.Equal(t, seq(10, 1), backing)
	})
}

func TestTransferFrame_NV12PerPlane(t *testing.T) {
	c := copier.New(test.NewLogger())
	params := format.Geometry(format.NV12, 4, 2)

	y := make([]byte, 8)
	uv := make([]byte, 4)
	res := perPlane(y, uv)

	frame := Frame{
		Planes: [][]byte{
			{1, 2, 3, 4, pad, pad, 5, 6, 7, 8, pad, pad},
			{9, 10, 11, 12, pad, pad},
		},
		Pitch: []int{6, 6},
	}
	require.NoError(t, TransferFrame(c, res, params, frame))
	assert.Equal(t, seq(8, 1), y)
	assert.Equal(t, seq(4, 9), uv)

	planes, err := ReadFrame(c, res, params)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{seq(8, 1), seq(4, 9)}, planes)
}

func TestTransferFrame_ARGB(t *testing.T) {
	c := copier.New(test.NewLogger())

	for _, f := range []format.Format{format.ARGB8888, format.BGRA8888} {
		t.Run(f.String(), func(t *testing.T) {
			params := format.Geometry(f, 2, 2)
			backing := make([]byte, 16)
			res := singleBuffer(backing, []int{0}, 7, 9)

			frame := Frame{
				Planes: [][]byte{append(append(seq(8, 1), pad, pad), append(seq(8, 9), pad, pad)...)},
				Pitch:  []int{10},
			}
			require.NoError(t, TransferFrame(c, res, params, frame))
			assert.Equal(t, seq(16, 1), backing)

			backing = make([]byte, 16)
			res = singleBuffer(backing, []int{0}, 16)
			require.NoError(t, TransferFrame(c, res, params, Frame{Planes: [][]byte{seq(16, 1)}}))
			assert.Equal(t, seq(16, 1), backing)
		})
	}
}

func TestTransferFrame_YUV420(t *testing.T) {
	c := copier.New(test.NewLogger())
	params := format.Geometry(format.YUV420, 4, 2)

	y, u, v := make([]byte, 8), make([]byte, 2), make([]byte, 2)
	res := perPlane(y, u, v)

	frame := Frame{Planes: [][]byte{seq(8, 1), seq(2, 20), seq(2, 30)}}
	require.NoError(t, TransferFrame(c, res, params, frame))
	assert.Equal(t, seq(8, 1), y)
	assert.Equal(t, seq(2, 20), u)
	assert.Equal(t, seq(2, 30), v)

	// Padded chroma rows go through the strided copy plane by plane.
	frame = Frame{
		Planes: [][]byte{seq(8, 101), {40, 41, pad, pad}, {50, 51, pad, pad}},
		Pitch:  []int{0, 4, 4},
	}
	require.NoError(t, TransferFrame(c, res, params, frame))
	assert.Equal(t, seq(8, 101), y)
	assert.Equal(t, []byte{40, 41}, u)
	assert.Equal(t, []byte{50, 51}, v)

	planes, err := ReadFrame(c, res, params)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{seq(8, 101), {40, 41}, {50, 51}}, planes)
}

func TestTransferFrame_Codec(t *testing.T) {
	c := copier.New(test.NewLogger())
	params := format.Geometry(format.H264, 0, 0)

	bitstream := make([]byte, 16)
	res := perPlane(bitstream)

	require.NoError(t, TransferFrame(c, res, params, Frame{Planes: [][]byte{seq(5, 1)}}))
	assert.Equal(t, seq(5, 1), bitstream[:5])

	planes, err := ReadFrame(c, res, params)
	require.NoError(t, err)
	require.Len(t, planes, 1)
	assert.Len(t, planes[0], 16)
}

func TestTransferFrame_Errors(t *testing.T) {
	c := copier.New(test.NewLogger())
	params := format.Geometry(format.YUV420, 4, 2)

	res := perPlane(make([]byte, 8), make([]byte, 2), make([]byte, 2))
	assert.ErrorIs(t, TransferFrame(c, res, params, Frame{Planes: [][]byte{seq(8, 1)}}), ErrFrameMismatch)
	assert.ErrorIs(t, TransferFrame(c, nil, params, Frame{}), copier.ErrInvalidArguments)

	bad := params
	bad.NumPlanes = 4
	assert.ErrorIs(t, TransferFrame(c, res, bad, Frame{}), ErrFrameMismatch)
	_, err := ReadFrame(c, res, bad)
	assert.ErrorIs(t, err, ErrFrameMismatch)

	// NV12 described with a single plane.
	nv12 := format.Geometry(format.NV12, 4, 2)
	nv12.NumPlanes = 1
	single := singleBuffer(make([]byte, 12), []int{0}, 12)
	padded := Frame{Planes: [][]byte{make([]byte, 12)}, Pitch: []int{6}}
	assert.ErrorIs(t, TransferFrame(c, single, nv12, padded), ErrFrameMismatch)
	assert.ErrorIs(t, TransferFrame(c, single, nv12, Frame{Planes: [][]byte{make([]byte, 12)}}), ErrFrameMismatch)
	_, err = ReadFrame(c, single, nv12)
	assert.ErrorIs(t, err, ErrFrameMismatch)

	// A plane missing from the resource is an argument error.
	res = perPlane(make([]byte, 8))
	err = TransferFrame(c, res, params, Frame{Planes: [][]byte{seq(8, 1), seq(2, 1), seq(2, 1)}})
	assert.ErrorIs(t, err, copier.ErrInvalidArguments)

	_, err = ReadFrame(c, res, params)
	assert.ErrorIs(t, err, copier.ErrInvalidArguments)
}

func TestReadFrame_Short(t *testing.T) {
	c := copier.New(test.NewLogger())
	params := format.Geometry(format.NV12, 4, 2)

	backing := seq(10, 1)
	res := singleBuffer(backing, []int{0, 8}, 10)

	planes, err := ReadFrame(c, res, params)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{seq(8, 1), seq(2, 9)}, planes)
}

func TestReadFrame_Detached(t *testing.T) {
	c := copier.New(test.NewLogger())
	params := format.Geometry(format.NV12, 4, 2)

	backing := seq(12, 1)
	res := singleBuffer(backing, []int{0, 8}, 12)
	res.Mapped = backing

	planes, err := ReadFrame(c, res, params)
	require.NoError(t, err)
	test.AssertDetached(t, [][]byte{backing[:8], backing[8:12]}, planes)

	// Writing the guest buffer afterwards leaves the frame alone.
	backing[0] = pad
	assert.Equal(t, byte(1), planes[0][0])
}
