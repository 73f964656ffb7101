package preprocess

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/Brownie44l1/mood-api/internal/testutil"

	"github.com/nfnt/resize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestTensorShape(t *testing.T) {
	p := New(DefaultSize, resize.Bicubic)

	tensor, err := p.Tensor(bytes.NewReader(encodePNG(t, solid(40, 30, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 256, 256, 3}, tensor.Shape)
	assert.Len(t, tensor.Data, 256*256*3)
}

func TestTensorNormalizesSolidColor(t *testing.T) {
	p := New(DefaultSize, resize.Bicubic)
	c := color.NRGBA{R: 255, G: 128, B: 0, A: 255}

	tensor, err := p.Tensor(bytes.NewReader(encodePNG(t, solid(64, 64, c))))
	require.NoError(t, err)

	for _, i := range []int{0, 3 * 1000, len(tensor.Data) - 3} {
		assert.InDelta(t, 1.0, tensor.Data[i], 1.0/255)
		assert.InDelta(t, 128.0/255, tensor.Data[i+1], 1.0/255)
		assert.InDelta(t, 0.0, tensor.Data[i+2], 1.0/255)
	}
}

func TestTensorValuesInUnitRange(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 17, 23))
	for y := 0; y < 23; y++ {
		for x := 0; x < 17; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 15), G: uint8(y * 11), B: uint8((x * y) % 256), A: 255})
		}
	}

	tensor, err := New(DefaultSize, resize.Lanczos3).Tensor(bytes.NewReader(encodePNG(t, img)))
	require.NoError(t, err)

	for _, v := range tensor.Data {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestTensorDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 5), B: 99, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	raw := buf.Bytes()

	p := New(DefaultSize, resize.Bicubic)
	a, err := p.Tensor(bytes.NewReader(raw))
	require.NoError(t, err)
	b, err := p.Tensor(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, a.Shape, b.Shape)
	assert.Equal(t, a.Data, b.Data)
}

func TestTensorGrayscaleExpandsToRGB(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}

	tensor, err := New(DefaultSize, resize.NearestNeighbor).Tensor(bytes.NewReader(encodePNG(t, img)))
	require.NoError(t, err)

	want := float32(200) / 255
	assert.InDelta(t, want, tensor.Data[0], 1e-6)
	assert.InDelta(t, want, tensor.Data[1], 1e-6)
	assert.InDelta(t, want, tensor.Data[2], 1e-6)
}

func TestTensorDiscardsAlpha(t *testing.T) {
	c := color.NRGBA{R: 100, G: 150, B: 200, A: 64}

	tensor, err := New(DefaultSize, resize.NearestNeighbor).Tensor(bytes.NewReader(encodePNG(t, solid(4, 4, c))))
	require.NoError(t, err)

	assert.InDelta(t, float32(100)/255, tensor.Data[0], 1e-6)
	assert.InDelta(t, float32(150)/255, tensor.Data[1], 1e-6)
	assert.InDelta(t, float32(200)/255, tensor.Data[2], 1e-6)
}

func TestTensorDecodeError(t *testing.T) {
	_, err := New(DefaultSize, resize.Bicubic).Tensor(strings.NewReader("definitely not an image"))
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.ErrorIs(t, err, image.ErrFormat)
	assert.Contains(t, err.Error(), "cannot identify image file")
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(" Lanczos3 ")
	require.NoError(t, err)
	assert.Equal(t, resize.Lanczos3, f)

	_, err = ParseFilter("sinc")
	assert.Error(t, err)
}

func TestNewDefaultsSize(t *testing.T) {
	p := New(0, resize.Bicubic)
	assert.Equal(t, DefaultSize, p.Size)
	assert.Equal(t, []int64{1, 256, 256, 3}, p.Shape())
}

func TestTensorRejectsOversizedHeader(t *testing.T) {
	raw := testutil.PNGWithDeclaredSize(t, 100000, 100000)

	_, err := New(DefaultSize, resize.Bicubic).Tensor(bytes.NewReader(raw))
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.Contains(t, err.Error(), "100000x100000")
}

func TestTensorMaxPixelsBoundary(t *testing.T) {
	raw := encodePNG(t, solid(20, 10, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))

	p := New(DefaultSize, resize.NearestNeighbor)
	p.MaxPixels = 200
	_, err := p.Tensor(bytes.NewReader(raw))
	assert.NoError(t, err)

	p.MaxPixels = 199
	_, err = p.Tensor(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	p.MaxPixels = 0
	_, err = p.Tensor(bytes.NewReader(raw))
	assert.NoError(t, err)
}
