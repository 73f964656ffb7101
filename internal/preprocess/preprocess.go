// Package preprocess turns uploaded image bytes into the model's input
// tensor: decode, drop alpha, resize to a square, scale to [0,1], and add a
// leading batch axis. The layout is channels-last (1, H, W, 3).
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/Brownie44l1/mood-api/internal/model"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultSize = 256
	// DefaultMaxPixels matches the decompression-bomb threshold of common
	// image libraries (about 179M pixels).
	DefaultMaxPixels int64 = 178956970
	channels               = 3
)

var ErrImageTooLarge = errors.New("image too large")

// DecodeError reports bytes that could not be decoded as an image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot identify image file: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var filters = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"lanczos3": resize.Lanczos3,
}

func ParseFilter(name string) (resize.InterpolationFunction, error) {
	f, ok := filters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown resize filter %q", name)
	}
	return f, nil
}

type Preprocessor struct {
	Size   int
	Filter resize.InterpolationFunction
	// MaxPixels caps the declared width*height of an upload. Zero disables
	// the check.
	MaxPixels int64
}

func New(size int, filter resize.InterpolationFunction) *Preprocessor {
	if size <= 0 {
		size = DefaultSize
	}
	return &Preprocessor{Size: size, Filter: filter, MaxPixels: DefaultMaxPixels}
}

func (p *Preprocessor) Shape() []int64 {
	return []int64{1, int64(p.Size), int64(p.Size), channels}
}

// Tensor decodes r and returns the normalized input tensor. The image
// header is checked against MaxPixels before any pixel data is decoded.
func (p *Preprocessor) Tensor(r io.Reader) (model.Tensor, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return model.Tensor{}, fmt.Errorf("read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return model.Tensor{}, &DecodeError{Err: err}
	}
	if err := p.checkPixels(cfg.Width, cfg.Height); err != nil {
		return model.Tensor{}, &DecodeError{Err: err}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return model.Tensor{}, &DecodeError{Err: err}
	}
	return p.FromImage(img), nil
}

func (p *Preprocessor) checkPixels(width, height int) error {
	if p.MaxPixels <= 0 {
		return nil
	}
	pixels := int64(width) * int64(height)
	if pixels > p.MaxPixels {
		return fmt.Errorf("%w: %dx%d = %d pixels exceeds limit of %d pixels",
			ErrImageTooLarge, width, height, pixels, p.MaxPixels)
	}
	return nil
}

func (p *Preprocessor) FromImage(img image.Image) model.Tensor {
	size := uint(p.Size)
	resized := resize.Resize(size, size, toRGB(img), p.Filter)

	data := make([]float32, p.Size*p.Size*channels)
	bounds := resized.Bounds()
	rgba, isRGBA := resized.(*image.RGBA)

	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			var r, g, b uint8
			if isRGBA {
				off := rgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				r, g, b = rgba.Pix[off], rgba.Pix[off+1], rgba.Pix[off+2]
			} else {
				c := color.RGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
				r, g, b = c.R, c.G, c.B
			}

			i := (y*p.Size + x) * channels
			data[i] = float32(r) / 255.0
			data[i+1] = float32(g) / 255.0
			data[i+2] = float32(b) / 255.0
		}
	}

	return model.Tensor{Shape: p.Shape(), Data: data}
}

// toRGB copies img into an opaque RGBA image, keeping the straight
// (non-premultiplied) color and discarding alpha.
func toRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			off := dst.PixOffset(x-b.Min.X, y-b.Min.Y)
			dst.Pix[off] = c.R
			dst.Pix[off+1] = c.G
			dst.Pix[off+2] = c.B
			dst.Pix[off+3] = 0xff
		}
	}
	return dst
}
