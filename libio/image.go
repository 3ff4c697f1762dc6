package libio

import (
	goimg "image"

	"github.com/chewxy/math32"
)

const MagicNumberF32 = 0x6d16837d

type FloatImageVersion uint32

const (
	F32Version1_001_000 = FloatImageVersion(1_001_000)
)

type FloatImageCompression uint32

const (
	FloatImageCompressionNone = FloatImageCompression(iota)
	FloatImageCompressionFixedPoint16Lz4
)

type image struct {
	Channels      int
	Width, Height int
}

// Calculates the tuple index into the images data.
//
// Note that the origin (0,0) is in the bottom left, as opposed to Go's top left origin
func (img *image) Index(x, y int) int {
	return x*img.Channels + y*img.Channels*img.Width
}

func (img *image) Count() int {
	return img.Width * img.Height
}

type FloatImageHeader struct {
	Check         uint32
	Version       FloatImageVersion
	Width, Height uint32
	Channels      uint8
	Compression   FloatImageCompression
	Unused        [14]uint8
}

type FloatImage struct {
	image
	Pix []float32
}

func NewFloatImage(pix []float32, channels int, width, height int) *FloatImage {
	if pix == nil {
		pix = make([]float32, width*height*channels)
	}
	return &FloatImage{
		Pix: pix,
		image: image{
			Channels: channels,
			Width:    width,
			Height:   height,
		},
	}
}

func (img *FloatImage) Bytes() int {
	return img.Width * img.Height * img.Channels * 4
}

// Pixel returns the channels of the pixel at x, y as a sub slice of Pix.
func (img *FloatImage) Pixel(x, y int) []float32 {
	i := img.Index(x, y)
	return img.Pix[i : i+img.Channels : i+img.Channels]
}

// SetRows copies rows of tightly packed pixels with the given channel count into the
// rectangle starting at x, y. Rows are taken from src top to bottom, so with flip set
// the first source row lands in the top row of the rectangle, compensating for the
// bottom left origin. Missing channels are filled with 1 for alpha and 0 otherwise.
func (img *FloatImage) SetRows(x, y, w, h, channels int, src []float32, flip bool) {
	for row := 0; row < h; row++ {
		dy := y + row
		if flip {
			dy = y + h - row - 1
		}
		for col := 0; col < w; col++ {
			s := (row*w + col) * channels
			d := img.Index(x+col, dy)
			for c := 0; c < img.Channels; c++ {
				switch {
				case c < channels:
					img.Pix[d+c] = src[s+c]
				case c == 3:
					img.Pix[d+c] = 1
				default:
					img.Pix[d+c] = 0
				}
			}
		}
	}
}

func (img *FloatImage) ToChannels(nr int, defaults ...float32) *FloatImage {
	if img.Channels == nr {
		return img
	}
	for len(defaults) < nr {
		defaults = append(defaults, 0)
	}

	dst := make([]float32, img.Count()*nr)
	for i := 0; i < img.Count(); i++ {
		for c := 0; c < nr; c++ {
			if c < img.Channels {
				dst[i*nr+c] = img.Pix[i*img.Channels+c]
			} else {
				dst[i*nr+c] = defaults[c]
			}
		}
	}

	return NewFloatImage(dst, nr, img.Width, img.Height)
}

// ToRGBA tonemaps the image for previews. The result is flipped vertically to Go's top left origin.
func (img *FloatImage) ToRGBA(gamma, scale float32) *goimg.RGBA {
	rgba := goimg.NewRGBA(goimg.Rect(0, 0, img.Width, img.Height))

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := img.Index(x, y)
			// flipped vertically
			j := (x + (img.Height-y-1)*img.Width) * 4
			for c := 0; c < 3; c++ {
				if c < img.Channels {
					rgba.Pix[j+c] = uint8(tonemap(img.Pix[i+c], 1.0/gamma, scale) * 0xff)
				}
			}
			rgba.Pix[j+3] = 0xff
		}
	}

	return rgba
}

func tonemap(value, gamma, scale float32) float32 {
	value = math32.Pow(math32.Max(value, 0), gamma) * scale
	return math32.Min(math32.Max(0.0, value), 1.0)
}
