package scene

import (
	"math"

	"github.com/LuniumLuk/Tira/types"
)

// Texture2D is a repeat-wrapped, bilinearly sampled float RGB image, the
// in-memory form a decoded image ends up in: this package never touches
// image codecs, it only owns the float buffer and the sampling math a
// material needs.
type Texture2D struct {
	Width, Height int
	Pixels        []types.Vec3 // row-major, length Width*Height
}

// NewTexture2D wraps an already-decoded float RGB buffer. pixels is assumed
// row-major in image order (row 0 is the top scanline, as decoders emit it);
// NewTexture2D flips it vertically in place so row 0 of t.Pixels is the
// bottom scanline, matching uv=(0,0) at the bottom-left the sampler expects.
// srgb, when true, decodes the buffer from sRGB to linear in place, matching
// the gamma convention image.Encode applies on output (scene/../image
// package).
func NewTexture2D(width, height int, pixels []types.Vec3, srgb bool) *Texture2D {
	t := &Texture2D{Width: width, Height: height, Pixels: pixels}
	for y := 0; y < height/2; y++ {
		top := y * width
		bot := (height - 1 - y) * width
		for x := 0; x < width; x++ {
			t.Pixels[top+x], t.Pixels[bot+x] = t.Pixels[bot+x], t.Pixels[top+x]
		}
	}
	if srgb {
		for i, p := range t.Pixels {
			t.Pixels[i] = types.Vec3{srgbToLinear(p[0]), srgbToLinear(p[1]), srgbToLinear(p[2])}
		}
	}
	return t
}

func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow(float64((c+0.055)/1.055), 2.4))
}

func (t *Texture2D) at(x, y int) types.Vec3 {
	x = wrapIndex(x, t.Width)
	y = wrapIndex(y, t.Height)
	return t.Pixels[y*t.Width+x]
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Sample performs repeat-wrapped bilinear filtering at texture coordinate uv.
func (t *Texture2D) Sample(uv types.Vec2) types.Vec3 {
	if t.Width == 0 || t.Height == 0 {
		return types.Vec3{}
	}
	fx := uv[0]*float32(t.Width) - 0.5
	fy := uv[1]*float32(t.Height) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := t.at(x0, y0)
	c10 := t.at(x0+1, y0)
	c01 := t.at(x0, y0+1)
	c11 := t.at(x0+1, y0+1)

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bot := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bot.Mul(ty))
}
