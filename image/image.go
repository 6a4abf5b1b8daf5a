// Package image holds the renderer's own framebuffer types: a float HDR
// accumulation buffer and the tone-mapped byte buffer written out as PNG.
// It is distinct from the standard image package, which cmd uses only at
// the final PNG-encode step.
package image

import (
	"image"
	"image/color"
	"math"

	"github.com/LuniumLuk/Tira/types"
)

const gamma float32 = 2.2
const oneDivGamma float32 = 1.0 / gamma

// Float is a width*height*3 float32 accumulation buffer, row-major with
// row 0 at the top, grounded on original_source/Tira/misc/image.cpp's
// ImageFloat.
type Float struct {
	Width, Height int
	Pixels        []types.Vec3
}

// NewFloat allocates a zeroed Float image.
func NewFloat(width, height int) *Float {
	return &Float{Width: width, Height: height, Pixels: make([]types.Vec3, width*height)}
}

func (im *Float) inBounds(x, y int) bool {
	return x >= 0 && x < im.Width && y >= 0 && y < im.Height
}

// At returns the color at (x,y), clamping out-of-range coordinates to the
// nearest edge pixel.
func (im *Float) At(x, y int) types.Vec3 {
	if x < 0 {
		x = 0
	}
	if x >= im.Width {
		x = im.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= im.Height {
		y = im.Height - 1
	}
	return im.Pixels[y*im.Width+x]
}

// Set overwrites the pixel at (x,y); out-of-bounds coordinates are ignored.
func (im *Float) Set(x, y int, c types.Vec3) {
	if !im.inBounds(x, y) {
		return
	}
	im.Pixels[y*im.Width+x] = c
}

// Increment adds c to the pixel at (x,y), the operation the accumulation
// buffer uses for every sample a tile worker contributes.
func (im *Float) Increment(x, y int, c types.Vec3) {
	if !im.inBounds(x, y) {
		return
	}
	p := &im.Pixels[y*im.Width+x]
	*p = p.Add(c)
}

// Fill sets every pixel to c.
func (im *Float) Fill(c types.Vec3) {
	for i := range im.Pixels {
		im.Pixels[i] = c
	}
}

// DrawLine rasterizes a line from v0 to v1 in image space, clipping it to
// the image bounds with Cohen-Sutherland and stepping pixels with
// Bresenham's algorithm, grounded on
// original_source/Tira/misc/image.cpp's draw_line. Used for BVH/debug
// wireframe overlays.
func (im *Float) DrawLine(v0, v1 [2]int, color types.Vec3) {
	min := [2]float32{0, 0}
	max := [2]float32{float32(im.Width - 1), float32(im.Height - 1)}
	p0 := [2]float32{float32(v0[0]), float32(v0[1])}
	p1 := [2]float32{float32(v1[0]), float32(v1[1])}

	if !cohenSutherlandClip(&p0, &p1, min, max) {
		return
	}

	x0, y0 := int(p0[0]), int(p0[1])
	x1, y1 := int(p1[0]), int(p1[1])

	dx := iabs(x1 - x0)
	dy := -iabs(y1 - y0)
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		im.Set(x0, y0, color)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

const (
	codeLeft   = 1
	codeRight  = 2
	codeBottom = 4
	codeTop    = 8
)

func outCode(p [2]float32, min, max [2]float32) int {
	code := 0
	if p[0] < min[0] {
		code |= codeLeft
	} else if p[0] > max[0] {
		code |= codeRight
	}
	if p[1] < min[1] {
		code |= codeBottom
	} else if p[1] > max[1] {
		code |= codeTop
	}
	return code
}

// cohenSutherlandClip clips the segment p0-p1 against the [min,max]
// rectangle in place, returning whether any part of it survives.
func cohenSutherlandClip(p0, p1 *[2]float32, min, max [2]float32) bool {
	out0 := outCode(*p0, min, max)
	out1 := outCode(*p1, min, max)

	for {
		if out0|out1 == 0 {
			return true
		}
		if out0&out1 != 0 {
			return false
		}

		var x, y float32
		outBits := out0
		if out1 > out0 {
			outBits = out1
		}

		switch {
		case outBits&codeTop != 0:
			x = p0[0] + (p1[0]-p0[0])*(max[1]-p0[1])/(p1[1]-p0[1])
			y = max[1]
		case outBits&codeBottom != 0:
			x = p0[0] + (p1[0]-p0[0])*(min[1]-p0[1])/(p1[1]-p0[1])
			y = min[1]
		case outBits&codeRight != 0:
			y = p0[1] + (p1[1]-p0[1])*(max[0]-p0[0])/(p1[0]-p0[0])
			x = max[0]
		case outBits&codeLeft != 0:
			y = p0[1] + (p1[1]-p0[1])*(min[0]-p0[0])/(p1[0]-p0[0])
			x = min[0]
		}

		if outBits == out0 {
			p0[0], p0[1] = x, y
			out0 = outCode(*p0, min, max)
		} else {
			p1[0], p1[1] = x, y
			out1 = outCode(*p1, min, max)
		}
	}
}

// ReinhardToneMap applies the simple c/(c+1) Reinhard operator.
func ReinhardToneMap(c types.Vec3) types.Vec3 {
	return types.Vec3{c[0] / (c[0] + 1), c[1] / (c[1] + 1), c[2] / (c[2] + 1)}
}

// ACESToneMap applies the Narkowicz ACES filmic fit.
func ACESToneMap(c types.Vec3) types.Vec3 {
	const a, b, cc, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
	out := types.Vec3{}
	for i := 0; i < 3; i++ {
		x := c[i]
		out[i] = types.Clamp((x*(x*a+b))/(x*(x*cc+d)+e), 0, 1)
	}
	return out
}

// GammaEncode raises each channel to 1/gamma (linear -> display).
func GammaEncode(c types.Vec3) types.Vec3 {
	return types.Vec3{
		powf(c[0], oneDivGamma),
		powf(c[1], oneDivGamma),
		powf(c[2], oneDivGamma),
	}
}

// GammaDecode raises each channel to gamma (display -> linear).
func GammaDecode(c types.Vec3) types.Vec3 {
	return types.Vec3{
		powf(c[0], gamma),
		powf(c[1], gamma),
		powf(c[2], gamma),
	}
}

func powf(x, e float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Pow(float64(x), float64(e)))
}

// ToneMapMode selects the operator Byte.FromFloat applies before gamma
// encoding.
type ToneMapMode int

const (
	ToneMapReinhard ToneMapMode = iota
	ToneMapACES
	ToneMapNone
)

// Byte is the final width*height*4 (RGBA) display buffer handed to
// image/png for output.
type Byte struct {
	Width, Height int
	Pix           []byte // RGBA8, row-major, row 0 at the top
}

// NewByte allocates a zeroed Byte image.
func NewByte(width, height int) *Byte {
	return &Byte{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// FromFloat tone-maps and gamma-encodes src's accumulated radiance
// (already divided by sample count) into dst, which must share src's
// dimensions.
func (dst *Byte) FromFloat(src *Float, mode ToneMapMode) {
	for i, c := range src.Pixels {
		var mapped types.Vec3
		switch mode {
		case ToneMapACES:
			mapped = ACESToneMap(c)
		case ToneMapNone:
			mapped = types.Vec3{types.Clamp(c[0], 0, 1), types.Clamp(c[1], 0, 1), types.Clamp(c[2], 0, 1)}
		default:
			mapped = ReinhardToneMap(c)
		}
		encoded := GammaEncode(mapped)

		o := i * 4
		dst.Pix[o+0] = toByte(encoded[0])
		dst.Pix[o+1] = toByte(encoded[1])
		dst.Pix[o+2] = toByte(encoded[2])
		dst.Pix[o+3] = 255
	}
}

func toByte(c float32) byte {
	return byte(types.Clamp(c, 0, 1)*255.0 + 0.5)
}

// ColorModel implements image.Image so Byte can be passed directly to
// image/png.Encode.
func (dst *Byte) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (dst *Byte) Bounds() image.Rectangle {
	return image.Rect(0, 0, dst.Width, dst.Height)
}

// At implements image.Image.
func (dst *Byte) At(x, y int) color.Color {
	o := (y*dst.Width + x) * 4
	return color.RGBA{dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2], dst.Pix[o+3]}
}
