package raster

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// Negate inverts every channel.
func (m *Image) Negate() {
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: c.A}
	})
}

// Solarize inverts channels at or above pct percent of full scale.
func (m *Image) Solarize(pct float64) {
	cut := uint8(math.Round(pct / 100 * 255))
	inv := func(v uint8) uint8 {
		if v >= cut {
			return 255 - v
		}
		return v
	}
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: inv(c.R), G: inv(c.G), B: inv(c.B), A: c.A}
	})
}

// Gamma applies gamma correction with exponent 1/g.
func (m *Image) Gamma(g float64) {
	if g <= 0 {
		return
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(math.Round(255 * math.Pow(float64(i)/255, 1/g)))
	}
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// BrightnessContrast shifts brightness and stretches contrast, both in
// percent of full scale. Values are clamped to the channel range.
func (m *Image) BrightnessContrast(brightness, contrast float64) {
	slope := math.Tan((contrast + 100) / 200 * math.Pi / 2)
	if math.IsInf(slope, 0) {
		slope = 1e6
	}
	shift := brightness / 100 * 255
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8((float64(i)-127.5)*slope + 127.5 + shift)
	}
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// AutoLevel stretches channel values linearly so the darkest sample maps to
// 0 and the lightest to 255.
func (m *Image) AutoLevel() {
	lo, hi := 255, 0
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		for _, v := range [3]uint8{c.R, c.G, c.B} {
			if int(v) < lo {
				lo = int(v)
			}
			if int(v) > hi {
				hi = int(v)
			}
		}
		return c
	})
	if hi <= lo {
		return
	}
	scale := 255 / float64(hi-lo)
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(float64(i-lo) * scale)
	}
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// WhiteThreshold forces pixels whose luma is at or above pct percent of full
// scale to pure white.
func (m *Image) WhiteThreshold(pct float64) {
	cut := pct / 100 * 255
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		if luma(c) >= cut {
			return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
		}
		return c
	})
}

// FlattenWhite replaces pixels within fuzzPct color distance of white with
// pure white, removing paper tint before grayscale reduction.
func (m *Image) FlattenWhite(fuzzPct float64) {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	fuzz := fuzzPct / 100
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		if colorDistance(c, white) <= fuzz {
			return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
		}
		return c
	})
}

// ToGray reduces the image to its luma. With linear set, conversion goes
// through linear light instead of the stored gamma-encoded values.
func (m *Image) ToGray(linear bool) {
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		var v uint8
		if linear {
			r := srgbToLinear(c.R)
			g := srgbToLinear(c.G)
			b := srgbToLinear(c.B)
			v = clamp8(255 * linearToSrgb(0.2126*r+0.7152*g+0.0722*b))
		} else {
			v = clamp8(luma(c))
		}
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// GaussianBlur applies a separable gaussian with the given sigma.
func (m *Image) GaussianBlur(sigma float64) {
	if sigma <= 0 {
		return
	}
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	m.convolve1D(kernel, radius, true)
	m.convolve1D(kernel, radius, false)
}

// Despeckle runs a 3×3 median filter per channel, removing isolated dark or
// bright specks so they cannot anchor a trim bound.
func (m *Image) Despeckle() {
	src := m.pix
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	var win [9]uint8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			for ch := 0; ch < 3; ch++ {
				n := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						sx, sy := clampInt(x+dx, b.Min.X, b.Max.X-1), clampInt(y+dy, b.Min.Y, b.Max.Y-1)
						win[n] = src.Pix[src.PixOffset(sx, sy)+ch]
						n++
					}
				}
				s := win[:]
				sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
				dst.Pix[dst.PixOffset(x, y)+ch] = s[4]
			}
			dst.Pix[dst.PixOffset(x, y)+3] = src.Pix[src.PixOffset(x, y)+3]
		}
	}
	m.pix = dst
}

// Enhance applies a mild edge-preserving 3×3 smoothing: neighbors close in
// color to the center pixel are averaged, distant ones are ignored.
func (m *Image) Enhance() {
	src := m.pix
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	const maxDist = 0.1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			center := src.NRGBAAt(x, y)
			var r, g, bl, n float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sx, sy := clampInt(x+dx, b.Min.X, b.Max.X-1), clampInt(y+dy, b.Min.Y, b.Max.Y-1)
					c := src.NRGBAAt(sx, sy)
					if colorDistance(c, center) > maxDist {
						continue
					}
					r += float64(c.R)
					g += float64(c.G)
					bl += float64(c.B)
					n++
				}
			}
			dst.SetNRGBA(x, y, color.NRGBA{
				R: clamp8(r / n),
				G: clamp8(g / n),
				B: clamp8(bl / n),
				A: center.A,
			})
		}
	}
	m.pix = dst
}

// UnsharpMask sharpens by adding back amount times the difference from a
// gaussian-blurred copy, skipping differences below threshold (fraction of
// full scale) to avoid amplifying noise.
func (m *Image) UnsharpMask(sigma, amount, threshold float64) {
	blurred := m.Clone()
	blurred.GaussianBlur(sigma)
	b := m.pix.Bounds()
	cut := threshold * 255
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := m.pix.PixOffset(x, y)
			for ch := 0; ch < 3; ch++ {
				v := float64(m.pix.Pix[off+ch])
				diff := v - float64(blurred.pix.Pix[off+ch])
				if math.Abs(diff) <= cut {
					continue
				}
				m.pix.Pix[off+ch] = clamp8(v + amount*diff)
			}
		}
	}
}

func (m *Image) convolve1D(kernel []float64, radius int, horizontal bool) {
	src := m.pix
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var acc [3]float64
			for k := -radius; k <= radius; k++ {
				sx, sy := x, y
				if horizontal {
					sx = clampInt(x+k, b.Min.X, b.Max.X-1)
				} else {
					sy = clampInt(y+k, b.Min.Y, b.Max.Y-1)
				}
				off := src.PixOffset(sx, sy)
				w := kernel[k+radius]
				acc[0] += w * float64(src.Pix[off+0])
				acc[1] += w * float64(src.Pix[off+1])
				acc[2] += w * float64(src.Pix[off+2])
			}
			off := dst.PixOffset(x, y)
			dst.Pix[off+0] = clamp8(acc[0])
			dst.Pix[off+1] = clamp8(acc[1])
			dst.Pix[off+2] = clamp8(acc[2])
			dst.Pix[off+3] = src.Pix[src.PixOffset(x, y)+3]
		}
	}
	m.pix = dst
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func srgbToLinear(v uint8) float64 {
	f := float64(v) / 255
	if f <= 0.04045 {
		return f / 12.92
	}
	return math.Pow((f+0.055)/1.055, 2.4)
}

func linearToSrgb(f float64) float64 {
	if f <= 0.0031308 {
		return f * 12.92
	}
	return 1.055*math.Pow(f, 1/2.4) - 0.055
}
