package raster

import (
	"image/color"
	"math"
)

// ChannelStats summarizes a sampled channel, normalized to [0, 1].
type ChannelStats struct {
	Mean   float64
	StdDev float64
	Max    float64
}

func statsOf(samples []float64) ChannelStats {
	if len(samples) == 0 {
		return ChannelStats{}
	}
	var sum, max float64
	for _, v := range samples {
		sum += v
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(samples))
	var varsum float64
	for _, v := range samples {
		d := v - mean
		varsum += d * d
	}
	return ChannelStats{Mean: mean, StdDev: math.Sqrt(varsum / float64(len(samples))), Max: max}
}

// GrayStats returns statistics over the luma channel.
func (m *Image) GrayStats() ChannelStats {
	b := m.pix.Bounds()
	samples := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			samples = append(samples, luma(m.pix.NRGBAAt(x, y))/255)
		}
	}
	return statsOf(samples)
}

// SaturationStats returns statistics over the HSB saturation channel.
func (m *Image) SaturationStats() ChannelStats {
	b := m.pix.Bounds()
	samples := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := m.pix.NRGBAAt(x, y)
			max := math.Max(float64(c.R), math.Max(float64(c.G), float64(c.B)))
			min := math.Min(float64(c.R), math.Min(float64(c.G), float64(c.B)))
			if max == 0 {
				samples = append(samples, 0)
				continue
			}
			samples = append(samples, (max-min)/max)
		}
	}
	return statsOf(samples)
}

// ThresholdMethod selects the automatic binarization cut-point heuristic.
type ThresholdMethod int

const (
	// OtsuThreshold maximizes between-class variance.
	OtsuThreshold ThresholdMethod = iota
	// KapurThreshold maximizes the foreground/background entropy sum.
	KapurThreshold
)

// AutoThreshold binarizes the image in place using the given method.
func (m *Image) AutoThreshold(method ThresholdMethod) {
	hist := m.lumaHistogram()
	var cut int
	switch method {
	case KapurThreshold:
		cut = kapurCut(hist)
	default:
		cut = otsuCut(hist)
	}
	m.eachPixel(func(c color.NRGBA) color.NRGBA {
		if luma(c) > float64(cut) {
			return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
		}
		return color.NRGBA{R: 0, G: 0, B: 0, A: c.A}
	})
}

func (m *Image) lumaHistogram() [256]int {
	var hist [256]int
	b := m.pix.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[clamp8(luma(m.pix.NRGBAAt(x, y)))]++
		}
	}
	return hist
}

func otsuCut(hist [256]int) int {
	total := 0
	for _, n := range hist {
		total += n
	}
	if total == 0 {
		return 127
	}
	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i) * float64(n)
	}
	var sumB, wB float64
	best, bestCut := -1.0, 127
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			bestCut = t
		}
	}
	return bestCut
}

func kapurCut(hist [256]int) int {
	total := 0
	for _, n := range hist {
		total += n
	}
	if total == 0 {
		return 127
	}
	p := make([]float64, 256)
	for i, n := range hist {
		p[i] = float64(n) / float64(total)
	}
	cum := make([]float64, 257)
	for i := 0; i < 256; i++ {
		cum[i+1] = cum[i] + p[i]
	}
	entropy := func(lo, hi int, w float64) float64 {
		if w <= 0 {
			return 0
		}
		var h float64
		for i := lo; i < hi; i++ {
			if p[i] <= 0 {
				continue
			}
			q := p[i] / w
			h -= q * math.Log(q)
		}
		return h
	}
	best, bestCut := math.Inf(-1), 127
	for t := 1; t < 255; t++ {
		wB := cum[t+1]
		wF := 1 - wB
		// A cut leaving one class empty is not a split; scoring it would let
		// the degenerate H = 0 side win on clean bimodal histograms.
		if wB <= 0 || wF <= 0 {
			continue
		}
		h := entropy(0, t+1, wB) + entropy(t+1, 256, wF)
		if h > best {
			best = h
			bestCut = t
		}
	}
	return bestCut
}

// BoundingBox returns the minimum rectangle containing all pixels further
// than fuzzPct percent color distance from the border background. The
// background is sampled near the corners rather than at them so a single
// speckled corner pixel cannot skew the reference.
func (m *Image) BoundingBox(fuzzPct float64) Rect {
	bg := m.cornerBackground()
	fuzz := fuzzPct / 100
	b := m.pix.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if colorDistance(m.pix.NRGBAAt(x, y), bg) <= fuzz {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return m.Canvas()
	}
	return Rect{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}
}

// cornerBackground samples a pixel a few steps inside each corner and
// returns the channel-wise average.
func (m *Image) cornerBackground() color.NRGBA {
	const inset = 5
	w, h := m.Width(), m.Height()
	pts := [4][2]int{
		{inset, inset},
		{w - 1 - inset, inset},
		{inset, h - 1 - inset},
		{w - 1 - inset, h - 1 - inset},
	}
	var r, g, b int
	for _, pt := range pts {
		c := m.PixelAt(pt[0], pt[1])
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
	}
	return color.NRGBA{R: uint8(r / 4), G: uint8(g / 4), B: uint8(b / 4), A: 255}
}

// TrimBackground returns the canvas rectangle with border rows and columns
// removed where at least (1 − tolerance) of the line's pixels sit within
// fuzzPct color distance of bg. The image itself is not modified.
func (m *Image) TrimBackground(bg color.NRGBA, fuzzPct, tolerance float64) Rect {
	fuzz := fuzzPct / 100
	b := m.pix.Bounds()
	rowBG := func(y, x0, x1 int) bool {
		fg := 0
		for x := x0; x < x1; x++ {
			if colorDistance(m.pix.NRGBAAt(x, y), bg) > fuzz {
				fg++
			}
		}
		return float64(fg) <= tolerance*float64(x1-x0)
	}
	colBG := func(x, y0, y1 int) bool {
		fg := 0
		for y := y0; y < y1; y++ {
			if colorDistance(m.pix.NRGBAAt(x, y), bg) > fuzz {
				fg++
			}
		}
		return float64(fg) <= tolerance*float64(y1-y0)
	}
	top, bottom := b.Min.Y, b.Max.Y
	left, right := b.Min.X, b.Max.X
	for top < bottom && rowBG(top, left, right) {
		top++
	}
	for bottom > top && rowBG(bottom-1, left, right) {
		bottom--
	}
	for left < right && colBG(left, top, bottom) {
		left++
	}
	for right > left && colBG(right-1, top, bottom) {
		right--
	}
	if top >= bottom || left >= right {
		return m.Canvas()
	}
	return Rect{X: left, Y: top, W: right - left, H: bottom - top}
}

// DeskewAngle estimates the small rotation (degrees, clockwise positive)
// that straightens the page, searching ±maxDeg. Estimation runs on a
// downsampled, binarized copy and scores candidate angles by the variance of
// horizontal projection profiles: upright text lines produce sharply
// alternating dense and empty rows.
func (m *Image) DeskewAngle(maxDeg float64) float64 {
	probe := m.Clone()
	probe.ResizePercent(10)
	probe.AutoThreshold(OtsuThreshold)
	if probe.Width() < 8 || probe.Height() < 8 {
		return 0
	}

	score := func(deg float64) float64 {
		c := probe.Clone()
		c.Rotate(deg, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		b := c.pix.Bounds()
		rows := make([]float64, b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			dark := 0
			for x := b.Min.X; x < b.Max.X; x++ {
				if c.pix.NRGBAAt(x, y).R < 128 {
					dark++
				}
			}
			rows[y-b.Min.Y] = float64(dark)
		}
		return statsOf(rows).StdDev
	}

	// Coarse pass over the full ±maxDeg range, then a fine pass around the
	// coarse winner.
	const coarse, fine = 0.5, 0.1
	best, bestDeg := score(0), 0.0
	for deg := -maxDeg; deg <= maxDeg+1e-9; deg += coarse {
		if s := score(deg); s > best {
			best = s
			bestDeg = deg
		}
	}
	lo, hi := bestDeg-coarse, bestDeg+coarse
	if lo < -maxDeg {
		lo = -maxDeg
	}
	if hi > maxDeg {
		hi = maxDeg
	}
	for deg := lo; deg <= hi+1e-9; deg += fine {
		if s := score(deg); s > best {
			best = s
			bestDeg = deg
		}
	}
	return bestDeg
}
