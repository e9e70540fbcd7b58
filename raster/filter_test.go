package raster

import (
	"image/color"
	"testing"
)

func uniform(w, h int, c color.NRGBA) *Image {
	m := New(w, h, 300)
	fill(m, Rect{X: 0, Y: 0, W: w, H: h}, c)
	return m
}

func TestNegateIsInvolutive(t *testing.T) {
	m := uniform(4, 4, color.NRGBA{R: 10, G: 200, B: 99, A: 255})
	m.Negate()
	if got := m.PixelAt(0, 0); got != (color.NRGBA{R: 245, G: 55, B: 156, A: 255}) {
		t.Fatalf("negated pixel = %v", got)
	}
	m.Negate()
	if got := m.PixelAt(0, 0); got != (color.NRGBA{R: 10, G: 200, B: 99, A: 255}) {
		t.Fatalf("double negate = %v, want original", got)
	}
}

func TestGammaOneIsIdentity(t *testing.T) {
	c := color.NRGBA{R: 42, G: 120, B: 250, A: 255}
	m := uniform(4, 4, c)
	m.Gamma(1)
	if got := m.PixelAt(1, 1); got != c {
		t.Fatalf("gamma 1.0 changed %v to %v", c, got)
	}
}

func TestGammaBrightensMidtones(t *testing.T) {
	m := uniform(4, 4, color.NRGBA{R: 64, G: 64, B: 64, A: 255})
	m.Gamma(2.2)
	if got := m.PixelAt(0, 0); got.R <= 64 {
		t.Fatalf("gamma 2.2 did not brighten midtone: %v", got)
	}
}

func TestWhiteThreshold(t *testing.T) {
	m := New(4, 4, 300)
	fill(m, Rect{X: 0, Y: 0, W: 2, H: 4}, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	fill(m, Rect{X: 2, Y: 0, W: 2, H: 4}, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	m.WhiteThreshold(75)
	if got := m.PixelAt(0, 0); got != white {
		t.Fatalf("near-white pixel not forced to white: %v", got)
	}
	if got := m.PixelAt(3, 0); got == white {
		t.Fatal("dark pixel forced to white")
	}
}

func TestToGrayNeutralizesChannels(t *testing.T) {
	m := uniform(4, 4, color.NRGBA{R: 200, G: 30, B: 90, A: 255})
	m.ToGray(false)
	got := m.PixelAt(2, 2)
	if got.R != got.G || got.G != got.B {
		t.Fatalf("gray pixel has unequal channels: %v", got)
	}
}

func TestDespeckleRemovesLonePixel(t *testing.T) {
	m := New(9, 9, 300)
	fill(m, Rect{X: 4, Y: 4, W: 1, H: 1}, black)
	m.Despeckle()
	if got := m.PixelAt(4, 4); got != white {
		t.Fatalf("lone speck survived median filter: %v", got)
	}
}

func TestDespeckleKeepsSolidRegions(t *testing.T) {
	m := New(9, 9, 300)
	fill(m, Rect{X: 2, Y: 2, W: 5, H: 5}, black)
	m.Despeckle()
	if got := m.PixelAt(4, 4); got != black {
		t.Fatalf("solid region eroded at center: %v", got)
	}
}

func TestEnhanceSmoothsCloseNeighbors(t *testing.T) {
	m := uniform(9, 9, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	fill(m, Rect{X: 4, Y: 4, W: 1, H: 1}, color.NRGBA{R: 110, G: 110, B: 110, A: 255})
	m.Enhance()
	if got := m.PixelAt(4, 4); got.R > 104 {
		t.Fatalf("mild outlier not averaged down: %v", got)
	}
}

func TestEnhancePreservesEdges(t *testing.T) {
	m := New(10, 10, 300)
	fill(m, Rect{X: 0, Y: 0, W: 5, H: 10}, black)
	m.Enhance()
	if got := m.PixelAt(4, 4); got != black {
		t.Fatalf("dark side of a hard edge bled: %v", got)
	}
	if got := m.PixelAt(5, 4); got != white {
		t.Fatalf("bright side of a hard edge bled: %v", got)
	}
}

func TestSolarizeFoldsBrightValues(t *testing.T) {
	m := New(4, 4, 300)
	m.Solarize(50)
	got := m.PixelAt(0, 0)
	if got.R > 10 {
		t.Fatalf("white not folded toward black: %v", got)
	}
}

func TestAutoLevelStretchesRange(t *testing.T) {
	m := New(4, 4, 300)
	fill(m, Rect{X: 0, Y: 0, W: 2, H: 4}, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	fill(m, Rect{X: 2, Y: 0, W: 2, H: 4}, color.NRGBA{R: 150, G: 150, B: 150, A: 255})
	m.AutoLevel()
	lo, hi := m.PixelAt(0, 0), m.PixelAt(3, 0)
	if lo.R > 5 {
		t.Fatalf("low end not stretched to black: %v", lo)
	}
	if hi.R < 250 {
		t.Fatalf("high end not stretched to white: %v", hi)
	}
}
