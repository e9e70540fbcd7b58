package raster

import (
	"bytes"
	"image/color"
	"testing"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
	red   = color.NRGBA{R: 255, A: 255}
)

// fill paints the given rectangle of m with c.
func fill(m *Image, r Rect, c color.NRGBA) {
	for y := r.Y; y < r.Y+r.H; y++ {
		line := make([]byte, 3*m.Width())
		for x := 0; x < m.Width(); x++ {
			p := m.PixelAt(x, y)
			if x >= r.X && x < r.X+r.W {
				p = c
			}
			line[3*x], line[3*x+1], line[3*x+2] = p.R, p.G, p.B
		}
		if err := m.SetRow(y, line); err != nil {
			panic(err)
		}
	}
}

func TestSetRowAndPixelAt(t *testing.T) {
	m := New(4, 2, 300)
	line := []byte{
		255, 0, 0,
		0, 255, 0,
		0, 0, 255,
		10, 20, 30,
	}
	if err := m.SetRow(1, line); err != nil {
		t.Fatalf("SetRow: %v", err)
	}
	if got := m.PixelAt(0, 1); got != red {
		t.Fatalf("pixel (0,1) = %v, want %v", got, red)
	}
	if got := m.PixelAt(3, 1); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Fatalf("pixel (3,1) = %v", got)
	}
	if got := m.PixelAt(0, 0); got != white {
		t.Fatalf("untouched row changed: %v", got)
	}
}

func TestSetRowRejectsBadLine(t *testing.T) {
	m := New(4, 2, 300)
	if err := m.SetRow(0, make([]byte, 11)); err == nil {
		t.Fatal("short scanline accepted")
	}
	if err := m.SetRow(2, make([]byte, 12)); err == nil {
		t.Fatal("out-of-range row accepted")
	}
}

func TestCrop(t *testing.T) {
	m := New(10, 10, 300)
	fill(m, Rect{X: 2, Y: 3, W: 1, H: 1}, black)
	if err := m.Crop(Rect{X: 2, Y: 3, W: 4, H: 4}); err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if m.Width() != 4 || m.Height() != 4 {
		t.Fatalf("cropped to %dx%d, want 4x4", m.Width(), m.Height())
	}
	if got := m.PixelAt(0, 0); got != black {
		t.Fatalf("marker moved to %v at origin, want black", got)
	}
}

func TestCropOutsideCanvasFails(t *testing.T) {
	m := New(10, 10, 300)
	if err := m.Crop(Rect{X: 20, Y: 20, W: 5, H: 5}); err == nil {
		t.Fatal("crop outside canvas accepted")
	}
	if m.Width() != 10 || m.Height() != 10 {
		t.Fatal("failed crop modified the canvas")
	}
}

func TestRotateOrth(t *testing.T) {
	m := New(3, 2, 300)
	fill(m, Rect{X: 0, Y: 0, W: 1, H: 1}, black)

	m.RotateOrth(1)
	if m.Width() != 2 || m.Height() != 3 {
		t.Fatalf("after quarter turn: %dx%d, want 2x3", m.Width(), m.Height())
	}
	// Clockwise: top-left lands at top-right.
	if got := m.PixelAt(1, 0); got != black {
		t.Fatalf("marker at top-right = %v, want black", got)
	}

	m.RotateOrth(3)
	if got := m.PixelAt(0, 0); got != black {
		t.Fatalf("full turn did not restore marker: %v", got)
	}
}

func TestRotateQuarterTakesLosslessPath(t *testing.T) {
	m := New(3, 2, 300)
	fill(m, Rect{X: 0, Y: 0, W: 1, H: 1}, black)
	m.Rotate(180, white)
	if m.Width() != 3 || m.Height() != 2 {
		t.Fatalf("half turn resized canvas to %dx%d", m.Width(), m.Height())
	}
	if got := m.PixelAt(2, 1); got != black {
		t.Fatalf("marker at bottom-right = %v, want black", got)
	}
}

func TestRotateGrowsCanvas(t *testing.T) {
	m := New(100, 50, 300)
	m.Rotate(10, white)
	if m.Width() <= 100 || m.Height() <= 50 {
		t.Fatalf("rotated canvas %dx%d did not grow", m.Width(), m.Height())
	}
}

func TestResizePercent(t *testing.T) {
	m := New(200, 100, 300)
	m.ResizePercent(10)
	if m.Width() != 20 || m.Height() != 10 {
		t.Fatalf("resized to %dx%d, want 20x10", m.Width(), m.Height())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New(4, 4, 300)
	cp := m.Clone()
	fill(cp, Rect{X: 0, Y: 0, W: 4, H: 4}, black)
	if got := m.PixelAt(0, 0); got != white {
		t.Fatalf("clone shares storage: original pixel = %v", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := New(8, 8, 150)
	fill(m, Rect{X: 2, Y: 2, W: 3, H: 3}, red)
	var buf bytes.Buffer
	if err := m.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	back, err := Decode(&buf, 150)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Width() != 8 || back.Height() != 8 {
		t.Fatalf("decoded to %dx%d", back.Width(), back.Height())
	}
	if got := back.PixelAt(3, 3); got != red {
		t.Fatalf("pixel (3,3) = %v, want %v", got, red)
	}
}

func TestEncodeTIFF(t *testing.T) {
	m := New(8, 8, 300)
	var buf bytes.Buffer
	if err := m.EncodeTIFF(&buf); err != nil {
		t.Fatalf("EncodeTIFF: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty TIFF output")
	}
}
