// Package raster holds the in-memory page raster and the numeric image
// operations the scan pipeline orchestrates: crop, rotate, resize, tone
// adjustments, automatic thresholding, statistical sampling and bounding-box
// queries. Operations mutate the receiver in place unless stated otherwise;
// callers that need to probe without committing work on a Clone.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/tiff"
)

// Meta carries the TIFF-style sample description downstream codecs need when
// the pixel buffer is handed off.
type Meta struct {
	DPI             int
	BitsPerSample   int
	SamplesPerPixel int
	ByteOrder       string
}

// Rect is an axis-aligned crop rectangle in pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) String() string { return fmt.Sprintf("%dx%d%+d%+d", r.W, r.H, r.X, r.Y) }

// Image is an exclusively-owned rectangular pixel buffer. The zero value is
// not usable; construct with New or FromImage.
type Image struct {
	pix  *image.NRGBA
	meta Meta
}

// New allocates a white w×h image at the given resolution.
func New(w, h, dpi int) *Image {
	img := &Image{
		pix:  image.NewNRGBA(image.Rect(0, 0, w, h)),
		meta: Meta{DPI: dpi, BitsPerSample: 8, SamplesPerPixel: 3, ByteOrder: "little-endian"},
	}
	draw.Draw(img.pix, img.pix.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// FromImage copies src into a new Image.
func FromImage(src image.Image, dpi int) *Image {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Image{
		pix:  dst,
		meta: Meta{DPI: dpi, BitsPerSample: 8, SamplesPerPixel: 3, ByteOrder: "little-endian"},
	}
}

// Width returns the current canvas width in pixels.
func (m *Image) Width() int { return m.pix.Bounds().Dx() }

// Height returns the current canvas height in pixels.
func (m *Image) Height() int { return m.pix.Bounds().Dy() }

// Meta returns the sample description for the buffer.
func (m *Image) Meta() Meta { return m.meta }

// SetDPI updates the resolution tag carried into encoded artifacts.
func (m *Image) SetDPI(dpi int) { m.meta.DPI = dpi }

// Canvas returns the full-canvas rectangle.
func (m *Image) Canvas() Rect { return Rect{X: 0, Y: 0, W: m.Width(), H: m.Height()} }

// Clone returns a deep copy sharing no pixel storage with the receiver.
func (m *Image) Clone() *Image {
	cp := image.NewNRGBA(m.pix.Bounds())
	copy(cp.Pix, m.pix.Pix)
	return &Image{pix: cp, meta: m.meta}
}

// SetRow writes one scanline of packed 8-bit RGB samples at row y. The line
// must hold exactly 3*width bytes; short or long lines are write errors.
func (m *Image) SetRow(y int, line []byte) error {
	w := m.Width()
	if y < 0 || y >= m.Height() {
		return fmt.Errorf("raster: row %d outside canvas height %d", y, m.Height())
	}
	if len(line) != 3*w {
		return fmt.Errorf("raster: scanline is %d bytes, want %d", len(line), 3*w)
	}
	off := m.pix.PixOffset(0, y)
	for x := 0; x < w; x++ {
		m.pix.Pix[off+4*x+0] = line[3*x+0]
		m.pix.Pix[off+4*x+1] = line[3*x+1]
		m.pix.Pix[off+4*x+2] = line[3*x+2]
		m.pix.Pix[off+4*x+3] = 0xff
	}
	return nil
}

// PixelAt returns the color at (x, y), clamped to the canvas.
func (m *Image) PixelAt(x, y int) color.NRGBA {
	b := m.pix.Bounds()
	if x < b.Min.X {
		x = b.Min.X
	}
	if x >= b.Max.X {
		x = b.Max.X - 1
	}
	if y < b.Min.Y {
		y = b.Min.Y
	}
	if y >= b.Max.Y {
		y = b.Max.Y - 1
	}
	return m.pix.NRGBAAt(x, y)
}

// Crop replaces the canvas with the given sub-rectangle. The rectangle is
// clamped to the canvas; an empty intersection is an error and leaves the
// image untouched.
func (m *Image) Crop(r Rect) error {
	ir := image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H).Intersect(m.pix.Bounds())
	if ir.Empty() {
		return fmt.Errorf("raster: crop %v outside canvas %v", r, m.Canvas())
	}
	dst := image.NewNRGBA(image.Rect(0, 0, ir.Dx(), ir.Dy()))
	draw.Draw(dst, dst.Bounds(), m.pix, ir.Min, draw.Src)
	m.pix = dst
	return nil
}

// RotateOrth rotates by quarter turns clockwise (quarters taken mod 4).
func (m *Image) RotateOrth(quarters int) {
	quarters = ((quarters % 4) + 4) % 4
	if quarters == 0 {
		return
	}
	src := m.pix
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	var dst *image.NRGBA
	switch quarters {
	case 1, 3:
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
	case 2:
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.NRGBAAt(x, y)
			switch quarters {
			case 1:
				dst.SetNRGBA(h-1-y, x, c)
			case 2:
				dst.SetNRGBA(w-1-x, h-1-y, c)
			case 3:
				dst.SetNRGBA(y, w-1-x, c)
			}
		}
	}
	m.pix = dst
}

// Rotate rotates by deg degrees clockwise around the canvas center, growing
// the canvas to hold the rotated page and filling exposed corners with bg.
func (m *Image) Rotate(deg float64, bg color.NRGBA) {
	deg = math.Mod(deg, 360)
	if deg == 0 {
		return
	}
	// Exact quarter turns take the lossless path.
	if math.Mod(deg, 90) == 0 {
		m.RotateOrth(int(deg / 90))
		return
	}
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	w := float64(m.Width())
	h := float64(m.Height())
	nw := int(math.Ceil(math.Abs(w*cos) + math.Abs(h*sin)))
	nh := int(math.Ceil(math.Abs(w*sin) + math.Abs(h*cos)))

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	// src→dst affine: rotate about the source center, then recenter.
	cx, cy := w/2, h/2
	dcx, dcy := float64(nw)/2, float64(nh)/2
	mat := f64.Aff3{
		cos, -sin, dcx - cx*cos + cy*sin,
		sin, cos, dcy - cx*sin - cy*cos,
	}
	xdraw.BiLinear.Transform(dst, mat, m.pix, m.pix.Bounds(), xdraw.Over, nil)
	m.pix = dst
}

// Resize scales to exactly w×h using bilinear resampling.
func (m *Image) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), m.pix, m.pix.Bounds(), xdraw.Src, nil)
	m.pix = dst
}

// ResizePercent scales both dimensions by pct percent.
func (m *Image) ResizePercent(pct float64) {
	w := int(math.Round(float64(m.Width()) * pct / 100))
	h := int(math.Round(float64(m.Height()) * pct / 100))
	m.Resize(w, h)
}

// EncodePNG writes the buffer as PNG.
func (m *Image) EncodePNG(w io.Writer) error {
	return png.Encode(w, m.pix)
}

// EncodeTIFF writes the buffer as a deflate-compressed TIFF. The encoder
// emits no resolution tags; the DPI lives in Meta and travels to downstream
// consumers out of band.
func (m *Image) EncodeTIFF(w io.Writer) error {
	return tiff.Encode(w, m.pix, &tiff.Options{Compression: tiff.Deflate})
}

// Decode reads any registered image format into an Image.
func Decode(r io.Reader, dpi int) (*Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("raster: decode: %w", err)
	}
	return FromImage(img, dpi), nil
}

// luma returns the rec. 601 luma of c in [0, 255].
func luma(c color.NRGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// colorDistance returns the euclidean RGB distance between a and b,
// normalized to [0, 1].
func colorDistance(a, b color.NRGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr+dg*dg+db*db) / (255 * math.Sqrt(3))
}

// eachPixel applies fn to every pixel in place.
func (m *Image) eachPixel(fn func(c color.NRGBA) color.NRGBA) {
	b := m.pix.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := m.pix.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			p := m.pix.Pix[off : off+4 : off+4]
			c := fn(color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]})
			p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
			off += 4
		}
	}
}
