// Package pipeline implements the page acquisition and normalization core:
// a producer goroutine assembles raw scanner lines into page buffers, and a
// consumer classifies, geometrically corrects, tone-maps and OCRs each page
// in scan order before handing the kept pages to the document assembler.
package pipeline

import (
	"math"

	"github.com/wudi/scan2pdf/raster"
)

// Classification is the tone category assigned to a page, decided exactly
// once before any tone transform runs.
type Classification int

const (
	ClassUnclassified Classification = iota
	ClassColor
	ClassGrayscale
	ClassBlackWhite
)

func (c Classification) String() string {
	switch c {
	case ClassColor:
		return "color"
	case ClassGrayscale:
		return "grayscale"
	case ClassBlackWhite:
		return "bw"
	}
	return "unclassified"
}

// PageBuffer is a single scanned page: its pixel data plus the metadata the
// pipeline derives along the way. A PageBuffer is owned by exactly one of
// producer, queue, consumer or assembler at any time.
type PageBuffer struct {
	// Index is the zero-based scan order position.
	Index int
	// Image is the exclusively-owned pixel buffer.
	Image *raster.Image
	// CropRect is the last crop applied by the geometry corrector,
	// expressed in the coordinates of the canvas it was applied to.
	CropRect raster.Rect
	// RotationDeg is the accumulated net rotation, normalized to [0, 360).
	RotationDeg float64
	// Class is set exactly once by the classifier.
	Class Classification
	// SpotColor records that the page is mostly neutral but carries a
	// localized color spike (e.g. a logo). Informational; no transform
	// branches on it.
	SpotColor bool
	// Text is populated once by the orientation & text stage.
	Text string
	// Keep is decided once by the blank-page check; dropped pages are
	// excluded from assembly.
	Keep bool

	toneApplied bool
}

// AddRotation accumulates deg into the page's net rotation.
func (p *PageBuffer) AddRotation(deg float64) {
	p.RotationDeg = math.Mod(p.RotationDeg+deg, 360)
	if p.RotationDeg < 0 {
		p.RotationDeg += 360
	}
}
