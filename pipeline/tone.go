package pipeline

import "github.com/wudi/scan2pdf/raster"

// Tone transforms are terminal: each commits a destructive pixel change and
// is applied at most once per page, selected by the page's classification.

// transformBW converts a textless bw page with a plain contrast boost and a
// global entropy threshold.
func transformBW(img *raster.Image) {
	img.BrightnessContrast(0, 30)
	img.AutoThreshold(raster.KapurThreshold)
}

// transformBWWithText converts a bw page that carries printed text. A naive
// global threshold destroys small glyphs, so the page is level-stretched and
// sharpened before an Otsu binarization.
func transformBWWithText(img *raster.Image) {
	img.AutoLevel()
	img.UnsharpMask(2.0, 1.5, 0.05)
	img.AutoThreshold(raster.OtsuThreshold)
}

// transformGrayscale boosts contrast, flattens paper tint to pure white and
// reduces the page to linear grayscale.
func transformGrayscale(img *raster.Image) {
	img.BrightnessContrast(0, 30)
	img.FlattenWhite(2)
	img.ToGray(true)
}

// applyTone runs the transform selected by p.Class, once. hasText picks the
// glyph-preserving bw variant. Full color passes through untouched.
func applyTone(p *PageBuffer, hasText bool) {
	if p.toneApplied {
		return
	}
	switch p.Class {
	case ClassBlackWhite:
		if hasText {
			transformBWWithText(p.Image)
		} else {
			transformBW(p.Image)
		}
	case ClassGrayscale:
		transformGrayscale(p.Image)
	default:
		return
	}
	p.toneApplied = true
}
