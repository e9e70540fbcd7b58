package pipeline

import (
	"image/color"

	"github.com/wudi/scan2pdf/observability"
	"github.com/wudi/scan2pdf/raster"
)

// GeometryConfig tunes the geometry corrector. Zero values select the
// defaults.
type GeometryConfig struct {
	// DeskewMaxDeg bounds the deskew angle search (default 5).
	DeskewMaxDeg float64
	// EdgeFuzzPct is the color-distance tolerance for the edge-trim
	// bounding box, in percent of the distance scale (default 10).
	EdgeFuzzPct float64
	// ShadowMinDim is the smallest canvas dimension a shadow trim may
	// produce; shrinking past it aborts and restores (default 500).
	ShadowMinDim int
	// ShadowMaxAttempts bounds the strip-a-row-and-retry search (default 10).
	ShadowMaxAttempts int
	// Gamma is the correction applied after trimming (default 2.2).
	Gamma float64
}

func (c GeometryConfig) withDefaults() GeometryConfig {
	if c.DeskewMaxDeg == 0 {
		c.DeskewMaxDeg = 5
	}
	if c.EdgeFuzzPct == 0 {
		c.EdgeFuzzPct = 10
	}
	if c.ShadowMinDim == 0 {
		c.ShadowMinDim = 500
	}
	if c.ShadowMaxAttempts == 0 {
		c.ShadowMaxAttempts = 10
	}
	if c.Gamma == 0 {
		c.Gamma = 2.2
	}
	return c
}

// Corrector applies the geometric normalization steps to a page: despeckle,
// enhance, deskew, edge trim, shadow trim, gamma. Each step may fail
// independently; a failed step reverts to its pre-step canvas and the page
// continues.
type Corrector struct {
	cfg GeometryConfig
	log observability.Logger
}

// NewCorrector builds a Corrector; a nil logger disables logging.
func NewCorrector(cfg GeometryConfig, log observability.Logger) *Corrector {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Corrector{cfg: cfg.withDefaults(), log: log}
}

// Correct normalizes p's geometry in place.
func (c *Corrector) Correct(p *PageBuffer) {
	// Specks must go before any trim so isolated artifacts cannot anchor a
	// bounding box; the edge-preserving smoothing then settles sensor noise
	// without softening glyph edges.
	p.Image.Despeckle()
	p.Image.Enhance()
	c.deskew(p)
	c.trimEdges(p)
	c.trimShadow(p)
	p.Image.Gamma(c.cfg.Gamma)
}

// deskew estimates and applies a small rotation correcting page skew.
// Exposed corners are filled with the scan background color, sampled a few
// pixels inside the corner so a speckled outlier cannot tint the fill.
// Estimation failure is recovered as a 0° correction.
func (c *Corrector) deskew(p *PageBuffer) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("deskew estimation failed", observability.String("cause", toString(r)))
		}
	}()
	bg := p.Image.PixelAt(5, 5)
	angle := p.Image.DeskewAngle(c.cfg.DeskewMaxDeg)
	if angle == 0 {
		return
	}
	c.log.Debug("deskewing", observability.Int("page", p.Index), observability.Float64("degrees", angle))
	p.Image.Rotate(angle, bg)
	p.AddRotation(angle)
}

// trimEdges crops to the fuzz-tolerant minimum bounding rectangle of
// non-background content, removing the scanner-bed border.
func (c *Corrector) trimEdges(p *PageBuffer) {
	bb := p.Image.BoundingBox(c.cfg.EdgeFuzzPct)
	if bb == p.Image.Canvas() {
		return
	}
	c.log.Debug("trimming edges", observability.Int("page", p.Index), observability.String("bounds", bb.String()))
	if err := p.Image.Crop(bb); err != nil {
		c.log.Warn("edge trim failed", observability.Error("err", err))
		return
	}
	p.CropRect = bb
}

// trimShadow removes the thin dark band a scan bed leaves near one edge.
// The band is located on a blurred, inverted, Otsu-binarized probe; if one
// trim pass does not shrink the probe, a single pixel row is stripped and
// the trim retried, up to the attempt bound. The real canvas is only
// modified on success, so the step is strictly improving-or-reverted: if the
// result would fall below the minimum page dimension, or the attempts run
// out, the pre-step canvas stands.
func (c *Corrector) trimShadow(p *PageBuffer) {
	probe := p.Image.Clone()
	probe.Gamma(c.cfg.Gamma)
	probe.GaussianBlur(2)
	probe.Negate()
	probe.AutoThreshold(raster.OtsuThreshold)
	probe.Negate()

	black := color.NRGBA{A: 255}
	stripped := 0
	for attempt := 0; attempt < c.cfg.ShadowMaxAttempts; attempt++ {
		before := probe.Canvas()
		r := probe.TrimBackground(black, c.cfg.EdgeFuzzPct, 0.02)
		if r.W < c.cfg.ShadowMinDim || r.H < c.cfg.ShadowMinDim {
			c.log.Warn("shadow trim aborted: canvas too small", observability.Int("page", p.Index))
			return
		}
		if r != before {
			crop := raster.Rect{X: r.X, Y: stripped + r.Y, W: r.W, H: r.H}
			c.log.Debug("trimming shadow", observability.Int("page", p.Index), observability.String("bounds", crop.String()))
			if err := p.Image.Crop(crop); err != nil {
				c.log.Warn("shadow trim failed", observability.Error("err", err))
				return
			}
			p.CropRect = crop
			return
		}
		// The shadow may sit one row inside the edge; dig a single pixel
		// row and retry.
		if probe.Height()-1 < c.cfg.ShadowMinDim {
			return
		}
		if err := probe.Crop(raster.Rect{X: 0, Y: 1, W: probe.Width(), H: probe.Height() - 1}); err != nil {
			return
		}
		stripped++
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if e, ok := v.(error); ok {
		return e.Error()
	}
	return "panic"
}
