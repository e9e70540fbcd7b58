package pipeline

import (
	"github.com/wudi/scan2pdf/observability"
	"github.com/wudi/scan2pdf/raster"
)

// ClassifierConfig holds the classification thresholds. These are policy
// constants, not contracts; zero values select the defaults tuned against
// geometry-corrected pages.
type ClassifierConfig struct {
	// WhiteCutPct is the whiteness threshold applied before the blank
	// check (default 75).
	WhiteCutPct float64
	// WhiteMean is the near-1.0 mean luminance above which a page is
	// blank (default 0.9999).
	WhiteMean float64
	// SatProbePct is the downsample factor for the saturation probe, in
	// percent (default 2).
	SatProbePct float64
	// GrayMeanSatPct and GrayMaxSatPct bound mean and peak saturation for
	// a grayscale call (defaults 5 and 10).
	GrayMeanSatPct float64
	GrayMaxSatPct  float64
	// SolarizePct is the solarize threshold for the bw probe (default 50).
	SolarizePct float64
	// BWMeanPct, BWStdDevPct and BWDiffPct bound the solarized gray
	// statistics for a bw call (defaults 12, 18, −0.6).
	BWMeanPct   float64
	BWStdDevPct float64
	BWDiffPct   float64
}

func (c ClassifierConfig) withDefaults() ClassifierConfig {
	if c.WhiteCutPct == 0 {
		c.WhiteCutPct = 75
	}
	if c.WhiteMean == 0 {
		c.WhiteMean = 0.9999
	}
	if c.SatProbePct == 0 {
		c.SatProbePct = 2
	}
	if c.GrayMeanSatPct == 0 {
		c.GrayMeanSatPct = 5
	}
	if c.GrayMaxSatPct == 0 {
		c.GrayMaxSatPct = 10
	}
	if c.SolarizePct == 0 {
		c.SolarizePct = 50
	}
	if c.BWMeanPct == 0 {
		c.BWMeanPct = 12
	}
	if c.BWStdDevPct == 0 {
		c.BWStdDevPct = 18
	}
	if c.BWDiffPct == 0 {
		c.BWDiffPct = -0.6
	}
	return c
}

// Classifier decides a page's tone category from sampled statistics. All
// probes take a defensive copy; the page pixels are never modified.
type Classifier struct {
	cfg ClassifierConfig
	log observability.Logger
}

// NewClassifier builds a Classifier; a nil logger disables logging.
func NewClassifier(cfg ClassifierConfig, log observability.Logger) *Classifier {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Classifier{cfg: cfg.withDefaults(), log: log}
}

// IsWhite reports whether the page is blank: after forcing near-white
// pixels to white, the mean luminance must sit above the near-1.0 cut.
func (c *Classifier) IsWhite(img *raster.Image) bool {
	probe := img.Clone()
	probe.WhiteThreshold(c.cfg.WhiteCutPct)
	mean := probe.GrayStats().Mean
	c.log.Debug("white check", observability.Float64("mean", mean))
	return mean > c.cfg.WhiteMean
}

// IsBW reports whether the page is black-and-white: solarizing folds bright
// values down, so genuine bw content leaves a near-zero mean with a small
// but larger deviation.
func (c *Classifier) IsBW(img *raster.Image) bool {
	probe := img.Clone()
	probe.Solarize(c.cfg.SolarizePct)
	probe.ToGray(false)
	st := probe.GrayStats()
	mean := st.Mean * 100
	stddev := st.StdDev * 100
	c.log.Debug("bw check", observability.Float64("mean", mean), observability.Float64("stddev", stddev))
	return mean < c.cfg.BWMeanPct && stddev < c.cfg.BWStdDevPct && (stddev-mean) > c.cfg.BWDiffPct
}

// IsGrayscale reports whether the page carries no significant color: small
// mean saturation and no saturation spike anywhere, measured on a heavily
// downsampled probe.
func (c *Classifier) IsGrayscale(img *raster.Image) bool {
	st := c.saturation(img)
	c.log.Debug("grayscale check",
		observability.Float64("mean", st.Mean*100),
		observability.Float64("maxima", st.Max*100))
	return st.Mean*100 < c.cfg.GrayMeanSatPct && st.Max*100 < c.cfg.GrayMaxSatPct
}

// IsSpotColored reports a mostly neutral page with a localized color spike
// (a logo or stamp). Informational; no transform consumes it.
func (c *Classifier) IsSpotColored(img *raster.Image) bool {
	st := c.saturation(img)
	return st.Mean*100 < c.cfg.GrayMeanSatPct && st.Max*100 >= c.cfg.GrayMaxSatPct
}

func (c *Classifier) saturation(img *raster.Image) raster.ChannelStats {
	probe := img.Clone()
	probe.ResizePercent(c.cfg.SatProbePct)
	return probe.SaturationStats()
}

// Classify evaluates the category once. Decisions are mutually exclusive in
// application order (bw is checked before grayscale) and anything else falls
// through to full color.
func (c *Classifier) Classify(img *raster.Image) (Classification, bool) {
	spot := c.IsSpotColored(img)
	switch {
	case c.IsBW(img):
		return ClassBlackWhite, spot
	case c.IsGrayscale(img):
		return ClassGrayscale, spot
	default:
		return ClassColor, spot
	}
}
