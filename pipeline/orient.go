package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/wudi/scan2pdf/observability"
	"github.com/wudi/scan2pdf/ocr"
)

// TextStage runs the text-recognition engine against a processed page: a
// coarse orientation estimate rights the visual page, and a separate,
// orthogonally pre-rotated copy feeds text extraction so OCR sees upright
// glyphs. The two rotations are numerically related but serve different
// consumers and are never conflated into one rotate call.
type TextStage struct {
	Engine    ocr.Engine
	Orient    ocr.OrientationDetector // nil disables orientation correction
	Languages []string
	DPI       int
	Logger    observability.Logger
}

// Apply fills p.RotationDeg and p.Text. Orientation failures degrade to a 0°
// estimate; a recognition failure is returned so the caller can decide.
func (s *TextStage) Apply(ctx context.Context, p *PageBuffer) error {
	log := s.Logger
	if log == nil {
		log = observability.NopLogger{}
	}

	oriDeg := 0
	if s.Orient != nil {
		in, err := s.input(p, 0)
		if err != nil {
			return err
		}
		oriDeg, err = s.Orient.DetectOrientation(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("orientation detection failed", observability.Int("page", p.Index), observability.Error("err", err))
			oriDeg = 0
		}
	}

	// Text extraction reads a quarter-turned copy of the pre-rotation
	// pixels, while the visual page takes the complementary rotation.
	in, err := s.input(p, oriDeg/90)
	if err != nil {
		return err
	}

	if oriDeg != 0 {
		log.Debug("righting page", observability.Int("page", p.Index), observability.Int("degrees", 360-oriDeg))
		p.Image.RotateOrth((360 - oriDeg) / 90)
		p.AddRotation(float64(360 - oriDeg))
	}

	res, err := s.Engine.Recognize(ctx, in)
	if err != nil {
		return fmt.Errorf("text extraction on page %d: %w", p.Index, err)
	}
	p.Text = norm.NFC.String(res.PlainText)
	return nil
}

// HasText is the cheap OCR presence probe used to pick the glyph-preserving
// bw transform. It runs in single-block segmentation mode, since presence is
// all that matters. Probe failures count as "no text".
func (s *TextStage) HasText(ctx context.Context, p *PageBuffer) bool {
	in, err := s.input(p, 0, ocr.WithPageSegMode(ocr.PSMSingleBlock))
	if err != nil {
		return false
	}
	res, err := s.Engine.Recognize(ctx, in)
	if err != nil {
		return false
	}
	return res.PlainText != ""
}

func (s *TextStage) input(p *PageBuffer, quarters int, opts ...ocr.InputOption) (ocr.Input, error) {
	img := p.Image
	if quarters%4 != 0 {
		img = img.Clone()
		img.RotateOrth(quarters)
	}
	var buf bytes.Buffer
	if err := img.EncodePNG(&buf); err != nil {
		return ocr.Input{}, fmt.Errorf("encode page %d for ocr: %w", p.Index, err)
	}
	in := ocr.Input{
		ID:     fmt.Sprintf("page-%d", p.Index),
		Image:  buf.Bytes(),
		Format: ocr.ImageFormatPNG,
	}
	ocr.WithLanguages(s.Languages...)(&in)
	ocr.WithDPI(s.DPI)(&in)
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
