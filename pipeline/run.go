package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wudi/scan2pdf/observability"
	"github.com/wudi/scan2pdf/ocr"
	"github.com/wudi/scan2pdf/scan"
)

// Config assembles the pipeline's knobs.
type Config struct {
	// Resolution is the scan resolution in dpi, carried into page metadata
	// and OCR hints.
	Resolution int
	// Languages are OCR trained-data hints.
	Languages []string
	Geometry  GeometryConfig
	Classify  ClassifierConfig
	// ClassifyBeforeGeometry drops blank pages before spending CPU on
	// geometry correction. Off by default: the classification thresholds
	// were tuned against corrected pages.
	ClassifyBeforeGeometry bool
	Logger                 observability.Logger
}

// Result is the processed document handed to the assembler.
type Result struct {
	// Pages are the kept pages, a subsequence of scan order.
	Pages []*PageBuffer
	// Text is the concatenated extracted text of the kept pages, in page
	// order.
	Text string
	// Scanned counts every page delivered by the backend, kept or not.
	Scanned int
}

// Run executes the full acquisition and normalization pipeline over one scan
// session: the acquirer produces pages on its own goroutine while the
// calling goroutine consumes them strictly in scan order. The producer is
// always joined before Run returns, even on the error path, so the hardware
// session is never left dangling.
func Run(ctx context.Context, session scan.Session, engine ocr.Engine, orient ocr.OrientationDetector, cfg Config) (*Result, error) {
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	if cfg.Resolution == 0 {
		cfg.Resolution = 300
	}
	// A missing engine degrades to image-only pages; a missing detector just
	// skips orientation correction.
	if engine == nil {
		engine = ocr.NoopEngine{}
	}

	queue := NewPageQueue()
	acq := &Acquirer{Session: session, Queue: queue, Resolution: cfg.Resolution, Logger: log}
	corrector := NewCorrector(cfg.Geometry, log)
	classifier := NewClassifier(cfg.Classify, log)
	stage := &TextStage{Engine: engine, Orient: orient, Languages: cfg.Languages, DPI: cfg.Resolution, Logger: log}

	g, gctx := errgroup.WithContext(ctx)
	// The acquirer owns the session exclusively; the consumer never touches
	// it. Stopping acquisition early goes through this context, and the
	// acquirer cancels the hardware from its own goroutine.
	acqCtx, stopAcq := context.WithCancel(gctx)
	defer stopAcq()
	g.Go(func() error { return acq.Run(acqCtx) })

	res := &Result{}
	var text strings.Builder
	var consumeErr error
	for consumeErr == nil {
		p, ok := queue.Pop()
		if !ok {
			break
		}
		res.Scanned++
		consumeErr = processPage(gctx, p, corrector, classifier, stage, cfg, log)
		if consumeErr == nil && p.Keep {
			res.Pages = append(res.Pages, p)
			text.WriteString(p.Text)
		}
	}

	// Join the producer unconditionally; a consumer error must not leave
	// the acquisition goroutine running against live hardware.
	if consumeErr != nil {
		stopAcq()
		drain(queue)
	}
	err := g.Wait()
	// Report the root cause, not its echo: a consumer failure cancels the
	// producer's context, and a producer failure cancels the consumer's, so
	// whichever side holds a non-cancellation error wins.
	if consumeErr != nil && !errors.Is(consumeErr, context.Canceled) && !errors.Is(consumeErr, context.DeadlineExceeded) {
		return nil, consumeErr
	}
	if err != nil {
		return nil, err
	}
	if consumeErr != nil {
		return nil, consumeErr
	}
	res.Text = text.String()
	log.Info("pipeline complete",
		observability.Int(observability.MetricPageCount, res.Scanned),
		observability.Int(observability.MetricKeptCount, len(res.Pages)))
	return res, nil
}

// processPage runs one page through geometry, classification, tone mapping
// and text extraction. Page-local recoverable failures never abort the
// document; only context cancellation and engine hard failures propagate.
func processPage(ctx context.Context, p *PageBuffer, corrector *Corrector, classifier *Classifier, stage *TextStage, cfg Config, log observability.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	log.Info("digesting page", observability.Int("page", p.Index))

	if cfg.ClassifyBeforeGeometry && classifier.IsWhite(p.Image) {
		log.Info("removing blank page", observability.Int("page", p.Index))
		p.Keep = false
		return nil
	}

	corrector.Correct(p)
	log.Debug("geometry done",
		observability.Int("page", p.Index),
		observability.Duration(observability.MetricGeometryTime, time.Since(start)))

	if !cfg.ClassifyBeforeGeometry && classifier.IsWhite(p.Image) {
		log.Info("removing blank page", observability.Int("page", p.Index))
		p.Keep = false
		return nil
	}

	p.Class, p.SpotColor = classifier.Classify(p.Image)
	log.Info("keeping page",
		observability.Int("page", p.Index),
		observability.String("class", p.Class.String()))

	hasText := false
	if p.Class == ClassBlackWhite {
		hasText = stage.HasText(ctx, p)
	}
	applyTone(p, hasText)

	ocrStart := time.Now()
	if err := stage.Apply(ctx, p); err != nil {
		return err
	}
	log.Debug("text collected",
		observability.Int("page", p.Index),
		observability.Duration(observability.MetricOCRTime, time.Since(ocrStart)))
	return nil
}

func drain(q *PageQueue) {
	for {
		if _, ok := q.Pop(); !ok {
			return
		}
	}
}
