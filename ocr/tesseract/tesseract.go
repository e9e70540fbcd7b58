// Package tesseract backs the ocr interfaces with Tesseract: text
// recognition goes through the gosseract client, while orientation detection
// and searchable-PDF rendering shell out to the tesseract binary (the OSD
// and PDF renderer entry points are not exposed by the library binding).
package tesseract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/scan2pdf/ocr"
)

// Engine implements ocr.Engine, ocr.OrientationDetector and ocr.PDFRenderer.
type Engine struct {
	// Binary overrides the tesseract executable name.
	Binary string
	// DPI, when set, is handed to the PDF renderer as the source resolution.
	// The spooled TIFFs carry no density tag, so the renderer cannot read it
	// from the files themselves.
	DPI int

	clientFactory func() *gosseract.Client
}

// NewEngine constructs a Tesseract-backed OCR engine.
func NewEngine() *Engine {
	return &Engine{Binary: "tesseract", clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) binary() string {
	if e.Binary == "" {
		return "tesseract"
	}
	return e.Binary
}

// Recognize performs OCR on a single page image.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	select {
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	default:
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	return ocr.Result{InputID: in.ID, PlainText: strings.TrimSpace(text)}, nil
}

// DetectOrientation runs OSD-only page segmentation and returns the detected
// clockwise rotation of the content: 0, 90, 180 or 270 degrees. Pages with
// too little text for OSD report 0 rather than an error.
func (e *Engine) DetectOrientation(ctx context.Context, in ocr.Input) (int, error) {
	tmp, err := os.CreateTemp("", "scan2pdf-osd-*"+extFor(in.Format))
	if err != nil {
		return 0, fmt.Errorf("osd temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(in.Image); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("osd temp write: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, e.binary(), tmp.Name(), "stdout", "--psm", "0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		// "Too few characters" is the usual OSD failure on sparse pages.
		if strings.Contains(stderr.String(), "Too few characters") {
			return 0, nil
		}
		return 0, fmt.Errorf("tesseract osd: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseOSDRotation(stdout.String()), nil
}

// ParseOSDRotation extracts the "Rotate: N" line from tesseract --psm 0
// output. Missing or malformed output yields 0.
func ParseOSDRotation(out string) int {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "Rotate:") {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Rotate:")))
		if err != nil {
			return 0
		}
		v %= 360
		if v < 0 {
			v += 360
		}
		if v%90 != 0 {
			return 0
		}
		return v
	}
	return 0
}

// RenderPDF renders a searchable PDF from the page images listed in
// listPath, writing outBase + ".pdf". The context deadline bounds the run;
// on timeout the partially written output is removed so callers can fall
// back cleanly.
func (e *Engine) RenderPDF(ctx context.Context, listPath, outBase string) error {
	cmd := exec.CommandContext(ctx, e.binary(), renderArgs(listPath, outBase, e.DPI)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		os.Remove(outBase + ".pdf")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("tesseract pdf render: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if _, err := os.Stat(outBase + ".pdf"); err != nil {
		return fmt.Errorf("tesseract pdf render produced no output: %w", err)
	}
	return nil
}

// renderArgs builds the tesseract invocation; options must precede the pdf
// config name.
func renderArgs(listPath, outBase string, dpi int) []string {
	args := []string{listPath, outBase}
	if dpi > 0 {
		args = append(args, "--dpi", strconv.Itoa(dpi))
	}
	return append(args, "pdf")
}

func extFor(format ocr.ImageFormat) string {
	if format == ocr.ImageFormatTIFF {
		return ".tiff"
	}
	return ".png"
}

var _ interface {
	ocr.Engine
	ocr.OrientationDetector
	ocr.PDFRenderer
} = (*Engine)(nil)
