// Package assemble renders a processed page set into a single PDF document
// and delivers it to its final path.
//
// The primary render path hands the page images to the OCR engine's PDF
// renderer, producing a searchable PDF with an invisible text layer. The
// renderer runs under a per-page time budget; when it fails or overruns,
// the pages are imported into a plain image-only PDF instead, so a slow or
// broken text layer never costs the scanned document itself.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/wudi/scan2pdf/observability"
	"github.com/wudi/scan2pdf/ocr"
	"github.com/wudi/scan2pdf/pipeline"
)

// ErrNoPagesKept is returned when every scanned page was discarded.
var ErrNoPagesKept = errors.New("no pages kept, nothing to assemble")

// ErrRenderTimeout marks a searchable render that overran its page budget.
// It is recovered internally by the plain fallback, surfacing only in logs.
var ErrRenderTimeout = errors.New("searchable render exceeded time budget")

// DefaultPerPageBudget bounds how long the searchable render may spend per
// page before the plain fallback takes over.
const DefaultPerPageBudget = 10 * time.Second

// Assembler spools pages to disk and renders the combined document.
type Assembler struct {
	// WorkDir receives the intermediate page images and the rendered PDF.
	WorkDir string
	// Renderer produces the searchable PDF; nil skips straight to the
	// plain image-only render.
	Renderer ocr.PDFRenderer
	// PerPageBudget overrides DefaultPerPageBudget when positive.
	PerPageBudget time.Duration
	Logger        observability.Logger
}

// Assemble writes each kept page to the work directory and renders them
// into one PDF, searchable when the renderer delivers in budget. It returns
// the path of the rendered document inside the work directory.
func (a *Assembler) Assemble(ctx context.Context, pages []*pipeline.PageBuffer) (string, error) {
	log := a.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	if len(pages) == 0 {
		return "", ErrNoPagesKept
	}

	files, listPath, err := a.spool(pages)
	if err != nil {
		return "", err
	}
	outBase := filepath.Join(a.WorkDir, "document")
	outPath := outBase + ".pdf"

	start := time.Now()
	if a.Renderer != nil {
		budget := a.PerPageBudget
		if budget <= 0 {
			budget = DefaultPerPageBudget
		}
		rctx, cancel := context.WithTimeout(ctx, budget*time.Duration(len(pages)))
		err := a.Renderer.RenderPDF(rctx, listPath, outBase)
		cancel()
		if err == nil {
			log.Info("rendered searchable document",
				observability.Int("pages", len(pages)),
				observability.Duration(observability.MetricRenderTime, time.Since(start)))
			return outPath, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrRenderTimeout
		}
		log.Warn("searchable render failed, falling back to plain pages",
			observability.Error("err", err))
	}

	if err := api.ImportImagesFile(files, outPath, nil, nil); err != nil {
		return "", fmt.Errorf("assemble plain document: %w", err)
	}
	log.Info("rendered plain document",
		observability.Int("pages", len(pages)),
		observability.Duration(observability.MetricRenderTime, time.Since(start)))
	return outPath, nil
}

// spool writes one TIFF per page plus a list file naming them in order.
func (a *Assembler) spool(pages []*pipeline.PageBuffer) ([]string, string, error) {
	files := make([]string, 0, len(pages))
	for i, p := range pages {
		path := filepath.Join(a.WorkDir, fmt.Sprintf("page-%04d.tif", i))
		f, err := os.Create(path)
		if err != nil {
			return nil, "", fmt.Errorf("spool page %d: %w", p.Index, err)
		}
		err = p.Image.EncodeTIFF(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, "", fmt.Errorf("spool page %d: %w", p.Index, err)
		}
		files = append(files, path)
	}
	listPath := filepath.Join(a.WorkDir, "pages.txt")
	if err := os.WriteFile(listPath, []byte(strings.Join(files, "\n")+"\n"), 0o644); err != nil {
		return nil, "", fmt.Errorf("write page list: %w", err)
	}
	return files, listPath, nil
}

// Deliver moves the rendered document to its destination. A rename is tried
// first; across filesystems it degrades to a copy.
func Deliver(artifact, dest string) error {
	if err := os.Rename(artifact, dest); err == nil {
		return nil
	}
	src, err := os.Open(artifact)
	if err != nil {
		return fmt.Errorf("deliver document: %w", err)
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("deliver document: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("deliver document: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("deliver document: %w", err)
	}
	return os.Remove(artifact)
}
