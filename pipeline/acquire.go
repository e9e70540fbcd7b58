package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wudi/scan2pdf/observability"
	"github.com/wudi/scan2pdf/raster"
	"github.com/wudi/scan2pdf/scan"
)

// AcquisitionError is fatal: a failed scanline read aborts the whole
// document, not just the page. Partial pages are never enqueued.
type AcquisitionError struct {
	Page int
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed on page %d: %v", e.Page, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Acquirer drives the scan session on its own goroutine, assembling one
// PageBuffer per page and pushing completed pages to the queue. The queue
// and its done flag are the only state shared with the rest of the system.
type Acquirer struct {
	Session    scan.Session
	Queue      *PageQueue
	Resolution int
	Logger     observability.Logger
}

// Run scans until the backend reports no more pages, then marks the queue
// finished. Finish is signaled on every exit path so the consumer can always
// drain and terminate.
func (a *Acquirer) Run(ctx context.Context) error {
	defer a.Queue.Finish()
	log := a.Logger
	if log == nil {
		log = observability.NopLogger{}
	}

	start := time.Now()
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			a.Session.Cancel()
			return err
		}
		more, err := a.Session.BeginPage()
		if err != nil {
			return &AcquisitionError{Page: index, Err: err}
		}
		if !more {
			log.Info("done obtaining pages",
				observability.Int(observability.MetricPageCount, index),
				observability.Duration(observability.MetricAcquireTime, time.Since(start)))
			return nil
		}
		log.Info("obtaining page", observability.Int("page", index))

		img, err := a.readPage(index)
		if err != nil {
			a.Session.Cancel()
			return &AcquisitionError{Page: index, Err: err}
		}
		a.Queue.Push(&PageBuffer{Index: index, Image: img, Keep: true})
	}
}

func (a *Acquirer) readPage(index int) (*raster.Image, error) {
	params, err := a.Session.Parameters()
	if err != nil {
		return nil, err
	}
	if params.Depth != 8 {
		return nil, fmt.Errorf("unsupported sample depth %d", params.Depth)
	}
	if params.PixelsPerLine <= 0 || params.BytesPerLine < 3*params.PixelsPerLine {
		return nil, fmt.Errorf("inconsistent line geometry: %d px, %d bytes", params.PixelsPerLine, params.BytesPerLine)
	}

	// The backend may not know the page length up front (Lines == -1), so
	// rows are collected first and committed to a canvas once the page ends.
	buf := make([]byte, params.BytesPerLine)
	var rows [][]byte
	for {
		more, err := a.Session.ReadLine(buf)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		row := make([]byte, 3*params.PixelsPerLine)
		copy(row, buf[:3*params.PixelsPerLine])
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("page %d delivered no scanlines", index)
	}

	img := raster.New(params.PixelsPerLine, len(rows), a.Resolution)
	for y, row := range rows {
		if err := img.SetRow(y, row); err != nil {
			return nil, err
		}
	}
	return img, nil
}
