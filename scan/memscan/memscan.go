// Package memscan is an in-memory scan backend used by tests and dry runs.
// It replays prepared pages through the scan.Session contract, optionally
// delaying or failing individual reads to exercise pipeline timing.
package memscan

import (
	"fmt"
	"time"

	"github.com/wudi/scan2pdf/scan"
)

// Page is one prepared page: raster parameters plus its scanlines.
type Page struct {
	Params scan.Parameters
	Lines  [][]byte
}

// RGBPage builds a Page from packed 8-bit RGB rows.
func RGBPage(width int, rows [][]byte) Page {
	return Page{
		Params: scan.Parameters{
			PixelsPerLine: width,
			Lines:         len(rows),
			BytesPerLine:  3 * width,
			Depth:         8,
		},
		Lines: rows,
	}
}

// Backend replays its pages once per opened session.
type Backend struct {
	Name  string
	Pages []Page
	// LineDelay pauses each ReadLine, simulating scanner pacing.
	LineDelay time.Duration
	// FailLine, when non-negative, makes that absolute line index (counted
	// across all pages) fail.
	FailLine int
}

// New returns a backend replaying the given pages.
func New(pages ...Page) *Backend {
	return &Backend{Name: "memscan:adf", Pages: pages, FailLine: -1}
}

func (b *Backend) ListDevices() ([]string, error) { return []string{b.Name}, nil }

func (b *Backend) Open(name string, opts []scan.Option) (scan.Session, error) {
	if name != "" && name != b.Name {
		return nil, scan.ErrNoDevice
	}
	return &session{backend: b, page: -1}, nil
}

type session struct {
	backend  *Backend
	page     int
	row      int
	absLine  int
	canceled bool
	closed   bool
}

func (s *session) BeginPage() (bool, error) {
	if s.closed {
		return false, fmt.Errorf("memscan: session closed")
	}
	if s.canceled || s.page+1 >= len(s.backend.Pages) {
		return false, nil
	}
	s.page++
	s.row = 0
	return true, nil
}

func (s *session) Parameters() (scan.Parameters, error) {
	if s.page < 0 || s.page >= len(s.backend.Pages) {
		return scan.Parameters{}, fmt.Errorf("memscan: no page in progress")
	}
	return s.backend.Pages[s.page].Params, nil
}

func (s *session) ReadLine(buf []byte) (bool, error) {
	if s.page < 0 || s.page >= len(s.backend.Pages) {
		return false, fmt.Errorf("memscan: no page in progress")
	}
	if s.backend.LineDelay > 0 {
		time.Sleep(s.backend.LineDelay)
	}
	p := s.backend.Pages[s.page]
	if s.row >= len(p.Lines) {
		return false, nil
	}
	if s.backend.FailLine >= 0 && s.absLine == s.backend.FailLine {
		return false, fmt.Errorf("memscan: injected read failure at line %d", s.absLine)
	}
	if len(buf) < len(p.Lines[s.row]) {
		return false, fmt.Errorf("memscan: buffer too small: %d < %d", len(buf), len(p.Lines[s.row]))
	}
	copy(buf, p.Lines[s.row])
	s.row++
	s.absLine++
	return true, nil
}

func (s *session) Cancel() { s.canceled = true }

func (s *session) Close() error {
	s.closed = true
	return nil
}
