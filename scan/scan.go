// Package scan defines the contract between the pipeline and a scanner
// backend. Backends deliver raw per-line pixel data for one page at a time;
// everything else (geometry, classification, OCR, assembly) happens above
// this boundary.
package scan

import (
	"errors"
	"fmt"
)

// ErrNoDevice is returned by Open when no scanner is available.
var ErrNoDevice = errors.New("scan: no scanner device found")

// Parameters describes the raster a session will deliver for the current
// page.
type Parameters struct {
	PixelsPerLine int
	Lines         int // -1 when the backend cannot predict page length
	BytesPerLine  int
	Depth         int // bits per sample
}

// Session is one open scanner connection. Sessions are not safe for
// concurrent use; the acquisition loop owns the session exclusively.
type Session interface {
	// BeginPage advances the feeder. It returns false when no more pages
	// are available, which ends the document.
	BeginPage() (bool, error)
	// ReadLine fills buf with the next scanline. It returns false at end of
	// page; buf must hold Parameters().BytesPerLine bytes.
	ReadLine(buf []byte) (bool, error)
	// Parameters reports the raster geometry for the page being read.
	Parameters() (Parameters, error)
	// Cancel aborts an in-flight page so the feeder is not left mid-sheet.
	Cancel()
	Close() error
}

// Backend discovers and opens scanner devices.
type Backend interface {
	ListDevices() ([]string, error)
	// Open opens the named device, or the first available device when name
	// is empty, and applies opts before the first page.
	Open(name string, opts []Option) (Session, error)
}

// OptionKind tags the value variant an Option carries.
type OptionKind int

const (
	OptionBool OptionKind = iota
	OptionInt
	OptionFixed
	OptionString
)

// Option is a tagged-variant device option. Exactly the field matching Kind
// is meaningful; Apply-style dispatch happens once at the backend boundary.
type Option struct {
	Name  string
	Kind  OptionKind
	Bool  bool
	Int   int
	Fixed float64
	Text  string
}

func BoolOption(name string, v bool) Option     { return Option{Name: name, Kind: OptionBool, Bool: v} }
func IntOption(name string, v int) Option       { return Option{Name: name, Kind: OptionInt, Int: v} }
func FixedOption(name string, v float64) Option { return Option{Name: name, Kind: OptionFixed, Fixed: v} }
func StringOption(name, v string) Option        { return Option{Name: name, Kind: OptionString, Text: v} }

// Value returns the variant payload for the option's kind.
func (o Option) Value() interface{} {
	switch o.Kind {
	case OptionBool:
		return o.Bool
	case OptionInt:
		return o.Int
	case OptionFixed:
		return o.Fixed
	case OptionString:
		return o.Text
	}
	return nil
}

func (o Option) String() string {
	return fmt.Sprintf("%s=%v", o.Name, o.Value())
}

// Well-known option names, mirroring the SANE vocabulary.
const (
	OptSource     = "source"
	OptMode       = "mode"
	OptResolution = "resolution"
	OptPageWidth  = "page-width"
	OptPageHeight = "page-height"
	OptALD        = "ald" // auto length detection
)

// DefaultOptions is the option set applied when the caller supplies none:
// duplex feeder, full color, 300 dpi, unconstrained page size.
func DefaultOptions(resolution int) []Option {
	return []Option{
		StringOption(OptSource, "ADF Duplex"),
		StringOption(OptMode, "Color"),
		IntOption(OptResolution, resolution),
		FixedOption(OptPageHeight, 1e6),
		FixedOption(OptPageWidth, 1e6),
		BoolOption(OptALD, false),
	}
}
