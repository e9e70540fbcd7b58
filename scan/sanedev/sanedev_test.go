package sanedev

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wudi/scan2pdf/scan"
)

func TestOptionArgs(t *testing.T) {
	opts := []scan.Option{
		scan.StringOption("source", "ADF Duplex"),
		scan.StringOption("mode", "Color"),
		scan.IntOption("resolution", 300),
		scan.FixedOption("page-height", 0),
		scan.BoolOption("ald", true),
		scan.BoolOption("swcrop", false),
	}
	got := OptionArgs(opts)
	want := []string{
		"--source=ADF Duplex",
		"--mode=Color",
		"--resolution=300",
		"--page-height=0",
		"--ald=yes",
		"--swcrop=no",
	}
	if len(got) != len(want) {
		t.Fatalf("OptionArgs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParsePNMColor(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("P6\n# scanner frame\n2 2\n255\n")
	buf.Write([]byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 9, 9, 9,
	})
	params, rows, err := parsePNM(&buf)
	if err != nil {
		t.Fatalf("parsePNM: %v", err)
	}
	if params.PixelsPerLine != 2 || params.Lines != 2 || params.BytesPerLine != 6 || params.Depth != 8 {
		t.Fatalf("params = %+v", params)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if !bytes.Equal(rows[0], []byte{255, 0, 0, 0, 255, 0}) {
		t.Fatalf("row 0 = %v", rows[0])
	}
	if !bytes.Equal(rows[1], []byte{0, 0, 255, 9, 9, 9}) {
		t.Fatalf("row 1 = %v", rows[1])
	}
}

func TestParsePNMGrayExpandsToRGB(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("P5 3 1 255\n")
	buf.Write([]byte{0, 128, 255})
	params, rows, err := parsePNM(&buf)
	if err != nil {
		t.Fatalf("parsePNM: %v", err)
	}
	if params.BytesPerLine != 9 {
		t.Fatalf("BytesPerLine = %d, want 9", params.BytesPerLine)
	}
	if !bytes.Equal(rows[0], []byte{0, 0, 0, 128, 128, 128, 255, 255, 255}) {
		t.Fatalf("row = %v", rows[0])
	}
}

func TestParsePNMRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"ascii pnm", "P3 1 1 255\n255 0 0\n"},
		{"16-bit maxval", "P6 1 1 65535\n"},
		{"truncated frame", "P6 4 4 255\nxx"},
	}
	for _, c := range cases {
		if _, _, err := parsePNM(strings.NewReader(c.input)); err == nil {
			t.Errorf("%s: parse succeeded", c.name)
		}
	}
}

func TestOpenKnownDeviceSkipsProbe(t *testing.T) {
	b := &Backend{Binary: "/nonexistent/scanimage"}
	// A named device must not require a device listing.
	s, err := b.Open("epjitsu:libusb:001:004", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()
}

func TestOpenEmptyNameProbes(t *testing.T) {
	b := &Backend{Binary: "/nonexistent/scanimage"}
	if _, err := b.Open("", nil); err == nil {
		t.Fatal("Open with no device succeeded without a scanner")
	}
}
