package main

import (
	"testing"

	"github.com/wudi/scan2pdf/scan"
)

func TestDeviceOptionsDefaults(t *testing.T) {
	opts := deviceOptions(fileConfig{Resolution: 300})
	byName := map[string]scan.Option{}
	for _, o := range opts {
		byName[o.Name] = o
	}
	if got := byName[scan.OptSource].Text; got != "ADF Duplex" {
		t.Fatalf("source = %q, want %q", got, "ADF Duplex")
	}
	if got := byName[scan.OptMode].Text; got != "Color" {
		t.Fatalf("mode = %q, want %q", got, "Color")
	}
	if got := byName[scan.OptResolution].Int; got != 300 {
		t.Fatalf("resolution = %d, want 300", got)
	}
}

func TestDeviceOptionsOverrides(t *testing.T) {
	opts := deviceOptions(fileConfig{Resolution: 600, Source: "Flatbed", Mode: "Gray"})
	seen := map[string]int{}
	for _, o := range opts {
		seen[o.Name]++
		switch o.Name {
		case scan.OptSource:
			if o.Text != "Flatbed" {
				t.Fatalf("source = %q, want %q", o.Text, "Flatbed")
			}
		case scan.OptMode:
			if o.Text != "Gray" {
				t.Fatalf("mode = %q, want %q", o.Text, "Gray")
			}
		}
	}
	for name, n := range seen {
		if n != 1 {
			t.Fatalf("option %q listed %d times", name, n)
		}
	}
}
