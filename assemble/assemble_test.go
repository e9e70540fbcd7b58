package assemble

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/scan2pdf/pipeline"
	"github.com/wudi/scan2pdf/raster"
)

// stubRenderer stands in for the OCR engine's PDF renderer.
type stubRenderer struct {
	fail  bool
	delay time.Duration
	calls int
}

func (r *stubRenderer) RenderPDF(ctx context.Context, listPath, outBase string) error {
	r.calls++
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if r.fail {
		return errors.New("render exploded")
	}
	return os.WriteFile(outBase+".pdf", []byte("%PDF-1.4 searchable stub"), 0o644)
}

func somePages(n int) []*pipeline.PageBuffer {
	pages := make([]*pipeline.PageBuffer, n)
	for i := range pages {
		pages[i] = &pipeline.PageBuffer{Index: i, Image: raster.New(40, 40, 300), Keep: true}
	}
	return pages
}

func TestAssembleNoPages(t *testing.T) {
	a := &Assembler{WorkDir: t.TempDir()}
	if _, err := a.Assemble(context.Background(), nil); !errors.Is(err, ErrNoPagesKept) {
		t.Fatalf("Assemble with no pages = %v, want ErrNoPagesKept", err)
	}
}

func TestAssembleSearchable(t *testing.T) {
	dir := t.TempDir()
	r := &stubRenderer{}
	a := &Assembler{WorkDir: dir, Renderer: r}

	out, err := a.Assemble(context.Background(), somePages(2))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(raw), "searchable stub") {
		t.Fatal("renderer output not used")
	}

	// The spool must name every page, in order, in the list file.
	list, err := os.ReadFile(filepath.Join(dir, "pages.txt"))
	if err != nil {
		t.Fatalf("read page list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(list)), "\n")
	if len(lines) != 2 {
		t.Fatalf("page list has %d entries, want 2", len(lines))
	}
	for i, line := range lines {
		if !strings.HasSuffix(line, "page-000"+string(rune('0'+i))+".tif") {
			t.Errorf("list entry %d = %q", i, line)
		}
	}
}

func TestAssembleFallsBackOnRenderError(t *testing.T) {
	a := &Assembler{WorkDir: t.TempDir(), Renderer: &stubRenderer{fail: true}}
	out, err := a.Assemble(context.Background(), somePages(2))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	assertPlainPDF(t, out)
}

func TestAssembleFallsBackOnTimeout(t *testing.T) {
	r := &stubRenderer{delay: 5 * time.Second}
	a := &Assembler{WorkDir: t.TempDir(), Renderer: r, PerPageBudget: 20 * time.Millisecond}
	out, err := a.Assemble(context.Background(), somePages(1))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("renderer called %d times, want 1", r.calls)
	}
	assertPlainPDF(t, out)
}

func TestAssembleWithoutRenderer(t *testing.T) {
	a := &Assembler{WorkDir: t.TempDir()}
	out, err := a.Assemble(context.Background(), somePages(1))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	assertPlainPDF(t, out)
}

func assertPlainPDF(t *testing.T, path string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(raw) < 5 || string(raw[:5]) != "%PDF-" {
		t.Fatalf("artifact is not a PDF (%d bytes)", len(raw))
	}
}

func TestDeliver(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.4 payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "final.pdf")
	if err := Deliver(src, dest); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	raw, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read delivered file: %v", err)
	}
	if string(raw) != "%PDF-1.4 payload" {
		t.Fatalf("delivered content = %q", raw)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source artifact still present after delivery")
	}
}

func TestDeliverMissingSource(t *testing.T) {
	if err := Deliver(filepath.Join(t.TempDir(), "absent.pdf"), filepath.Join(t.TempDir(), "out.pdf")); err == nil {
		t.Fatal("Deliver of a missing artifact succeeded")
	}
}
