package ocr

import "context"

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Input encapsulates a single page image submitted for recognition.
type Input struct {
	// ID is an optional caller-provided identifier echoed back in Result.
	ID string
	// Image is the encoded image payload in the format declared by Format.
	Image []byte
	// Format declares the image content type.
	Format ImageFormat
	// DPI carries the effective resolution; engines use it for layout
	// heuristics. Zero means unknown.
	DPI int
	// Languages lists trained-data hints (e.g., "eng").
	Languages []string
	// Metadata passes engine-specific knobs (e.g., Tesseract variables)
	// without widening the API surface.
	Metadata map[string]string
}

// InputOption mutates an Input before submission.
type InputOption func(*Input)

// WithLanguages sets language hints on the input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithDPI overrides the DPI value on the input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// Result captures recognition output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// PlainText is the linearized UTF-8 text extracted from the image.
	PlainText string
}

// Engine is the basic provider contract: one page image in, text out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// OrientationDetector reports the coarse rotation of a page as one of
// 0, 90, 180 or 270 degrees. The value is the amount the page content is
// rotated clockwise from upright.
type OrientationDetector interface {
	DetectOrientation(ctx context.Context, in Input) (int, error)
}

// PDFRenderer renders a searchable PDF from a list of page image files.
// listPath names a text file with one image path per line, in page order;
// the renderer writes outBase + ".pdf". Implementations must honor ctx
// cancellation so callers can enforce a render budget.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, listPath, outBase string) error
}

// NoopEngine recognizes nothing. It stands in when no provider is wired,
// keeping the pipeline runnable without trained data.
type NoopEngine struct{}

func (NoopEngine) Name() string { return "noop" }

func (NoopEngine) Recognize(_ context.Context, in Input) (Result, error) {
	return Result{InputID: in.ID}, nil
}

func (NoopEngine) DetectOrientation(context.Context, Input) (int, error) { return 0, nil }
