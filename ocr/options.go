package ocr

import "strconv"

// WithVariable passes an engine-specific variable through Input.Metadata
// without widening the Input surface. Later options overwrite earlier ones.
func WithVariable(key, value string) InputOption {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[key] = value
	}
}

// PSMSingleBlock assumes a single uniform block of text, skipping full page
// layout analysis.
const PSMSingleBlock = 6

// WithPageSegMode sets the Tesseract page segmentation mode.
// See https://tesseract-ocr.github.io/tessdoc/ImproveQuality.html#page-segmentation-method for values.
func WithPageSegMode(mode int) InputOption {
	return WithVariable("tessedit_pageseg_mode", strconv.Itoa(mode))
}
