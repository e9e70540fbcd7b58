// Package ocr defines the abstraction layer for plugging text-recognition
// engines into the scan pipeline. The interfaces are intentionally small and
// transport-agnostic: an engine can be backed by a native library, a local
// binary, or a remote API without leaking provider-specific concerns into the
// pipeline. The pipeline needs three capabilities (plain text extraction,
// coarse orientation detection, searchable-PDF rendering), each modeled as
// its own interface so partial providers remain usable.
package ocr
