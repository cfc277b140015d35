// Package render turns canonical log entries into output strings, either
// as a formatted single line or as a CADF (DMTF DSP0262) JSON event.
package render

import "github.com/zhmctools/hmclogfwd/internal/model"

// Renderer turns one canonical log entry into an output string.
// An empty string means the entry produced no output and is skipped.
type Renderer interface {
	// Render formats one entry.
	Render(e *model.LogEntry) (string, error)

	// Header returns the column header line for destinations that print
	// one, or "" when the format has no tabular header.
	Header() string
}
