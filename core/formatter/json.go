package formatter

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter renders reports as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatReport renders a single report as JSON.
func (f *JSONFormatter) FormatReport(w io.Writer, report Report, opts Options) error {
	return f.encode(w, viewOfReport(report, opts), opts.Compact)
}

// FormatBatch renders several reports as one JSON document.
func (f *JSONFormatter) FormatBatch(w io.Writer, reports []Report, opts Options) error {
	views := make([]reportView, len(reports))
	for i, report := range reports {
		views[i] = viewOfReport(report, opts)
	}

	output := map[string]any{
		"count":   len(views),
		"reports": views,
	}

	return f.encode(w, output, opts.Compact)
}

// FormatError renders an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output, false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
