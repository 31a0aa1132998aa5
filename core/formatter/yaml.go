package formatter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders reports as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatReport renders a single report as YAML.
func (f *YAMLFormatter) FormatReport(w io.Writer, report Report, opts Options) error {
	return f.encode(w, viewOfReport(report, opts))
}

// FormatBatch renders several reports as one YAML document.
func (f *YAMLFormatter) FormatBatch(w io.Writer, reports []Report, opts Options) error {
	views := make([]reportView, len(reports))
	for i, report := range reports {
		views[i] = viewOfReport(report, opts)
	}

	output := map[string]any{
		"count":   len(views),
		"reports": views,
	}

	return f.encode(w, output)
}

// FormatError renders an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output)
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
