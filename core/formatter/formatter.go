// Package formatter provides a pluggable rendering system for validation
// reports. Formatters convert diagnostics to various output formats
// (table, json, yaml) for terminals, logs, or downstream tooling.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/conform"
	"github.com/artpar/conform/core/diag"
)

// Report is the renderable outcome of validating one document against one
// schema.
type Report struct {
	// Schema names the schema the document was checked against. Optional.
	Schema string

	// Conforms is true when the document satisfied the schema.
	Conforms bool

	// Diagnostics holds the conformance failures, in canonical order.
	Diagnostics diag.List
}

// FromResult builds a Report from a validation result.
func FromResult(schema string, res conform.Result) Report {
	return Report{
		Schema:      schema,
		Conforms:    res.Conforms(),
		Diagnostics: res.Diagnostics(),
	}
}

// Formatter renders validation reports in a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatReport renders a single report.
	FormatReport(w io.Writer, report Report, opts Options) error

	// FormatBatch renders the reports of several documents.
	FormatBatch(w io.Writer, reports []Report, opts Options) error

	// FormatError renders an error.
	FormatError(w io.Writer, err error) error
}

// Options configures rendering behavior.
type Options struct {
	// NoHeader disables the header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// NoCauses drops nested combinator causes from the output.
	NoCauses bool

	// MaxWidth truncates long messages (0 = no limit).
	MaxWidth int
}

// diagView is the serialized shape of a diagnostic, shared by the json and
// yaml formatters. Paths render as JSON Pointers.
type diagView struct {
	Path    string     `json:"path" yaml:"path"`
	Keyword string     `json:"keyword" yaml:"keyword"`
	Message string     `json:"message" yaml:"message"`
	Causes  []diagView `json:"causes,omitempty" yaml:"causes,omitempty"`
}

// reportView is the serialized shape of a report.
type reportView struct {
	Schema      string     `json:"schema,omitempty" yaml:"schema,omitempty"`
	Conforms    bool       `json:"conforms" yaml:"conforms"`
	Count       int        `json:"count" yaml:"count"`
	Diagnostics []diagView `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func viewOfDiagnostic(d diag.Diagnostic, opts Options) diagView {
	v := diagView{
		Path:    d.Path.String(),
		Keyword: d.Keyword,
		Message: d.Message,
	}
	if !opts.NoCauses {
		for _, cause := range d.Causes {
			v.Causes = append(v.Causes, viewOfDiagnostic(cause, opts))
		}
	}
	return v
}

func viewOfReport(r Report, opts Options) reportView {
	v := reportView{
		Schema:   r.Schema,
		Conforms: r.Conforms,
		Count:    len(r.Diagnostics),
	}
	for _, d := range r.Diagnostics {
		v.Diagnostics = append(v.Diagnostics, viewOfDiagnostic(d, opts))
	}
	return v
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[r.defaultFmt]
	if !ok {
		// Fallback to first available
		for _, f := range r.formatters {
			return f
		}
		return nil
	}
	return f
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
