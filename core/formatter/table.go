package formatter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/artpar/conform/core/diag"
)

// TableFormatter renders reports as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatReport renders a single report as a table of diagnostics.
func (f *TableFormatter) FormatReport(w io.Writer, report Report, opts Options) error {
	if report.Conforms {
		fmt.Fprintln(w, "Document conforms.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		fmt.Fprintln(tw, "PATH\tKEYWORD\tMESSAGE")
	}
	for _, d := range report.Diagnostics {
		f.writeRow(tw, d, "", opts)
	}

	return tw.Flush()
}

// FormatBatch renders several reports, one block per document.
func (f *TableFormatter) FormatBatch(w io.Writer, reports []Report, opts Options) error {
	for i, report := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		name := report.Schema
		if name == "" {
			name = fmt.Sprintf("document %d", i+1)
		}
		if report.Conforms {
			fmt.Fprintf(w, "%s: conforms\n", name)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", name, countProblems(len(report.Diagnostics)))
		if err := f.FormatReport(w, report, opts); err != nil {
			return err
		}
	}
	return nil
}

// FormatError renders an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

// writeRow emits one diagnostic row plus its cause rows, indented.
func (f *TableFormatter) writeRow(tw *tabwriter.Writer, d diag.Diagnostic, indent string, opts Options) {
	fmt.Fprintf(tw, "%s%s\t%s\t%s\n", indent, displayPath(d.Path), d.Keyword, f.formatMessage(d.Message, opts.MaxWidth))
	if opts.NoCauses {
		return
	}
	for _, cause := range d.Causes {
		f.writeRow(tw, cause, indent+"  ", opts)
	}
}

// formatMessage truncates a message for display.
func (f *TableFormatter) formatMessage(msg string, maxWidth int) string {
	if maxWidth > 3 && len(msg) > maxWidth {
		return msg[:maxWidth-3] + "..."
	}
	return msg
}

// displayPath renders a path, naming the root explicitly.
func displayPath(p diag.Path) string {
	if p.IsRoot() {
		return "document root"
	}
	return p.String()
}

func countProblems(n int) string {
	if n == 1 {
		return "1 problem"
	}
	return fmt.Sprintf("%d problems", n)
}

func init() {
	Register(NewTableFormatter())
}
