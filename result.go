package conform

import "github.com/artpar/conform/core/diag"

// Diagnostic is one conformance failure. See core/diag.
type Diagnostic = diag.Diagnostic

// Path locates a value inside the checked document. See core/diag.
type Path = diag.Path

// Result is the verdict of one validation call.
type Result struct {
	diags diag.List
}

// Conforms reports whether the value satisfied every constraint.
func (r Result) Conforms() bool {
	return len(r.diags) == 0
}

// Diagnostics returns every failure, ordered by path and keyword with
// exact duplicates removed. It is nil when the value conforms.
func (r Result) Diagnostics() diag.List {
	return r.diags
}

// Err returns the diagnostics as an error, or nil when the value
// conforms.
func (r Result) Err() error {
	if len(r.diags) == 0 {
		return nil
	}
	return r.diags
}
