// Package validation implements the recursive conformance engine: it
// walks a compiled schema graph against a decoded value tree and reports
// every constraint the value breaks, qualified by value path.
package validation

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/artpar/conform/core/diag"
	"github.com/artpar/conform/core/schema"
	"github.com/artpar/conform/core/value"
)

const (
	// DefaultMaxDepth bounds schema recursion so evaluation terminates
	// even against pathological reference chains.
	DefaultMaxDepth = 100

	// DefaultEpsilon is the tolerance for multipleOf with non-integral
	// divisors, where exact decimal arithmetic is not what schema
	// authors expect of floating-point inputs.
	DefaultEpsilon = 1e-8
)

// DepthError aborts a validation whose recursion exceeded the bound. It
// is the only condition that terminates a call instead of becoming a
// diagnostic.
type DepthError struct {
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("validation exceeded maximum depth %d", e.Limit)
}

// errStop unwinds evaluation after the first diagnostic in fail-fast
// mode. It never escapes Evaluate.
var errStop = errors.New("stop after first diagnostic")

// Config tunes one engine instance.
type Config struct {
	// MaxDepth bounds recursion; zero or negative selects DefaultMaxDepth.
	MaxDepth int

	// Epsilon is the multipleOf tolerance for non-integral divisors;
	// zero or negative selects DefaultEpsilon.
	Epsilon float64

	// FailFast stops at the first diagnostic instead of collecting all.
	FailFast bool

	// Logger receives evaluation traces. Use zerolog.Nop() for silence.
	Logger zerolog.Logger

	// Observer, when non-nil, is notified of every evaluation outcome.
	Observer Observer
}

// Engine evaluates values against one compiled schema document. It is
// stateless between calls and safe for concurrent use.
type Engine struct {
	doc      *schema.Document
	maxDepth int
	epsilon  float64
	failFast bool
	log      zerolog.Logger
	observer Observer
}

// New builds an engine for a compiled document.
func New(doc *schema.Document, cfg Config) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	return &Engine{
		doc:      doc,
		maxDepth: cfg.MaxDepth,
		epsilon:  cfg.Epsilon,
		failFast: cfg.FailFast,
		log:      cfg.Logger,
		observer: cfg.Observer,
	}
}

// Evaluate checks a value against the document root. An empty list means
// the value conforms. The returned error is non-nil only when the depth
// bound was exceeded; every ordinary failure is a diagnostic.
func (e *Engine) Evaluate(v value.Value) (diag.List, error) {
	start := time.Now()
	r := &run{e: e, failFast: e.failFast}
	err := r.evaluate(e.doc.Root(), v, nil, nil)
	if err != nil && !errors.Is(err, errStop) {
		e.observe(OutcomeAborted, 0, time.Since(start))
		e.log.Debug().Err(err).Msg("validation aborted")
		return nil, err
	}
	out := r.diags.Finalize()
	outcome := OutcomeConform
	if len(out) > 0 {
		outcome = OutcomeViolation
	}
	e.observe(outcome, len(out), time.Since(start))
	e.log.Debug().
		Int("diagnostics", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("validation completed")
	return out, nil
}

func (e *Engine) observe(outcome Outcome, diagnostics int, elapsed time.Duration) {
	if e.observer != nil {
		e.observer.ObserveValidation(outcome, diagnostics, elapsed)
	}
}

// run is the per-call mutable state: the collected diagnostics, the
// recursion depth, and the same-value visited set used for cycle
// detection.
type run struct {
	e        *Engine
	diags    diag.List
	depth    int
	failFast bool
}

func (r *run) report(d diag.Diagnostic) error {
	r.diags.Add(d)
	if r.failFast {
		return errStop
	}
	return nil
}

// probe evaluates a candidate branch without contributing to the main
// diagnostic list, returning the branch's finalized diagnostics. Depth
// accounting continues through probes, so a depth overrun inside a
// branch still aborts the whole call.
func (r *run) probe(idx int, v value.Value, path diag.Path, visited map[int]struct{}) (diag.List, error) {
	savedDiags, savedFF := r.diags, r.failFast
	r.diags, r.failFast = nil, false
	err := r.evaluate(idx, v, path, visited)
	branch := r.diags
	r.diags, r.failFast = savedDiags, savedFF
	if err != nil {
		return nil, err
	}
	return branch.Finalize(), nil
}

// evaluate applies one schema node to one value. The visited set holds
// node indices on the current same-value chain: it is shared across
// reference hops and combinator branches, and dropped whenever
// evaluation descends into the value's children, because consuming value
// structure is progress and resets cycle detection.
func (r *run) evaluate(idx int, v value.Value, path diag.Path, visited map[int]struct{}) error {
	if r.depth >= r.e.maxDepth {
		return &DepthError{Limit: r.e.maxDepth}
	}
	r.depth++
	defer func() { r.depth-- }()

	n := r.e.doc.Node(idx)

	if _, seen := visited[idx]; seen {
		r.e.log.Trace().Str("pointer", pointerDisplay(n.Pointer)).Msg("schema cycle detected")
		return r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "$ref",
			Message: fmt.Sprintf("schema cycle at %s: revisited without consuming value structure", pointerDisplay(n.Pointer)),
		})
	}
	if visited == nil {
		visited = make(map[int]struct{}, 4)
	}
	visited[idx] = struct{}{}
	defer delete(visited, idx)

	if n.Bool != nil {
		if !*n.Bool {
			return r.report(diag.Diagnostic{
				Path:    path,
				Keyword: "schema",
				Message: "value rejected by the false schema",
			})
		}
		return nil
	}

	if err := r.checkType(n, v, path); err != nil {
		return err
	}
	if err := r.checkEnumConst(n, v, path); err != nil {
		return err
	}
	if err := r.checkNumeric(n, v, path); err != nil {
		return err
	}
	if err := r.checkString(n, v, path); err != nil {
		return err
	}
	if err := r.checkArray(n, v, path); err != nil {
		return err
	}
	if err := r.checkObject(n, v, path); err != nil {
		return err
	}
	if err := r.checkCombinators(n, v, path, visited); err != nil {
		return err
	}
	return r.checkRef(n, v, path, visited)
}

func (r *run) checkType(n *schema.Node, v value.Value, path diag.Path) error {
	if n.Types == nil {
		return nil
	}
	for _, t := range n.Types {
		if t.Matches(v) {
			return nil
		}
	}
	var msg string
	if len(n.Types) == 1 {
		msg = fmt.Sprintf("expected %s, found %s", n.Types[0], v.Kind())
	} else {
		names := make([]string, len(n.Types))
		for i, t := range n.Types {
			names[i] = t.String()
		}
		msg = fmt.Sprintf("expected one of %s, found %s", strings.Join(names, ", "), v.Kind())
	}
	return r.report(diag.Diagnostic{Path: path, Keyword: "type", Message: msg})
}

func (r *run) checkEnumConst(n *schema.Node, v value.Value, path diag.Path) error {
	if n.Const != nil && !value.Equal(v, *n.Const) {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "const",
			Message: fmt.Sprintf("value does not equal the constant %s", n.Const.JSON()),
		})
		if err != nil {
			return err
		}
	}
	if n.Enum != nil {
		for _, allowed := range n.Enum {
			if value.Equal(v, allowed) {
				return nil
			}
		}
		return r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "enum",
			Message: fmt.Sprintf("value is not one of %s", renderEnum(n.Enum)),
		})
	}
	return nil
}

func (r *run) checkNumeric(n *schema.Node, v value.Value, path diag.Path) error {
	if v.Kind() != value.Number {
		return nil
	}
	num := v.Num()

	if n.MultipleOf != nil && !isMultiple(num, n.MultipleOf, r.e.epsilon) {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "multipleOf",
			Message: fmt.Sprintf("%s is not a multiple of %s", num, n.MultipleOf),
		})
		if err != nil {
			return err
		}
	}
	if n.Maximum != nil && num.Cmp(n.Maximum) > 0 {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "maximum",
			Message: fmt.Sprintf("%s exceeds the maximum %s", num, n.Maximum),
		})
		if err != nil {
			return err
		}
	}
	if n.ExclusiveMaximum != nil && num.Cmp(n.ExclusiveMaximum) >= 0 {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "exclusiveMaximum",
			Message: fmt.Sprintf("%s is not below the exclusive maximum %s", num, n.ExclusiveMaximum),
		})
		if err != nil {
			return err
		}
	}
	if n.Minimum != nil && num.Cmp(n.Minimum) < 0 {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "minimum",
			Message: fmt.Sprintf("%s is below the minimum %s", num, n.Minimum),
		})
		if err != nil {
			return err
		}
	}
	if n.ExclusiveMinimum != nil && num.Cmp(n.ExclusiveMinimum) <= 0 {
		return r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "exclusiveMinimum",
			Message: fmt.Sprintf("%s is not above the exclusive minimum %s", num, n.ExclusiveMinimum),
		})
	}
	return nil
}

func (r *run) checkString(n *schema.Node, v value.Value, path diag.Path) error {
	if v.Kind() != value.String {
		return nil
	}
	s := v.Str()

	if n.MinLength != nil || n.MaxLength != nil {
		length := utf8.RuneCountInString(s)
		if n.MinLength != nil && length < *n.MinLength {
			err := r.report(diag.Diagnostic{
				Path:    path,
				Keyword: "minLength",
				Message: fmt.Sprintf("string length %d is below the minimum length %d", length, *n.MinLength),
			})
			if err != nil {
				return err
			}
		}
		if n.MaxLength != nil && length > *n.MaxLength {
			err := r.report(diag.Diagnostic{
				Path:    path,
				Keyword: "maxLength",
				Message: fmt.Sprintf("string length %d exceeds the maximum length %d", length, *n.MaxLength),
			})
			if err != nil {
				return err
			}
		}
	}
	if n.Pattern != nil && !n.Pattern.MatchString(s) {
		return r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "pattern",
			Message: fmt.Sprintf("%q does not match the pattern %q", s, n.Pattern.Source),
		})
	}
	return nil
}

func (r *run) checkArray(n *schema.Node, v value.Value, path diag.Path) error {
	if v.Kind() != value.Array {
		return nil
	}
	items := v.Items()

	if n.MaxItems != nil && len(items) > *n.MaxItems {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "maxItems",
			Message: fmt.Sprintf("array has %d items, more than the maximum %d", len(items), *n.MaxItems),
		})
		if err != nil {
			return err
		}
	}
	if n.MinItems != nil && len(items) < *n.MinItems {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "minItems",
			Message: fmt.Sprintf("array has %d items, fewer than the minimum %d", len(items), *n.MinItems),
		})
		if err != nil {
			return err
		}
	}
	if n.UniqueItems {
		for i := 1; i < len(items); i++ {
			for j := 0; j < i; j++ {
				if value.Equal(items[j], items[i]) {
					err := r.report(diag.Diagnostic{
						Path:    path,
						Keyword: "uniqueItems",
						Message: fmt.Sprintf("items at indices %d and %d are equal", j, i),
					})
					if err != nil {
						return err
					}
					break
				}
			}
		}
	}

	switch {
	case n.ItemsAll >= 0:
		for i, item := range items {
			if err := r.evaluate(n.ItemsAll, item, path.Index(i), nil); err != nil {
				return err
			}
		}
	case n.ItemsTuple != nil:
		for i, item := range items {
			if i < len(n.ItemsTuple) {
				if err := r.evaluate(n.ItemsTuple[i], item, path.Index(i), nil); err != nil {
					return err
				}
				continue
			}
			if n.AdditionalItems < 0 {
				continue
			}
			if extra := r.e.doc.Node(n.AdditionalItems); extra.Bool != nil && !*extra.Bool {
				err := r.report(diag.Diagnostic{
					Path:    path.Index(i),
					Keyword: "additionalItems",
					Message: fmt.Sprintf("item %d is not permitted beyond the declared tuple of %d", i, len(n.ItemsTuple)),
				})
				if err != nil {
					return err
				}
				continue
			}
			if err := r.evaluate(n.AdditionalItems, item, path.Index(i), nil); err != nil {
				return err
			}
		}
	}

	if n.Contains >= 0 {
		found := false
		for i, item := range items {
			branch, err := r.probe(n.Contains, item, path.Index(i), nil)
			if err != nil {
				return err
			}
			if len(branch) == 0 {
				found = true
				break
			}
		}
		if !found {
			return r.report(diag.Diagnostic{
				Path:    path,
				Keyword: "contains",
				Message: "no array item matches the contains schema",
			})
		}
	}
	return nil
}

func (r *run) checkObject(n *schema.Node, v value.Value, path diag.Path) error {
	if v.Kind() != value.Object {
		return nil
	}
	members := v.Members()

	if n.MaxProperties != nil && len(members) > *n.MaxProperties {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "maxProperties",
			Message: fmt.Sprintf("object has %d properties, more than the maximum %d", len(members), *n.MaxProperties),
		})
		if err != nil {
			return err
		}
	}
	if n.MinProperties != nil && len(members) < *n.MinProperties {
		err := r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "minProperties",
			Message: fmt.Sprintf("object has %d properties, fewer than the minimum %d", len(members), *n.MinProperties),
		})
		if err != nil {
			return err
		}
	}
	for _, key := range n.Required {
		if _, ok := v.Member(key); !ok {
			err := r.report(diag.Diagnostic{
				Path:    path.Key(key),
				Keyword: "required",
				Message: fmt.Sprintf("missing required property %q", key),
			})
			if err != nil {
				return err
			}
		}
	}

	for _, m := range members {
		memberPath := path.Key(m.Key)
		matched := false

		for _, p := range n.Properties {
			if p.Key != m.Key {
				continue
			}
			matched = true
			if err := r.evaluate(p.Schema, m.Value, memberPath, nil); err != nil {
				return err
			}
			break
		}
		for _, pp := range n.PatternProperties {
			if !pp.Pattern.MatchString(m.Key) {
				continue
			}
			matched = true
			if err := r.evaluate(pp.Schema, m.Value, memberPath, nil); err != nil {
				return err
			}
		}

		if !matched && n.AdditionalProperties >= 0 {
			if extra := r.e.doc.Node(n.AdditionalProperties); extra.Bool != nil && !*extra.Bool {
				err := r.report(diag.Diagnostic{
					Path:    memberPath,
					Keyword: "additionalProperties",
					Message: fmt.Sprintf("property %q is not permitted", m.Key),
				})
				if err != nil {
					return err
				}
			} else if err := r.evaluate(n.AdditionalProperties, m.Value, memberPath, nil); err != nil {
				return err
			}
		}

		if n.PropertyNames >= 0 {
			if err := r.evaluate(n.PropertyNames, value.StringValue(m.Key), memberPath, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) checkCombinators(n *schema.Node, v value.Value, path diag.Path, visited map[int]struct{}) error {
	for _, idx := range n.AllOf {
		if err := r.evaluate(idx, v, path, visited); err != nil {
			return err
		}
	}

	if n.AnyOf != nil {
		matched := false
		var causes []diag.Diagnostic
		for _, idx := range n.AnyOf {
			branch, err := r.probe(idx, v, path, visited)
			if err != nil {
				return err
			}
			if len(branch) == 0 {
				matched = true
				break
			}
			causes = append(causes, branch[0])
		}
		if !matched {
			err := r.report(diag.Diagnostic{
				Path:    path,
				Keyword: "anyOf",
				Message: fmt.Sprintf("value does not match any of %d alternatives", len(n.AnyOf)),
				Causes:  causes,
			})
			if err != nil {
				return err
			}
		}
	}

	if n.OneOf != nil {
		matches := 0
		var causes []diag.Diagnostic
		for _, idx := range n.OneOf {
			branch, err := r.probe(idx, v, path, visited)
			if err != nil {
				return err
			}
			if len(branch) == 0 {
				matches++
				continue
			}
			causes = append(causes, branch[0])
		}
		switch {
		case matches == 0:
			err := r.report(diag.Diagnostic{
				Path:    path,
				Keyword: "oneOf",
				Message: "no branch matched",
				Causes:  causes,
			})
			if err != nil {
				return err
			}
		case matches > 1:
			err := r.report(diag.Diagnostic{
				Path:    path,
				Keyword: "oneOf",
				Message: fmt.Sprintf("%d branches matched, expected exactly 1", matches),
			})
			if err != nil {
				return err
			}
		}
	}

	if n.Not >= 0 {
		branch, err := r.probe(n.Not, v, path, visited)
		if err != nil {
			return err
		}
		if len(branch) == 0 {
			err := r.report(diag.Diagnostic{
				Path:    path,
				Keyword: "not",
				Message: "value matches the schema it must not match",
			})
			if err != nil {
				return err
			}
		}
	}

	if n.If >= 0 {
		branch, err := r.probe(n.If, v, path, visited)
		if err != nil {
			return err
		}
		if len(branch) == 0 {
			if n.Then >= 0 {
				return r.evaluate(n.Then, v, path, visited)
			}
		} else if n.Else >= 0 {
			return r.evaluate(n.Else, v, path, visited)
		}
	}
	return nil
}

func (r *run) checkRef(n *schema.Node, v value.Value, path diag.Path, visited map[int]struct{}) error {
	if n.Ref == "" {
		return nil
	}
	if n.RefNode < 0 {
		r.e.log.Trace().Str("ref", n.Ref).Str("path", path.String()).Msg("unresolved reference")
		return r.report(diag.Diagnostic{
			Path:    path,
			Keyword: "$ref",
			Message: fmt.Sprintf("reference %q does not resolve within the document", n.Ref),
		})
	}
	return r.evaluate(n.RefNode, v, path, visited)
}

// isMultiple reports whether n is a multiple of div. The exact rational
// quotient decides integral divisors; non-integral divisors accept a
// quotient within eps of a whole number, since such schemas are written
// against floating-point arithmetic.
func isMultiple(n, div *value.Num, eps float64) bool {
	q := new(big.Rat).Quo(n.Rat, div.Rat)
	if q.IsInt() {
		return true
	}
	if div.IsInt() {
		return false
	}
	f, _ := q.Float64()
	return math.Abs(f-math.Round(f)) <= eps
}

func renderEnum(allowed []value.Value) string {
	if len(allowed) > 4 {
		return fmt.Sprintf("the %d permitted values", len(allowed))
	}
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = a.JSON()
	}
	return strings.Join(parts, ", ")
}

func pointerDisplay(pointer string) string {
	return "#" + pointer
}
