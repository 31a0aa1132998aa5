/*
Package conform checks JSON values against JSON Schema documents.

A schema document is compiled once into an immutable graph and then used
to validate any number of values, concurrently if needed. Validation
reports every constraint a value breaks as a path-qualified diagnostic;
it never mutates the value and never stops at the first failure unless
asked to.

# Basic use

Compile a schema, then validate values against it:

	s, err := conform.Compile([]byte(`{
	    "type": "object",
	    "properties": {"name": {"type": "string", "minLength": 1}},
	    "required": ["name"]
	}`))
	if err != nil {
	    // the schema document itself is malformed
	}

	res, err := s.Validate([]byte(`{"name": ""}`))
	if err != nil {
	    // undecodable input or exceeded depth bound
	}
	for _, d := range res.Diagnostics() {
	    fmt.Println(d) // /name: minLength: string length 0 is below the minimum length 1
	}

Schema and value documents may also be YAML (CompileYAML, ValidateYAML);
they are decoded into the same value model.

# Keywords

The compiler recognizes the structural keyword set: type, enum, const,
multipleOf, maximum, exclusiveMaximum, minimum, exclusiveMinimum,
minLength, maxLength, pattern, items (uniform or positional),
additionalItems, minItems, maxItems, uniqueItems, contains, properties,
patternProperties, additionalProperties, propertyNames, required,
minProperties, maxProperties, allOf, anyOf, oneOf, not, if/then/else,
$ref, and the definitions/$defs tables. Boolean documents are schemas:
true admits everything, false admits nothing. Unknown keywords are
ignored, never rejected.

Numbers compare mathematically: 1, 1.0 and 1e0 are the same value for
enum, const, uniqueItems and the integer type. String lengths count
Unicode code points. Patterns use unanchored search and accept the
ECMA 262 \/ escape.

# References

$ref resolves JSON Pointers inside the compiled document ("#",
"#/definitions/node"). A pointer that leads outside the document or to
a missing location is not a compile error: the branch reports a
dangling-reference diagnostic if validation ever reaches it, and every
other branch keeps working. Reference cycles are permitted; a cycle is
reported only when it recurs on the same value without consuming any
of its structure.

# Options

Options passed to Compile become the schema's defaults; passed to a
Validate call they override the defaults for that call:

	s, _ := conform.Compile(doc, conform.WithMaxDepth(50))
	res, _ := s.Validate(v, conform.WithFailFast())

# Packages

The root package is the public surface. The concern packages underneath
can be used directly when more control is needed:

  - core/value:      decoded JSON/YAML values, exact numbers
  - core/schema:     schema compilation and the pointer index
  - core/validation: the evaluation engine
  - core/diag:       diagnostics, paths, ordering rules
  - core/registry:   named schemas, directory loading, hot reload
  - core/storage:    schema document stores (memory, SQLite)
  - core/metrics:    Prometheus observer
  - core/formatter:  table, JSON and YAML report rendering
  - core/testgen:    fixture generation from compiled schemas
*/
package conform
