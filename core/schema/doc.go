/*
Package schema compiles schema documents into an immutable graph of
constraint nodes.

A schema document is a JSON or YAML value in JSON Schema's structural
dialect: an object of constraint keywords, or the boolean shorthands true
(accept everything) and false (accept nothing). Parse walks the document
once and produces a Document, an arena of Node values addressed by integer
index. Nodes refer to their child schemas by arena index, never by
pointer, so self-referential and mutually referential documents carry no
ownership cycles and a compiled Document is safe to share across
goroutines.

# Keywords

Each Node carries the full fixed keyword set:

  - type:     one or more of null, boolean, object, array, number,
    string, integer
  - enum, const
  - multipleOf, maximum, exclusiveMaximum, minimum, exclusiveMinimum
  - minLength, maxLength, pattern
  - items (uniform or positional), additionalItems, minItems, maxItems,
    uniqueItems, contains
  - properties, patternProperties, additionalProperties, required,
    propertyNames, minProperties, maxProperties
  - allOf, anyOf, oneOf, not, if/then/else
  - $ref

Keywords outside this set are ignored, never rejected, so documents
written for richer dialects still compile.

# Document Pointers

Every node remembers the JSON Pointer of the schema text it was compiled
from ("", "/properties/name", "/definitions/node"). Resolve maps a
pointer back to its arena index; diagnostics and trace logs use the same
spelling.

# References

In-document "$ref" values ("#", "#/definitions/x") are resolved at
compile time by draining a worklist, so referenced-but-unlinked corners
of the document (definitions, $defs, or any other addressable subtree)
are compiled on demand. A reference whose target does not exist is not a
compile error: the node keeps RefNode == -1 and validation reports it at
the value path where the reference is first needed. A reference into
malformed schema text is a ParseError, since the text is part of the
document being compiled.

# Parse Errors

Structurally invalid keyword shapes (properties as an array, a required
entry that is not a string, multipleOf <= 0, an unknown type name, both
const and enum on one node) fail Parse with a *ParseError carrying the
document pointer of the offending text:

	doc, err := schema.Parse(v)
	var perr *schema.ParseError
	if errors.As(err, &perr) {
		fmt.Println(perr.Pointer, perr.Message)
	}

No partially compiled document is ever returned.
*/
package schema
