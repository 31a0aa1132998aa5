package conform

import (
	"fmt"

	"github.com/artpar/conform/core/schema"
	"github.com/artpar/conform/core/validation"
	"github.com/artpar/conform/core/value"
)

// Schema is a compiled schema document ready to check values. It is
// immutable after compilation and safe for concurrent use.
type Schema struct {
	doc    *schema.Document
	cfg    validation.Config
	engine *validation.Engine
}

// Compile parses a JSON schema document and compiles it into a reusable
// Schema. Options fix the defaults every validation against the schema
// starts from.
func Compile(data []byte, opts ...Option) (*Schema, error) {
	doc, err := value.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}
	return CompileValue(doc, opts...)
}

// CompileYAML is Compile for a YAML schema document.
func CompileYAML(data []byte, opts ...Option) (*Schema, error) {
	doc, err := value.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}
	return CompileValue(doc, opts...)
}

// CompileValue compiles an already decoded schema document.
func CompileValue(doc value.Value, opts ...Option) (*Schema, error) {
	compiled, err := schema.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	cfg := applyOptions(validation.Config{}, opts)
	return &Schema{
		doc:    compiled,
		cfg:    cfg,
		engine: validation.New(compiled, cfg),
	}, nil
}

// MustCompile is Compile that panics on error, for schemas fixed at
// program start.
func MustCompile(data []byte, opts ...Option) *Schema {
	s, err := Compile(data, opts...)
	if err != nil {
		panic("conform: MustCompile: " + err.Error())
	}
	return s
}

// Validate decodes a JSON value and checks it against the schema. The
// error is non-nil for undecodable input or an exceeded depth bound;
// every conformance failure is reported inside the Result instead.
func (s *Schema) Validate(data []byte, opts ...Option) (Result, error) {
	v, err := value.DecodeJSON(data)
	if err != nil {
		return Result{}, fmt.Errorf("decode value: %w", err)
	}
	return s.ValidateValue(v, opts...)
}

// ValidateYAML is Validate for a YAML value document.
func (s *Schema) ValidateYAML(data []byte, opts ...Option) (Result, error) {
	v, err := value.DecodeYAML(data)
	if err != nil {
		return Result{}, fmt.Errorf("decode value: %w", err)
	}
	return s.ValidateValue(v, opts...)
}

// ValidateValue checks an already decoded value against the schema.
// Options override the schema's defaults for this call only.
func (s *Schema) ValidateValue(v value.Value, opts ...Option) (Result, error) {
	engine := s.engine
	if len(opts) > 0 {
		engine = validation.New(s.doc, applyOptions(s.cfg, opts))
	}
	diags, err := engine.Evaluate(v)
	if err != nil {
		return Result{}, fmt.Errorf("validate: %w", err)
	}
	return Result{diags: diags}, nil
}

// Validate compiles a JSON schema document and checks a single JSON
// value against it. For repeated checks, compile once and reuse the
// Schema.
func Validate(schemaData, valueData []byte, opts ...Option) (Result, error) {
	s, err := Compile(schemaData, opts...)
	if err != nil {
		return Result{}, err
	}
	return s.Validate(valueData)
}
