package conform_test

import (
	"fmt"

	"github.com/artpar/conform"
)

func ExampleSchema_Validate() {
	s, err := conform.Compile([]byte(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"age": {"type": "integer", "minimum": 0}
		},
		"required": ["name"]
	}`))
	if err != nil {
		fmt.Println("compile:", err)
		return
	}

	res, err := s.Validate([]byte(`{"age": -3}`))
	if err != nil {
		fmt.Println("validate:", err)
		return
	}
	for _, d := range res.Diagnostics() {
		fmt.Println(d)
	}
	// Output:
	// /age: minimum: -3 is below the minimum 0
	// /name: required: missing required property "name"
}

func ExampleValidate() {
	res, err := conform.Validate(
		[]byte(`{"enum": ["red", "green", "blue"]}`),
		[]byte(`"yellow"`),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(res.Conforms())
	fmt.Println(res.Diagnostics()[0])
	// Output:
	// false
	// document root: enum: value is not one of "red", "green", "blue"
}

func ExampleCompile_malformedSchema() {
	_, err := conform.Compile([]byte(`{"type": "everything"}`))
	fmt.Println(err)
	// Output: compile schema: schema parse error at "#/type": unknown type name "everything"
}

func ExampleCompileYAML() {
	s, err := conform.CompileYAML([]byte(`
type: object
properties:
  replicas:
    type: integer
    minimum: 1
required: [replicas]
`))
	if err != nil {
		fmt.Println("compile:", err)
		return
	}

	res, err := s.ValidateYAML([]byte(`replicas: 3`))
	if err != nil {
		fmt.Println("validate:", err)
		return
	}
	fmt.Println(res.Conforms())
	// Output: true
}
