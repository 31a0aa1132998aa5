// Package value models decoded JSON documents as an immutable tree.
// Object members keep their document order, and numbers keep both their
// exact rational value and their original lexical form.
package value

import (
	"math/big"
	"strconv"

	"github.com/go-faster/jx"
)

// Kind identifies the JSON type of a Value.
type Kind uint8

const (
	Invalid Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

// String returns the JSON type name.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "invalid"
	}
}

// Num is a JSON number with exact rational semantics. Raw preserves the
// lexical form from the source document for display.
type Num struct {
	Rat *big.Rat
	Raw string
}

// ParseNum parses a JSON number literal into its exact rational value.
func ParseNum(text string) (*Num, error) {
	rat, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, &NumError{Text: text}
	}
	return &Num{Rat: rat, Raw: text}, nil
}

// NumError reports a number literal that could not be parsed.
type NumError struct {
	Text string
}

func (e *NumError) Error() string {
	return "invalid number literal " + strconv.Quote(e.Text)
}

// IsInt reports whether the number is mathematically an integer.
// The lexical form does not matter: 1, 1.0 and 1e0 are all integers.
func (n *Num) IsInt() bool {
	return n.Rat.IsInt()
}

// Cmp compares two numbers by mathematical value.
func (n *Num) Cmp(other *Num) int {
	return n.Rat.Cmp(other.Rat)
}

// Float64 returns the nearest float64 approximation.
func (n *Num) Float64() float64 {
	f, _ := n.Rat.Float64()
	return f
}

// String returns the original lexical form.
func (n *Num) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return n.Rat.RatString()
}

// Member is one object member. Keys within an object are unique.
type Member struct {
	Key   string
	Value Value
}

// Value is one node of a decoded document. The zero value is Invalid.
type Value struct {
	kind Kind
	b    bool
	n    *Num
	s    string
	a    []Value
	o    []Member
}

// NullValue returns the JSON null.
func NullValue() Value {
	return Value{kind: Null}
}

// BoolValue returns a JSON boolean.
func BoolValue(b bool) Value {
	return Value{kind: Bool, b: b}
}

// NumValue returns a JSON number. n must be non-nil.
func NumValue(n *Num) Value {
	return Value{kind: Number, n: n}
}

// StringValue returns a JSON string.
func StringValue(s string) Value {
	return Value{kind: String, s: s}
}

// ArrayValue returns a JSON array. The slice is adopted, not copied.
func ArrayValue(items []Value) Value {
	return Value{kind: Array, a: items}
}

// ObjectValue returns a JSON object. The slice is adopted, not copied;
// keys must be unique.
func ObjectValue(members []Member) Value {
	return Value{kind: Object, o: members}
}

// Kind returns the JSON type of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Bool returns the boolean payload. Valid only for Bool values.
func (v Value) Bool() bool {
	return v.b
}

// Num returns the number payload. Valid only for Number values.
func (v Value) Num() *Num {
	return v.n
}

// Str returns the string payload. Valid only for String values.
func (v Value) Str() string {
	return v.s
}

// Items returns the array elements in document order.
func (v Value) Items() []Value {
	return v.a
}

// Members returns the object members in document order.
func (v Value) Members() []Member {
	return v.o
}

// Member looks up an object member by key.
func (v Value) Member(key string) (Value, bool) {
	for _, m := range v.o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Equal reports deep structural equality. Numbers compare by mathematical
// value, so 1 and 1.0 are equal. Object member order is insignificant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.n.Cmp(b.n) == 0
	case String:
		return a.s == b.s
	case Array:
		if len(a.a) != len(b.a) {
			return false
		}
		for i := range a.a {
			if !Equal(a.a[i], b.a[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.o) != len(b.o) {
			return false
		}
		for _, m := range a.o {
			other, ok := b.Member(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// JSON renders the value as compact JSON, keeping member order and the
// original number text.
func (v Value) JSON() string {
	var e jx.Encoder
	v.encode(&e)
	return e.String()
}

func (v Value) encode(e *jx.Encoder) {
	switch v.kind {
	case Null:
		e.Null()
	case Bool:
		e.Bool(v.b)
	case Number:
		e.Num(jx.Num(v.n.String()))
	case String:
		e.Str(v.s)
	case Array:
		e.ArrStart()
		for _, item := range v.a {
			item.encode(e)
		}
		e.ArrEnd()
	case Object:
		e.ObjStart()
		for _, m := range v.o {
			e.FieldStart(m.Key)
			m.Value.encode(e)
		}
		e.ObjEnd()
	default:
		e.Null()
	}
}
