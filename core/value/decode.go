package value

import (
	"fmt"

	"github.com/go-faster/jx"
)

// DuplicateKeyError reports an object with two members sharing a key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate object key %q", e.Key)
}

// DecodeJSON parses a single JSON document into a Value. Object member
// order is preserved, duplicate keys are rejected, and trailing data
// after the top-level value is an error.
func DecodeJSON(data []byte) (Value, error) {
	d := jx.DecodeBytes(data)
	v, err := decode(d)
	if err != nil {
		return Value{}, err
	}
	if d.Next() != jx.Invalid {
		return Value{}, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decode(d *jx.Decoder) (Value, error) {
	switch d.Next() {
	case jx.Null:
		if err := d.Null(); err != nil {
			return Value{}, fmt.Errorf("decoding null: %w", err)
		}
		return NullValue(), nil
	case jx.Bool:
		b, err := d.Bool()
		if err != nil {
			return Value{}, fmt.Errorf("decoding boolean: %w", err)
		}
		return BoolValue(b), nil
	case jx.Number:
		num, err := d.Num()
		if err != nil {
			return Value{}, fmt.Errorf("decoding number: %w", err)
		}
		n, err := ParseNum(num.String())
		if err != nil {
			return Value{}, err
		}
		return NumValue(n), nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return Value{}, fmt.Errorf("decoding string: %w", err)
		}
		return StringValue(s), nil
	case jx.Array:
		var items []Value
		if err := d.Arr(func(d *jx.Decoder) error {
			item, err := decode(d)
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		}); err != nil {
			return Value{}, fmt.Errorf("decoding array: %w", err)
		}
		return ArrayValue(items), nil
	case jx.Object:
		var members []Member
		seen := make(map[string]struct{})
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			if _, dup := seen[key]; dup {
				return &DuplicateKeyError{Key: key}
			}
			seen[key] = struct{}{}
			m, err := decode(d)
			if err != nil {
				return err
			}
			members = append(members, Member{Key: key, Value: m})
			return nil
		}); err != nil {
			return Value{}, fmt.Errorf("decoding object: %w", err)
		}
		return ObjectValue(members), nil
	default:
		if err := d.Skip(); err != nil {
			return Value{}, fmt.Errorf("decoding value: %w", err)
		}
		return Value{}, fmt.Errorf("unexpected token")
	}
}
