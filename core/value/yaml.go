package value

import (
	"fmt"
	"math/big"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a YAML document into a Value using the JSON data
// model. Anchors and aliases are resolved, member order is preserved,
// and duplicate keys are rejected. Tags outside the JSON model, such as
// timestamps or non-finite floats, are errors.
func DecodeYAML(data []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Value{}, fmt.Errorf("parsing yaml: %w", err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return NullValue(), nil
		}
		node = node.Content[0]
	}
	if node.Kind == 0 {
		return NullValue(), nil
	}
	w := &yamlWalker{resolving: make(map[*yaml.Node]bool)}
	return w.value(node)
}

// yamlWalker tracks alias targets on the current resolution path so a
// self-referential anchor cannot recurse forever.
type yamlWalker struct {
	resolving map[*yaml.Node]bool
}

func (w *yamlWalker) value(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return Value{}, fmt.Errorf("unresolved yaml alias %q at line %d", n.Value, n.Line)
		}
		if w.resolving[n.Alias] {
			return Value{}, fmt.Errorf("yaml alias cycle through anchor %q at line %d", n.Value, n.Line)
		}
		w.resolving[n.Alias] = true
		v, err := w.value(n.Alias)
		delete(w.resolving, n.Alias)
		return v, err
	case yaml.ScalarNode:
		return yamlScalar(n)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := w.value(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return ArrayValue(items), nil
	case yaml.MappingNode:
		members := make([]Member, 0, len(n.Content)/2)
		seen := make(map[string]struct{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := w.key(n.Content[i])
			if err != nil {
				return Value{}, err
			}
			if _, dup := seen[key]; dup {
				return Value{}, &DuplicateKeyError{Key: key}
			}
			seen[key] = struct{}{}
			val, err := w.value(n.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			members = append(members, Member{Key: key, Value: val})
		}
		return ObjectValue(members), nil
	default:
		return Value{}, fmt.Errorf("unsupported yaml node kind %d at line %d", n.Kind, n.Line)
	}
}

func (w *yamlWalker) key(n *yaml.Node) (string, error) {
	if n.Kind == yaml.AliasNode {
		if n.Alias == nil {
			return "", fmt.Errorf("unresolved yaml alias %q at line %d", n.Value, n.Line)
		}
		return w.key(n.Alias)
	}
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("unsupported non-scalar mapping key at line %d", n.Line)
	}
	return n.Value, nil
}

func yamlScalar(n *yaml.Node) (Value, error) {
	switch n.Tag {
	case "!!null":
		return NullValue(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("parsing yaml bool at line %d: %w", n.Line, err)
		}
		return BoolValue(b), nil
	case "!!int":
		i, ok := new(big.Int).SetString(n.Value, 0)
		if !ok {
			return Value{}, fmt.Errorf("parsing yaml integer %q at line %d", n.Value, n.Line)
		}
		return NumValue(&Num{Rat: new(big.Rat).SetInt(i), Raw: i.String()}), nil
	case "!!float":
		if num, err := ParseNum(n.Value); err == nil {
			return NumValue(num), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("parsing yaml float at line %d: %w", n.Line, err)
		}
		rat := new(big.Rat).SetFloat64(f)
		if rat == nil {
			return Value{}, fmt.Errorf("yaml float %q at line %d has no finite value", n.Value, n.Line)
		}
		return NumValue(&Num{Rat: rat, Raw: strconv.FormatFloat(f, 'g', -1, 64)}), nil
	case "!!str":
		return StringValue(n.Value), nil
	default:
		return Value{}, fmt.Errorf("unsupported yaml tag %s at line %d", n.Tag, n.Line)
	}
}
