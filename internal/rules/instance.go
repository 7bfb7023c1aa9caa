package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
)

// Instance is one parameterized use of a template. The presence of a
// "column" parameter makes it column-scoped; otherwise it is table-scoped.
type Instance struct {
	Test   string
	Params Params
}

// NewInstance creates an instance from alternating name/value pairs
func NewInstance(test string, kv ...any) Instance {
	inst := Instance{Test: test}
	for i := 0; i+1 < len(kv); i += 2 {
		inst.Params.Set(cast.ToString(kv[i]), kv[i+1])
	}
	return inst
}

// Column returns the target column of a column-scoped instance
func (i Instance) Column() (string, bool) {
	v, ok := i.Params.Get(KeyColumn)
	if !ok {
		return "", false
	}
	return cast.ToString(v), true
}

// Validate checks the shape every stored instance must have: a test
// identifier, no parameter shadowing it, and a non-empty column when one is
// given.
func (i Instance) Validate() error {
	if i.Test == "" {
		return dqerrors.MissingTest()
	}
	if i.Params.Has(KeyTest) {
		return dqerrors.InvalidParameter(KeyTest, "reserved for the template identifier")
	}
	if col, ok := i.Column(); ok && strings.TrimSpace(col) == "" {
		return dqerrors.InvalidParameter(KeyColumn, "must name a column")
	}
	return nil
}

// IsColumnScoped reports whether the instance targets a column
func (i Instance) IsColumnScoped() bool {
	return i.Params.Has(KeyColumn)
}

// Clone returns a deep copy
func (i Instance) Clone() Instance {
	return Instance{Test: i.Test, Params: i.Params.Clone()}
}

// String renders the instance as a one-line flow mapping for listings
func (i Instance) String() string {
	node, err := i.MarshalYAML()
	if err != nil {
		return i.Test
	}
	node.(*yaml.Node).Style = yaml.FlowStyle

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(node); err != nil {
		return i.Test
	}
	enc.Close()
	return string(bytes.TrimSpace(buf.Bytes()))
}

// MarshalYAML renders {test: id, <param>: value ...} with parameter order preserved
func (i Instance) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	node.Content = append(node.Content, StringNode(KeyTest), StringNode(i.Test))

	for _, p := range i.Params {
		if p.Name == KeyTest {
			return nil, fmt.Errorf("parameter %s: reserved for the template identifier", KeyTest)
		}
		value, err := ValueNode(p.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		node.Content = append(node.Content, StringNode(p.Name), value)
	}
	return node, nil
}

// UnmarshalYAML reads a mapping, keeping key order
func (i *Instance) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: assertion must be a mapping", node.Line)
	}

	var out Instance
	seenTest := false
	for k := 0; k+1 < len(node.Content); k += 2 {
		key, val := node.Content[k], node.Content[k+1]

		if key.Value == KeyTest {
			if seenTest {
				return fmt.Errorf("line %d: test given more than once", key.Line)
			}
			seenTest = true
			if err := val.Decode(&out.Test); err != nil {
				return fmt.Errorf("line %d: test must be a string: %w", val.Line, err)
			}
			continue
		}

		var v any
		if err := val.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", val.Line, err)
		}
		out.Params.Set(key.Value, v)
	}

	*i = out
	return nil
}

// MarshalJSON renders an ordered JSON object with "test" first
func (i Instance) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writePair := func(name string, value any) error {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := writePair(KeyTest, i.Test); err != nil {
		return nil, err
	}
	for _, p := range i.Params {
		if p.Name == KeyTest {
			return nil, fmt.Errorf("parameter %s: reserved for the template identifier", KeyTest)
		}
		buf.WriteByte(',')
		if err := writePair(p.Name, p.Value); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping key order. Whole numbers decode as int.
func (i *Instance) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("assertion must be a JSON object")
	}

	var out Instance
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("parameter %s: %w", name, err)
		}

		if name == KeyTest {
			if out.Test != "" {
				return fmt.Errorf("test given more than once")
			}
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("test must be a string")
			}
			out.Test = s
			continue
		}
		out.Params.Set(name, normalizeJSON(raw))
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return err
	}

	*i = out
	return nil
}

func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		f, _ := val.Float64()
		return f
	case []any:
		for k := range val {
			val[k] = normalizeJSON(val[k])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeJSON(val[k])
		}
		return val
	default:
		return v
	}
}

// StringNode returns a plain string scalar node
func StringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// ValueNode encodes an arbitrary parameter value into a YAML node
func ValueNode(v any) (*yaml.Node, error) {
	if n, ok := v.(*yaml.Node); ok {
		return n, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	return node, nil
}
