package document

import (
	"fmt"

	"gopkg.in/yaml.v3"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/rules"
)

// KeyExpectations is the top-level key of the flat document shape
const KeyExpectations = "expectations"

// Shape identifies which document layout was read
type Shape int

const (
	// ShapeFlat is the canonical `expectations:` list
	ShapeFlat Shape = iota
	// ShapeModels is the nested layout written by Serialize
	ShapeModels
)

// String returns the string representation of the shape
func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeModels:
		return "models"
	default:
		return "unknown"
	}
}

// Loaded is the result of decoding a document
type Loaded struct {
	Shape     Shape
	Model     string
	Instances []rules.Instance
}

// Load parses a document into a flat list of assertion instances. Both the
// flat `expectations` list and the nested models layout are accepted. Any
// failure is a MalformedDocument error and no partial result is returned.
func Load(text []byte) ([]rules.Instance, error) {
	loaded, err := Decode(text)
	if err != nil {
		return nil, err
	}
	return loaded.Instances, nil
}

// Decode is Load plus the detected shape and, for the models layout, the
// first model's name.
func Decode(text []byte) (*Loaded, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, dqerrors.MalformedDocument("not valid YAML", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, dqerrors.MalformedDocument("document is empty", nil)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: top level must be a mapping", root.Line), nil)
	}

	if list := lookup(root, KeyExpectations); list != nil {
		instances, err := decodeFlat(list)
		if err != nil {
			return nil, err
		}
		return &Loaded{Shape: ShapeFlat, Instances: instances}, nil
	}

	if models := lookup(root, "models"); models != nil {
		model, instances, err := flattenModels(models)
		if err != nil {
			return nil, err
		}
		return &Loaded{Shape: ShapeModels, Model: model, Instances: instances}, nil
	}

	return nil, dqerrors.MalformedDocument(fmt.Sprintf("expected a top-level %q or \"models\" key", KeyExpectations), nil)
}

// EncodeFlat writes instances in the canonical `expectations:` shape
func EncodeFlat(instances []rules.Instance) ([]byte, error) {
	list := sequenceNode()
	if len(instances) == 0 {
		list.Style = yaml.FlowStyle
	}
	for _, inst := range instances {
		node, err := inst.MarshalYAML()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", inst.Test, err)
		}
		list.Content = append(list.Content, node.(*yaml.Node))
	}

	root := mappingNode()
	root.Content = append(root.Content, rules.StringNode(KeyExpectations), list)
	return encode(root)
}

func decodeFlat(list *yaml.Node) ([]rules.Instance, error) {
	if isNull(list) {
		return []rules.Instance{}, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: %s must be a list", list.Line, KeyExpectations), nil)
	}

	instances := make([]rules.Instance, 0, len(list.Content))
	for _, item := range list.Content {
		var inst rules.Instance
		if err := item.Decode(&inst); err != nil {
			return nil, dqerrors.MalformedDocument(err.Error(), err)
		}
		if inst.Test == "" {
			return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: assertion has no test", item.Line), nil)
		}
		if err := inst.Validate(); err != nil {
			return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: %s", item.Line, err.Error()), err)
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func flattenModels(models *yaml.Node) (string, []rules.Instance, error) {
	if models.Kind != yaml.SequenceNode {
		return "", nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: models must be a list", models.Line), nil)
	}

	var name string
	instances := []rules.Instance{}

	for i, model := range models.Content {
		if model.Kind != yaml.MappingNode {
			return "", nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: model must be a mapping", model.Line), nil)
		}
		if i == 0 {
			if n := lookup(model, "name"); n != nil {
				name = n.Value
			}
		}

		if tests := lookup(model, "tests"); tests != nil {
			decoded, err := decodeTests(tests, "")
			if err != nil {
				return "", nil, err
			}
			instances = append(instances, decoded...)
		}

		columns := lookup(model, "columns")
		if columns == nil || isNull(columns) {
			continue
		}
		if columns.Kind != yaml.SequenceNode {
			return "", nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: columns must be a list", columns.Line), nil)
		}
		for _, column := range columns.Content {
			n := lookup(column, "name")
			if column.Kind != yaml.MappingNode || n == nil || n.Value == "" {
				return "", nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: column must have a name", column.Line), nil)
			}
			tests := lookup(column, "tests")
			if tests == nil {
				continue
			}
			decoded, err := decodeTests(tests, n.Value)
			if err != nil {
				return "", nil, err
			}
			instances = append(instances, decoded...)
		}
	}

	return name, instances, nil
}

// decodeTests reads a list of bare identifiers or {identifier: params}
// singletons. A non-empty column is prepended to every instance's params.
func decodeTests(tests *yaml.Node, column string) ([]rules.Instance, error) {
	if isNull(tests) {
		return nil, nil
	}
	if tests.Kind != yaml.SequenceNode {
		return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: tests must be a list", tests.Line), nil)
	}

	out := make([]rules.Instance, 0, len(tests.Content))
	for _, item := range tests.Content {
		inst := rules.Instance{}
		if column != "" {
			inst.Params.Set(rules.KeyColumn, column)
		}

		switch item.Kind {
		case yaml.ScalarNode:
			if item.Value == "" {
				return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: empty test", item.Line), nil)
			}
			inst.Test = item.Value
		case yaml.MappingNode:
			if len(item.Content) != 2 {
				return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: test must have exactly one identifier", item.Line), nil)
			}
			key, body := item.Content[0], item.Content[1]
			inst.Test = key.Value
			if err := decodeParams(body, &inst.Params, column != ""); err != nil {
				return nil, err
			}
		default:
			return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: unexpected test entry", item.Line), nil)
		}
		if err := inst.Validate(); err != nil {
			return nil, dqerrors.MalformedDocument(fmt.Sprintf("line %d: %s", item.Line, err.Error()), err)
		}

		out = append(out, inst)
	}
	return out, nil
}

// decodeParams reads a test body. The test key is never a parameter; inside
// a column's tests neither is column, since the enclosing column sets it.
func decodeParams(body *yaml.Node, params *rules.Params, inColumn bool) error {
	if isNull(body) {
		return nil
	}
	if body.Kind != yaml.MappingNode {
		return dqerrors.MalformedDocument(fmt.Sprintf("line %d: parameters must be a mapping", body.Line), nil)
	}
	for k := 0; k+1 < len(body.Content); k += 2 {
		key := body.Content[k]
		switch {
		case key.Value == rules.KeyTest:
			return dqerrors.MalformedDocument(fmt.Sprintf("line %d: %q is not allowed as a parameter", key.Line, rules.KeyTest), nil)
		case inColumn && key.Value == rules.KeyColumn:
			return dqerrors.MalformedDocument(fmt.Sprintf("line %d: %q is set by the enclosing column", key.Line, rules.KeyColumn), nil)
		}

		var v any
		if err := body.Content[k+1].Decode(&v); err != nil {
			return dqerrors.MalformedDocument(err.Error(), err)
		}
		params.Set(key.Value, v)
	}
	return nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping.Kind != yaml.MappingNode {
		return nil
	}
	for k := 0; k+1 < len(mapping.Content); k += 2 {
		if mapping.Content[k].Value == key {
			return mapping.Content[k+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
