package document

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/DataVisuals/expectations/internal/catalog"
	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/rules"
)

// Version is the schema version written at the top of every document
const Version = 2

// Serialize renders a partitioned registry as a versioned models document.
// Keys are emitted as version, models and then name, tests, columns within
// the model. Empty tests and columns keys are left out.
func Serialize(p Partitioned, modelName string) ([]byte, error) {
	model := mappingNode()
	model.Content = append(model.Content, rules.StringNode("name"), rules.StringNode(modelName))

	if len(p.Table) > 0 {
		tests := sequenceNode()
		for _, r := range p.Table {
			node, err := testNode(r.Test, r.Params)
			if err != nil {
				return nil, err
			}
			tests.Content = append(tests.Content, node)
		}
		model.Content = append(model.Content, rules.StringNode("tests"), tests)
	}

	if len(p.Columns) > 0 {
		columns := sequenceNode()
		for _, g := range p.Columns {
			tests := sequenceNode()
			for _, t := range g.Tests {
				node, err := testNode(t.Test, t.Params)
				if err != nil {
					return nil, err
				}
				tests.Content = append(tests.Content, node)
			}

			column := mappingNode()
			column.Content = append(column.Content,
				rules.StringNode("name"), rules.StringNode(g.Name),
				rules.StringNode("tests"), tests,
			)
			columns.Content = append(columns.Content, column)
		}
		model.Content = append(model.Content, rules.StringNode("columns"), columns)
	}

	models := sequenceNode()
	models.Content = append(models.Content, model)

	root := mappingNode()
	root.Content = append(root.Content,
		rules.StringNode("version"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(Version)},
		rules.StringNode("models"), models,
	)

	return encode(root)
}

// Compile partitions and serializes in one step
func Compile(instances []rules.Instance, modelName string) ([]byte, error) {
	return Serialize(Partition(instances), modelName)
}

// Validate reports every instance whose template is not in the catalog.
// Problems are returned rather than failing so partially valid documents
// can still be inspected.
func Validate(instances []rules.Instance, c *catalog.Catalog) []error {
	var problems []error
	for i, inst := range instances {
		if c.Exists(inst.Test) {
			continue
		}
		err := dqerrors.UnknownTemplate(inst.Test, c.Suggest(inst.Test))
		problems = append(problems, fmt.Errorf("rule %d: %w", i+1, err))
	}
	return problems
}

// testNode renders a bare identifier or a {identifier: params} singleton
func testNode(test string, params rules.Params) (*yaml.Node, error) {
	if params.Len() == 0 {
		return rules.StringNode(test), nil
	}

	body := mappingNode()
	for _, p := range params {
		value, err := rules.ValueNode(p.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %s: %w", test, p.Name, err)
		}
		body.Content = append(body.Content, rules.StringNode(p.Name), value)
	}

	node := mappingNode()
	node.Content = append(node.Content, rules.StringNode(test), body)
	return node, nil
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequenceNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func encode(root *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return buf.Bytes(), nil
}
