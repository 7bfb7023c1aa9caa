package document

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/DataVisuals/expectations/internal/catalog"
	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/rules"
)

func scenario() []rules.Instance {
	return []rules.Instance{
		rules.NewInstance("expect_column_to_exist", "column", "id"),
		rules.NewInstance("expect_table_row_count_to_be_nonzero"),
		rules.NewInstance("expect_column_values_to_be_between", "column", "age", "min_value", 0, "max_value", 120),
	}
}

// keys returns the keys of a mapping node in document order
func keys(t *testing.T, n *yaml.Node) []string {
	t.Helper()
	require.Equal(t, yaml.MappingNode, n.Kind)
	var out []string
	for k := 0; k < len(n.Content); k += 2 {
		out = append(out, n.Content[k].Value)
	}
	return out
}

func parse(t *testing.T, out []byte) (*yaml.Node, map[string]any) {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(out, &doc))
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(out, &generic))
	return doc.Content[0], generic
}

func TestPartition_Scenario(t *testing.T) {
	p := Partition(scenario())

	require.Len(t, p.Table, 1)
	assert.Equal(t, "expect_table_row_count_to_be_nonzero", p.Table[0].Test)
	assert.Equal(t, 0, p.Table[0].Params.Len())

	require.Len(t, p.Columns, 2)
	assert.Equal(t, "id", p.Columns[0].Name)
	require.Len(t, p.Columns[0].Tests, 1)
	assert.Equal(t, "expect_column_to_exist", p.Columns[0].Tests[0].Test)
	assert.True(t, p.Columns[0].Tests[0].Bare())

	age, ok := p.Column("age")
	require.True(t, ok)
	require.Len(t, age.Tests, 1)
	assert.Equal(t, "expect_column_values_to_be_between", age.Tests[0].Test)
	assert.Equal(t, map[string]any{"min_value": 0, "max_value": 120}, age.Tests[0].Params.Map())
	assert.Equal(t, []string{"min_value", "max_value"}, age.Tests[0].Params.Names())
}

func TestPartition_Discriminant(t *testing.T) {
	instances := []rules.Instance{
		rules.NewInstance("a", "column", "x"),
		rules.NewInstance("b", "row_condition", "x > 1"),
		rules.NewInstance("c", "column", "y", "strictly", false),
		rules.NewInstance("d", "column_list", []string{"x", "y"}),
	}

	p := Partition(instances)

	var table []string
	for _, r := range p.Table {
		table = append(table, r.Test)
	}
	var columns []string
	for _, g := range p.Columns {
		for _, ct := range g.Tests {
			columns = append(columns, ct.Test)
		}
	}

	assert.Equal(t, []string{"b", "d"}, table)
	assert.Equal(t, []string{"a", "c"}, columns)

	b, ok := p.TableRule("b")
	require.True(t, ok)
	assert.Equal(t, []string{"row_condition"}, b.Params.Names())
}

func TestPartition_TableCollapsing(t *testing.T) {
	p := Partition([]rules.Instance{
		rules.NewInstance("expect_table_row_count_to_be_between", "min_value", 1),
		rules.NewInstance("expect_table_column_count_to_be_between", "min_value", 2),
		rules.NewInstance("expect_table_row_count_to_be_between", "min_value", 10, "max_value", 20),
	})

	require.Len(t, p.Table, 2)
	assert.Equal(t, "expect_table_row_count_to_be_between", p.Table[0].Test)
	assert.Equal(t, map[string]any{"min_value": 10, "max_value": 20}, p.Table[0].Params.Map())
	assert.Equal(t, "expect_table_column_count_to_be_between", p.Table[1].Test)
}

func TestPartition_ColumnGroupingOrder(t *testing.T) {
	p := Partition([]rules.Instance{
		rules.NewInstance("one", "column", "b"),
		rules.NewInstance("two", "column", "a"),
		rules.NewInstance("three", "column", "b"),
		rules.NewInstance("one", "column", "b", "row_condition", "b > 0"),
	})

	require.Len(t, p.Columns, 2)
	assert.Equal(t, "b", p.Columns[0].Name)
	assert.Equal(t, "a", p.Columns[1].Name)

	var got []string
	for _, ct := range p.Columns[0].Tests {
		got = append(got, ct.Test)
	}
	assert.Equal(t, []string{"one", "three", "one"}, got, "column tests never collapse")
}

func TestPartition_DoesNotMutateInput(t *testing.T) {
	instances := scenario()
	Partition(instances)

	col, ok := instances[0].Column()
	assert.True(t, ok)
	assert.Equal(t, "id", col)
}

func TestSerialize_Scenario(t *testing.T) {
	out, err := Compile(scenario(), "people")
	require.NoError(t, err)

	root, generic := parse(t, out)
	assert.Equal(t, []string{"version", "models"}, keys(t, root))

	model := root.Content[3].Content[0]
	assert.Equal(t, []string{"name", "tests", "columns"}, keys(t, model))

	want := map[string]any{
		"version": 2,
		"models": []any{
			map[string]any{
				"name":  "people",
				"tests": []any{"expect_table_row_count_to_be_nonzero"},
				"columns": []any{
					map[string]any{"name": "id", "tests": []any{"expect_column_to_exist"}},
					map[string]any{"name": "age", "tests": []any{
						map[string]any{"expect_column_values_to_be_between": map[string]any{"min_value": 0, "max_value": 120}},
					}},
				},
			},
		},
	}
	if diff := cmp.Diff(want, generic); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, string(out), "version: 2\nmodels:\n")
}

func TestSerialize_ParamOrderFollowsInsertion(t *testing.T) {
	out, err := Compile([]rules.Instance{
		rules.NewInstance("expect_column_values_to_be_between", "column", "age", "max_value", 120, "min_value", 0, "row_condition", "age > 0"),
	}, "people")
	require.NoError(t, err)

	root, _ := parse(t, out)
	model := root.Content[3].Content[0]
	columns := model.Content[3]
	tests := columns.Content[0].Content[3]
	body := tests.Content[0].Content[1]
	assert.Equal(t, []string{"max_value", "min_value", "row_condition"}, keys(t, body))
}

func TestSerialize_Omission(t *testing.T) {
	tests := []struct {
		name      string
		instances []rules.Instance
		want      []string
	}{
		{"empty", nil, []string{"name"}},
		{"table only", []rules.Instance{rules.NewInstance("t")}, []string{"name", "tests"}},
		{"columns only", []rules.Instance{rules.NewInstance("c", "column", "x")}, []string{"name", "columns"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compile(tt.instances, "m")
			require.NoError(t, err)
			root, _ := parse(t, out)
			assert.Equal(t, tt.want, keys(t, root.Content[3].Content[0]))
		})
	}
}

func TestSerialize_TableRuleWithParams(t *testing.T) {
	out, err := Compile([]rules.Instance{
		rules.NewInstance("expect_table_row_count_to_be_between", "min_value", 1, "max_value", 5),
		rules.NewInstance("expect_table_columns_to_match_set", "column_set", []string{"a", "b"}),
	}, "m")
	require.NoError(t, err)

	_, generic := parse(t, out)
	model := generic["models"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{
		map[string]any{"expect_table_row_count_to_be_between": map[string]any{"min_value": 1, "max_value": 5}},
		map[string]any{"expect_table_columns_to_match_set": map[string]any{"column_set": []any{"a", "b"}}},
	}, model["tests"])
}

func TestValidate(t *testing.T) {
	instances := []rules.Instance{
		rules.NewInstance(catalog.Namespace+".expect_column_to_exist", "column", "id"),
		rules.NewInstance(catalog.Namespace+".expect_column_to_exits", "column", "id"),
		rules.NewInstance("made_up"),
	}

	problems := Validate(instances, catalog.Default())
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0].Error(), "rule 2")
	assert.True(t, dqerrors.HasCode(problems[0], dqerrors.ErrUnknownTemplate))

	re, ok := dqerrors.As(problems[0])
	require.True(t, ok)
	assert.Contains(t, re.Suggestions, catalog.Namespace+".expect_column_to_exist")
}

func TestLoad_Flat(t *testing.T) {
	text := []byte(`
expectations:
  - test: expect_column_to_exist
    column: id
  - test: expect_table_row_count_to_be_nonzero
  - test: expect_column_values_to_be_in_set
    column: status
    value_set: [a, b]
    strictly: false
`)

	instances, err := Load(text)
	require.NoError(t, err)
	require.Len(t, instances, 3)

	assert.Equal(t, "expect_column_to_exist", instances[0].Test)
	assert.Equal(t, []string{"column"}, instances[0].Params.Names())
	assert.Equal(t, 0, instances[1].Params.Len())
	assert.Equal(t, []string{"column", "value_set", "strictly"}, instances[2].Params.Names())

	v, _ := instances[2].Params.Get("value_set")
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestLoad_EmptyExpectations(t *testing.T) {
	instances, err := Load([]byte("expectations:\n"))
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not yaml", "expectations: [unclosed"},
		{"empty", ""},
		{"scalar top level", "just a string"},
		{"list top level", "- test: a"},
		{"missing keys", "version: 2"},
		{"expectations not a list", "expectations: nope"},
		{"item without test", "expectations:\n  - column: id"},
		{"item not a mapping", "expectations:\n  - plain"},
		{"models not a list", "models: nope"},
		{"column without name", "models:\n  - name: m\n    columns:\n      - tests: [a]"},
		{"test with two identifiers", "models:\n  - name: m\n    tests:\n      - {a: {x: 1}, b: {y: 2}}"},
		{"params not a mapping", "models:\n  - name: m\n    tests:\n      - a: [1, 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.text))
			require.Error(t, err)
			assert.Equal(t, dqerrors.ErrMalformedDocument, dqerrors.Code(err))
		})
	}
}

func TestLoad_FailureLeavesRegistryUnchanged(t *testing.T) {
	reg, err := rules.NewRegistry(scenario()...)
	require.NoError(t, err)
	before := reg.All()

	instances, err := Load([]byte("{{{ not a document"))
	require.Error(t, err)
	assert.Nil(t, instances)
	assert.True(t, dqerrors.HasCode(err, dqerrors.ErrMalformedDocument))
	assert.Equal(t, before, reg.All())
}

func TestLoad_ModelsRoundTrip(t *testing.T) {
	original := []rules.Instance{
		rules.NewInstance("expect_column_to_exist", "column", "id"),
		rules.NewInstance("expect_table_row_count_to_be_nonzero"),
		rules.NewInstance("expect_column_values_to_be_between", "column", "age", "min_value", 0, "max_value", 120),
		rules.NewInstance("expect_column_values_to_be_unique", "column", "id", "row_condition", "id is not null"),
	}

	out, err := Compile(original, "people")
	require.NoError(t, err)

	loaded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, ShapeModels, loaded.Shape)
	assert.Equal(t, "people", loaded.Model)

	// table rules come first, then column rules grouped by column
	want := []rules.Instance{original[1], original[0], original[3], original[2]}
	if diff := cmp.Diff(want, loaded.Instances); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := Compile(loaded.Instances, "people")
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestDecode_ModelsReinsertColumn(t *testing.T) {
	loaded, err := Decode([]byte("models:\n  - name: m\n    columns:\n      - name: x\n        tests:\n          - a\n          - b: {n: 3}\n"))
	require.NoError(t, err)
	assert.Equal(t, ShapeModels, loaded.Shape)
	assert.Equal(t, "m", loaded.Model)
	require.Len(t, loaded.Instances, 2)
	assert.Equal(t, []string{"column"}, loaded.Instances[0].Params.Names())
	assert.Equal(t, []string{"column", "n"}, loaded.Instances[1].Params.Names())

	loaded, err = Decode([]byte("expectations: []"))
	require.NoError(t, err)
	assert.Equal(t, ShapeFlat, loaded.Shape)
}

func TestDecode_RejectsReservedKeysInTestBodies(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "test key in table test",
			doc:  "models:\n  - name: m\n    tests:\n      - dbt_expectations.expect_table_row_count_to_equal_other_table:\n          compare_model: ref('o')\n          test: other\n",
		},
		{
			name: "test key in column test",
			doc:  "models:\n  - name: m\n    columns:\n      - name: a\n        tests:\n          - dbt_expectations.expect_column_to_exist:\n              test: other\n",
		},
		{
			name: "column key in column test",
			doc:  "models:\n  - name: m\n    columns:\n      - name: a\n        tests:\n          - dbt_expectations.expect_column_values_to_be_unique:\n              column: b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instances, err := Load([]byte(tt.doc))
			assert.Nil(t, instances)
			assert.True(t, dqerrors.HasCode(err, dqerrors.ErrMalformedDocument), "got %v", err)
		})
	}
}

func TestDecode_RejectsEmptyColumn(t *testing.T) {
	for _, doc := range []string{
		"expectations:\n  - test: dbt_expectations.expect_column_to_exist\n    column: null\n",
		"expectations:\n  - test: dbt_expectations.expect_column_to_exist\n    column: \"\"\n",
		"models:\n  - name: m\n    tests:\n      - dbt_expectations.expect_column_to_exist:\n          column: \"\"\n",
	} {
		_, err := Load([]byte(doc))
		assert.True(t, dqerrors.HasCode(err, dqerrors.ErrMalformedDocument), "document %q: got %v", doc, err)
	}
}

func TestLoad_EveryLoadedDocumentRoundTrips(t *testing.T) {
	doc := "expectations:\n" +
		"  - test: dbt_expectations.expect_table_row_count_to_equal_other_table\n    compare_model: ref('o')\n" +
		"  - test: dbt_expectations.expect_column_to_exist\n    column: a\n"

	instances, err := Load([]byte(doc))
	require.NoError(t, err)

	flat, err := EncodeFlat(instances)
	require.NoError(t, err)
	again, err := Load(flat)
	require.NoError(t, err)
	if diff := cmp.Diff(instances, again); diff != "" {
		t.Errorf("flat round trip mismatch (-want +got):\n%s", diff)
	}

	exported, err := Compile(instances, "m")
	require.NoError(t, err)
	reloaded, err := Load(exported)
	require.NoError(t, err)
	assert.Equal(t, "dbt_expectations.expect_table_row_count_to_equal_other_table", reloaded[0].Test)
	col, ok := reloaded[1].Column()
	assert.True(t, ok)
	assert.Equal(t, "a", col)
}

func TestEncodeFlat_RoundTrip(t *testing.T) {
	original := scenario()
	original = append(original, rules.NewInstance("expect_column_values_to_be_in_set",
		"column", "status", "value_set", []string{"a", "b"}, "strictly", false))

	out, err := EncodeFlat(original)
	require.NoError(t, err)

	loaded, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, ShapeFlat, loaded.Shape)
	require.Len(t, loaded.Instances, len(original))

	for i := range original {
		assert.Equal(t, original[i].Test, loaded.Instances[i].Test)
		assert.Equal(t, original[i].Params.Names(), loaded.Instances[i].Params.Names())
	}
	v, _ := loaded.Instances[3].Params.Get("value_set")
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestEncodeFlat_Empty(t *testing.T) {
	out, err := EncodeFlat(nil)
	require.NoError(t, err)
	assert.Equal(t, "expectations: []\n", string(out))

	instances, err := Load(out)
	require.NoError(t, err)
	assert.Empty(t, instances)
}
