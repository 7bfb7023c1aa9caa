package document

import (
	"github.com/DataVisuals/expectations/internal/rules"
)

// TableRule is a table-scoped assertion keyed by its template identifier
type TableRule struct {
	Test   string
	Params rules.Params
}

// ColumnTest is one entry of a column's test list. Empty Params render as
// the bare identifier.
type ColumnTest struct {
	Test   string
	Params rules.Params
}

// Bare reports whether the test renders as a plain identifier
func (t ColumnTest) Bare() bool {
	return t.Params.Len() == 0
}

// ColumnGroup holds the tests of one column in registry order
type ColumnGroup struct {
	Name  string
	Tests []ColumnTest
}

// Partitioned is the grouped view of a registry that the serializer renders
type Partitioned struct {
	Table   []TableRule
	Columns []ColumnGroup
}

// TableRule returns the table rule for a template identifier
func (p Partitioned) TableRule(test string) (TableRule, bool) {
	for _, r := range p.Table {
		if r.Test == test {
			return r, true
		}
	}
	return TableRule{}, false
}

// Column returns the group for a column name
func (p Partitioned) Column(name string) (ColumnGroup, bool) {
	for _, g := range p.Columns {
		if g.Name == name {
			return g, true
		}
	}
	return ColumnGroup{}, false
}

// Partition splits instances into table-scoped and column-scoped rules in a
// single pass. Output ordering is first-seen; nothing is sorted.
//
// A table-scoped identifier seen twice keeps its first position but takes the
// later parameters. Downstream documents rely on one entry per identifier.
func Partition(instances []rules.Instance) Partitioned {
	var p Partitioned
	tableIndex := make(map[string]int)
	columnIndex := make(map[string]int)

	for _, inst := range instances {
		params := inst.Params.Clone()

		column, ok := inst.Column()
		if !ok {
			if i, seen := tableIndex[inst.Test]; seen {
				p.Table[i].Params = params
				continue
			}
			tableIndex[inst.Test] = len(p.Table)
			p.Table = append(p.Table, TableRule{Test: inst.Test, Params: params})
			continue
		}

		params.Delete(rules.KeyColumn)
		test := ColumnTest{Test: inst.Test, Params: params}

		i, seen := columnIndex[column]
		if !seen {
			i = len(p.Columns)
			columnIndex[column] = i
			p.Columns = append(p.Columns, ColumnGroup{Name: column})
		}
		p.Columns[i].Tests = append(p.Columns[i].Tests, test)
	}

	return p
}
