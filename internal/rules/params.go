package rules

// Well-known parameter names
const (
	KeyTest         = "test"
	KeyColumn       = "column"
	KeyRowCondition = "row_condition"
	KeyStrictly     = "strictly"
)

// Param is one named parameter value
type Param struct {
	Name  string
	Value any
}

// Params is an insertion-ordered parameter map. Setting an existing name
// replaces its value in place.
type Params []Param

// Get returns the value for name
func (p Params) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Has reports whether name is present
func (p Params) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Set stores value under name, keeping the original position for existing names
func (p *Params) Set(name string, value any) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Name: name, Value: value})
}

// Delete removes name and returns its value
func (p *Params) Delete(name string) (any, bool) {
	for i, param := range *p {
		if param.Name == name {
			*p = append((*p)[:i:i], (*p)[i+1:]...)
			return param.Value, true
		}
	}
	return nil, false
}

// Names returns parameter names in order
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Len returns the number of parameters
func (p Params) Len() int {
	return len(p)
}

// Map returns an unordered copy, convenient for JSON responses
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// Clone returns a deep copy; list values are copied so callers cannot alias them
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for i, param := range p {
		out[i] = Param{Name: param.Name, Value: cloneValue(param.Value)}
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
