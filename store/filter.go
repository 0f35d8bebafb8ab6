package store

// IDField is the reserved field name of the primary key.
const IDField = "id"

// Cond restricts Field to one of Values. A Cond without values matches nothing.
type Cond struct {
	Field  string
	Values []string
}

// Eq matches rows whose field equals value.
func Eq(field, value string) Cond {
	return Cond{Field: field, Values: []string{value}}
}

// In matches rows whose field is one of values.
func In(field string, values ...string) Cond {
	return Cond{Field: field, Values: values}
}

// Filter is a conjunction of conditions. The empty Filter matches every row.
type Filter []Cond

// Where builds a Filter from conds.
func Where(conds ...Cond) Filter {
	return Filter(conds)
}

// And returns a copy of f with c appended.
func (f Filter) And(c Cond) Filter {
	out := make(Filter, 0, len(f)+1)
	out = append(out, f...)
	return append(out, c)
}

// MatchesNothing reports whether some condition has no values.
func (f Filter) MatchesNothing() bool {
	for _, c := range f {
		if len(c.Values) == 0 {
			return true
		}
	}
	return false
}

// Match reports whether the row described by get satisfies every condition.
// get returns the row's value for a field and whether the field exists.
func (f Filter) Match(get func(field string) (string, bool)) bool {
	for _, c := range f {
		v, ok := get(c.Field)
		if !ok || !contains(c.Values, v) {
			return false
		}
	}
	return true
}

// widest returns the index of the condition with the most values, or -1 for an empty filter.
func (f Filter) widest() int {
	idx, most := -1, 0
	for i, c := range f {
		if len(c.Values) > most {
			idx, most = i, len(c.Values)
		}
	}
	return idx
}

// splitWidest expands f into filters whose widest condition holds at most size values.
// Rows match at most one of the returned filters.
func (f Filter) splitWidest(size int) []Filter {
	idx := f.widest()
	if idx < 0 || len(f[idx].Values) <= size {
		return []Filter{f}
	}
	var out []Filter
	values := f[idx].Values
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		part := make(Filter, len(f))
		copy(part, f)
		part[idx] = Cond{Field: f[idx].Field, Values: values[start:end]}
		out = append(out, part.splitWidest(size)...)
	}
	return out
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
