package graph

import "fmt"

// Reducer merges a node-produced value into the current value of one state
// field. Reducers are pure; the executor applies them in deterministic node
// order at every join point.
type Reducer func(current, incoming interface{}) interface{}

// Reducer names accepted in plan declarations.
const (
	ReduceOverwrite     = "overwrite"
	ReduceKeepNonNull   = "keep-latest-non-null"
	ReduceAppendUnique  = "append-unique"
	ReduceSum           = "sum"
	ReduceMax           = "max"
)

// Overwrite is the default reducer: last writer wins.
func Overwrite(_, incoming interface{}) interface{} { return incoming }

// KeepLatestNonNull keeps the current value when the incoming one is nil.
func KeepLatestNonNull(current, incoming interface{}) interface{} {
	if incoming == nil {
		return current
	}
	return incoming
}

// AppendUnique merges string slices with set semantics, preserving
// first-seen order.
func AppendUnique(current, incoming interface{}) interface{} {
	cur, _ := current.([]string)
	inc, ok := incoming.([]string)
	if !ok {
		return current
	}
	seen := make(map[string]bool, len(cur))
	out := make([]string, 0, len(cur)+len(inc))
	for _, v := range cur {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range inc {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Sum adds numeric values; used for counters such as attempt_count.
func Sum(current, incoming interface{}) interface{} {
	return asFloat(current) + asFloat(incoming)
}

// Max keeps the larger numeric value.
func Max(current, incoming interface{}) interface{} {
	c, i := asFloat(current), asFloat(incoming)
	if c > i {
		return c
	}
	return i
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// ReducerTable maps state fields to named reducers. Fields without an entry
// use overwrite.
type ReducerTable map[string]Reducer

// BuildReducerTable resolves reducer names from a plan declaration.
func BuildReducerTable(byField map[string]string) (ReducerTable, error) {
	table := make(ReducerTable, len(byField))
	for field, name := range byField {
		r, err := reducerByName(name)
		if err != nil {
			return nil, err
		}
		table[field] = r
	}
	return table, nil
}

func reducerByName(name string) (Reducer, error) {
	switch name {
	case ReduceOverwrite, "":
		return Overwrite, nil
	case ReduceKeepNonNull:
		return KeepLatestNonNull, nil
	case ReduceAppendUnique:
		return AppendUnique, nil
	case ReduceSum:
		return Sum, nil
	case ReduceMax:
		return Max, nil
	default:
		return nil, fmt.Errorf("unknown reducer: %s", name)
	}
}

// merge applies one delta to the state through the table.
func (t ReducerTable) merge(s State, d Delta) {
	for field, incoming := range d {
		reduce := t[field]
		if reduce == nil {
			reduce = Overwrite
		}
		s[field] = reduce(s[field], incoming)
	}
}
