package aggregate

import (
	"fmt"
	"strings"
)

// LeftJoin keeps every row of left and appends right's measures, matched on
// identical key values. Rows missing from right get zeros.
func LeftJoin(name string, left, right Table) (Table, error) {
	if !equalKeys(left.Keys, right.Keys) {
		return Table{}, fmt.Errorf("joining %q: key columns differ: %v vs %v", name, left.Keys, right.Keys)
	}

	index := make(map[string][]float64, len(right.Rows))
	for _, r := range right.Rows {
		index[strings.Join(r.Key, "\x00")] = r.Values
	}

	out := left.clone()
	out.Name = name
	out.Measures = append(out.Measures, right.Measures...)
	for i := range out.Rows {
		values, ok := index[strings.Join(out.Rows[i].Key, "\x00")]
		if !ok {
			values = make([]float64, len(right.Measures))
		}
		out.Rows[i].Values = append(out.Rows[i].Values, values...)
	}
	return out, nil
}
