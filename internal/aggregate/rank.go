package aggregate

import (
	"sort"
	"strings"
)

// rank orders rows by measure descending, breaking ties by key ascending.
// The order is total, so the row cut at position n never depends on input
// order.
func rank(rows []Row, mi int) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Values[mi], rows[j].Values[mi]
		if a != b {
			return a > b
		}
		return compareKeys(rows[i].Key, rows[j].Key) < 0
	})
}

// TopN keeps the n highest rows by measure. n <= 0 keeps every row, ranked.
func TopN(t Table, measure string, n int) (Table, error) {
	mi, err := t.mustMeasure(measure)
	if err != nil {
		return Table{}, err
	}
	out := t.clone()
	rank(out.Rows, mi)
	if n > 0 && len(out.Rows) > n {
		out.Rows = out.Rows[:n]
	}
	return out, nil
}

// TopNPer applies TopN separately within each group of rows sharing the
// scope key values. Groups are emitted in ascending scope order.
func TopNPer(t Table, measure string, n int, scope ...string) (Table, error) {
	mi, err := t.mustMeasure(measure)
	if err != nil {
		return Table{}, err
	}
	idx, err := t.mustKeys(scope)
	if err != nil {
		return Table{}, err
	}

	src := t.clone()
	groups := make(map[string][]Row)
	var order [][]string
	for _, r := range src.Rows {
		key := make([]string, len(idx))
		for i, k := range idx {
			key[i] = r.Key[k]
		}
		id := strings.Join(key, "\x00")
		if _, ok := groups[id]; !ok {
			order = append(order, key)
		}
		groups[id] = append(groups[id], r)
	}
	sort.SliceStable(order, func(i, j int) bool { return compareKeys(order[i], order[j]) < 0 })

	out := src
	out.Rows = nil
	for _, key := range order {
		rows := groups[strings.Join(key, "\x00")]
		rank(rows, mi)
		if n > 0 && len(rows) > n {
			rows = rows[:n]
		}
		out.Rows = append(out.Rows, rows...)
	}
	return out, nil
}
