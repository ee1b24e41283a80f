// Package aggregate computes grouped summaries of normalized events.
//
// Every operation returns a new Table; inputs are never modified. Rows are
// kept in a deterministic order (by key, or by rank for TopN) so that two
// runs over the same events produce identical output.
package aggregate

import (
	"fmt"
	"math"
	"strconv"
)

type Row struct {
	Key    []string
	Values []float64
}

type Table struct {
	Name     string
	Keys     []string
	Measures []string
	Rows     []Row
}

func (t Table) KeyIndex(name string) int {
	for i, k := range t.Keys {
		if k == name {
			return i
		}
	}
	return -1
}

func (t Table) MeasureIndex(name string) int {
	for i, m := range t.Measures {
		if m == name {
			return i
		}
	}
	return -1
}

func (t Table) mustMeasure(name string) (int, error) {
	i := t.MeasureIndex(name)
	if i < 0 {
		return 0, fmt.Errorf("table %q has no measure %q", t.Name, name)
	}
	return i, nil
}

func (t Table) mustKeys(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = t.KeyIndex(n)
		if idx[i] < 0 {
			return nil, fmt.Errorf("table %q has no key %q", t.Name, n)
		}
	}
	return idx, nil
}

// Len is the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Total sums a measure over all rows. Unknown measures total zero.
func (t Table) Total(measure string) float64 {
	i := t.MeasureIndex(measure)
	if i < 0 {
		return 0
	}
	var total float64
	for _, r := range t.Rows {
		total += r.Values[i]
	}
	return total
}

// Column returns one measure for every row, in row order.
func (t Table) Column(measure string) []float64 {
	i := t.MeasureIndex(measure)
	if i < 0 {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for j, r := range t.Rows {
		out[j] = r.Values[i]
	}
	return out
}

// Lookup finds the row whose key equals key.
func (t Table) Lookup(key ...string) (Row, bool) {
	for _, r := range t.Rows {
		if equalKeys(r.Key, key) {
			return r, true
		}
	}
	return Row{}, false
}

// Value returns the named measure of row, or 0.
func (t Table) Value(r Row, measure string) float64 {
	i := t.MeasureIndex(measure)
	if i < 0 || i >= len(r.Values) {
		return 0
	}
	return r.Values[i]
}

func (t Table) Renamed(name string) Table {
	t.Name = name
	return t
}

func (t Table) clone() Table {
	out := Table{
		Name:     t.Name,
		Keys:     append([]string(nil), t.Keys...),
		Measures: append([]string(nil), t.Measures...),
		Rows:     make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = Row{
			Key:    append([]string(nil), r.Key...),
			Values: append([]float64(nil), r.Values...),
		}
	}
	return out
}

// Filter keeps the rows for which keep returns true.
func Filter(t Table, keep func(Row) bool) Table {
	src := t.clone()
	out := src
	out.Rows = nil
	for _, r := range src.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Clone returns a deep copy.
func (t Table) Clone() Table { return t.clone() }

// Records renders the table as a header row followed by one row per Row.
func (t Table) Records() [][]string {
	header := append(append([]string(nil), t.Keys...), t.Measures...)
	out := [][]string{header}
	for _, r := range t.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, r.Key...)
		for _, v := range r.Values {
			rec = append(rec, FormatValue(v))
		}
		out = append(out, rec)
	}
	return out
}

// FormatValue prints integral values without a fraction and everything else
// with four decimals.
func FormatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func compareKeys(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return len(a) - len(b)
}
