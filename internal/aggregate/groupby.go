package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ademuri/spotify-report/internal/history"
)

type accumulator struct {
	key      []string
	count    float64
	sums     []float64
	distinct []map[string]struct{}
	trues    []float64
	known    []float64
}

// GroupBy groups events by the named key columns and reduces each group with
// measures. Only key combinations present in events get a row.
func GroupBy(name string, events []history.Event, keys []string, measures ...Measure) (Table, error) {
	cols, err := Cols(keys...)
	if err != nil {
		return Table{}, fmt.Errorf("grouping %q: %w", name, err)
	}
	return GroupByKeys(name, events, cols, measures...)
}

func GroupByKeys(name string, events []history.Event, keys []Key, measures ...Measure) (Table, error) {
	resolved := make([]Measure, len(measures))
	for i, m := range measures {
		r, err := m.resolve()
		if err != nil {
			return Table{}, fmt.Errorf("grouping %q: %w", name, err)
		}
		resolved[i] = r
	}

	groups := make(map[string]*accumulator)
	for _, e := range events {
		key := make([]string, len(keys))
		for i, k := range keys {
			key[i] = k.Of(e)
		}
		id := strings.Join(key, "\x00")
		acc, ok := groups[id]
		if !ok {
			acc = &accumulator{
				key:      key,
				sums:     make([]float64, len(resolved)),
				distinct: make([]map[string]struct{}, len(resolved)),
				trues:    make([]float64, len(resolved)),
				known:    make([]float64, len(resolved)),
			}
			groups[id] = acc
		}
		acc.count++
		for i, m := range resolved {
			switch m.Reducer {
			case ReduceSum:
				acc.sums[i] += m.num(e)
			case ReduceDistinct:
				if acc.distinct[i] == nil {
					acc.distinct[i] = make(map[string]struct{})
				}
				acc.distinct[i][m.key(e)] = struct{}{}
			case ReduceProportion:
				f := m.flag(e)
				if f.Known() {
					acc.known[i]++
					if f.True() {
						acc.trues[i]++
					}
				}
			}
		}
	}

	t := Table{Name: name}
	for _, k := range keys {
		t.Keys = append(t.Keys, k.Name)
	}
	for _, m := range resolved {
		t.Measures = append(t.Measures, m.Name)
	}
	for _, acc := range groups {
		values := make([]float64, len(resolved))
		for i, m := range resolved {
			switch m.Reducer {
			case ReduceCount:
				values[i] = acc.count
			case ReduceSum:
				values[i] = acc.sums[i]
			case ReduceDistinct:
				values[i] = float64(len(acc.distinct[i]))
			case ReduceProportion:
				if acc.known[i] > 0 {
					values[i] = acc.trues[i] / acc.known[i]
				}
			}
		}
		t.Rows = append(t.Rows, Row{Key: acc.key, Values: values})
	}
	sortByKey(t.Rows)
	return t, nil
}

func sortByKey(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return compareKeys(rows[i].Key, rows[j].Key) < 0
	})
}

// SumBy re-aggregates a table onto a subset of its keys by summing every
// measure. Proportion measures do not survive this meaningfully.
func SumBy(name string, t Table, keys ...string) (Table, error) {
	idx, err := t.mustKeys(keys)
	if err != nil {
		return Table{}, err
	}
	groups := make(map[string]*Row)
	for _, r := range t.Rows {
		key := make([]string, len(idx))
		for i, k := range idx {
			key[i] = r.Key[k]
		}
		id := strings.Join(key, "\x00")
		g, ok := groups[id]
		if !ok {
			g = &Row{Key: key, Values: make([]float64, len(t.Measures))}
			groups[id] = g
		}
		for i, v := range r.Values {
			g.Values[i] += v
		}
	}

	out := Table{
		Name:     name,
		Keys:     append([]string(nil), keys...),
		Measures: append([]string(nil), t.Measures...),
	}
	for _, g := range groups {
		out.Rows = append(out.Rows, *g)
	}
	sortByKey(out.Rows)
	return out, nil
}

// WithShare appends measure+"_share": each row's measure divided by the sum
// of that measure over the rows sharing the same scope key values. With no
// scope the denominator is the table total.
func WithShare(t Table, measure string, scope ...string) (Table, error) {
	mi, err := t.mustMeasure(measure)
	if err != nil {
		return Table{}, err
	}
	idx, err := t.mustKeys(scope)
	if err != nil {
		return Table{}, err
	}

	scopeID := func(r Row) string {
		parts := make([]string, len(idx))
		for i, k := range idx {
			parts[i] = r.Key[k]
		}
		return strings.Join(parts, "\x00")
	}

	totals := make(map[string]float64)
	for _, r := range t.Rows {
		totals[scopeID(r)] += r.Values[mi]
	}

	out := t.clone()
	out.Measures = append(out.Measures, measure+"_share")
	for i := range out.Rows {
		var share float64
		if total := totals[scopeID(out.Rows[i])]; total != 0 {
			share = out.Rows[i].Values[mi] / total
		}
		out.Rows[i].Values = append(out.Rows[i].Values, share)
	}
	return out, nil
}

// Derive appends a measure computed from the other measures of each row.
func Derive(t Table, name string, fn func(get func(string) float64) float64) Table {
	out := t.clone()
	out.Measures = append(out.Measures, name)
	for i := range out.Rows {
		r := t.Rows[i]
		get := func(m string) float64 { return t.Value(r, m) }
		out.Rows[i].Values = append(out.Rows[i].Values, fn(get))
	}
	return out
}

// CountBy groups arbitrary records by the values key returns, which must
// line up with keys, and counts each group into measure.
func CountBy[T any](name string, items []T, keys []string, measure string, key func(T) []string) Table {
	counts := make(map[string]*Row)
	for _, item := range items {
		k := key(item)
		id := strings.Join(k, "\x00")
		r, ok := counts[id]
		if !ok {
			r = &Row{Key: k, Values: []float64{0}}
			counts[id] = r
		}
		r.Values[0]++
	}
	t := Table{
		Name:     name,
		Keys:     append([]string(nil), keys...),
		Measures: []string{measure},
	}
	for _, r := range counts {
		t.Rows = append(t.Rows, *r)
	}
	sortByKey(t.Rows)
	return t
}
