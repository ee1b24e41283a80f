package aggregate

import (
	"fmt"
	"strconv"

	"github.com/ademuri/spotify-report/internal/history"
)

// Key is a grouping dimension.
type Key struct {
	Name string
	Of   func(history.Event) string
}

var keyColumns = map[string]func(history.Event) string{
	"year":         func(e history.Event) string { return strconv.Itoa(e.Year) },
	"month":        func(e history.Event) string { return fmt.Sprintf("%04d-%02d", e.Year, e.Month) },
	"date":         func(e history.Event) string { return e.Date },
	"hour":         func(e history.Event) string { return fmt.Sprintf("%02d", e.Hour) },
	"weekday":      func(e history.Event) string { return strconv.Itoa(e.Weekday) },
	"device":       func(e history.Event) string { return string(e.Device) },
	"platform":     func(e history.Event) string { return e.Platform },
	"artist":       func(e history.Event) string { return e.Artist },
	"track":        func(e history.Event) string { return e.Track },
	"album":        func(e history.Event) string { return e.Album },
	"country":      func(e history.Event) string { return e.Country },
	"start_reason": func(e history.Event) string { return e.StartReason },
	"end_reason":   func(e history.Event) string { return e.EndReason },
	"shuffle":      func(e history.Event) string { return e.Shuffle.String() },
	"incognito":    func(e history.Event) string { return e.Incognito.String() },
	"offline":      func(e history.Event) string { return e.Offline.String() },
	"skipped":      func(e history.Event) string { return e.Skipped.String() },
}

var numericColumns = map[string]func(history.Event) float64{
	"ms_played":      func(e history.Event) float64 { return float64(e.MsPlayed) },
	"minutes_played": func(e history.Event) float64 { return float64(e.MsPlayed) / 60000 },
	"hours_played":   func(e history.Event) float64 { return e.Hours() },
}

var flagColumns = map[string]func(history.Event) history.Flag{
	"shuffle":   func(e history.Event) history.Flag { return e.Shuffle },
	"incognito": func(e history.Event) history.Flag { return e.Incognito },
	"offline":   func(e history.Event) history.Flag { return e.Offline },
	"skipped":   func(e history.Event) history.Flag { return e.Skipped },
}

// Col looks up a built-in key column.
func Col(name string) (Key, error) {
	fn, ok := keyColumns[name]
	if !ok {
		return Key{}, fmt.Errorf("unknown key column %q", name)
	}
	return Key{Name: name, Of: fn}, nil
}

func Cols(names ...string) ([]Key, error) {
	keys := make([]Key, len(names))
	for i, n := range names {
		k, err := Col(n)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

// Membership is a key column that reports whether an event's track/artist
// name pair is in set. Matching is by name only.
func Membership(name string, set map[history.TrackKey]bool) Key {
	return Key{Name: name, Of: func(e history.Event) string {
		return strconv.FormatBool(set[e.Key()])
	}}
}

type Reducer int

const (
	ReduceCount Reducer = iota
	ReduceSum
	ReduceDistinct
	ReduceProportion
)

// Measure names one output column and how it is reduced.
type Measure struct {
	Name    string
	Reducer Reducer
	Column  string

	num  func(history.Event) float64
	flag func(history.Event) history.Flag
	key  func(history.Event) string
}

func Count(name string) Measure {
	return Measure{Name: name, Reducer: ReduceCount}
}

func Sum(name, column string) Measure {
	return Measure{Name: name, Reducer: ReduceSum, Column: column}
}

func Distinct(name, column string) Measure {
	return Measure{Name: name, Reducer: ReduceDistinct, Column: column}
}

// Proportion is the share of events where a boolean column is true, among
// the events where the column is present.
func Proportion(name, column string) Measure {
	return Measure{Name: name, Reducer: ReduceProportion, Column: column}
}

// ProportionOf is Proportion over an arbitrary predicate.
func ProportionOf(name string, pred func(history.Event) bool) Measure {
	return Measure{Name: name, Reducer: ReduceProportion, flag: func(e history.Event) history.Flag {
		if pred(e) {
			return history.FlagTrue
		}
		return history.FlagFalse
	}}
}

func (m Measure) resolve() (Measure, error) {
	switch m.Reducer {
	case ReduceCount:
		return m, nil
	case ReduceSum:
		if m.num != nil {
			return m, nil
		}
		fn, ok := numericColumns[m.Column]
		if !ok {
			return m, fmt.Errorf("measure %q: %q is not a numeric column", m.Name, m.Column)
		}
		m.num = fn
	case ReduceDistinct:
		if m.key != nil {
			return m, nil
		}
		fn, ok := keyColumns[m.Column]
		if !ok {
			return m, fmt.Errorf("measure %q: unknown column %q", m.Name, m.Column)
		}
		m.key = fn
	case ReduceProportion:
		if m.flag != nil {
			return m, nil
		}
		fn, ok := flagColumns[m.Column]
		if !ok {
			return m, fmt.Errorf("measure %q: %q is not a boolean column", m.Name, m.Column)
		}
		m.flag = fn
	default:
		return m, fmt.Errorf("measure %q: unknown reducer %d", m.Name, m.Reducer)
	}
	return m, nil
}
