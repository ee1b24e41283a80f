package aggregate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ademuri/spotify-report/internal/history"
)

// CalendarPosition places a date on a wall calendar of its year: weekday is
// the 1..7 column counted from weekStart and week is the 1-based row,
// ceil((offset of January 1st + day of year) / 7).
func CalendarPosition(d time.Time, weekStart time.Weekday) (week, weekday int) {
	weekday = history.WeekdayNumber(d.Weekday(), weekStart)
	jan1 := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, d.Location())
	offset := history.WeekdayNumber(jan1.Weekday(), weekStart) - 1
	week = (offset + d.YearDay() + 6) / 7
	return week, weekday
}

// DateRange returns the first and last local dates present in events.
func DateRange(events []history.Event) (from, to time.Time, ok bool) {
	var first, last string
	for _, e := range events {
		if e.Date == "" {
			continue
		}
		if first == "" || e.Date < first {
			first = e.Date
		}
		if last == "" || e.Date > last {
			last = e.Date
		}
	}
	if first == "" {
		return time.Time{}, time.Time{}, false
	}
	from, err := time.Parse(history.DateLayout, first)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	to, err = time.Parse(history.DateLayout, last)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayScaffold lists every date from from to to inclusive, independent of
// any events, as a table keyed by date with no measures.
func DayScaffold(from, to time.Time) Table {
	t := Table{Name: "days", Keys: []string{"date"}}
	for d := civil(from); !d.After(civil(to)); d = d.AddDate(0, 0, 1) {
		t.Rows = append(t.Rows, Row{Key: []string{d.Format(history.DateLayout)}})
	}
	return t
}

// HourScaffold lists all 24 hours of every date from from to to inclusive.
func HourScaffold(from, to time.Time) Table {
	t := Table{Name: "hours", Keys: []string{"date", "hour"}}
	for d := civil(from); !d.After(civil(to)); d = d.AddDate(0, 0, 1) {
		date := d.Format(history.DateLayout)
		for h := 0; h < 24; h++ {
			t.Rows = append(t.Rows, Row{Key: []string{date, fmt.Sprintf("%02d", h)}})
		}
	}
	return t
}

type Cell struct {
	Date    time.Time
	Year    int
	Week    int
	Weekday int
	// Hour is -1 for daily cells.
	Hour   int
	Values []float64
}

// Heatmap is an aggregate laid out on a gap-free calendar.
type Heatmap struct {
	Name     string
	Measures []string
	Hourly   bool
	Cells    []Cell
}

// DailyHeatmap aggregates events per date and left-joins the result onto a
// complete day scaffold spanning the events, so silent days are present with
// zero measures.
func DailyHeatmap(name string, events []history.Event, weekStart time.Weekday, measures ...Measure) (Heatmap, error) {
	return heatmap(name, events, weekStart, false, measures)
}

// HourlyHeatmap is DailyHeatmap at hour resolution.
func HourlyHeatmap(name string, events []history.Event, weekStart time.Weekday, measures ...Measure) (Heatmap, error) {
	return heatmap(name, events, weekStart, true, measures)
}

func heatmap(name string, events []history.Event, weekStart time.Weekday, hourly bool, measures []Measure) (Heatmap, error) {
	keys := []string{"date"}
	if hourly {
		keys = append(keys, "hour")
	}
	grouped, err := GroupBy(name, events, keys, measures...)
	if err != nil {
		return Heatmap{}, err
	}

	h := Heatmap{Name: name, Measures: grouped.Measures, Hourly: hourly}
	from, to, ok := DateRange(events)
	if !ok {
		return h, nil
	}

	scaffold := DayScaffold(from, to)
	if hourly {
		scaffold = HourScaffold(from, to)
	}
	joined, err := LeftJoin(name, scaffold, grouped)
	if err != nil {
		return Heatmap{}, err
	}

	for _, r := range joined.Rows {
		d, err := time.Parse(history.DateLayout, r.Key[0])
		if err != nil {
			return Heatmap{}, fmt.Errorf("heatmap %q: %w", name, err)
		}
		week, weekday := CalendarPosition(d, weekStart)
		hour := -1
		if hourly {
			if hour, err = strconv.Atoi(r.Key[1]); err != nil {
				return Heatmap{}, fmt.Errorf("heatmap %q: %w", name, err)
			}
		}
		h.Cells = append(h.Cells, Cell{
			Date:    d,
			Year:    d.Year(),
			Week:    week,
			Weekday: weekday,
			Hour:    hour,
			Values:  r.Values,
		})
	}
	return h, nil
}

// Years lists the distinct years covered, ascending.
func (h Heatmap) Years() []int {
	var years []int
	for _, c := range h.Cells {
		if len(years) == 0 || years[len(years)-1] != c.Year {
			years = append(years, c.Year)
		}
	}
	return years
}

// Table flattens the heatmap into rows keyed by date, year, week, weekday
// and, for hourly heatmaps, hour.
func (h Heatmap) Table() Table {
	t := Table{
		Name:     h.Name,
		Keys:     []string{"date", "year", "week", "weekday"},
		Measures: append([]string(nil), h.Measures...),
	}
	if h.Hourly {
		t.Keys = append(t.Keys, "hour")
	}
	for _, c := range h.Cells {
		key := []string{
			c.Date.Format(history.DateLayout),
			strconv.Itoa(c.Year),
			fmt.Sprintf("%02d", c.Week),
			strconv.Itoa(c.Weekday),
		}
		if h.Hourly {
			key = append(key, fmt.Sprintf("%02d", c.Hour))
		}
		t.Rows = append(t.Rows, Row{Key: key, Values: append([]float64(nil), c.Values...)})
	}
	return t
}
