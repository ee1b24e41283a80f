/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"time"
)

type Precision int

const (
	PrecisionYear Precision = iota + 1
	PrecisionMonth
	PrecisionDay
)

// ParsedDate is the start of the period a date argument names.
type ParsedDate struct {
	Date      time.Time
	Precision Precision
}

// End is the start of the following period.
func (d ParsedDate) End() time.Time {
	switch d.Precision {
	case PrecisionYear:
		return d.Date.AddDate(1, 0, 0)
	case PrecisionMonth:
		return d.Date.AddDate(0, 1, 0)
	default:
		return d.Date.AddDate(0, 0, 1)
	}
}

var dateLayouts = []struct {
	layout    string
	precision Precision
}{
	{"2006", PrecisionYear},
	{"2006-01", PrecisionMonth},
	{"2006-01-02", PrecisionDay},
}

// parseDateRangeFromArgs turns one or two date arguments into a half-open
// range [start, end). A single argument covers its whole period; with two,
// the range runs through the end of the second period.
func parseDateRangeFromArgs(args []string, loc *time.Location) (start time.Time, end time.Time, err error) {
	switch len(args) {
	case 1:
		start, end, err = getImplicitDateRange(args[0], loc)

	case 2:
		start, end, err = getExplicitDateRange(args[0], args[1], loc)

	default:
		err = fmt.Errorf("Expected one or two date arguments")
	}
	return
}

func getImplicitDateRange(ds string, loc *time.Location) (start time.Time, end time.Time, err error) {
	date, err := parseSingleDatestring(ds, loc)
	if err != nil {
		return
	}
	return date.Date, date.End(), nil
}

func getExplicitDateRange(startString, endString string, loc *time.Location) (start time.Time, end time.Time, err error) {
	startParsed, err := parseSingleDatestring(startString, loc)
	if err != nil {
		return
	}
	endParsed, err := parseSingleDatestring(endString, loc)
	if err != nil {
		return
	}
	start, end = startParsed.Date, endParsed.End()
	if !end.After(start) {
		err = fmt.Errorf("Empty date range: %q to %q", startString, endString)
	}
	return
}

// parseSingleDatestring accepts yyyy, yyyy-mm or yyyy-mm-dd, interpreted in
// loc.
func parseSingleDatestring(ds string, loc *time.Location) (ParsedDate, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, l := range dateLayouts {
		if len(ds) != len(l.layout) {
			continue
		}
		t, err := time.ParseInLocation(l.layout, ds, loc)
		if err != nil {
			return ParsedDate{}, fmt.Errorf("Invalid format: %q: %w", ds, err)
		}
		return ParsedDate{Date: t, Precision: l.precision}, nil
	}
	return ParsedDate{}, fmt.Errorf("Invalid format: %q", ds)
}
