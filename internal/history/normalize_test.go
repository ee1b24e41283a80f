package history

import (
	"reflect"
	"testing"
	"time"
)

func TestClassifyDevice(t *testing.T) {
	cases := []struct {
		platform string
		want     DeviceClass
	}{
		{"Android OS 9 API 28 (samsung, SM-G960F)", DevicePhone},
		{"Partner android_tv Sony", DevicePhone},
		{"iOS 14.4 (iPhone12,1)", DevicePhone},
		{"Windows 10 (10.0.19041; x64)", DeviceComputer},
		{"OS X 10.15.7 [x86 8]", DeviceComputer},
		{"web_player windows 10;chrome 89.0.4389.90;desktop", DeviceComputer},
		{"Linux [x86-64 0]", DeviceComputer},
		{"ios", DevicePhone},
		{"osx", DeviceComputer},
		{"web_player osx 11.3.0;chrome 90.0;desktop", DeviceComputer},
		{"Partner sonos_bridge", DeviceUnknown},
		{"", DeviceUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyDevice(tc.platform); got != tc.want {
			t.Errorf("ClassifyDevice(%q) = %s, want %s", tc.platform, got, tc.want)
		}
	}
}

func TestClassifyDeviceFirstRuleWins(t *testing.T) {
	// Contains both a phone and a computer substring.
	if got := ClassifyDevice("Android emulator on Windows"); got != DevicePhone {
		t.Errorf("expected first matching rule to win, got %s", got)
	}
}

func TestReasonCategories(t *testing.T) {
	if got := StartCategory("clickrow"); got != "Selected" {
		t.Errorf("StartCategory(clickrow) = %q", got)
	}
	if got := StartCategory("popup"); got != ReasonOther {
		t.Errorf("StartCategory(popup) = %q, want %q", got, ReasonOther)
	}
	if got := EndCategory("fwdbtn"); got != "Skipped" {
		t.Errorf("EndCategory(fwdbtn) = %q", got)
	}
	if got := EndCategory("TRACKDONE"); got != ReasonOther {
		t.Errorf("lookup should be exact match, got %q", got)
	}
}

func TestWeekdayNumber(t *testing.T) {
	cases := []struct {
		day       time.Weekday
		weekStart time.Weekday
		want      int
	}{
		{time.Monday, time.Monday, 1},
		{time.Sunday, time.Monday, 7},
		{time.Saturday, time.Monday, 6},
		{time.Sunday, time.Sunday, 1},
		{time.Saturday, time.Sunday, 7},
	}
	for _, tc := range cases {
		if got := WeekdayNumber(tc.day, tc.weekStart); got != tc.want {
			t.Errorf("WeekdayNumber(%s, %s) = %d, want %d", tc.day, tc.weekStart, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	n := Normalizer{WeekStart: time.Monday}
	e := n.Normalize(Event{
		Timestamp:   time.Date(2023, 1, 1, 23, 30, 0, 0, time.UTC),
		Platform:    "iOS 16.1 (iPhone14,2)",
		ReasonStart: "trackdone",
		ReasonEnd:   "fwdbtn",
	})

	if e.Date != "2023-01-01" || e.Year != 2023 || e.DayOfYear != 1 || e.Hour != 23 {
		t.Errorf("unexpected calendar fields: %+v", e.Derived)
	}
	// 2023-01-01 was a Sunday.
	if e.Weekday != 7 {
		t.Errorf("expected weekday 7, got %d", e.Weekday)
	}
	if e.Device != DevicePhone || e.StartReason != "Autoplay" || e.EndReason != "Skipped" {
		t.Errorf("unexpected categories: %+v", e.Derived)
	}
}

func TestNormalizeLocation(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	n := Normalizer{Location: berlin, WeekStart: time.Monday}
	e := n.Normalize(Event{Timestamp: time.Date(2022, 12, 31, 23, 30, 0, 0, time.UTC)})
	if e.Year != 2023 || e.Hour != 0 {
		t.Errorf("expected local 2023-01-01 00:30, got %s", e.Local)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := Normalizer{WeekStart: time.Monday}
	events := []Event{
		{Timestamp: time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC), Platform: "Android", ReasonEnd: "trackdone"},
		{Timestamp: time.Date(2021, 7, 4, 18, 0, 0, 0, time.UTC), Platform: "toaster", ReasonStart: "??"},
	}
	once := n.NormalizeAll(events)
	twice := n.NormalizeAll(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("normalizing twice changed the events:\n%+v\n%+v", once, twice)
	}
	if events[0].Date != "" {
		t.Errorf("NormalizeAll mutated its input")
	}
}

func TestNormalizePlaylist(t *testing.T) {
	entries := []PlaylistEntry{
		{Track: "a", AddedBy: "u1", ReleaseDate: "1999-05-01"},
		{Track: "b", AddedBy: "u2", ReleaseDate: "1987"},
		{Track: "c"},
	}
	got := NormalizePlaylist(entries, map[string]string{"u1": "Alice"})
	if got[0].AddedByName != "Alice" || got[0].ReleaseYear != 1999 {
		t.Errorf("unexpected entry: %+v", got[0])
	}
	if got[1].AddedByName != "u2" || got[1].ReleaseYear != 1987 {
		t.Errorf("unexpected entry: %+v", got[1])
	}
	if got[2].ReleaseYear != 0 {
		t.Errorf("expected unknown release year, got %d", got[2].ReleaseYear)
	}
}
