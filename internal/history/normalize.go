package history

import (
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const ReasonOther = "Other"

type deviceRule struct {
	substr string
	class  DeviceClass
}

// Substring matches are case sensitive and the first matching rule wins, so
// the common spellings are listed explicitly.
var deviceRules = []deviceRule{
	{"Android", DevicePhone},
	{"android", DevicePhone},
	{"ANDROID", DevicePhone},
	{"iOS", DevicePhone},
	{"iPhone", DevicePhone},
	{"iPad", DevicePhone},
	{"Windows", DeviceComputer},
	{"windows", DeviceComputer},
	{"OS X", DeviceComputer},
	{"macOS", DeviceComputer},
	{"Linux", DeviceComputer},
	{"linux", DeviceComputer},
	{"web_player", DeviceComputer},
	{"WebPlayer", DeviceComputer},
	// Lowercase platform names used by newer exports. They follow the web
	// player rules so "web_player osx ..." stays a computer.
	{"ios", DevicePhone},
	{"osx", DeviceComputer},
}

var startReasons = map[string]string{
	"trackdone": "Autoplay",
	"clickrow":  "Selected",
	"playbtn":   "Selected",
	"fwdbtn":    "Skip",
	"backbtn":   "Skip",
	"remote":    "Remote",
	"appload":   "App load",
}

var endReasons = map[string]string{
	"trackdone":                    "Completed",
	"fwdbtn":                       "Skipped",
	"backbtn":                      "Skipped",
	"endplay":                      "Stopped",
	"logout":                       "Stopped",
	"remote":                       "Stopped",
	"trackerror":                   "Error",
	"unexpected-exit":              "Error",
	"unexpected-exit-while-paused": "Error",
}

func ClassifyDevice(platform string) DeviceClass {
	for _, rule := range deviceRules {
		if strings.Contains(platform, rule.substr) {
			return rule.class
		}
	}
	return DeviceUnknown
}

func StartCategory(code string) string {
	if c, ok := startReasons[code]; ok {
		return c
	}
	return ReasonOther
}

func EndCategory(code string) string {
	if c, ok := endReasons[code]; ok {
		return c
	}
	return ReasonOther
}

// WeekdayNumber maps a weekday onto 1..7 where weekStart is 1.
func WeekdayNumber(d time.Weekday, weekStart time.Weekday) int {
	return (int(d)-int(weekStart)+7)%7 + 1
}

// Normalizer derives the calendar and category columns of an Event.
type Normalizer struct {
	// Location the export's UTC timestamps are converted to. Nil means UTC.
	Location  *time.Location
	WeekStart time.Weekday
}

func (n Normalizer) location() *time.Location {
	if n.Location == nil {
		return time.UTC
	}
	return n.Location
}

func (n Normalizer) Normalize(e Event) Event {
	local := e.Timestamp.In(n.location())
	e.Derived = Derived{
		Local:       local,
		Date:        local.Format(DateLayout),
		Year:        local.Year(),
		Month:       int(local.Month()),
		Day:         local.Day(),
		DayOfYear:   local.YearDay(),
		Weekday:     WeekdayNumber(local.Weekday(), n.WeekStart),
		Hour:        local.Hour(),
		Device:      ClassifyDevice(e.Platform),
		StartReason: StartCategory(e.ReasonStart),
		EndReason:   EndCategory(e.ReasonEnd),
	}
	return e
}

// NormalizeAll returns a new slice; events is left untouched.
func (n Normalizer) NormalizeAll(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = n.Normalize(e)
	}
	return out
}

// NormalizePlaylist fills the release year and resolves the adding user's
// display name. Unknown ids keep their raw value.
func NormalizePlaylist(entries []PlaylistEntry, aliases map[string]string) []PlaylistEntry {
	out := make([]PlaylistEntry, len(entries))
	for i, p := range entries {
		p.ReleaseYear = ReleaseYear(p.ReleaseDate)
		p.AddedByName = p.AddedBy
		if name, ok := aliases[p.AddedBy]; ok {
			p.AddedByName = name
		}
		out[i] = p
	}
	return out
}

// ReleaseYear accepts the Web API's day, month and year precisions.
func ReleaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
