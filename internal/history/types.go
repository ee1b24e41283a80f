package history

import "time"

// Flag is a boolean export column that may be missing from older exports.
type Flag int8

const (
	FlagAbsent Flag = iota
	FlagFalse
	FlagTrue
)

func FlagOf(b *bool) Flag {
	if b == nil {
		return FlagAbsent
	}
	if *b {
		return FlagTrue
	}
	return FlagFalse
}

func (f Flag) Known() bool { return f != FlagAbsent }
func (f Flag) True() bool  { return f == FlagTrue }

func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	}
	return ""
}

type DeviceClass string

const (
	DevicePhone    DeviceClass = "Phone"
	DeviceComputer DeviceClass = "Computer"
	DeviceUnknown  DeviceClass = "Unknown"
)

// Event is one logged play. The raw fields come straight from the export;
// the Derived fields are filled by a Normalizer and depend only on them.
type Event struct {
	Timestamp   time.Time
	Track       string
	Artist      string
	Album       string
	MsPlayed    int64
	Platform    string
	Shuffle     Flag
	Incognito   Flag
	Offline     Flag
	Skipped     Flag
	ReasonStart string
	ReasonEnd   string

	Username    string
	Country     string
	TrackURI    string
	EpisodeName string
	EpisodeShow string

	Derived
}

type Derived struct {
	Local       time.Time
	Date        string
	Year        int
	Month       int
	Day         int
	DayOfYear   int
	Weekday     int
	Hour        int
	Device      DeviceClass
	StartReason string
	EndReason   string
}

// IsEpisode reports whether the event is a podcast play rather than music.
func (e Event) IsEpisode() bool {
	return e.Track == "" && e.EpisodeName != ""
}

func (e Event) Hours() float64 {
	return float64(e.MsPlayed) / float64(time.Hour/time.Millisecond)
}

type PlaylistEntry struct {
	Playlist    string
	Track       string
	Artist      string
	Album       string
	TrackURI    string
	AddedAt     time.Time
	AddedBy     string
	ReleaseDate string

	// Filled by NormalizePlaylist.
	ReleaseYear int
	AddedByName string
}

type LibraryEntry struct {
	Track    string
	Artist   string
	Album    string
	TrackURI string
}

// TrackKey is the name-based identity used for membership checks. Track and
// artist names are not stable identifiers, so two different songs with the
// same title and artist string collapse into one key.
type TrackKey struct {
	Track  string
	Artist string
}

func (e Event) Key() TrackKey         { return TrackKey{e.Track, e.Artist} }
func (p PlaylistEntry) Key() TrackKey { return TrackKey{p.Track, p.Artist} }
func (l LibraryEntry) Key() TrackKey  { return TrackKey{l.Track, l.Artist} }
