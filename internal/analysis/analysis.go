// Package analysis turns normalized listening history into the named
// aggregates and chart descriptions that make up a report.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/history"
	"github.com/ademuri/spotify-report/internal/logging"
)

const (
	artistsPerYear   = 5
	densityTopN      = 10
	albumsPerArtist  = 3
	forgottenPerBand = 10

	endedBySkip = "Skipped"
)

type builder struct {
	cfg       config.Config
	weekStart time.Weekday
	report    *Report
}

func (b *builder) add(s Section) {
	logging.Debug().Str("section", s.Name).Int("rows", s.Table.Len()).Msg("built section")
	b.report.Sections = append(b.report.Sections, s)
}

// Build computes every section of the report. Sections that depend on
// playlist or library exports are left out when those inputs are empty.
func Build(in Input, cfg config.Config) (*Report, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	b := &builder{cfg: cfg, weekStart: cfg.FirstWeekday(), report: &Report{}}

	music := aggregate.FilterEvents(in.Events, aggregate.Music)
	recent := aggregate.FilterEvents(music, aggregate.Since(cfg.MinYear))
	exploded := aggregate.ExplodeArtists(recent, cfg.ArtistSeparator, cfg.MaxArtists)
	allExploded := aggregate.ExplodeArtists(music, cfg.ArtistSeparator, cfg.MaxArtists)

	played := in.PlayedHistory
	if played == nil {
		played = in.Events
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"hours per year", func() error { return b.hoursPerYear(in.Events) }},
		{"device per year", func() error { return b.devicePerYear(in.Events) }},
		{"top artists", func() error { return b.topArtists(exploded, allExploded) }},
		{"top artists per year", func() error { return b.topArtistsPerYear(exploded) }},
		{"top tracks", func() error { return b.topTracks(recent) }},
		{"shuffle per year", func() error { return b.flagPerYear(in.Events, "shuffle", "Share of plays on shuffle") }},
		{"incognito per year", func() error { return b.flagPerYear(in.Events, "incognito", "Share of plays in a private session") }},
		{"offline per year", func() error { return b.flagPerYear(in.Events, "offline", "Share of plays offline") }},
		{"start reasons", func() error { return b.reasonsPerYear(in.Events, "start_reason", "Why tracks started") }},
		{"end reasons", func() error { return b.reasonsPerYear(in.Events, "end_reason", "Why tracks ended") }},
		{"skips by hour", func() error { return b.skipsByHour(music) }},
		{"artist density", func() error { return b.artistDensity(exploded) }},
		{"daily heatmap", func() error { return b.dailyHeatmap(in.Events) }},
		{"hourly heatmap", func() error { return b.hourlyHeatmap(in.Events) }},
		{"library share", func() error { return b.libraryShare(music, in.Library) }},
		{"playlist additions", func() error { return b.playlistAdditions(in.Playlists) }},
		{"playlist plays", func() error { return b.playlistPlays(in.Playlists, played) }},
		{"playlist release years", func() error { return b.releaseYears(in.Playlists) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return nil, fmt.Errorf("building %s: %w", s.name, err)
		}
	}

	b.forgotten(allExploded)
	b.metadata(in, music, allExploded, now)
	if err := b.patterns(recent, allExploded); err != nil {
		return nil, fmt.Errorf("listening patterns: %w", err)
	}

	logging.Info().
		Str("run_id", b.report.Metadata.RunID).
		Int("sections", len(b.report.Sections)).
		Int("events", b.report.Metadata.TotalEvents).
		Msg("built report")
	return b.report, nil
}

func (b *builder) hoursPerYear(events []history.Event) error {
	t, err := aggregate.GroupBy("hours_per_year", events, []string{"year"},
		aggregate.Count("plays"), aggregate.Sum("hours", "hours_played"))
	if err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: "Hours listened per year",
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: "Hours listened per year", X: "year", Value: "hours"},
	})
	return nil
}

func (b *builder) devicePerYear(events []history.Event) error {
	t, err := aggregate.GroupBy("device_per_year", events, []string{"year", "device"},
		aggregate.Count("plays"), aggregate.Sum("hours", "hours_played"))
	if err != nil {
		return err
	}
	if t, err = aggregate.WithShare(t, "hours", "year"); err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: "Listening by device",
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: "Share of hours by device", X: "year", Value: "hours_share", Fill: "device"},
	})
	return nil
}

func (b *builder) topArtists(exploded, allExploded []history.Event) error {
	t, err := aggregate.GroupBy("top_artists", exploded, []string{"artist"},
		aggregate.Count("plays"), aggregate.Sum("hours", "hours_played"))
	if err != nil {
		return err
	}
	if t, err = aggregate.TopN(t, "plays", b.cfg.TopN); err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: b.sinceTitle("Top artists"),
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: b.sinceTitle("Top artists"), X: "artist", Value: "plays", Horizontal: true},
	})

	byYear, err := aggregate.GroupBy("artist_years", allExploded, []string{"artist", "year"}, aggregate.Count("plays"))
	if err != nil {
		return err
	}
	withAlbum := aggregate.FilterEvents(exploded, func(e history.Event) bool { return e.Album != "" })
	albums, err := aggregate.GroupBy("artist_albums", withAlbum, []string{"artist", "album"}, aggregate.Count("plays"))
	if err != nil {
		return err
	}
	if albums, err = aggregate.TopNPer(albums, "plays", albumsPerArtist, "artist"); err != nil {
		return err
	}

	for _, r := range t.Rows {
		name := r.Key[0]
		var counts []yearCount
		for _, yr := range byYear.Rows {
			if yr.Key[0] == name {
				counts = append(counts, yearCount{year: yr.Key[1], count: int(byYear.Value(yr, "plays"))})
			}
		}
		var top []string
		for _, ar := range albums.Rows {
			if ar.Key[0] == name {
				top = append(top, ar.Key[1])
			}
		}
		b.report.TopArtists = append(b.report.TopArtists, ArtistStat{
			Name:      name,
			Plays:     int64(t.Value(r, "plays")),
			Hours:     round(t.Value(r, "hours"), 2),
			PeakYears: peakYears(counts),
			TopAlbums: top,
		})
	}
	return nil
}

func (b *builder) topArtistsPerYear(exploded []history.Event) error {
	t, err := aggregate.GroupBy("top_artists_per_year", exploded, []string{"year", "artist"}, aggregate.Count("plays"))
	if err != nil {
		return err
	}
	if t, err = aggregate.TopNPer(t, "plays", artistsPerYear, "year"); err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: "Top artists of each year",
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: "Top artists of each year", X: "artist", Value: "plays", Facet: "year", Horizontal: true},
	})
	return nil
}

func (b *builder) topTracks(recent []history.Event) error {
	t, err := aggregate.GroupBy("top_tracks", recent, []string{"track", "artist"},
		aggregate.Count("plays"), aggregate.Sum("hours", "hours_played"))
	if err != nil {
		return err
	}
	if t, err = aggregate.TopN(t, "plays", b.cfg.TopN); err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: b.sinceTitle("Top tracks"),
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: b.sinceTitle("Top tracks"), X: "track", Value: "plays", Horizontal: true},
	})

	uris := make(map[history.TrackKey]string)
	for _, e := range recent {
		if _, ok := uris[e.Key()]; !ok && e.TrackURI != "" {
			uris[e.Key()] = e.TrackURI
		}
	}
	for _, r := range t.Rows {
		key := history.TrackKey{Track: r.Key[0], Artist: r.Key[1]}
		b.report.TopTracks = append(b.report.TopTracks, TrackStat{
			Track:  key.Track,
			Artist: key.Artist,
			Plays:  int64(t.Value(r, "plays")),
			Hours:  round(t.Value(r, "hours"), 2),
			URI:    uris[key],
		})
	}
	return nil
}

func (b *builder) flagPerYear(events []history.Event, column, title string) error {
	t, err := aggregate.GroupBy(column+"_per_year", events, []string{"year"},
		aggregate.Count("plays"), aggregate.Proportion(column, column))
	if err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: title,
		Table: t,
		Chart: &Chart{Kind: ChartLine, Title: title, X: "year", Value: column},
	})
	return nil
}

func (b *builder) reasonsPerYear(events []history.Event, column, title string) error {
	name := column + "s_per_year"
	t, err := aggregate.GroupBy(name, events, []string{"year", column}, aggregate.Count("plays"))
	if err != nil {
		return err
	}
	if t, err = aggregate.WithShare(t, "plays", "year"); err != nil {
		return err
	}
	b.add(Section{
		Name:  name,
		Title: title,
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: title, X: "year", Value: "plays_share", Fill: column},
	})
	return nil
}

func (b *builder) skipsByHour(music []history.Event) error {
	t, err := aggregate.GroupBy("skips_by_hour", music, []string{"hour"},
		aggregate.Count("plays"),
		aggregate.Proportion("skipped", "skipped"),
		aggregate.ProportionOf("ended_by_skip", func(e history.Event) bool { return e.EndReason == endedBySkip }))
	if err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: "Skips by hour of day",
		Table: t,
		Chart: &Chart{Kind: ChartLine, Title: "Share of tracks skipped by hour", X: "hour", Value: "ended_by_skip"},
	})
	return nil
}

// artistDensity measures how spread listening is across artists each year.
// Both shares use the year's plays as denominator.
func (b *builder) artistDensity(exploded []history.Event) error {
	events := aggregate.FilterEvents(exploded, aggregate.ExcludeArtist(b.cfg.PrimaryArtist))

	years, err := aggregate.GroupBy("artist_density", events, []string{"year"},
		aggregate.Count("plays"), aggregate.Distinct("artists", "artist"))
	if err != nil {
		return err
	}
	perArtist, err := aggregate.GroupBy("artist_plays", events, []string{"year", "artist"}, aggregate.Count("plays"))
	if err != nil {
		return err
	}
	top, err := aggregate.TopNPer(perArtist, "plays", densityTopN, "year")
	if err != nil {
		return err
	}
	topPlays, err := aggregate.SumBy("top_plays", top, "year")
	if err != nil {
		return err
	}
	topPlays.Measures = []string{"top_plays"}

	t, err := aggregate.LeftJoin("artist_density", years, topPlays)
	if err != nil {
		return err
	}
	t = aggregate.Derive(t, "plays_per_artist", func(get func(string) float64) float64 {
		return ratio(get("plays"), get("artists"))
	})
	t = aggregate.Derive(t, "top_share", func(get func(string) float64) float64 {
		return ratio(get("top_plays"), get("plays"))
	})

	title := "Artist density"
	if b.cfg.PrimaryArtist != "" {
		title = fmt.Sprintf("Artist density (excluding %s)", b.cfg.PrimaryArtist)
	}
	b.add(Section{
		Name:  t.Name,
		Title: title,
		Table: t,
		Chart: &Chart{Kind: ChartLine, Title: "Plays per artist", X: "year", Value: "plays_per_artist"},
	})
	return nil
}

func (b *builder) dailyHeatmap(events []history.Event) error {
	h, err := aggregate.DailyHeatmap("daily_heatmap", events, b.weekStart,
		aggregate.Count("plays"), aggregate.Sum("hours", "hours_played"))
	if err != nil {
		return err
	}
	b.add(Section{
		Name:  h.Name,
		Title: "Hours listened per day",
		Table: h.Table(),
		Chart: &Chart{Kind: ChartHeatmap, Title: "Hours listened per day", X: "week", Row: "weekday", Value: "hours", Facet: "year"},
	})
	return nil
}

func (b *builder) hourlyHeatmap(events []history.Event) error {
	h, err := aggregate.HourlyHeatmap("hourly_heatmap", events, b.weekStart,
		aggregate.Count("plays"), aggregate.Sum("hours", "hours_played"))
	if err != nil {
		return err
	}
	t, err := aggregate.SumBy("hourly_heatmap", h.Table(), "weekday", "hour")
	if err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: "Hours listened by weekday and hour",
		Table: t,
		Chart: &Chart{Kind: ChartHeatmap, Title: "Hours listened by weekday and hour", X: "hour", Row: "weekday", Value: "hours"},
	})
	return nil
}

// libraryShare splits each year's plays by whether the track is saved in the
// library. Membership is by track and artist name.
func (b *builder) libraryShare(music []history.Event, library []history.LibraryEntry) error {
	if len(library) == 0 {
		return nil
	}
	saved := make(map[history.TrackKey]bool, len(library))
	for _, l := range library {
		saved[l.Key()] = true
	}
	year, err := aggregate.Col("year")
	if err != nil {
		return err
	}
	t, err := aggregate.GroupByKeys("library_share_per_year", music,
		[]aggregate.Key{year, aggregate.Membership("in_library", saved)}, aggregate.Count("plays"))
	if err != nil {
		return err
	}
	if t, err = aggregate.WithShare(t, "plays", "year"); err != nil {
		return err
	}
	b.add(Section{
		Name:  t.Name,
		Title: "Plays of saved tracks",
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: "Share of plays from the library", X: "year", Value: "plays_share", Fill: "in_library"},
	})
	return nil
}

func (b *builder) playlistAdditions(playlists []history.PlaylistEntry) error {
	if len(playlists) == 0 {
		return nil
	}
	t := aggregate.CountBy("playlist_additions", playlists, []string{"playlist", "added_by"}, "tracks",
		func(p history.PlaylistEntry) []string { return []string{p.Playlist, p.AddedByName} })
	b.add(Section{
		Name:  t.Name,
		Title: "Tracks added to playlists",
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: "Tracks added per playlist", X: "playlist", Value: "tracks", Fill: "added_by", Horizontal: true},
	})
	return nil
}

type playStats struct {
	plays float64
	hours float64
}

// playlistPlays cross-references playlist tracks with the listening history
// by track and artist name.
func (b *builder) playlistPlays(playlists []history.PlaylistEntry, played []history.Event) error {
	if len(playlists) == 0 {
		return nil
	}
	stats := make(map[history.TrackKey]*playStats)
	for _, e := range played {
		s, ok := stats[e.Key()]
		if !ok {
			s = &playStats{}
			stats[e.Key()] = s
		}
		s.plays++
		s.hours += e.Hours()
	}

	detail := aggregate.Table{
		Name:     "playlist_track_plays",
		Keys:     []string{"playlist", "track", "artist"},
		Measures: []string{"plays", "hours"},
	}
	seen := make(map[[3]string]bool)
	for _, p := range playlists {
		k := [3]string{p.Playlist, p.Track, p.Artist}
		if seen[k] {
			continue
		}
		seen[k] = true
		var s playStats
		if found, ok := stats[p.Key()]; ok {
			s = *found
		}
		detail.Rows = append(detail.Rows, aggregate.Row{Key: k[:], Values: []float64{s.plays, s.hours}})
	}
	detail, err := aggregate.TopNPer(detail, "plays", 0, "playlist")
	if err != nil {
		return err
	}

	counted := aggregate.Derive(detail, "tracks", func(func(string) float64) float64 { return 1 })
	counted = aggregate.Derive(counted, "played_tracks", func(get func(string) float64) float64 {
		if get("plays") > 0 {
			return 1
		}
		return 0
	})
	summary, err := aggregate.SumBy("playlist_plays", counted, "playlist")
	if err != nil {
		return err
	}

	b.add(Section{
		Name:  summary.Name,
		Title: "Plays of playlist tracks",
		Table: summary,
		Chart: &Chart{Kind: ChartBar, Title: "Plays of playlist tracks", X: "playlist", Value: "plays", Horizontal: true},
	})
	b.add(Section{Name: detail.Name, Title: "Plays per playlist track", Table: detail})
	return nil
}

func (b *builder) releaseYears(playlists []history.PlaylistEntry) error {
	dated := lo.Filter(playlists, func(p history.PlaylistEntry, _ int) bool { return p.ReleaseYear > 0 })
	if len(dated) == 0 {
		return nil
	}
	t := aggregate.CountBy("playlist_release_years", dated, []string{"playlist", "release_year"}, "tracks",
		func(p history.PlaylistEntry) []string { return []string{p.Playlist, fmt.Sprint(p.ReleaseYear)} })
	b.add(Section{
		Name:  t.Name,
		Title: "Release years of playlist tracks",
		Table: t,
		Chart: &Chart{Kind: ChartBar, Title: "Release years of playlist tracks", X: "release_year", Value: "tracks", Facet: "playlist"},
	})
	return nil
}

// forgotten lists heavily played artists not heard in the year before the
// last play in the history.
func (b *builder) forgotten(allExploded []history.Event) {
	if last, ok := LastPlay(allExploded); ok {
		b.report.Forgotten = GetForgottenArtists(allExploded, ForgottenConfig{
			LastListenBefore: last.AddDate(-1, 0, 0),
			MinPlays:         ThresholdModerate,
			ResultsPerBand:   forgottenPerBand,
			SortBy:           "dormancy",
		}, last)
	}
	b.add(Section{Name: "forgotten_artists", Title: "Forgotten artists", Table: ForgottenTable(b.report.Forgotten)})
}

func (b *builder) metadata(in Input, music, allExploded []history.Event, now time.Time) {
	md := ProfileMetadata{
		RunID:         uuid.NewString(),
		GeneratedDate: now.Format(history.DateLayout),
		TotalEvents:   len(in.Events),
		TotalArtists:  len(lo.Uniq(lo.Map(allExploded, func(e history.Event, _ int) string { return e.Artist }))),
		TotalTracks:   len(lo.Uniq(lo.Map(music, func(e history.Event, _ int) history.TrackKey { return e.Key() }))),
		TotalHours:    round(lo.SumBy(in.Events, func(e history.Event) float64 { return e.Hours() }), 2),
		Playlists:     len(lo.Uniq(lo.Map(in.Playlists, func(p history.PlaylistEntry, _ int) string { return p.Playlist }))),
		LibraryTracks: len(in.Library),
	}
	if from, to, ok := aggregate.DateRange(in.Events); ok {
		md.FirstDate = from.Format(history.DateLayout)
		md.LastDate = to.Format(history.DateLayout)
	}
	if len(b.report.TopTracks) > 0 {
		md.TopTrackURI = b.report.TopTracks[0].URI
	}
	b.report.Metadata = md
}

func (b *builder) patterns(recent, allExploded []history.Event) error {
	lp := ListeningPatterns{}

	withAlbum := aggregate.FilterEvents(recent, func(e history.Event) bool { return e.Album != "" })
	albums, err := aggregate.GroupBy("albums_per_artist", withAlbum, []string{"artist"}, aggregate.Distinct("albums", "album"))
	if err != nil {
		return err
	}
	albumCounts := albums.Column("albums")
	if len(albumCounts) > 0 {
		lp.AlbumsPerArtistAverage = round(lo.Sum(albumCounts)/float64(len(albumCounts)), 1)
		sort.Float64s(albumCounts)
		mid := len(albumCounts) / 2
		if len(albumCounts)%2 == 1 {
			lp.AlbumsPerArtistMedian = albumCounts[mid]
		} else {
			lp.AlbumsPerArtistMedian = (albumCounts[mid-1] + albumCounts[mid]) / 2
		}
	}

	if len(allExploded) > 0 {
		first := make(map[string]time.Time)
		var last time.Time
		for _, e := range allExploded {
			if t, ok := first[e.Artist]; !ok || e.Timestamp.Before(t) {
				first[e.Artist] = e.Timestamp
			}
			if e.Timestamp.After(last) {
				last = e.Timestamp
			}
		}
		cutoff := last.AddDate(-1, 0, 0)
		lp.NewArtistsInLast12Months = len(lo.PickBy(first, func(_ string, t time.Time) bool { return !t.Before(cutoff) }))

		// (plays - distinct artists) / plays
		plays := float64(len(allExploded))
		lp.RepeatListeningRatio = round((plays-float64(len(first)))/plays, 2)
	}
	b.report.Patterns = lp

	if lp.AlbumsPerArtistMedian >= 2.0 {
		b.report.Metadata.ListeningStyle = "album-oriented"
	} else {
		b.report.Metadata.ListeningStyle = "track-oriented"
	}
	return nil
}

func (b *builder) sinceTitle(title string) string {
	if b.cfg.MinYear > 0 {
		return fmt.Sprintf("%s since %d", title, b.cfg.MinYear)
	}
	return title
}

type yearCount struct {
	year  string
	count int
}

// fillYears adds zero rows for years without plays between the first and
// last year of counts, which must be sorted by year.
func fillYears(counts []yearCount) []yearCount {
	if len(counts) == 0 {
		return counts
	}
	var out []yearCount
	prev := 0
	for i, c := range counts {
		y, err := strconv.Atoi(c.year)
		if err != nil {
			return counts
		}
		for gap := prev + 1; i > 0 && gap < y; gap++ {
			out = append(out, yearCount{year: strconv.Itoa(gap)})
		}
		out = append(out, c)
		prev = y
	}
	return out
}

// peakYears returns the shortest run of consecutive calendar years holding
// at least 80% of the plays, e.g. "2018-2020". Years without plays count
// towards the length of a run.
func peakYears(counts []yearCount) string {
	counts = fillYears(counts)
	total := 0
	for _, c := range counts {
		total += c.count
	}
	if total == 0 {
		return ""
	}
	target := int(float64(total) * 0.8)

	bestStart, bestEnd := -1, -1
	minLen := len(counts) + 1
	for i := range counts {
		sum := 0
		for j := i; j < len(counts); j++ {
			sum += counts[j].count
			if sum >= target {
				if j-i+1 < minLen {
					minLen = j - i + 1
					bestStart, bestEnd = i, j
				}
				break
			}
		}
	}
	if bestStart == -1 {
		return ""
	}
	if bestStart == bestEnd {
		return counts[bestStart].year
	}
	return fmt.Sprintf("%s-%s", counts[bestStart].year, counts[bestEnd].year)
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
