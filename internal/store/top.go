package store

import (
	"database/sql"
	"fmt"
	"time"
)

type ArtistPlayCount struct {
	Artist string
	Count  int64
}

type AlbumPlayCount struct {
	Artist string
	Album  string
	Count  int64
}

type TrackPlayCount struct {
	Artist string
	Track  string
	URI    string
	Count  int64
}

type YearCount struct {
	Year  int
	Plays int64
	Hours float64
}

// Rankings cover plays in [start, end) and order by play count, then by
// name, matching the in-memory aggregation. A limit of zero or less returns
// every row.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func (s *Store) TopArtists(start, end time.Time, limit int) ([]ArtistPlayCount, error) {
	query := `
	SELECT Track.artist, COUNT(Listen.id)
	FROM Listen
	INNER JOIN Track ON Track.id = Listen.track
	WHERE Listen.date >= ? AND Listen.date < ?
	GROUP BY Track.artist
	ORDER BY COUNT(*) DESC, Track.artist ASC
	LIMIT ?
	`
	rows, err := s.db.Query(query, start.Unix(), end.Unix(), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying top artists: %w", err)
	}
	defer rows.Close()

	var results []ArtistPlayCount
	for rows.Next() {
		var apc ArtistPlayCount
		if err := rows.Scan(&apc.Artist, &apc.Count); err != nil {
			return nil, err
		}
		results = append(results, apc)
	}
	return results, rows.Err()
}

func (s *Store) TopAlbums(start, end time.Time, limit int) ([]AlbumPlayCount, error) {
	query := `
	SELECT Track.artist, Track.album, COUNT(Listen.id)
	FROM Listen
	INNER JOIN Track ON Track.id = Listen.track
	WHERE Listen.date >= ? AND Listen.date < ?
	GROUP BY Track.artist, Track.album
	ORDER BY COUNT(*) DESC, Track.album ASC, Track.artist ASC
	LIMIT ?
	`
	rows, err := s.db.Query(query, start.Unix(), end.Unix(), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying top albums: %w", err)
	}
	defer rows.Close()

	var results []AlbumPlayCount
	for rows.Next() {
		var apc AlbumPlayCount
		if err := rows.Scan(&apc.Artist, &apc.Album, &apc.Count); err != nil {
			return nil, err
		}
		results = append(results, apc)
	}
	return results, rows.Err()
}

func (s *Store) TopTracks(start, end time.Time, limit int) ([]TrackPlayCount, error) {
	query := `
	SELECT Track.artist, Track.name, COALESCE(Track.uri, ''), COUNT(Listen.id)
	FROM Listen
	INNER JOIN Track ON Track.id = Listen.track
	WHERE Listen.date >= ? AND Listen.date < ?
	GROUP BY Track.artist, Track.name
	ORDER BY COUNT(*) DESC, Track.name ASC, Track.artist ASC
	LIMIT ?
	`
	rows, err := s.db.Query(query, start.Unix(), end.Unix(), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying top tracks: %w", err)
	}
	defer rows.Close()

	var results []TrackPlayCount
	for rows.Next() {
		var tpc TrackPlayCount
		if err := rows.Scan(&tpc.Artist, &tpc.Track, &tpc.URI, &tpc.Count); err != nil {
			return nil, err
		}
		results = append(results, tpc)
	}
	return results, rows.Err()
}

func (s *Store) CountByYear() ([]YearCount, error) {
	rows, err := s.db.Query(`
	SELECT year, COUNT(id), COALESCE(SUM(ms_played), 0) / 3600000.0
	FROM Listen
	GROUP BY year
	ORDER BY year ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying plays per year: %w", err)
	}
	defer rows.Close()

	var results []YearCount
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Plays, &yc.Hours); err != nil {
			return nil, err
		}
		results = append(results, yc)
	}
	return results, rows.Err()
}

func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM Listen").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting listens: %w", err)
	}
	return count, nil
}

// DateRange returns the first and last stored play. ok is false when the
// snapshot is empty.
func (s *Store) DateRange() (first, last time.Time, ok bool, err error) {
	var minDate, maxDate sql.NullInt64
	if err := s.db.QueryRow("SELECT MIN(date), MAX(date) FROM Listen").Scan(&minDate, &maxDate); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("querying date range: %w", err)
	}
	if !minDate.Valid || !maxDate.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return time.Unix(minDate.Int64, 0).UTC(), time.Unix(maxDate.Int64, 0).UTC(), true, nil
}
