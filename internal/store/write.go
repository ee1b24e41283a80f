package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ademuri/spotify-report/internal/history"
)

// CreateUser ensures a user exists in the database.
func (s *Store) CreateUser(user string) error {
	row := s.db.QueryRow("SELECT name FROM User WHERE name = ?", user)
	var name string
	err := row.Scan(&name)
	if err == sql.ErrNoRows {
		_, err := s.db.Exec("INSERT INTO User (name) VALUES (?)", user)
		if err != nil {
			return fmt.Errorf("inserting user %q: %w", user, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking user %q: %w", user, err)
	}
	return nil
}

// LastUpdated returns the latest play saved for user, or the zero time.
func (s *Store) LastUpdated(user string) (time.Time, error) {
	var updated sql.NullTime
	err := s.db.QueryRow("SELECT last_updated FROM User WHERE name = ?", user).Scan(&updated)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading last_updated for %q: %w", user, err)
	}
	return updated.Time, nil
}

func setLastUpdated(tx *sql.Tx, user string, updated time.Time) error {
	_, err := tx.Exec("UPDATE User SET last_updated = ? WHERE name = ? AND (last_updated IS NULL OR last_updated < ?)", updated, user, updated)
	if err != nil {
		return fmt.Errorf("updating last_updated for %q: %w", user, err)
	}
	return nil
}

// SaveEvents inserts music plays transactionally and returns how many were
// new. A play already stored for the same track at the same timestamp is
// skipped, so saving the same export twice is a no-op. Podcast episodes and
// plays without a track name are not stored.
func (s *Store) SaveEvents(events []history.Event) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	latest := make(map[string]time.Time)
	inserted := 0
	for _, e := range events {
		if e.Track == "" || e.IsEpisode() {
			continue
		}
		if e.Username != "" {
			last, seen := latest[e.Username]
			if !seen {
				if err := createUser(tx, e.Username); err != nil {
					return 0, err
				}
			}
			if !seen || e.Timestamp.After(last) {
				latest[e.Username] = e.Timestamp
			}
		}
		if err := createArtist(tx, e.Artist); err != nil {
			return 0, err
		}
		if err := createAlbum(tx, e.Artist, e.Album); err != nil {
			return 0, err
		}
		trackID, err := createTrack(tx, e.Artist, e.Album, e.Track, e.TrackURI)
		if err != nil {
			return 0, err
		}
		added, err := createListen(tx, trackID, e)
		if err != nil {
			return 0, err
		}
		if added {
			inserted++
		}
	}

	for user, last := range latest {
		if err := setLastUpdated(tx, user, last.UTC()); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return inserted, nil
}

func createUser(tx *sql.Tx, name string) error {
	if _, err := tx.Exec("INSERT OR IGNORE INTO User (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("inserting user %q: %w", name, err)
	}
	return nil
}

func createArtist(tx *sql.Tx, name string) error {
	var dummy string
	err := tx.QueryRow("SELECT name FROM Artist WHERE name = ?", name).Scan(&dummy)
	if err == sql.ErrNoRows {
		_, err := tx.Exec("INSERT INTO Artist (name) VALUES (?)", name)
		if err != nil {
			return fmt.Errorf("inserting artist %q: %w", name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking artist %q: %w", name, err)
	}
	return nil
}

func createAlbum(tx *sql.Tx, artist, name string) error {
	var dummy string
	err := tx.QueryRow("SELECT name FROM Album WHERE artist = ? AND name = ?", artist, name).Scan(&dummy)
	if err == sql.ErrNoRows {
		_, err := tx.Exec("INSERT INTO Album (artist, name) VALUES (?, ?)", artist, name)
		if err != nil {
			return fmt.Errorf("inserting album %q for %q: %w", name, artist, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking album %q: %w", name, err)
	}
	return nil
}

func createTrack(tx *sql.Tx, artist, album, name, uri string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM Track WHERE artist = ? AND album = ? AND name = ?", artist, album, name).Scan(&id)
	if err == nil {
		if uri != "" {
			if _, err := tx.Exec("UPDATE Track SET uri = ? WHERE id = ? AND (uri IS NULL OR uri = '')", uri, id); err != nil {
				return 0, fmt.Errorf("updating uri for %q: %w", name, err)
			}
		}
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking track %q: %w", name, err)
	}

	res, err := tx.Exec("INSERT INTO Track (artist, album, name, uri) VALUES (?, ?, ?, ?)", artist, album, name, uri)
	if err != nil {
		return 0, fmt.Errorf("inserting track %q: %w", name, err)
	}
	return res.LastInsertId()
}

func createListen(tx *sql.Tx, trackID int64, e history.Event) (bool, error) {
	date := e.Timestamp.Unix()
	var dummy int64
	err := tx.QueryRow("SELECT id FROM Listen WHERE date = ? AND track = ?", date, trackID).Scan(&dummy)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("checking listen: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO Listen
		(user, track, date, year, ms_played, platform, device, shuffle, skipped, country)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Username, trackID, date, e.Year, e.MsPlayed, e.Platform, string(e.Device),
		flagValue(e.Shuffle), flagValue(e.Skipped), e.Country)
	if err != nil {
		return false, fmt.Errorf("inserting listen: %w", err)
	}
	return true, nil
}

// flagValue stores an absent flag as NULL.
func flagValue(f history.Flag) interface{} {
	switch f {
	case history.FlagTrue:
		return 1
	case history.FlagFalse:
		return 0
	}
	return nil
}
