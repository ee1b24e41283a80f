package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ademuri/spotify-report/internal/history"
)

var eventColumns = []string{
	"ts", "track", "artist", "album", "ms_played", "platform",
	"shuffle", "incognito", "offline", "skipped",
	"reason_start", "reason_end", "username", "conn_country", "track_uri",
	"episode_name", "episode_show",
}

func formatFlag(f history.Flag) string {
	return f.String()
}

func parseFlag(s string) (history.Flag, error) {
	switch s {
	case "":
		return history.FlagAbsent, nil
	case "true":
		return history.FlagTrue, nil
	case "false":
		return history.FlagFalse, nil
	}
	return history.FlagAbsent, fmt.Errorf("invalid flag %q", s)
}

// WriteEventCSV writes the raw columns of events; derived columns are
// recomputed by the Normalizer on load.
func WriteEventCSV(w io.Writer, events []history.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventColumns); err != nil {
		return err
	}
	for _, e := range events {
		rec := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Track,
			e.Artist,
			e.Album,
			strconv.FormatInt(e.MsPlayed, 10),
			e.Platform,
			formatFlag(e.Shuffle),
			formatFlag(e.Incognito),
			formatFlag(e.Offline),
			formatFlag(e.Skipped),
			e.ReasonStart,
			e.ReasonEnd,
			e.Username,
			e.Country,
			e.TrackURI,
			e.EpisodeName,
			e.EpisodeShow,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func LoadEventCSV(path string) ([]history.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingInputError{Dir: filepath.Dir(path), Pattern: filepath.Base(path)}
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return readEventCSV(path, f)
}

func readEventCSV(name string, r io.Reader) ([]history.Event, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, &MalformedRecordError{File: name, Err: fmt.Errorf("reading header: %w", err)}
	}
	if len(header) != len(eventColumns) {
		return nil, &MalformedRecordError{File: name, Err: fmt.Errorf("expected %d columns, got %d", len(eventColumns), len(header))}
	}
	for i, col := range eventColumns {
		if header[i] != col {
			return nil, &MalformedRecordError{File: name, Err: fmt.Errorf("column %d is %q, expected %q", i+1, header[i], col)}
		}
	}

	var events []history.Event
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedRecordError{File: name, Record: n, Err: err}
		}
		e, err := parseEventRecord(rec)
		if err != nil {
			return nil, &MalformedRecordError{File: name, Record: n, Err: err}
		}
		events = append(events, e)
	}
	return events, nil
}

func parseEventRecord(rec []string) (history.Event, error) {
	var e history.Event
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return e, fmt.Errorf("parsing ts: %w", err)
	}
	ms, err := strconv.ParseInt(rec[4], 10, 64)
	if err != nil {
		return e, fmt.Errorf("parsing ms_played: %w", err)
	}
	flags := make([]history.Flag, 4)
	for i := range flags {
		if flags[i], err = parseFlag(rec[6+i]); err != nil {
			return e, fmt.Errorf("column %s: %w", eventColumns[6+i], err)
		}
	}
	return history.Event{
		Timestamp:   ts.UTC(),
		Track:       rec[1],
		Artist:      rec[2],
		Album:       rec[3],
		MsPlayed:    ms,
		Platform:    rec[5],
		Shuffle:     flags[0],
		Incognito:   flags[1],
		Offline:     flags[2],
		Skipped:     flags[3],
		ReasonStart: rec[10],
		ReasonEnd:   rec[11],
		Username:    rec[12],
		Country:     rec[13],
		TrackURI:    rec[14],
		EpisodeName: rec[15],
		EpisodeShow: rec[16],
	}, nil
}
