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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ademuri/spotify-report/internal/analysis"
	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/export"
	"github.com/ademuri/spotify-report/internal/history"
	"github.com/ademuri/spotify-report/internal/logging"
	"github.com/ademuri/spotify-report/internal/store"
)

func normalizer(cfg config.Config) (history.Normalizer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return history.Normalizer{}, err
	}
	return history.Normalizer{Location: loc, WeekStart: cfg.FirstWeekday()}, nil
}

// loadInput reads every configured export. All patterns are checked before
// any file is decoded, so a missing file fails the run up front.
func loadInput(cfg config.Config) (analysis.Input, error) {
	if err := export.RequireAll(cfg.InputDir, cfg.HistoryPattern, cfg.PlaylistPattern, cfg.LibraryPattern); err != nil {
		return analysis.Input{}, err
	}

	events, err := loadHistory(cfg)
	if err != nil {
		return analysis.Input{}, err
	}
	playlists, err := loadPlaylists(cfg)
	if err != nil {
		return analysis.Input{}, err
	}

	var library []history.LibraryEntry
	if cfg.LibraryPattern != "" {
		library, err = export.LoadLibrary(cfg.InputDir, cfg.LibraryPattern)
		if err != nil {
			return analysis.Input{}, fmt.Errorf("loading library: %w", err)
		}
		logging.Info().Int("tracks", len(library)).Msg("loaded library")
	}

	return analysis.Input{Events: events, Playlists: playlists, Library: library}, nil
}

func loadHistory(cfg config.Config) ([]history.Event, error) {
	n, err := normalizer(cfg)
	if err != nil {
		return nil, err
	}
	raw, err := export.LoadEvents(cfg.InputDir, cfg.HistoryPattern)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	events := n.NormalizeAll(raw)
	logging.Info().Int("events", len(events)).Msg("loaded streaming history")
	return events, nil
}

func loadPlaylists(cfg config.Config) ([]history.PlaylistEntry, error) {
	if cfg.PlaylistPattern == "" {
		return nil, nil
	}
	var aliases map[string]string
	if cfg.AliasFile != "" {
		var err error
		aliases, err = export.LoadAliases(cfg.AliasFile)
		if err != nil {
			return nil, fmt.Errorf("loading aliases: %w", err)
		}
	}
	entries, err := export.LoadPlaylists(cfg.InputDir, cfg.PlaylistPattern)
	if err != nil {
		return nil, fmt.Errorf("loading playlists: %w", err)
	}
	logging.Info().Int("entries", len(entries)).Msg("loaded playlists")
	return history.NormalizePlaylist(entries, aliases), nil
}

// loadEventCSV reads a previously written events table and recomputes the
// derived fields for this run's timezone and week start.
func loadEventCSV(cfg config.Config) ([]history.Event, error) {
	n, err := normalizer(cfg)
	if err != nil {
		return nil, err
	}
	raw, err := export.LoadEventCSV(cfg.EventsCSV)
	if err != nil {
		return nil, fmt.Errorf("loading events table: %w", err)
	}
	return n.NormalizeAll(raw), nil
}

// saveEventCSV writes the events table. A failure is reported like any
// other output file and does not stop the run.
func saveEventCSV(path string, events []history.Event) (err error) {
	wrap := func(err error) error { return fmt.Errorf("writing events table: %w", err) }
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return wrap(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return wrap(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = wrap(cerr)
		}
	}()
	if err := export.WriteEventCSV(f, events); err != nil {
		return wrap(err)
	}
	return nil
}

func saveSnapshot(path string, events []history.Event) error {
	db, err := store.New(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer db.Close()

	inserted, err := db.SaveEvents(events)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	logging.Info().Str("database", path).Int("inserted", inserted).Msg("updated snapshot")
	return nil
}

// describeLoadError adds a hint for the errors a user can fix by pointing
// at the right files.
func describeLoadError(err error) error {
	var missing *export.MissingInputError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w (check --input_dir and the *_pattern flags)", err)
	}
	return err
}
