// Package export reads Spotify data exports: extended streaming history,
// playlists, the saved library, user alias tables and previously written
// event CSVs. Every record is decoded against an explicit schema; a record
// that does not fit is fatal for the whole load.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Discover returns the files in dir matching the glob pattern, sorted so
// that files are always merged in the same order.
func Discover(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return nil, &MissingInputError{Dir: dir, Pattern: pattern}
	}
	sort.Strings(files)
	return files, nil
}

// RequireAll checks that every non-empty pattern matches at least one file.
func RequireAll(dir string, patterns ...string) error {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if _, err := Discover(dir, p); err != nil {
			return err
		}
	}
	return nil
}
