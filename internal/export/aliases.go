package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LoadAliases reads a two column id,name table. Files ending in .tsv are tab
// separated. A first row of "id,name" is treated as a header.
func LoadAliases(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingInputError{Dir: filepath.Dir(path), Pattern: filepath.Base(path)}
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true
	r.Comment = '#'

	aliases := make(map[string]string)
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedRecordError{File: path, Record: line, Err: err}
		}
		if line == 1 && strings.EqualFold(rec[0], "id") && strings.EqualFold(rec[1], "name") {
			continue
		}
		id := strings.TrimSpace(rec[0])
		if id == "" {
			return nil, &MalformedRecordError{File: path, Record: line, Err: fmt.Errorf("empty id")}
		}
		aliases[id] = strings.TrimSpace(rec[1])
	}
	return aliases, nil
}
