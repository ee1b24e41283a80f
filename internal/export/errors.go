package export

import "fmt"

// MissingInputError means no file in Dir matched Pattern. It aborts a build
// before anything is aggregated.
type MissingInputError struct {
	Dir     string
	Pattern string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("no input files matching %q in %s", e.Pattern, e.Dir)
}

// MalformedRecordError means a file could not be decoded into the expected
// record shape. Record is 1-based; 0 refers to the file as a whole.
type MalformedRecordError struct {
	File   string
	Record int
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Record == 0 {
		return fmt.Sprintf("malformed file %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("malformed record %d in %s: %v", e.Record, e.File, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
