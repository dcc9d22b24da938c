// Package ingest reads answer sheets and feedback banks into model types.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrIngestion matches every *Error via errors.Is.
var ErrIngestion = errors.New("ingestion failed")

// Error reports input that could not be read or is malformed. It is fatal
// for the whole report.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrIngestion) true for any ingestion error.
func (e *Error) Is(target error) bool { return target == ErrIngestion }

func ingestErr(source string, format string, args ...any) error {
	return &Error{Source: source, Err: fmt.Errorf(format, args...)}
}

// Kind is a supported input file format.
type Kind string

const (
	KindXLSX Kind = "xlsx"
	KindCSV  Kind = "csv"
	KindJSON Kind = "json"
	KindYAML Kind = "yaml"
)

// KindOf guesses the format from a file name extension.
func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return KindXLSX
	case ".csv":
		return KindCSV
	case ".yaml", ".yml":
		return KindYAML
	case ".json":
		return KindJSON
	}
	return ""
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Source: path, Err: err}
	}
	return f, nil
}
