// Package export writes tables to interchange files and reads them back.
//
// Files are written to a temporary file next to the destination, then
// renamed: a destination is either absent, its previous version, or complete.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/etnz/dataterm"
)

// Format is an interchange file format.
type Format string

const (
	None Format = ""
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// Formats lists the supported formats.
var Formats = []Format{CSV, JSON, XLSX}

// ParseFormat parses a format name, the empty string is None.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case None, CSV, JSON, XLSX:
		return f, nil
	default:
		return None, fmt.Errorf("%w: unknown export format %q, want csv, json or xlsx", dataterm.ErrInvalidParameters, s)
	}
}

// FormatOf returns the format of a file name from its extension.
func FormatOf(path string) (Format, error) {
	f, err := ParseFormat(filepath.Ext(path))
	if err == nil && f == None {
		err = fmt.Errorf("%w: %q has no extension", dataterm.ErrInvalidParameters, path)
	}
	return f, err
}

// Ext returns the file extension of the format, with a dot.
func (f Format) Ext() string {
	if f == None {
		return ""
	}
	return "." + string(f)
}
