package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Read reads a table from a file written by Write, or any csv, json or xlsx
// file with a header. The format is given by the file extension.
func Read(path string) (*dataterm.Table, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file, f)
}

// Decode reads a table in format f. Column kinds are inferred from the values.
func Decode(r io.Reader, f Format) (*dataterm.Table, error) {
	var (
		header  []string
		records [][]string
		err     error
	)
	switch f {
	case CSV:
		header, records, err = decodeCSV(r)
	case JSON:
		header, records, err = decodeJSON(r)
	case XLSX:
		header, records, err = decodeXLSX(r)
	default:
		return nil, fmt.Errorf("%w: cannot read format %q", dataterm.ErrInvalidParameters, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dataterm.ErrInvalidParameters, f, err)
	}
	return Infer(header, records)
}

func decodeCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no header")
	}
	// Excel writes a BOM before the header
	rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	return rows[0], rows[1:], nil
}

// decodeJSON reads either an object with the column names and the records,
// as written by Write, or a bare array of flat objects. Columns not named in
// the header follow in order of appearance.
func decodeJSON(r io.Reader) ([]string, [][]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	j := &jsonRecords{index: map[string]int{}}
	switch tok {
	case json.Delim('['):
		err = j.readArray(dec)
	case json.Delim('{'):
		err = j.readObject(dec)
	default:
		err = fmt.Errorf("want an array of records")
	}
	if err != nil {
		return nil, nil, err
	}
	records := make([][]string, len(j.objects))
	for i, obj := range j.objects {
		records[i] = make([]string, len(j.header))
		for key, v := range obj {
			records[i][j.index[key]] = v
		}
	}
	return j.header, records, nil
}

type jsonRecords struct {
	header  []string
	index   map[string]int
	objects []map[string]string
}

func (j *jsonRecords) column(name string) {
	if _, ok := j.index[name]; !ok {
		j.index[name] = len(j.header)
		j.header = append(j.header, name)
	}
}

// readObject reads the members of {"columns": [...], "records": [...]} after
// the opening brace.
func (j *jsonRecords) readObject(dec *json.Decoder) error {
	var hasColumns bool
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok {
		case "columns":
			var names []string
			if err := dec.Decode(&names); err != nil {
				return fmt.Errorf("columns: %w", err)
			}
			for _, name := range names {
				j.column(name)
			}
			hasColumns = true
		case "records":
			if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
				return fmt.Errorf("records: want an array of records")
			}
			if err := j.readArray(dec); err != nil {
				return err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
		}
	}
	if !hasColumns {
		return fmt.Errorf("want an array of records or an object with columns")
	}
	_, err := dec.Token()
	return err
}

// readArray reads flat objects up to the closing bracket of the array.
func (j *jsonRecords) readArray(dec *json.Decoder) error {
	for dec.More() {
		if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
			return fmt.Errorf("want a record object")
		}
		obj := map[string]string{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key := tok.(string)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			v, err := jsonText(raw)
			if err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			j.column(key)
			obj[key] = v
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
		j.objects = append(j.objects, obj)
	}
	_, err := dec.Token()
	return err
}

// jsonText returns the text of a scalar JSON value, null is empty.
func jsonText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(raw, []byte("null")):
		return "", nil
	case len(raw) > 0 && raw[0] == '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case len(raw) > 0 && (raw[0] == '{' || raw[0] == '['):
		return "", fmt.Errorf("nested values are not supported")
	default:
		return string(raw), nil
	}
}

func decodeXLSX(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("no sheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no header")
	}
	header := rows[0]
	n := len(rows) - 1
	// trailing rows without values are not returned, the dimension counts them
	if dim, err := f.GetSheetDimension(sheets[0]); err == nil {
		if _, last, ok := strings.Cut(dim, ":"); ok {
			if _, row, err := excelize.CellNameToCoordinates(last); err == nil && row-1 > n {
				n = row - 1
			}
		}
	}
	records := make([][]string, 0, n)
	for i := range n {
		// trailing empty cells are not returned
		record := make([]string, len(header))
		if i+1 < len(rows) {
			copy(record, rows[i+1])
		}
		records = append(records, record)
	}
	return header, records, nil
}

// Infer builds a table from text records. A column is an integer, a float or
// a date column when all its non empty values parse as such, a category
// column otherwise. Empty values are missing.
func Infer(header []string, records [][]string) (*dataterm.Table, error) {
	columns := make([]dataterm.Column, len(header))
	for j, name := range header {
		values := make([]string, len(records))
		for i, record := range records {
			if j < len(record) {
				values[i] = strings.TrimSpace(record[j])
			}
		}
		columns[j] = inferColumn(strings.TrimSpace(name), values)
	}
	t, err := dataterm.NewTable(columns...)
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: record %d has %d fields for %d columns", dataterm.ErrInvalidParameters, i+1, len(record), len(header))
		}
		row := make([]any, len(record))
		for j, s := range record {
			row[j] = strings.TrimSpace(s)
		}
		if err := t.Append(row...); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return t, nil
}

func inferColumn(name string, values []string) dataterm.Column {
	integer, float, day, seen := true, true, true, false
	for _, s := range values {
		if s == "" {
			continue
		}
		seen = true
		if integer {
			_, err := strconv.ParseInt(s, 10, 64)
			integer = err == nil
		}
		if float {
			_, err := decimal.NewFromString(s)
			float = err == nil
		}
		if day {
			_, err := time.Parse(date.DateFormat, s)
			day = err == nil
		}
	}
	switch {
	case !seen:
		return dataterm.Category(name)
	case integer:
		return dataterm.Integer(name)
	case float:
		return dataterm.Float(name)
	case day:
		return dataterm.Date(name)
	default:
		return dataterm.Category(name)
	}
}
