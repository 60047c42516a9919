package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the worksheet holding the table in xlsx files.
const SheetName = "data"

// Write serializes every row of t to dest in format f.
//
// The table is written to a temporary file in the destination directory
// which is renamed to dest on success, and removed otherwise.
func Write(t *dataterm.Table, f Format, dest string) (err error) {
	if f == None {
		return fmt.Errorf("%w: no export format", dataterm.ErrInvalidParameters)
	}
	encode, err := encoder(f)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create export file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = encode(w, t); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// Encode serializes every row of t to w in format f.
func Encode(w io.Writer, t *dataterm.Table, f Format) error {
	encode, err := encoder(f)
	if err != nil {
		return err
	}
	return encode(w, t)
}

func encoder(f Format) (func(io.Writer, *dataterm.Table) error, error) {
	switch f {
	case CSV:
		return encodeCSV, nil
	case JSON:
		return encodeJSON, nil
	case XLSX:
		return encodeXLSX, nil
	}
	_, err := ParseFormat(string(f))
	if err == nil {
		err = fmt.Errorf("%w: no export format", dataterm.ErrInvalidParameters)
	}
	return nil, err
}

// text returns the file representation of a cell, missing values are empty.
// Floats always carry a decimal point so that they read back as floats.
func text(v any) string {
	switch x := v.(type) {
	case date.Date:
		return x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	}
	return ""
}

func encodeCSV(w io.Writer, t *dataterm.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	record := make([]string, t.Width())
	for _, row := range t.Rows() {
		for j, v := range row {
			record[j] = text(v)
		}
		if len(record) == 1 && record[0] == "" {
			// a blank line would be skipped by readers
			cw.Flush()
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// encodeJSON writes an object holding the column names and an array of
// records whose keys follow the column order.
func encodeJSON(w io.Writer, t *dataterm.Table) error {
	names := t.Names()
	columns, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "{\"columns\":%s,\"records\":[", columns); err != nil {
		return err
	}
	for i, row := range t.Rows() {
		var obj jsonObjectWriter
		for j, v := range row {
			obj.Append(names[j], jsonValue(v))
		}
		b, err := obj.MarshalJSON()
		if err != nil {
			return err
		}
		sep := ",\n  "
		if i == 0 {
			sep = "\n  "
		}
		if _, err := io.WriteString(w, sep); err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	end := "\n]}\n"
	if t.Len() == 0 {
		end = "]}\n"
	}
	_, err = io.WriteString(w, end)
	return err
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		if s := text(x); s != "" {
			return json.Number(s)
		}
		return nil
	case int64, string, date.Date:
		return x
	}
	return nil
}

func encodeXLSX(w io.Writer, t *dataterm.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	header := make([]any, t.Width())
	for j, name := range t.Names() {
		header[j] = name
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.Rows() {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = xlsxValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return err
		}
	}
	if t.Width() > 0 {
		// readers use the dimension to keep trailing rows of missing values
		last, err := excelize.CoordinatesToCellName(t.Width(), t.Len()+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetDimension(SheetName, "A1:"+last); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case date.Date:
		return x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case int64, string:
		return x
	}
	return nil
}
