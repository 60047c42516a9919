package export

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prices(t *testing.T) *dataterm.Table {
	t.Helper()
	table := dataterm.MustTable(dataterm.Date("date"), dataterm.Money("close", "USD"), dataterm.Integer("volume"), dataterm.Category("note"))
	day := date.New(2024, 1, 1)
	for i := range 5 {
		require.NoError(t, table.Append(day.Add(i), 100.25+float64(i), int64(1000*(i+1)), "n"))
	}
	require.NoError(t, table.Append(day.Add(5), math.NaN(), nil, ""))
	return table
}

func TestParseFormat(t *testing.T) {
	for s, want := range map[string]Format{"csv": CSV, "JSON": JSON, ".xlsx": XLSX, "": None} {
		f, err := ParseFormat(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, f)
	}
	_, err := ParseFormat("parquet")
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)

	_, err = FormatOf("prices")
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)
	f, err := FormatOf("out/AAPL_20240101_101010.csv")
	require.NoError(t, err)
	assert.Equal(t, ".csv", f.Ext())
}

func TestRoundTrip(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "AAPL"+f.Ext())
			table := prices(t)
			require.NoError(t, Write(table, f, dest))

			got, err := Read(dest)
			require.NoError(t, err)
			assert.Equal(t, table.Len(), got.Len())
			assert.Equal(t, table.Names(), got.Names())

			_, c, err := got.Column("date")
			require.NoError(t, err)
			assert.Equal(t, dataterm.KindDate, c.Kind)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "no temporary file is left")
		})
	}
}

func TestRoundTripKinds(t *testing.T) {
	for _, f := range []Format{CSV, JSON} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, prices(t), f))
		got, err := Decode(&buf, f)
		require.NoError(t, err)

		kinds := make([]dataterm.Kind, 0, got.Width())
		for _, c := range got.Columns() {
			kinds = append(kinds, c.Kind)
		}
		assert.Equal(t, []dataterm.Kind{dataterm.KindDate, dataterm.KindFloat, dataterm.KindInteger, dataterm.KindCategory}, kinds, f)

		v, err := got.Value(5, "volume")
		require.NoError(t, err)
		assert.Nil(t, v, "missing values read back as missing")
		closes, err := got.Floats("close")
		require.NoError(t, err)
		assert.Equal(t, 100.25, closes[0])
		assert.True(t, math.IsNaN(closes[5]))
	}
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, prices(t).Head(2), CSV))
	assert.Equal(t, "date,close,volume,note\n2024-01-01,100.25,1000,n\n2024-01-02,101.25,2000,n\n", buf.String())
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	table := dataterm.MustTable(dataterm.Float("b"), dataterm.Float("a"))
	require.NoError(t, table.Append(1.0, math.NaN()))
	require.NoError(t, Encode(&buf, table, JSON))
	assert.Equal(t, "{\"columns\":[\"b\",\"a\"],\"records\":[\n  {\"b\":1.0,\"a\":null}\n]}\n", buf.String())

	var doc struct {
		Columns []string         `json:"columns"`
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, []string{"b", "a"}, doc.Columns)
	assert.Len(t, doc.Records, 1)

	buf.Reset()
	require.NoError(t, Encode(&buf, table.Empty(), JSON))
	assert.Equal(t, "{\"columns\":[\"b\",\"a\"],\"records\":[]}\n", buf.String())
}

func TestRoundTripEmpty(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "FUNDS"+f.Ext())
			table := dataterm.MustTable(dataterm.Category("fund"), dataterm.Float("nav"))
			require.NoError(t, Write(table, f, dest))

			got, err := Read(dest)
			require.NoError(t, err)
			assert.Zero(t, got.Len())
			assert.Equal(t, []string{"fund", "nav"}, got.Names())
		})
	}
}

func TestRoundTripMissingRows(t *testing.T) {
	single := dataterm.MustTable(dataterm.Float("close"))
	for _, v := range []float64{1, math.NaN(), 3} {
		require.NoError(t, single.Append(v))
	}
	trailing := dataterm.MustTable(dataterm.Date("date"), dataterm.Float("close"))
	require.NoError(t, trailing.Append(date.New(2024, 1, 1), 1.0))
	require.NoError(t, trailing.Append(nil, math.NaN()))
	require.NoError(t, trailing.Append(nil, math.NaN()))

	for _, f := range Formats {
		for name, table := range map[string]*dataterm.Table{"single": single, "trailing": trailing} {
			t.Run(string(f)+"/"+name, func(t *testing.T) {
				dest := filepath.Join(t.TempDir(), name+f.Ext())
				require.NoError(t, Write(table, f, dest))

				got, err := Read(dest)
				require.NoError(t, err)
				assert.Equal(t, table.Len(), got.Len())
				assert.Equal(t, table.Names(), got.Names())
			})
		}
	}
}

func TestEncodeCSVSingleColumn(t *testing.T) {
	table := dataterm.MustTable(dataterm.Float("close"))
	for _, v := range []float64{1, math.NaN(), 3} {
		require.NoError(t, table.Append(v))
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, table, CSV))
	assert.Equal(t, "close\n1.0\n\"\"\n3.0\n", buf.String())
}

func TestDecodeJSONObject(t *testing.T) {
	got, err := Decode(strings.NewReader(`{"columns":["a","b"],"source":"x","records":[{"b":2,"c":"z"}]}`), JSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.Names())
	assert.Equal(t, 1, got.Len())
	v, err := got.Value(0, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestWriteEmptyTable(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "EMPTY.csv")
	require.NoError(t, Write(prices(t).Empty(), CSV, dest))
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "date,close,volume,note\n", string(b))
}

func TestWriteErrors(t *testing.T) {
	dir := t.TempDir()
	err := Write(prices(t), None, filepath.Join(dir, "x"))
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)

	err = Write(prices(t), Format("parquet"), filepath.Join(dir, "x.parquet"))
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)

	// the destination is a directory: rename fails and the temporary file goes
	dest := filepath.Join(dir, "taken.csv")
	require.NoError(t, os.Mkdir(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "keep"), nil, 0o644))
	assert.Error(t, Write(prices(t), CSV, dest))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(strings.NewReader(""), CSV)
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)

	_, err = Decode(strings.NewReader(`{"a":1}`), JSON)
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)

	_, err = Decode(strings.NewReader(`[{"a":{"b":1}}]`), JSON)
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)

	_, err = Decode(strings.NewReader("a,a\n1,2\n"), CSV)
	assert.ErrorIs(t, err, dataterm.ErrInvalidParameters)
}

func TestDecodeJSONKeyOrder(t *testing.T) {
	got, err := Decode(strings.NewReader(`[{"z":"x","a":1},{"a":2,"m":"2024-01-01"}]`), JSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, got.Names())
	v, err := got.Value(0, "m")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestInfer(t *testing.T) {
	got, err := Infer([]string{"i", "f", "d", "c", "e"}, [][]string{
		{"1", "1.5", "2024-01-01", "a", ""},
		{"", "2", "2024-01-02", "3", ""},
	})
	require.NoError(t, err)
	kinds := map[string]dataterm.Kind{}
	for _, c := range got.Columns() {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, map[string]dataterm.Kind{
		"i": dataterm.KindInteger,
		"f": dataterm.KindFloat,
		"d": dataterm.KindDate,
		"c": dataterm.KindCategory,
		"e": dataterm.KindCategory,
	}, kinds)
}

func TestJSONObjectWriter(t *testing.T) {
	var w jsonObjectWriter
	got, err := w.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))

	w.Append("a", 1).Append("b", "hello")
	got, err = w.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":"hello"}`, string(got))

	var bad jsonObjectWriter
	bad.Append("c", make(chan int))
	_, err = bad.MarshalJSON()
	assert.Error(t, err)
}
