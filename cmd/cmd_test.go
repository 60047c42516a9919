package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/etnz/dataterm/export"
	"github.com/etnz/dataterm/localfile"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// volumes of ten days of AAPL, from 2024-01-02.
var volumes = []int64{82488700, 58414500, 71983600, 62303300, 59144500, 42841800, 46792900, 49128400, 40444700, 65603000}

func prices(t *testing.T) *dataterm.Table {
	t.Helper()
	table := dataterm.MustTable(dataterm.Date("date"), dataterm.Float("close"), dataterm.Integer("volume"))
	for i, v := range volumes {
		require.NoError(t, table.Append(date.New(2024, 1, 2).Add(i), 180+float64(i), v))
	}
	return table
}

// newSession returns a session with a "fake" source answering prices, and
// the file source.
func newSession(t *testing.T) *dataterm.Session {
	t.Helper()
	cfg := dataterm.DefaultConfig()
	cfg.CacheDir = ""
	cfg.ExportDir = t.TempDir()
	s, err := dataterm.NewSession(cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	table := prices(t)
	require.NoError(t, s.Loader.Register(
		dataterm.SourceFunc{ID: "fake", Func: func(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
			switch q.Symbol {
			case "EMPTY":
				return table.Empty(), nil
			case "DOWN":
				return nil, errors.New("connection refused")
			}
			return table, nil
		}},
		localfile.New(),
	))
	return s
}

type result struct {
	status subcommands.ExitStatus
	out    string
	err    string
}

// run executes a dterm command line in s.
func run(t *testing.T, s *dataterm.Session, line ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	e := &Env{Session: s, In: strings.NewReader(""), Out: &out, Err: &errOut}
	status := e.execute(context.Background(), line)
	return result{status, out.String(), errOut.String()}
}

func TestLoadSortLimit(t *testing.T) {
	s := newSession(t)
	r := run(t, s, "load", "-source", "fake", "-sort", "-volume", "-limit", "5", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)

	for _, v := range []string{"82488700", "71983600", "65603000", "62303300", "59144500"} {
		assert.Contains(t, r.out, v)
	}
	assert.NotContains(t, r.out, "40444700")
	assert.Less(t, strings.Index(r.out, "82488700"), strings.Index(r.out, "71983600"), "descending order")
	assert.Contains(t, r.err, "5 of 10 rows shown")

	// the presentation order does not change the dataset
	stored, err := s.Store.Get("AAPL")
	require.NoError(t, err)
	v, err := stored.Value(0, "volume")
	require.NoError(t, err)
	assert.Equal(t, volumes[0], v)
}

func TestLoadName(t *testing.T) {
	s := newSession(t)
	r := run(t, s, "load", "-source", "fake", "-name", "Apple", "aapl.us")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Equal(t, []string{"Apple"}, s.Store.List())

	r = run(t, s, "load", "-source", "fake", "aapl.us")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Equal(t, []string{"AAPL.US", "Apple"}, s.Store.List())
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name   string
		line   []string
		status subcommands.ExitStatus
		msg    string
	}{
		{"reversed range", []string{"load", "-source", "fake", "-start", "2024-02-01", "-end", "2024-01-01", "AAPL"}, subcommands.ExitUsageError, "validate: invalid parameters"},
		{"bad interval", []string{"load", "-source", "fake", "-interval", "2d", "AAPL"}, subcommands.ExitUsageError, "validate: invalid parameters"},
		{"bad date", []string{"load", "-source", "fake", "-start", "someday", "AAPL"}, subcommands.ExitUsageError, "-start"},
		{"unknown source", []string{"load", "-source", "nope", "AAPL"}, subcommands.ExitUsageError, "validate: invalid parameters"},
		{"no symbol", []string{"load", "-source", "fake"}, subcommands.ExitUsageError, "want one symbol"},
		{"bad filter", []string{"load", "-source", "fake", "-filter", "db", "AAPL"}, subcommands.ExitUsageError, "-filter"},
		{"empty", []string{"load", "-source", "fake", "EMPTY"}, subcommands.ExitFailure, "load: empty result"},
		{"down", []string{"load", "-source", "fake", "DOWN"}, subcommands.ExitFailure, "load: source unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t)
			r := run(t, s, tt.line...)
			assert.Equal(t, tt.status, r.status)
			assert.Contains(t, r.err, tt.msg)
			assert.Zero(t, s.Store.Len(), "a failed load leaves the store unchanged")
		})
	}
}

func TestFailedPresentationLeavesStoreUnchanged(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	commands := map[string][]string{
		"load":      {"load", "-source", "fake", "AAPL"},
		"load name": {"load", "-source", "fake", "-name", "NEW", "AAPL"},
		"sort":      {"sort", "-by", "-volume", "AAPL"},
		"sort into": {"sort", "-by", "volume", "-into", "NEW", "AAPL"},
		"filter":    {"filter", "-where", "volume>60000000", "AAPL"},
		"derive":    {"derive", "-indicator", "sma", "-window", "3", "AAPL"},
	}
	failures := map[string]struct {
		flags []string
		msg   string
	}{
		"columns": {[]string{"-columns", "nope"}, `render: unknown column: "nope"`},
		"chart":   {[]string{"-chart", "nope"}, "render: unknown column"},
		"sort":    {[]string{"-sort", "nope"}, "transform: unknown column"},
		"export":  {[]string{"-export", "csv", "-o", filepath.Join(file, "out.csv")}, "export: "},
	}
	for cmd, line := range commands {
		for failure, f := range failures {
			t.Run(cmd+"/"+failure, func(t *testing.T) {
				s := newSession(t)
				original := prices(t).Head(3)
				require.NoError(t, s.Store.Put("AAPL", original))

				args := append(append([]string{line[0]}, f.flags...), line[1:]...)
				r := run(t, s, args...)
				assert.Equal(t, subcommands.ExitFailure, r.status, r.err)
				assert.Contains(t, r.err, f.msg)
				assert.Empty(t, r.out, "nothing is shown")

				assert.Equal(t, []string{"AAPL"}, s.Store.List())
				got, err := s.Store.Get("AAPL")
				require.NoError(t, err)
				assert.Same(t, original, got)
			})
		}
	}
}

func TestShowListDescribeUnload(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Store.Put("AAPL", prices(t)))

	r := run(t, s, "show", "-columns", "date,volume", "-limit", "3", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Contains(t, r.out, "2024-01-04")
	assert.NotContains(t, r.out, "2024-01-05")
	assert.NotContains(t, r.out, "180.00")

	r = run(t, s, "show", "-reverse", "-limit", "1", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Contains(t, r.out, "2024-01-11")

	r = run(t, s, "list")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Contains(t, r.out, "AAPL")

	r = run(t, s, "describe", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Contains(t, r.out, "volume")

	r = run(t, s, "show", "NOPE")
	assert.Equal(t, subcommands.ExitFailure, r.status)
	assert.Contains(t, r.err, `validate: not found: dataset "NOPE"`)

	r = run(t, s, "unload", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Zero(t, s.Store.Len())

	r = run(t, s, "unload", "AAPL")
	assert.Equal(t, subcommands.ExitFailure, r.status)
	assert.Contains(t, r.err, "store: not found")
}

func TestSortFilter(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Store.Put("AAPL", prices(t)))

	r := run(t, s, "sort", "-by", "-volume", "-into", "BYVOL", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	sorted, err := s.Store.Get("BYVOL")
	require.NoError(t, err)
	v, err := sorted.Value(sorted.Len()-1, "volume")
	require.NoError(t, err)
	assert.Equal(t, int64(40444700), v)

	r = run(t, s, "filter", "-where", "volume>60000000", "-where", "close<185", "-into", "BIG", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	big, err := s.Store.Get("BIG")
	require.NoError(t, err)
	assert.Equal(t, 3, big.Len())

	r = run(t, s, "filter", "-where", "close>1000", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	empty, err := s.Store.Get("AAPL")
	require.NoError(t, err)
	assert.Zero(t, empty.Len(), "no match is an empty dataset")

	r = run(t, s, "filter", "-where", "nope=1", "BIG")
	assert.Equal(t, subcommands.ExitFailure, r.status)
	assert.Contains(t, r.err, "transform: unknown column")

	r = run(t, s, "filter", "BIG")
	assert.Equal(t, subcommands.ExitUsageError, r.status)
}

func TestDerive(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Store.Put("AAPL", prices(t)))

	r := run(t, s, "derive", "-indicator", "sma", "-window", "14", "AAPL")
	assert.Equal(t, subcommands.ExitFailure, r.status)
	assert.Contains(t, r.err, "transform: insufficient rows")
	stored, err := s.Store.Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Width(), "a failed derive leaves the dataset unchanged")

	r = run(t, s, "derive", "-indicator", "sma", "-window", "3", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	stored, err = s.Store.Get("AAPL")
	require.NoError(t, err)
	assert.True(t, stored.Has("close_sma_3"))

	r = run(t, s, "derive", "-indicator", "magic", "AAPL")
	assert.Equal(t, subcommands.ExitUsageError, r.status)
}

func TestChart(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Store.Put("AAPL", prices(t)))

	r := run(t, s, "chart", "-columns", "close", "-height", "5", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Contains(t, r.out, "```")
	assert.Contains(t, r.out, "date: 2024-01-02 .. 2024-01-11")

	r = run(t, s, "show", "-chart", "volume", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Contains(t, r.out, "```")

	r = run(t, s, "chart", "AAPL")
	assert.Equal(t, subcommands.ExitUsageError, r.status)
}

func TestExport(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Store.Put("AAPL", prices(t)))
	dir := t.TempDir()

	dest := filepath.Join(dir, "aapl.csv")
	r := run(t, s, "export", "-format", "csv", "-o", dest, "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	got, err := export.Read(dest)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())

	// the screen limit does not limit the export
	dest = filepath.Join(dir, "aapl.json")
	r = run(t, s, "show", "-limit", "2", "-export", "json", "-o", dest, "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	got, err = export.Read(dest)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())

	// default destination
	r = run(t, s, "export", "-format", "xlsx", "AAPL")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	matches, err := filepath.Glob(filepath.Join(s.Config.ExportDir, "AAPL_*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	r = run(t, s, "export", "AAPL")
	assert.Equal(t, subcommands.ExitUsageError, r.status)
	r = run(t, s, "export", "-format", "parquet", "AAPL")
	assert.Equal(t, subcommands.ExitUsageError, r.status)
}

func TestLoadFile(t *testing.T) {
	s := newSession(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "prices.csv")
	require.NoError(t, export.Write(prices(t), export.CSV, src))

	r := run(t, s, "load", "-source", "file", "-start", "2024-01-01", "-end", "2024-01-31", src)
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	got, err := s.Store.Get("PRICES")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())
}

func TestShell(t *testing.T) {
	s := newSession(t)
	var out, errOut bytes.Buffer
	input := strings.Join([]string{
		"# a comment",
		"load -source fake AAPL",
		`filter -where "volume>60000000" -into "BIG" AAPL`,
		"bogus",
		"shell",
		`show "unterminated`,
		"quit",
		"unload AAPL",
	}, "\n")
	e := &Env{Session: s, In: strings.NewReader(input), Out: &out, Err: &errOut}
	require.NoError(t, (&shellCmd{}).Run(context.Background(), e, nil))

	assert.Equal(t, []string{"AAPL", "BIG"}, s.Store.List(), "the shell stops at quit")
	assert.NotContains(t, out.String(), shellPrompt, "no prompt without a terminal")
	assert.Contains(t, errOut.String(), "already in a shell")
	assert.Contains(t, errOut.String(), "invalid parameters")
}

func TestTerminalCommands(t *testing.T) {
	s := newSession(t)

	r := run(t, s, "sources")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Contains(t, r.out, "fake")

	r = run(t, s, "indicators")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Contains(t, r.out, "bbands")

	r = run(t, s, "topic", "dates")
	require.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.NotEmpty(t, r.out)

	r = run(t, s, "topic", "nope")
	assert.Equal(t, subcommands.ExitFailure, r.status)
	assert.Contains(t, r.err, "not found")
}

func TestAssistWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	r := run(t, newSession(t), "assist", "hello")
	assert.Equal(t, subcommands.ExitFailure, r.status)
	assert.Contains(t, r.err, "GEMINI_API_KEY")
}

func TestMessage(t *testing.T) {
	_, _, colErr := prices(t).Column("nope")
	tests := []struct {
		err  error
		want string
	}{
		{dataterm.AtStage(dataterm.StageLoad, fmt.Errorf("eodhd AAPL: %w: timeout", dataterm.ErrSourceUnavailable)), "load: source unavailable: eodhd AAPL: timeout"},
		{dataterm.AtStage(dataterm.StageValidate, fmt.Errorf("dataset %q: %w", "X", dataterm.ErrNotFound)), `validate: not found: dataset "X"`},
		{fmt.Errorf("%w: -limit", dataterm.ErrInvalidParameters), "invalid parameters: -limit"},
		{dataterm.AtStage(dataterm.StageRender, colErr), `render: unknown column: "nope" (have date, close, volume)`},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.err))
	}
}

func TestSchema(t *testing.T) {
	schema := Schema{
		{Flag: "n", Type: Int, Default: "3", Constraint: "min=1"},
		{Flag: "f", Type: Float, Default: "0.5"},
		{Flag: "b", Type: Bool},
		{Flag: "format", Type: String, Constraint: "omitempty,oneof=csv json"},
		{Flag: "kv", Type: List, Constraint: "contains=="},
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	v := schema.Bind(fs)
	require.NoError(t, fs.Parse([]string{"-b", "-kv", "a=1", "-kv", "b=2"}))
	require.NoError(t, v.Validate())
	assert.Equal(t, 3, v.Int("n"))
	assert.Equal(t, 0.5, v.Float("f"))
	assert.True(t, v.Bool("b"))
	assert.Equal(t, "", v.String("format"))
	assert.Equal(t, []string{"a=1", "b=2"}, v.List("kv"))
	assert.True(t, v.Has("kv"))
	assert.False(t, v.Has("nope"))

	for _, args := range [][]string{{"-n", "0"}, {"-format", "xml"}, {"-kv", "novalue"}} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		v := schema.Bind(fs)
		require.NoError(t, fs.Parse(args))
		assert.ErrorIs(t, v.Validate(), dataterm.ErrInvalidParameters, args)
	}

	flags := schema.Predictors()
	assert.Equal(t, predict.Set{"csv", "json"}, flags["format"])
	assert.Equal(t, predict.Nothing, flags["b"])
}

func TestCompletion(t *testing.T) {
	c := Completion()
	for _, cmd := range Commands() {
		require.Contains(t, c.Sub, cmd.Name())
	}
	assert.Contains(t, c.Sub["load"].Flags, "source")
	assert.Contains(t, c.Sub["load"].Flags, "limit")
	assert.NotNil(t, c.Sub["topic"].Args)
}
