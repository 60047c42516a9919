package agent

import (
	"context"
	"io"
	"testing"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func session(t *testing.T) *dataterm.Session {
	t.Helper()
	cfg := dataterm.DefaultConfig()
	cfg.CacheDir = ""
	s, err := dataterm.NewSession(cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	table := dataterm.MustTable(dataterm.Date("date"), dataterm.Float("close"), dataterm.Integer("volume"))
	for i := range 5 {
		require.NoError(t, table.Append(date.New(2024, 1, 1).Add(i), 100+float64(i), int64(10*(5-i))))
	}
	require.NoError(t, s.Store.Put("AAPL", table))
	require.NoError(t, s.Loader.Register(dataterm.SourceFunc{
		ID: "fake",
		Func: func(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
			return table, nil
		},
	}))
	return s
}

func call(t *testing.T, s *dataterm.Session, name string, args map[string]any) map[string]any {
	t.Helper()
	lib := NewLibrary(AnalystFunctions(s))
	resp := lib(context.Background(), &genai.FunctionCall{ID: "1", Name: name, Args: args})
	require.NotNil(t, resp)
	assert.Equal(t, "1", resp.ID)
	return resp.Response
}

func TestListDatasets(t *testing.T) {
	out := call(t, session(t), "list_datasets", nil)
	assert.Contains(t, out["output"], "AAPL")
}

func TestDescribeDataset(t *testing.T) {
	s := session(t)
	out := call(t, s, "describe_dataset", map[string]any{"name": "AAPL"})
	assert.Contains(t, out["output"], "volume")

	out = call(t, s, "describe_dataset", map[string]any{"name": "MSFT"})
	assert.Contains(t, out["error"], "not found")

	out = call(t, s, "describe_dataset", map[string]any{"name": 3.0})
	assert.Contains(t, out["error"], "not a string")
}

func TestShowDataset(t *testing.T) {
	s := session(t)
	out := call(t, s, "show_dataset", map[string]any{"name": "AAPL", "limit": 2.0, "sort": "volume", "columns": "volume, date"})
	require.Contains(t, out, "output")
	md := out["output"].(string)
	assert.Contains(t, md, "2024-01-05")
	assert.Contains(t, md, "2024-01-04")
	assert.NotContains(t, md, "2024-01-01")
	assert.NotContains(t, md, "close")
}

func TestLoadDataset(t *testing.T) {
	s := session(t)
	out := call(t, s, "load_dataset", map[string]any{"source": "fake", "symbol": "msft", "start": "2024-01-01"})
	assert.Contains(t, out["output"], "MSFT")
	assert.Equal(t, []string{"AAPL", "MSFT"}, s.Store.List())

	out = call(t, s, "load_dataset", map[string]any{"source": "nope", "symbol": "msft"})
	assert.Contains(t, out["error"], "invalid parameters")

	out = call(t, s, "load_dataset", map[string]any{"source": "fake", "symbol": "x", "start": "soon"})
	assert.Contains(t, out["error"], "start")
}

func TestUnknownFunction(t *testing.T) {
	out := call(t, session(t), "delete_everything", nil)
	assert.Contains(t, out["error"], "unknown function")
}

func TestDeclarations(t *testing.T) {
	decls := NewDeclaration(AnalystFunctions(session(t)))
	var names []string
	for _, d := range decls {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"list_datasets", "describe_dataset", "show_dataset", "list_sources", "load_dataset"}, names)

	e := NewAnalyst(session(t))
	assert.Equal(t, "question", e.Declaration().Parameters.Required[0])
	f := newFacilitator(e, NewTrader())
	assert.Len(t, f.Config.Tools[0].FunctionDeclarations, 2)
}

func TestAskNotStarted(t *testing.T) {
	_, err := NewTrader().Ask(context.Background(), &genai.Part{Text: "hi"})
	assert.Error(t, err)

	resp := NewTrader().Call(context.Background(), "1", map[string]any{})
	assert.Contains(t, resp.Response["error"], "missing question")
}

func TestText(t *testing.T) {
	content := &genai.Content{Parts: []*genai.Part{{Text: "a"}, {FunctionCall: &genai.FunctionCall{Name: "f"}}, {Text: "b"}}}
	assert.Equal(t, "a\nb", text(content))
}
