package dataterm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Source is an external data provider.
//
// Fetch returns the rows matching the query or fails. Implementations wrap
// ErrSourceUnavailable, ErrEmptyResult or ErrInvalidParameters when they can
// tell, the Loader classifies any other error as ErrSourceUnavailable.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) (*Table, error)
}

// Describer is implemented by sources that can describe themselves.
type Describer interface {
	Description() string
}

// Describe returns a one line description of the source.
func Describe(s Source) string {
	if d, ok := s.(Describer); ok {
		return d.Description()
	}
	return s.Name()
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc struct {
	ID   string
	Func func(ctx context.Context, q Query) (*Table, error)
}

func (s SourceFunc) Name() string { return s.ID }

func (s SourceFunc) Fetch(ctx context.Context, q Query) (*Table, error) { return s.Func(ctx, q) }

var fileExtensions = map[string]bool{".csv": true, ".json": true, ".jsonl": true, ".xlsx": true, ".db": true}

// DatasetName returns the default dataset name for a symbol: the upper-cased
// symbol, or the upper-cased base name for a file path.
func DatasetName(symbol string) (string, error) {
	name := symbol
	if ext := filepath.Ext(name); fileExtensions[strings.ToLower(ext)] {
		name = strings.TrimSuffix(filepath.Base(name), ext)
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return "", fmt.Errorf("%w: cannot name a dataset after %q, give a name", ErrInvalidParameters, symbol)
	}
	return name, nil
}
