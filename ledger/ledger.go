package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/shopspring/decimal"
)

// Name of the source.
const Name = "ledger"

// Source reads transaction journals from files. The symbol is the file path.
// The "security" and "command" filters select transactions.
type Source struct{}

// New returns a ledger source.
func New() *Source { return &Source{} }

func (*Source) Name() string { return Name }

func (*Source) Description() string {
	return "transactions of a JSONL journal file (filters: security, command)"
}

// Fetch implements dataterm.Source.
func (*Source) Fetch(ctx context.Context, q dataterm.Query) (*dataterm.Table, error) {
	f, err := os.Open(q.Symbol)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no journal %q", dataterm.ErrInvalidParameters, q.Symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dataterm.ErrSourceUnavailable, err)
	}
	defer f.Close()

	transactions, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dataterm.ErrInvalidParameters, q.Symbol, err)
	}
	return Table(transactions, q)
}

// Table returns the transactions in q's range, matching q's filters, as rows.
func Table(transactions []Transaction, q dataterm.Query) (*dataterm.Table, error) {
	security := q.Filter("security", "")
	command := q.Filter("command", "")

	t := dataterm.MustTable(
		dataterm.Date("date"),
		dataterm.Category("command"),
		dataterm.Category("security"),
		dataterm.Float("quantity"),
		dataterm.Float("price"),
		dataterm.Float("amount"),
		dataterm.Category("currency"),
		dataterm.Category("memo"),
	)
	for _, tx := range transactions {
		if !q.Range.Contains(tx.When()) {
			continue
		}
		e := tx.entry()
		if security != "" && !strings.EqualFold(security, e.Security) {
			continue
		}
		if command != "" && !strings.EqualFold(command, string(tx.What())) {
			continue
		}
		err := t.Append(tx.When(), string(tx.What()), e.Security, nullFloat(e.Quantity), nullFloat(e.Price), e.Amount.InexactFloat64(), e.Currency, tx.Rationale())
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func nullFloat(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return math.NaN()
	}
	return d.Decimal.InexactFloat64()
}
