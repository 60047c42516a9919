// Package ledger is the source for personal transaction journals stored as
// JSONL files, one transaction per line:
//
//	{"command":"buy","date":"2024-01-02","security":"AAPL","quantity":10,"price":185.64}
//	{"command":"dividend","date":"2024-02-15","security":"AAPL","amount":2.4}
//	{"command":"deposit","date":"2024-01-01","amount":5000,"currency":"USD"}
//
// Commands are buy, sell, dividend, deposit, withdraw and convert.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/etnz/dataterm/date"
	"github.com/shopspring/decimal"
)

// CommandType is a typed string for identifying transaction commands.
type CommandType string

// Command types used for identifying transactions.
const (
	CmdBuy      CommandType = "buy"
	CmdSell     CommandType = "sell"
	CmdDividend CommandType = "dividend"
	CmdDeposit  CommandType = "deposit"
	CmdWithdraw CommandType = "withdraw"
	CmdConvert  CommandType = "convert"
)

// Transaction is a journal entry.
type Transaction interface {
	What() CommandType // Returns the command type of the transaction
	When() date.Date   // Returns the date of the transaction
	Rationale() string // Returns the memo or rationale for the transaction
	entry() entry
}

// entry is the flat view of a transaction, as a dataset row. Amount is the
// signed cash flow: negative when cash leaves the account.
type entry struct {
	Security string
	Quantity decimal.NullDecimal
	Price    decimal.NullDecimal
	Amount   decimal.Decimal
	Currency string
}

// Base contains fields common to all transaction types.
type Base struct {
	Command CommandType `json:"command"`
	Date    date.Date   `json:"date"`
	Memo    string      `json:"memo,omitempty"`
}

func (b Base) What() CommandType { return b.Command }
func (b Base) When() date.Date { return b.Date }
func (b Base) Rationale() string { return b.Memo }

// Buy represents a buy transaction.
type Buy struct {
	Base
	Security string          `json:"security"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
}

func (tx Buy) entry() entry {
	return entry{
		Security: tx.Security,
		Quantity: decimal.NewNullDecimal(tx.Quantity),
		Price:    decimal.NewNullDecimal(tx.Price),
		Amount:   tx.Quantity.Mul(tx.Price).Neg(),
		Currency: tx.Currency,
	}
}

// Sell represents a sell transaction.
type Sell struct {
	Base
	Security string          `json:"security"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
}

func (tx Sell) entry() entry {
	return entry{
		Security: tx.Security,
		Quantity: decimal.NewNullDecimal(tx.Quantity.Neg()),
		Price:    decimal.NewNullDecimal(tx.Price),
		Amount:   tx.Quantity.Mul(tx.Price),
		Currency: tx.Currency,
	}
}

// Dividend represents a dividend payment.
type Dividend struct {
	Base
	Security string          `json:"security"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

func (tx Dividend) entry() entry {
	return entry{Security: tx.Security, Amount: tx.Amount, Currency: tx.Currency}
}

// Deposit represents a cash deposit.
type Deposit struct {
	Base
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (tx Deposit) entry() entry { return entry{Amount: tx.Amount, Currency: tx.Currency} }

// Withdraw represents a cash withdrawal.
type Withdraw struct {
	Base
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (tx Withdraw) entry() entry { return entry{Amount: tx.Amount.Neg(), Currency: tx.Currency} }

// Convert represents an internal currency conversion. Its row holds the
// received amount, the rate is the price.
type Convert struct {
	Base
	FromCurrency string          `json:"fromCurrency"`
	FromAmount   decimal.Decimal `json:"fromAmount"`
	ToCurrency   string          `json:"toCurrency"`
	ToAmount     decimal.Decimal `json:"toAmount"`
}

func (tx Convert) entry() entry {
	e := entry{Security: tx.FromCurrency + tx.ToCurrency, Amount: tx.ToAmount, Currency: tx.ToCurrency}
	if !tx.FromAmount.IsZero() {
		e.Price = decimal.NewNullDecimal(tx.ToAmount.Div(tx.FromAmount))
	}
	return e
}

// Load reads a stream of JSONL data from an io.Reader, decodes each line into the
// appropriate transaction struct, and returns the transactions sorted by date.
// Transactions on the same day keep their order.
func Load(r io.Reader) ([]Transaction, error) {
	var transactions []Transaction
	scanner := bufio.NewScanner(r)

	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}

		var identifier struct {
			Command CommandType `json:"command"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("line %d: could not identify command: %w", line, err)
		}

		var decodedTx Transaction
		var err error

		switch identifier.Command {
		case CmdBuy:
			var tx Buy
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdSell:
			var tx Sell
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdDividend:
			var tx Dividend
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdDeposit:
			var tx Deposit
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdWithdraw:
			var tx Withdraw
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case CmdConvert:
			var tx Convert
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		default:
			err = fmt.Errorf("unknown transaction command: %q", identifier.Command)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if decodedTx.When().IsZero() {
			return nil, fmt.Errorf("line %d: missing date", line)
		}
		transactions = append(transactions, decodedTx)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].When().Before(transactions[j].When())
	})
	return transactions, nil
}
