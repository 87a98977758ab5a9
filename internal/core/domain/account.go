package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the fixed denomination of an account.
type Currency string

const (
	CurrencyTRY Currency = "TRY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// Currencies lists every supported currency.
var Currencies = []Currency{CurrencyTRY, CurrencyUSD, CurrencyEUR}

// IsValid reports whether c is a supported currency.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyTRY, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// ParseCurrency parses a case-insensitive currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", s)
	}
	return c, nil
}

// Account is a single-currency balance owned by exactly one principal.
// Identifier, Currency and OwnerID never change after creation.
type Account struct {
	Identifier string          `json:"identifier"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   Currency        `json:"currency"`
	OwnerID    string          `json:"owner_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

// IsOwnedBy reports whether principalID owns the account.
func (a *Account) IsOwnedBy(principalID string) bool {
	return a != nil && principalID != "" && a.OwnerID == principalID
}

// CanCover reports whether the balance is at least amount.
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// AccountDetails is an account together with every movement that touched it, newest first.
type AccountDetails struct {
	Account      Account       `json:"account"`
	Transactions []Transaction `json:"transactions"`
}

// LockOrder returns the distinct non-empty identifiers in ascending order.
// Every component that locks more than one account acquires them in this order.
func LockOrder(identifiers ...string) []string {
	out := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
