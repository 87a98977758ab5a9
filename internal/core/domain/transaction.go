package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind represents the kind of money movement.
type TransactionKind string

const (
	TransactionKindDeposit  TransactionKind = "DEPOSIT"
	TransactionKindWithdraw TransactionKind = "WITHDRAW"
	TransactionKindTransfer TransactionKind = "TRANSFER"
)

// IsValid reports whether k is one of the known kinds.
func (k TransactionKind) IsValid() bool {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdraw, TransactionKindTransfer:
		return true
	}
	return false
}

// ParseTransactionKind parses a case-insensitive kind name.
func ParseTransactionKind(s string) (TransactionKind, error) {
	k := TransactionKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown transaction kind %q", s)
	}
	return k, nil
}

// Transaction is an immutable record of one committed balance change.
//
// DEPOSIT sets only ReceiverIdentifier, WITHDRAW only SenderIdentifier,
// TRANSFER both.
type Transaction struct {
	ID                 int64           `json:"id"`
	Kind               TransactionKind `json:"type"`
	SenderIdentifier   *string         `json:"sender_identifier,omitempty"`
	ReceiverIdentifier *string         `json:"receiver_identifier,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	Timestamp          time.Time       `json:"timestamp"`
}

// NewTransaction builds the record for a movement of kind on identifier.
// counterparty is only used for TRANSFER.
func NewTransaction(kind TransactionKind, identifier, counterparty string, amount decimal.Decimal, at time.Time) Transaction {
	t := Transaction{Kind: kind, Amount: amount, Timestamp: at}
	switch kind {
	case TransactionKindDeposit:
		t.ReceiverIdentifier = &identifier
	case TransactionKindWithdraw:
		t.SenderIdentifier = &identifier
	case TransactionKindTransfer:
		t.SenderIdentifier = &identifier
		t.ReceiverIdentifier = &counterparty
	}
	return t
}

// Touches reports whether the movement debited or credited identifier.
func (t *Transaction) Touches(identifier string) bool {
	return (t.SenderIdentifier != nil && *t.SenderIdentifier == identifier) ||
		(t.ReceiverIdentifier != nil && *t.ReceiverIdentifier == identifier)
}
