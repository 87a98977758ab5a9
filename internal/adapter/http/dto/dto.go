package dto

import (
	"time"

	"account-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// displayScale is the minimum number of decimals rendered for money.
const displayScale = 2

// CreateAccountRequest is the request body for opening an account.
type CreateAccountRequest struct {
	Currency string `json:"currency" binding:"required,currency"`
}

// MovementRequest is the request body for POST /accounts/:identifier/transactions.
// ReceiverIdentifier is required for TRANSFER and ignored otherwise.
type MovementRequest struct {
	Type               string          `json:"type" binding:"required"`
	Amount             decimal.Decimal `json:"amount"`
	ReceiverIdentifier string          `json:"receiver_identifier" binding:"omitempty,identifier"`
	RequestID          string          `json:"request_id" binding:"omitempty,max=100,safe_id"`
}

// TransferRequest is the request body for POST /transactions.
type TransferRequest struct {
	SenderIdentifier   string          `json:"sender_identifier" binding:"required,identifier"`
	ReceiverIdentifier string          `json:"receiver_identifier" binding:"required,identifier"`
	Amount             decimal.Decimal `json:"amount"`
	RequestID          string          `json:"request_id" binding:"omitempty,max=100,safe_id"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	Identifier string `json:"identifier"`
	Balance    string `json:"balance"`
	Currency   string `json:"currency"`
	CreatedAt  string `json:"created_at"`
}

// CurrencyResponse is the response for the currency lookup.
type CurrencyResponse struct {
	Identifier string `json:"identifier"`
	Currency   string `json:"currency"`
}

// TransactionResponse is the public view of a movement.
type TransactionResponse struct {
	ID                 int64   `json:"id"`
	Type               string  `json:"type"`
	SenderIdentifier   *string `json:"sender_identifier"`
	ReceiverIdentifier *string `json:"receiver_identifier"`
	Amount             string  `json:"amount"`
	Timestamp          string  `json:"timestamp"`
}

// AccountDetailsResponse is an account with its history, newest first.
type AccountDetailsResponse struct {
	Account      AccountResponse       `json:"account"`
	Transactions []TransactionResponse `json:"transactions"`
}

// FormatAmount renders d with at least two decimals and no trailing precision loss.
func FormatAmount(d decimal.Decimal) string {
	if d.Exponent() < -displayScale {
		return d.String()
	}
	return d.StringFixed(displayScale)
}

func NewAccountResponse(a domain.Account) AccountResponse {
	return AccountResponse{
		Identifier: a.Identifier,
		Balance:    FormatAmount(a.Balance),
		Currency:   string(a.Currency),
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewAccountListResponse(accounts []domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, NewAccountResponse(a))
	}
	return out
}

func NewTransactionResponse(t domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                 t.ID,
		Type:               string(t.Kind),
		SenderIdentifier:   t.SenderIdentifier,
		ReceiverIdentifier: t.ReceiverIdentifier,
		Amount:             FormatAmount(t.Amount),
		Timestamp:          t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func NewTransactionListResponse(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, NewTransactionResponse(t))
	}
	return out
}

func NewAccountDetailsResponse(d domain.AccountDetails) AccountDetailsResponse {
	return AccountDetailsResponse{
		Account:      NewAccountResponse(d.Account),
		Transactions: NewTransactionListResponse(d.Transactions),
	}
}
