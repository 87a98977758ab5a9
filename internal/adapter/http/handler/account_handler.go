package handler

import (
	"fmt"
	"strings"

	"account-ledger/internal/adapter/http/dto"
	"account-ledger/internal/adapter/http/middleware"
	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"
	"account-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets clients supply the request ID outside the body.
const HeaderIdempotencyKey = "Idempotency-Key"

// AccountHandler handles the /accounts endpoints.
type AccountHandler struct {
	ledger ports.LedgerService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger ports.LedgerService) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

// Create handles POST /api/v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	principal, ok := middleware.PrincipalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	account, err := h.ledger.OpenAccount(c.Request.Context(), principal, currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewAccountResponse(*account))
}

// List handles GET /api/v1/accounts.
func (h *AccountHandler) List(c *gin.Context) {
	principal, ok := middleware.PrincipalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	accounts, err := h.ledger.ListAccounts(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountListResponse(accounts))
}

// GetCurrency handles GET /api/v1/accounts/:identifier/currency.
func (h *AccountHandler) GetCurrency(c *gin.Context) {
	principal, identifier, ok := principalAndIdentifier(c)
	if !ok {
		return
	}

	currency, err := h.ledger.GetCurrency(c.Request.Context(), principal, identifier)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.CurrencyResponse{Identifier: identifier, Currency: string(currency)})
}

// GetDetails handles GET /api/v1/accounts/:identifier/details.
func (h *AccountHandler) GetDetails(c *gin.Context) {
	principal, identifier, ok := principalAndIdentifier(c)
	if !ok {
		return
	}

	details, err := h.ledger.GetDetails(c.Request.Context(), principal, identifier)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountDetailsResponse(*details))
}

// CreateTransaction handles POST /api/v1/accounts/:identifier/transactions.
func (h *AccountHandler) CreateTransaction(c *gin.Context) {
	principal, identifier, ok := principalAndIdentifier(c)
	if !ok {
		return
	}

	var req dto.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	kind, err := domain.ParseTransactionKind(req.Type)
	if err != nil {
		response.Error(c, apperror.ErrInvalidOperation(err.Error()))
		return
	}

	requestID, ok := requestIDFrom(c, req.RequestID)
	if !ok {
		return
	}

	movement := ports.MovementRequest{
		PrincipalID: principal,
		Identifier:  identifier,
		Kind:        kind,
		Amount:      req.Amount,
		RequestID:   requestID,
	}
	if kind == domain.TransactionKindTransfer {
		movement.CounterpartyIdentifier = req.ReceiverIdentifier
	}

	txn, err := h.ledger.ApplyMovement(c.Request.Context(), movement)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(*txn))
}

// principalAndIdentifier reads the caller and the :identifier path parameter,
// writing an error response when either is unusable.
func principalAndIdentifier(c *gin.Context) (string, string, bool) {
	principal, ok := middleware.PrincipalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return "", "", false
	}

	identifier := domain.NormalizeIdentifier(c.Param("identifier"))
	if !domain.ValidIdentifier(identifier) {
		response.Error(c, apperror.Validation("invalid account identifier"))
		return "", "", false
	}
	return principal, identifier, true
}

// requestIDFrom prefers the body's request_id over the Idempotency-Key header.
// The header is held to the same rules as the body field; a malformed one
// gets an error response and ok == false.
func requestIDFrom(c *gin.Context, fromBody string) (string, bool) {
	if fromBody != "" {
		return fromBody, true
	}
	header := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if header != "" && !domain.ValidRequestID(header) {
		response.Error(c, apperror.Validation(fmt.Sprintf(
			"%s must be 1-%d letters, digits, '_', '-' or '.'", HeaderIdempotencyKey, domain.MaxRequestIDLength)))
		return "", false
	}
	return header, true
}
