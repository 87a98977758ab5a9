package handler

import (
	"account-ledger/internal/adapter/http/dto"
	"account-ledger/internal/adapter/http/middleware"
	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"
	"account-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles the /transactions endpoints.
type TransactionHandler struct {
	ledger ports.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledger ports.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// Transfer handles POST /api/v1/transactions.
func (h *TransactionHandler) Transfer(c *gin.Context) {
	principal, ok := middleware.PrincipalID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	requestID, ok := requestIDFrom(c, req.RequestID)
	if !ok {
		return
	}

	txn, err := h.ledger.ApplyMovement(c.Request.Context(), ports.MovementRequest{
		PrincipalID:            principal,
		Identifier:             req.SenderIdentifier,
		Kind:                   domain.TransactionKindTransfer,
		Amount:                 req.Amount,
		CounterpartyIdentifier: req.ReceiverIdentifier,
		RequestID:              requestID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(*txn))
}

// History handles GET /api/v1/transactions/:identifier.
// Only the owner of the account may read its history.
func (h *TransactionHandler) History(c *gin.Context) {
	principal, identifier, ok := principalAndIdentifier(c)
	if !ok {
		return
	}

	details, err := h.ledger.GetDetails(c.Request.Context(), principal, identifier)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransactionListResponse(details.Transactions))
}
