package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementCommitted is emitted after a movement has been durably committed.
type MovementCommitted struct {
	EventID     uuid.UUID   `json:"event_id"`
	PrincipalID string      `json:"principal_id"`
	Transaction Transaction `json:"transaction"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// NewMovementCommitted wraps a committed transaction in an event.
func NewMovementCommitted(principalID string, tx Transaction) MovementCommitted {
	return MovementCommitted{
		EventID:     uuid.New(),
		PrincipalID: principalID,
		Transaction: tx,
		OccurredAt:  time.Now().UTC(),
	}
}

// PartitionKey keys events so all movements of one source account stay ordered.
func (e MovementCommitted) PartitionKey() string {
	if e.Transaction.SenderIdentifier != nil {
		return *e.Transaction.SenderIdentifier
	}
	if e.Transaction.ReceiverIdentifier != nil {
		return *e.Transaction.ReceiverIdentifier
	}
	return e.EventID.String()
}
