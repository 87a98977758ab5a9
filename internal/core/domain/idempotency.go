package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxRequestIDLength bounds a caller-supplied request ID.
const MaxRequestIDLength = 100

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// IdempotencyLog records the outcome of a movement so a retried request is not applied twice.
type IdempotencyLog struct {
	Key           string    `json:"key"`
	Fingerprint   string    `json:"fingerprint"`   // MovementFingerprint of the request that claimed Key
	TransactionID int64     `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"` // Marshaled Transaction returned on replay
	CreatedAt     time.Time `json:"created_at"`
}

// MovementReplay is the cached form of an applied movement.
type MovementReplay struct {
	Fingerprint string      `json:"fingerprint"`
	Transaction Transaction `json:"transaction"`
}

// ValidRequestID reports whether id is usable as a request ID:
// 1 to MaxRequestIDLength characters of letters, digits, '_', '-' and '.'.
func ValidRequestID(id string) bool {
	return len(id) <= MaxRequestIDLength && requestIDPattern.MatchString(id)
}

// BuildIdempotencyKey scopes requestID to principalID. The principal is
// length-prefixed so no two (principal, request) pairs share a key.
func BuildIdempotencyKey(principalID, requestID string) string {
	return strconv.Itoa(len(principalID)) + ":" + principalID + ":" + requestID
}

// MovementFingerprint identifies what a movement does. Amounts that differ only
// in trailing zeros share a fingerprint, and the counterparty only counts for TRANSFER.
func MovementFingerprint(kind TransactionKind, identifier, counterparty string, amount decimal.Decimal) string {
	if kind != TransactionKindTransfer {
		counterparty = ""
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		string(kind), identifier, counterparty, amount.String(),
	}, "|")))
	return hex.EncodeToString(sum[:])
}
