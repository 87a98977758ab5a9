package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"account-ledger/internal/core/domain"
)

const (
	identifierCountry = "TR"
	bankCodeLength    = 5
	accountDigits     = 16
)

var accountNumberSpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(accountDigits), nil)

// IBANGenerator implements ports.IdentifierGenerator.
//
// Identifiers are 26-character Turkish IBANs: country code, mod-97 check
// digits, the configured bank code, a reserve digit and 16 random digits.
// Uniqueness is enforced by the account store; callers retry on collision.
type IBANGenerator struct {
	bankCode string
	random   io.Reader
}

// NewIBANGenerator creates a generator for the given five-digit bank code.
func NewIBANGenerator(bankCode string) (*IBANGenerator, error) {
	return newIBANGenerator(bankCode, rand.Reader)
}

func newIBANGenerator(bankCode string, random io.Reader) (*IBANGenerator, error) {
	if len(bankCode) != bankCodeLength {
		return nil, fmt.Errorf("bank code must be %d digits, got %q", bankCodeLength, bankCode)
	}
	for _, c := range bankCode {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("bank code must be numeric, got %q", bankCode)
		}
	}
	return &IBANGenerator{bankCode: bankCode, random: random}, nil
}

// Generate returns a new random identifier.
func (g *IBANGenerator) Generate() (string, error) {
	n, err := rand.Int(g.random, accountNumberSpace)
	if err != nil {
		return "", fmt.Errorf("reading random account number: %w", err)
	}

	bban := fmt.Sprintf("%s0%016d", g.bankCode, n)
	check, ok := domain.IdentifierCheckDigits(identifierCountry, bban)
	if !ok {
		return "", fmt.Errorf("computing check digits for %q", bban)
	}
	return identifierCountry + check + bban, nil
}
