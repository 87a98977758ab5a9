package dto

import (
	"account-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidations(v)
	}
}

// RegisterValidations adds the ledger's custom binding rules to v.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("safe_id", validateSafeID)
	_ = v.RegisterValidation("identifier", validateIdentifier)
	_ = v.RegisterValidation("currency", validateCurrency)
}

// validateSafeID applies the request ID rules shared with the Idempotency-Key header.
func validateSafeID(fl validator.FieldLevel) bool {
	return domain.ValidRequestID(fl.Field().String())
}

// validateIdentifier accepts well-formed account identifiers with a valid checksum.
func validateIdentifier(fl validator.FieldLevel) bool {
	return domain.ValidIdentifier(fl.Field().String())
}

func validateCurrency(fl validator.FieldLevel) bool {
	_, err := domain.ParseCurrency(fl.Field().String())
	return err == nil
}
