package core

import (
	"context"
	"errors"

	"aligncore/pkg/domain"
)

// Code is a coarse error class used for logs, metrics and HTTP status mapping.
type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeInvalidInput Code = "invalid_input"
	CodeIntegrity    Code = "integrity"
	CodeLiveness     Code = "liveness"
	CodeCancel       Code = "cancel"
	CodeStorage      Code = "storage"
)

// Classify maps an error onto a Code using the domain sentinels only.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, domain.ErrIntegrity):
		return CodeIntegrity
	case errors.Is(err, domain.ErrNoEligibleRecord):
		return CodeLiveness
	default:
		return CodeStorage
	}
}

// IsInvalidInput reports whether err was caused by caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, domain.ErrInvalidLanguage) ||
		errors.Is(err, domain.ErrUnknownRecord) ||
		errors.Is(err, domain.ErrInvalidPayload)
}
