package domain

import "errors"

// Invalid input: reported to the caller before any progress state is touched.
var (
	ErrInvalidLanguage = errors.New("invalid language")
	ErrUnknownRecord   = errors.New("unknown record")
	ErrInvalidPayload  = errors.New("invalid payload")
)

// ErrIntegrity marks a data-integrity fault such as a record relation with no
// requirement entry. It is never retried or skipped.
var ErrIntegrity = errors.New("data integrity violation")

// ErrNoEligibleRecord is returned by selection when work remains according to
// the completion check but no record currently qualifies.
var ErrNoEligibleRecord = errors.New("no eligible record")
