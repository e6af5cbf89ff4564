// Package domain defines the records, progress sets, and persistence
// contracts shared by the aligncore selection and progress subsystem.
package domain

import (
	"fmt"
	"strings"
)

// Language identifies one of the two annotation target languages.
type Language string

// Supported target languages.
const (
	// LanguageRU is the Russian target.
	LanguageRU Language = "ru"
	// LanguageKO is the Korean target.
	LanguageKO Language = "ko"
)

// Languages lists the supported target languages in canonical order.
var Languages = []Language{LanguageRU, LanguageKO}

// ParseLanguage validates a language code supplied by a caller.
func ParseLanguage(raw string) (Language, error) {
	switch lang := Language(strings.TrimSpace(raw)); lang {
	case LanguageRU, LanguageKO:
		return lang, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidLanguage, raw)
	}
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageRU || l == LanguageKO
}

// Other returns the partner language used for cross-language reuse.
func (l Language) Other() Language {
	if l == LanguageKO {
		return LanguageRU
	}
	return LanguageKO
}

// Bucket returns the processed bucket holding records finished in l only.
func (l Language) Bucket() Bucket {
	return Bucket(l)
}

// Bucket partitions processed records by completion status.
type Bucket string

// Processed buckets.
const (
	BucketRU   Bucket = "ru"
	BucketKO   Bucket = "ko"
	BucketBoth Bucket = "both"
)

// Buckets lists every processed bucket in a fixed order.
var Buckets = []Bucket{BucketRU, BucketKO, BucketBoth}
