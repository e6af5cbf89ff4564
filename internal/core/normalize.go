package core

import "golang.org/x/text/unicode/norm"

// BlockIsNFC reports whether a submitted block is already in NFC form. Korean
// input from some platforms arrives as decomposed jamo; such blocks are
// stored as sent and only flagged in the log.
func BlockIsNFC(block string) bool {
	return norm.NFC.IsNormalString(block)
}
