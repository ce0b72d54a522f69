package format

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const fallbackPrefix = "DD-"

// CanonicalReference normalizes an external reference for matching: trims
// it, collapses inner whitespace and uppercases. Banks routinely re-pad or
// re-case the reference they echo back.
func CanonicalReference(reference string) string {
	fields := strings.Fields(reference)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.Join(fields, " "))
}

// FallbackReference derives a synthetic external reference from an attempt
// id, used when no reference was assigned upstream. Every presented row is
// matchable even if the bank echoes nothing else back.
func FallbackReference(attemptID snowflake.ID) string {
	return fallbackPrefix + attemptID.String()
}

// DeriveFallback recovers the synthetic form from a bank-mangled echo: a
// bare digit string or a squashed "DD<digits>" maps back to "DD-<digits>".
// The second return is false when no fallback can be derived.
func DeriveFallback(reference string) (string, bool) {
	canonical := CanonicalReference(reference)
	if canonical == "" {
		return "", false
	}
	compact := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, canonical)
	digits := strings.TrimPrefix(compact, "DD")
	if digits == "" {
		return "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return fallbackPrefix + digits, true
}

// RowHash computes the stable digest of a row's business-identifying
// reference, the secondary matching key when the reference itself is absent
// or altered in the response.
func RowHash(reference string) string {
	sum := sha256.Sum256([]byte(CanonicalReference(reference)))
	return hex.EncodeToString(sum[:])
}
