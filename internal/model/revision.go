package model

import (
	"errors"
	"fmt"
	"strconv"
)

// Revision labels.
const (
	FirstRevision           = "01"
	FirstProductionRevision = "A"
)

var (
	// ErrRevisionOverflow is returned when a label has no successor.
	ErrRevisionOverflow = errors.New("revision label overflow")
	// ErrProductionRevision is returned when a fork is asked of a letter
	// label. Letters are only minted by release-to-production.
	ErrProductionRevision = errors.New("production revision has no fork successor")
)

// IsPreProduction reports whether rev is a two-digit numeric label "01".."99".
func IsPreProduction(rev string) bool {
	if len(rev) != 2 || rev[0] < '0' || rev[0] > '9' || rev[1] < '0' || rev[1] > '9' {
		return false
	}
	return rev != "00"
}

// IsProduction reports whether rev is a single uppercase letter.
func IsProduction(rev string) bool {
	return len(rev) == 1 && rev[0] >= 'A' && rev[0] <= 'Z'
}

// ValidRevision reports whether rev is either label form.
func ValidRevision(rev string) bool {
	return IsPreProduction(rev) || IsProduction(rev)
}

// NextRevision returns the label a fork of rev receives. Only pre-production
// labels fork:
//
//	"01" -> "02", "09" -> "10", "99" -> ErrRevisionOverflow
//	"A".."Z" -> ErrProductionRevision
func NextRevision(rev string) (string, error) {
	switch {
	case IsPreProduction(rev):
		n, _ := strconv.Atoi(rev)
		if n >= 99 {
			return "", fmt.Errorf("next revision after %q: %w", rev, ErrRevisionOverflow)
		}
		return fmt.Sprintf("%02d", n+1), nil
	case IsProduction(rev):
		return "", fmt.Errorf("next revision after %q: %w", rev, ErrProductionRevision)
	default:
		return "", fmt.Errorf("invalid revision label %q", rev)
	}
}
