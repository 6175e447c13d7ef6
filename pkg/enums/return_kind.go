package enums

import "fmt"

// ReturnKind distinguishes how a bottle return entered the ledger.
type ReturnKind string

const (
	ReturnKindScanned ReturnKind = "scanned"
	ReturnKindManual  ReturnKind = "manual"
)

var validReturnKinds = []ReturnKind{
	ReturnKindScanned,
	ReturnKindManual,
}

// IsValid reports whether the value matches the canonical return kind enum.
func (k ReturnKind) IsValid() bool {
	for _, candidate := range validReturnKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseReturnKind converts raw input into ReturnKind.
func ParseReturnKind(value string) (ReturnKind, error) {
	for _, candidate := range validReturnKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return kind %q", value)
}
