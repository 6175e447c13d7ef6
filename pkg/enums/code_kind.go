package enums

// CodeKind classifies what a scan code redeems.
type CodeKind string

const (
	CodeKindBottleReturn CodeKind = "bottle_return"
	CodeKindCrateReturn  CodeKind = "crate_return"
)

var validCodeKinds = []CodeKind{
	CodeKindBottleReturn,
	CodeKindCrateReturn,
}

// IsValid reports whether the value matches the canonical code kind enum.
func (k CodeKind) IsValid() bool {
	for _, candidate := range validCodeKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// NormalizeCodeKind coerces raw scan payload kinds to a canonical value; unknown
// or empty input falls back to bottle_return, the shape every printed code shares.
func NormalizeCodeKind(value string) CodeKind {
	kind := CodeKind(value)
	if kind.IsValid() {
		return kind
	}
	return CodeKindBottleReturn
}
