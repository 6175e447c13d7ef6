package enums

import "fmt"

// TransactionKind signs a transaction's effect on the balance.
type TransactionKind string

const (
	TransactionKindCredit TransactionKind = "credit"
	TransactionKindDebit  TransactionKind = "debit"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindCredit,
	TransactionKindDebit,
}

// IsValid reports whether the value matches the canonical kind enum.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTransactionKind converts raw input into TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}

// TransactionType categorizes what a transaction paid for.
type TransactionType string

const (
	TransactionTypeBottleReturn TransactionType = "bottle_return"
	TransactionTypeWithdrawal   TransactionType = "withdrawal"
	TransactionTypeReferral     TransactionType = "referral"
	TransactionTypeOther        TransactionType = "other"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeBottleReturn,
	TransactionTypeWithdrawal,
	TransactionTypeReferral,
	TransactionTypeOther,
}

// IsValid reports whether the value matches the canonical type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
