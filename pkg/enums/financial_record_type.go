package enums

import "fmt"

// FinancialRecordType classifies a bookkeeping record.
type FinancialRecordType string

const (
	FinancialRecordTypeIncome  FinancialRecordType = "INCOME"
	FinancialRecordTypeExpense FinancialRecordType = "EXPENSE"
)

var validFinancialRecordTypes = []FinancialRecordType{
	FinancialRecordTypeIncome,
	FinancialRecordTypeExpense,
}

// String implements fmt.Stringer.
func (f FinancialRecordType) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FinancialRecordType.
func (f FinancialRecordType) IsValid() bool {
	for _, candidate := range validFinancialRecordTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFinancialRecordType converts raw input into a FinancialRecordType.
func ParseFinancialRecordType(value string) (FinancialRecordType, error) {
	for _, candidate := range validFinancialRecordTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid financial record type %q", value)
}
