package model

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which an account of this type naturally grows.
func (t AccountType) NormalSide() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return Debit
	default:
		return Credit
	}
}

// Account represents a row in chart-of-accounts.csv.
type Account struct {
	ID          string
	Name        string
	Type        AccountType
	NormalSide  Side
	ParentID    string // "" = top-level
	TaxLine     string
	Description string
}
