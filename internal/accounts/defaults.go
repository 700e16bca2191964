package accounts

import "github.com/alvazi/microgl/internal/model"

// SuspenseAccountID is the holding account of the default chart for unclassified postings.
const SuspenseAccountID = "9999"

// DefaultChart returns the starter chart of accounts written by `microgl init`.
func DefaultChart() []model.Account {
	return []model.Account{
		{ID: "1010", Name: "Checking", Type: model.AccountTypeAsset, NormalSide: model.Debit, Description: "Primary checking account"},
		{ID: "1020", Name: "Savings", Type: model.AccountTypeAsset, NormalSide: model.Debit, Description: "Savings account"},
		{ID: "2010", Name: "Credit Card", Type: model.AccountTypeLiability, NormalSide: model.Credit, Description: "Credit card balance"},
		{ID: "3010", Name: "Opening Balance Equity", Type: model.AccountTypeEquity, NormalSide: model.Credit},
		{ID: "4010", Name: "Salary", Type: model.AccountTypeIncome, NormalSide: model.Credit},
		{ID: "4020", Name: "Interest Income", Type: model.AccountTypeIncome, NormalSide: model.Credit},
		{ID: "4090", Name: "Other Income", Type: model.AccountTypeIncome, NormalSide: model.Credit, Description: "Unmapped inflows"},
		{ID: "5010", Name: "Groceries", Type: model.AccountTypeExpense, NormalSide: model.Debit},
		{ID: "5020", Name: "Dining", Type: model.AccountTypeExpense, NormalSide: model.Debit},
		{ID: "5030", Name: "Utilities", Type: model.AccountTypeExpense, NormalSide: model.Debit},
		{ID: "5040", Name: "Rent", Type: model.AccountTypeExpense, NormalSide: model.Debit},
		{ID: "5050", Name: "Bank Fees", Type: model.AccountTypeExpense, NormalSide: model.Debit},
		{ID: "5090", Name: "Other Expenses", Type: model.AccountTypeExpense, NormalSide: model.Debit, Description: "Unmapped outflows"},
		{ID: SuspenseAccountID, Name: "Unclassified", Type: model.AccountTypeAsset, NormalSide: model.Debit, Description: "Suspense account for transactions without a rule"},
	}
}
