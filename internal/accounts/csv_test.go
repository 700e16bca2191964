package accounts

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvazi/microgl/internal/model"
)

const header = "account_id,account_name,account_type,normal_side,parent_id,tax_line,description\n"

func TestRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{ID: "1010", Name: "Checking", Type: model.AccountTypeAsset, NormalSide: model.Debit, Description: "Primary checking account"},
		{ID: "5020", Name: "Dining", Type: model.AccountTypeExpense, NormalSide: model.Debit, TaxLine: "none"},
	}

	var buf bytes.Buffer
	err := WriteAccounts(&buf, accounts)
	require.NoError(t, err)

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, accounts, got)
}

func TestNormalSideDefaultsFromType(t *testing.T) {
	csv := header +
		"4010,Salary,income,,,,\n" +
		"5010,Groceries,expense,,,,\n" +
		"9999,Suspense,asset,credit,,,odd but allowed\n"

	got, err := ReadAccounts(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, model.Credit, got[0].NormalSide)
	assert.Equal(t, model.Debit, got[1].NormalSide)
	assert.Equal(t, model.Credit, got[2].NormalSide, "explicit side wins over the type default")
}

func TestReadAccounts_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"unknown type", header + "1010,Checking,cash,,,,\n", "unknown account_type"},
		{"unknown side", header + "1010,Checking,asset,left,,,\n", "normal_side"},
		{"missing id", header + ",Checking,asset,,,,\n", "missing account_id"},
		{"duplicate", header + "1010,A,asset,,,,\n1010,B,asset,,,,\n", "already defined on row 2"},
		{"wrong field count", header + "1010,Checking,asset\n", "wrong number of fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAccounts(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParentID(t *testing.T) {
	accounts := []model.Account{
		{ID: "5040", Name: "Rent", Type: model.AccountTypeExpense, NormalSide: model.Debit},
		{ID: "5041", Name: "Rent - Garage", Type: model.AccountTypeExpense, NormalSide: model.Debit, ParentID: "5040"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "", got[0].ParentID)
	assert.Equal(t, "5040", got[1].ParentID)
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/chart-of-accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	accounts, err := ReadAccounts(f)
	require.NoError(t, err)
	require.Len(t, accounts, 12)

	types := make(map[model.AccountType]bool)
	for _, acct := range accounts {
		types[acct.Type] = true
	}
	assert.True(t, types[model.AccountTypeAsset])
	assert.True(t, types[model.AccountTypeLiability])
	assert.True(t, types[model.AccountTypeEquity])
	assert.True(t, types[model.AccountTypeIncome])
	assert.True(t, types[model.AccountTypeExpense])
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart()
	require.NotEmpty(t, chart)

	ids := make(map[string]bool)
	for _, acct := range chart {
		assert.False(t, ids[acct.ID], "duplicate account %s", acct.ID)
		ids[acct.ID] = true
		assert.NotEmpty(t, acct.Name, "account %s missing name", acct.ID)
		assert.True(t, acct.Type.Valid(), "account %s has invalid type", acct.ID)
		assert.True(t, acct.NormalSide.Valid(), "account %s has invalid side", acct.ID)
	}
	assert.True(t, ids[SuspenseAccountID], "default chart carries the suspense account")

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, chart))
	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart, got)
}
