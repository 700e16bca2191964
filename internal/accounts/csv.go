package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/alvazi/microgl/internal/model"
)

const (
	numFields  = 7
	colID      = 0
	colName    = 1
	colType    = 2
	colSide    = 3
	colParent  = 4
	colTaxLine = 5
	colDesc    = 6
)

// ReadAccounts reads chart-of-accounts.csv. Duplicate IDs are rejected.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	seen := make(map[string]int)
	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if prev, ok := seen[acct.ID]; ok {
			return nil, fmt.Errorf("row %d: account %s already defined on row %d", i+2, acct.ID, prev)
		}
		seen[acct.ID] = i + 2
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes chart-of-accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"account_id", "account_name", "account_type", "normal_side", "parent_id", "tax_line", "description"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colID] = acct.ID
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	row[colSide] = string(acct.NormalSide)
	row[colParent] = acct.ParentID
	row[colTaxLine] = acct.TaxLine
	row[colDesc] = acct.Description
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
// A blank normal_side is derived from the account type.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id := strings.TrimSpace(record[colID])
	if id == "" {
		return model.Account{}, fmt.Errorf("missing account_id")
	}

	acctType := model.AccountType(strings.ToLower(strings.TrimSpace(record[colType])))
	if !acctType.Valid() {
		return model.Account{}, fmt.Errorf("account %s: unknown account_type %q", id, record[colType])
	}

	side := acctType.NormalSide()
	if s := strings.TrimSpace(record[colSide]); s != "" {
		parsed, err := model.ParseSide(s)
		if err != nil {
			return model.Account{}, fmt.Errorf("account %s: parsing normal_side: %w", id, err)
		}
		side = parsed
	}

	return model.Account{
		ID:          id,
		Name:        record[colName],
		Type:        acctType,
		NormalSide:  side,
		ParentID:    strings.TrimSpace(record[colParent]),
		TaxLine:     record[colTaxLine],
		Description: record[colDesc],
	}, nil
}
