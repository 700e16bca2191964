package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alvazi/microgl/internal/id"
	"github.com/alvazi/microgl/internal/model"
)

// Header is the CSV header of the line projection.
const Header = "document_id,item_id,date,posting_year,posting_period,account_id,debit,credit,currency,description,reference,business_partner,source,rule,unclassified,natural_key"

const (
	numFields     = 16
	dateFormat    = "2006-01-02"
	colDocID      = 0
	colItemID     = 1
	colDate       = 2
	colYear       = 3
	colPeriod     = 4
	colAcctID     = 5
	colDebit      = 6
	colCredit     = 7
	colCurrency   = 8
	colDesc       = 9
	colReference  = 10
	colPartner    = 11
	colSource     = 12
	colRule       = 13
	colUnclass    = 14
	colNaturalKey = 15
)

// FormatAmount renders minor units as a fixed-point string with places decimals.
func FormatAmount(minor int64, places int32) string {
	return decimal.New(minor, -places).StringFixed(places)
}

// WriteLines writes one CSV row per document line (including header).
func WriteLines(w io.Writer, docs []model.Document, places int32) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, doc := range docs {
		for _, line := range doc.Lines {
			if err := cw.Write(MarshalLine(doc.Header, line, places)); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalLine converts a document line to a CSV row ([]string).
func MarshalLine(h model.Header, line model.Line, places int32) []string {
	row := make([]string, numFields)
	row[colDocID] = h.ID
	row[colItemID] = id.FormatItemID(line.No)
	row[colDate] = h.Date.Format(dateFormat)
	row[colYear] = strconv.Itoa(h.Date.Year())
	row[colPeriod] = strconv.Itoa(int(h.Date.Month()))
	row[colAcctID] = line.AccountID

	amount := FormatAmount(line.Amount, places)
	if line.Side == model.Debit {
		row[colDebit] = amount
	} else {
		row[colCredit] = amount
	}

	row[colCurrency] = h.Currency
	row[colDesc] = h.Description
	row[colReference] = h.Reference
	row[colPartner] = h.BusinessPartner
	row[colSource] = h.Source
	row[colRule] = h.Rule
	row[colUnclass] = strconv.FormatBool(h.Unclassified)
	row[colNaturalKey] = h.SourceNaturalKey
	return row
}
