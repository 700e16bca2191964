package model

import "time"

// RawTransaction is a decoded bank CSV row before normalization.
type RawTransaction struct {
	Source string            // source account code the file belongs to
	File   string            // base name of the CSV file
	Row    int               // 1-based row in the file
	Fields map[string]string // logical field name -> raw cell value
}

// Transaction is the canonical shape of a bank transaction.
type Transaction struct {
	Source       string
	Date         time.Time
	Amount       int64 // signed minor units; positive grows the source account on its normal side
	Description  string
	Counterparty string
	Reference    string
	NaturalKey   string

	File string
	Row  int
}

// Direction reports whether the source account's balance grew (Inflow) or shrank
// (Outflow). For a liability source such as a credit card, a purchase is an Inflow.
type Direction string

const (
	Inflow  Direction = "inflow"
	Outflow Direction = "outflow"
)

// Direction returns Inflow for positive amounts and Outflow otherwise.
func (t Transaction) Direction() Direction {
	if t.Amount > 0 {
		return Inflow
	}
	return Outflow
}

// AbsAmount returns the magnitude of the amount.
func (t Transaction) AbsAmount() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}
