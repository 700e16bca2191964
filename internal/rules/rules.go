// Package rules holds the per-source mapping rules that classify bank transactions.
package rules

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/alvazi/microgl/internal/model"
)

// Predicate decides whether a rule applies to a transaction. Zero-valued fields match anything.
type Predicate struct {
	Contains     string         // case-insensitive substring of the description
	Pattern      *regexp.Regexp // matched against the description
	Direction    model.Direction
	MinAmount    int64  // inclusive bound on the absolute amount, 0 = unbounded
	MaxAmount    int64  // inclusive bound on the absolute amount, 0 = unbounded
	Counterparty string // case-insensitive substring of the counterparty
}

// Match reports whether txn satisfies every configured condition.
func (p Predicate) Match(txn model.Transaction) bool {
	if p.Contains != "" && !containsFold(txn.Description, p.Contains) {
		return false
	}
	if p.Pattern != nil && !p.Pattern.MatchString(txn.Description) {
		return false
	}
	if p.Direction != "" && txn.Direction() != p.Direction {
		return false
	}
	abs := txn.AbsAmount()
	if p.MinAmount > 0 && abs < p.MinAmount {
		return false
	}
	if p.MaxAmount > 0 && abs > p.MaxAmount {
		return false
	}
	if p.Counterparty != "" && !containsFold(txn.Counterparty, p.Counterparty) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToUpper(s), strings.ToUpper(substr))
}

// Target is where the counterpart of a matched transaction is posted.
// It is either Single or Split.
type Target interface {
	isTarget()
}

// Single posts the whole amount to one account.
type Single struct {
	Account string
}

// Split divides the amount across several accounts.
type Split struct {
	Shares      []Share
	RemainderTo int // index into Shares receiving the rounding remainder
}

// Share is one part of a Split. Exactly one of Fraction or Fixed is set.
type Share struct {
	Account  string
	Fraction *big.Rat // proportional share of what is left after fixed shares
	Fixed    int64    // fixed amount in minor units
}

// Proportional reports whether the share takes a fraction of the amount.
func (s Share) Proportional() bool { return s.Fraction != nil }

func (Single) isTarget() {}
func (Split) isTarget()  {}

// Accounts returns every account a target posts to.
func Accounts(t Target) []string {
	switch t := t.(type) {
	case Single:
		return []string{t.Account}
	case Split:
		out := make([]string, len(t.Shares))
		for i, s := range t.Shares {
			out[i] = s.Account
		}
		return out
	}
	return nil
}

// Rule is one ordered mapping rule.
type Rule struct {
	Name            string
	When            Predicate
	Target          Target
	BusinessPartner string
}

// FallbackPolicy selects what happens when no rule matches.
type FallbackPolicy string

const (
	// FallbackSuspense posts unmatched transactions to a suspense account.
	FallbackSuspense FallbackPolicy = "suspense"
	// FallbackFail rejects unmatched transactions.
	FallbackFail FallbackPolicy = "fail"
)

// Fallback describes the policy for unmatched transactions of one source.
type Fallback struct {
	Policy          FallbackPolicy
	Account         string // suspense account for both directions
	InflowAccount   string // overrides Account for inflows
	OutflowAccount  string // overrides Account for outflows
	BusinessPartner string
}

// AccountFor returns the suspense account for a direction.
func (f Fallback) AccountFor(dir model.Direction) string {
	switch {
	case dir == model.Inflow && f.InflowAccount != "":
		return f.InflowAccount
	case dir == model.Outflow && f.OutflowAccount != "":
		return f.OutflowAccount
	}
	return f.Account
}

// Source is the compiled rule set of one bank account.
type Source struct {
	Code     string // bank account code, the prefix of its CSV files
	Account  string // GL account the bank account is booked to
	Currency string
	Rules    []Rule
	Fallback Fallback
}

// Match returns the first rule whose predicate matches txn.
func (s *Source) Match(txn model.Transaction) (*Rule, bool) {
	for i := range s.Rules {
		if s.Rules[i].When.Match(txn) {
			return &s.Rules[i], true
		}
	}
	return nil, false
}

// Set holds the rule sets of every configured source. It is read-only once built.
type Set struct {
	sources map[string]*Source
	codes   []string
}

// NewSet builds a Set. Later sources with the same code replace earlier ones.
func NewSet(sources ...Source) *Set {
	s := &Set{sources: make(map[string]*Source, len(sources))}
	for i := range sources {
		src := sources[i]
		if _, ok := s.sources[src.Code]; !ok {
			s.codes = append(s.codes, src.Code)
		}
		s.sources[src.Code] = &src
	}
	return s
}

// Source returns the rule set for a bank account code.
func (s *Set) Source(code string) (*Source, bool) {
	src, ok := s.sources[code]
	return src, ok
}

// Codes returns the configured source codes in configuration order.
func (s *Set) Codes() []string {
	return s.codes
}
