package rules

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alvazi/microgl/internal/model"
	"github.com/alvazi/microgl/internal/normalize"
)

// RuleConfig is the YAML form of a mapping rule. Exactly one of Account or Split is set.
type RuleConfig struct {
	Name            string        `yaml:"name"`
	Match           MatchConfig   `yaml:"match"`
	Account         string        `yaml:"account,omitempty"`
	Split           []ShareConfig `yaml:"split,omitempty"`
	RemainderTo     string        `yaml:"remainder_to,omitempty"` // account of the share taking the remainder
	BusinessPartner string        `yaml:"business_partner,omitempty"`
}

// MatchConfig is the YAML form of a predicate. Amounts are in major units.
type MatchConfig struct {
	Contains     string `yaml:"contains,omitempty"`
	Pattern      string `yaml:"pattern,omitempty"`
	Direction    string `yaml:"direction,omitempty"`
	MinAmount    string `yaml:"min_amount,omitempty"`
	MaxAmount    string `yaml:"max_amount,omitempty"`
	Counterparty string `yaml:"counterparty,omitempty"`
}

// ShareConfig is one split share. Exactly one of Percent, Ratio or Amount is set.
// Ratio takes fractions such as "1/3" that a percentage cannot express exactly.
type ShareConfig struct {
	Account string `yaml:"account"`
	Percent string `yaml:"percent,omitempty"`
	Ratio   string `yaml:"ratio,omitempty"`
	Amount  string `yaml:"amount,omitempty"`
}

// FallbackConfig is the YAML form of a fallback policy.
type FallbackConfig struct {
	Policy          string `yaml:"policy"`
	Account         string `yaml:"account,omitempty"`
	InflowAccount   string `yaml:"inflow_account,omitempty"`
	OutflowAccount  string `yaml:"outflow_account,omitempty"`
	BusinessPartner string `yaml:"business_partner,omitempty"`
}

// DefaultBusinessPartner is used for fallback postings when none is configured.
const DefaultBusinessPartner = "unknown"

// AccountChecker reports whether an account exists in the catalog.
type AccountChecker interface {
	Exists(id string) bool
}

// SourceSpec carries everything needed to compile one source's rule set.
type SourceSpec struct {
	Code      string
	Account   string
	Currency  string
	Precision int32 // decimal places of minor units
	Rules     []RuleConfig
	Fallback  FallbackConfig
}

var one = big.NewRat(1, 1)

// Compile validates a source's rules against the catalog and builds its Source.
func Compile(spec SourceSpec, catalog AccountChecker) (Source, error) {
	if spec.Code == "" {
		return Source{}, fmt.Errorf("source: missing code")
	}
	if !catalog.Exists(spec.Account) {
		return Source{}, fmt.Errorf("source %s: unknown account %q", spec.Code, spec.Account)
	}

	src := Source{
		Code:     spec.Code,
		Account:  spec.Account,
		Currency: spec.Currency,
	}
	for i, rc := range spec.Rules {
		r, err := compileRule(rc, i, spec, catalog)
		if err != nil {
			return Source{}, fmt.Errorf("source %s rule %d (%s): %w", spec.Code, i+1, ruleName(rc, i), err)
		}
		src.Rules = append(src.Rules, r)
	}

	fb, err := compileFallback(spec.Fallback, spec.Account, catalog)
	if err != nil {
		return Source{}, fmt.Errorf("source %s fallback: %w", spec.Code, err)
	}
	src.Fallback = fb
	return src, nil
}

func ruleName(rc RuleConfig, i int) string {
	if rc.Name != "" {
		return rc.Name
	}
	return fmt.Sprintf("rule-%d", i+1)
}

func compileRule(rc RuleConfig, i int, spec SourceSpec, catalog AccountChecker) (Rule, error) {
	pred, err := compilePredicate(rc.Match, spec.Precision)
	if err != nil {
		return Rule{}, err
	}

	var target Target
	switch {
	case rc.Account != "" && len(rc.Split) > 0:
		return Rule{}, fmt.Errorf("account and split are mutually exclusive")
	case rc.Account != "":
		target = Single{Account: rc.Account}
	case len(rc.Split) > 0:
		target, err = compileSplit(rc.Split, rc.RemainderTo, spec.Precision)
		if err != nil {
			return Rule{}, err
		}
	default:
		return Rule{}, fmt.Errorf("missing target account or split")
	}

	for _, acct := range Accounts(target) {
		if !catalog.Exists(acct) {
			return Rule{}, fmt.Errorf("unknown account %q", acct)
		}
		if acct == spec.Account {
			return Rule{}, fmt.Errorf("target account %s is the source account", acct)
		}
	}

	return Rule{
		Name:            ruleName(rc, i),
		When:            pred,
		Target:          target,
		BusinessPartner: rc.BusinessPartner,
	}, nil
}

func compilePredicate(mc MatchConfig, precision int32) (Predicate, error) {
	p := Predicate{
		Contains:     mc.Contains,
		Counterparty: mc.Counterparty,
	}
	if mc.Pattern != "" {
		re, err := regexp.Compile(mc.Pattern)
		if err != nil {
			return Predicate{}, fmt.Errorf("compiling pattern: %w", err)
		}
		p.Pattern = re
	}
	switch dir := model.Direction(strings.ToLower(mc.Direction)); dir {
	case "", model.Inflow, model.Outflow:
		p.Direction = dir
	default:
		return Predicate{}, fmt.Errorf("unknown direction %q", mc.Direction)
	}

	var err error
	if p.MinAmount, err = minorUnits(mc.MinAmount, precision); err != nil {
		return Predicate{}, fmt.Errorf("parsing min_amount: %w", err)
	}
	if p.MaxAmount, err = minorUnits(mc.MaxAmount, precision); err != nil {
		return Predicate{}, fmt.Errorf("parsing max_amount: %w", err)
	}
	if p.MinAmount < 0 || p.MaxAmount < 0 {
		return Predicate{}, fmt.Errorf("amount bounds must not be negative")
	}
	if p.MaxAmount > 0 && p.MinAmount > p.MaxAmount {
		return Predicate{}, fmt.Errorf("min_amount exceeds max_amount")
	}
	return p, nil
}

func compileSplit(shares []ShareConfig, remainderTo string, precision int32) (Split, error) {
	split := Split{Shares: make([]Share, 0, len(shares))}
	total := new(big.Rat)
	proportional := 0
	seen := make(map[string]bool, len(shares))

	for i, sc := range shares {
		if sc.Account == "" {
			return Split{}, fmt.Errorf("share %d: missing account", i+1)
		}
		if seen[sc.Account] {
			return Split{}, fmt.Errorf("share %d: account %s appears twice", i+1, sc.Account)
		}
		seen[sc.Account] = true

		set := 0
		for _, v := range []string{sc.Percent, sc.Ratio, sc.Amount} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			return Split{}, fmt.Errorf("share %d: exactly one of percent, ratio or amount is required", i+1)
		}

		switch {
		case sc.Amount != "":
			fixed, err := minorUnits(sc.Amount, precision)
			if err != nil {
				return Split{}, fmt.Errorf("share %d: parsing amount: %w", i+1, err)
			}
			if fixed <= 0 {
				return Split{}, fmt.Errorf("share %d: amount must be positive", i+1)
			}
			split.Shares = append(split.Shares, Share{Account: sc.Account, Fixed: fixed})
			continue
		}

		frac, err := parseFraction(sc)
		if err != nil {
			return Split{}, fmt.Errorf("share %d: %w", i+1, err)
		}
		if frac.Sign() <= 0 {
			return Split{}, fmt.Errorf("share %d: share must be positive", i+1)
		}
		total.Add(total, frac)
		proportional++
		split.Shares = append(split.Shares, Share{Account: sc.Account, Fraction: frac})
	}

	if proportional > 0 && total.Cmp(one) != 0 {
		pct := new(big.Rat).Mul(total, big.NewRat(100, 1))
		return Split{}, fmt.Errorf("split shares sum to %s%%, want 100%%", pct.FloatString(2))
	}

	if remainderTo != "" {
		idx := -1
		for i, s := range split.Shares {
			if s.Account == remainderTo {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Split{}, fmt.Errorf("remainder_to %s is not a share account", remainderTo)
		}
		split.RemainderTo = idx
	}
	return split, nil
}

func parseFraction(sc ShareConfig) (*big.Rat, error) {
	if sc.Ratio != "" {
		r, ok := new(big.Rat).SetString(sc.Ratio)
		if !ok {
			return nil, fmt.Errorf("parsing ratio %q", sc.Ratio)
		}
		return r, nil
	}
	pct, err := decimal.NewFromString(sc.Percent)
	if err != nil {
		return nil, fmt.Errorf("parsing percent %q: %w", sc.Percent, err)
	}
	return pct.Shift(-2).Rat(), nil
}

func compileFallback(fc FallbackConfig, sourceAccount string, catalog AccountChecker) (Fallback, error) {
	fb := Fallback{
		Policy:          FallbackPolicy(strings.ToLower(fc.Policy)),
		Account:         fc.Account,
		InflowAccount:   fc.InflowAccount,
		OutflowAccount:  fc.OutflowAccount,
		BusinessPartner: fc.BusinessPartner,
	}
	switch fb.Policy {
	case FallbackFail:
		return fb, nil
	case FallbackSuspense:
	default:
		return Fallback{}, fmt.Errorf("unknown policy %q", fc.Policy)
	}

	if fb.BusinessPartner == "" {
		fb.BusinessPartner = DefaultBusinessPartner
	}
	for _, dir := range []model.Direction{model.Inflow, model.Outflow} {
		acct := fb.AccountFor(dir)
		if acct == "" {
			return Fallback{}, fmt.Errorf("no suspense account for %s", dir)
		}
		if !catalog.Exists(acct) {
			return Fallback{}, fmt.Errorf("unknown account %q", acct)
		}
		if acct == sourceAccount {
			return Fallback{}, fmt.Errorf("suspense account %s is the source account", acct)
		}
	}
	return fb, nil
}

// minorUnits converts a major-unit decimal string into minor units. Empty means 0.
func minorUnits(s string, precision int32) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	v, err := normalize.MinorUnits(d, precision)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return v, nil
}
