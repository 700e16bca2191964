// Package posting turns a normalized transaction into balanced double-entry lines.
package posting

import (
	"fmt"
	"math/big"

	"github.com/alvazi/microgl/internal/model"
	"github.com/alvazi/microgl/internal/rules"
)

// Catalog looks up accounts by ID.
type Catalog interface {
	Get(id string) (model.Account, bool)
}

// Result is the outcome of posting one transaction.
type Result struct {
	Lines           []model.Line
	Rule            string // empty when the fallback applied
	BusinessPartner string
	Currency        string
	Unclassified    bool
}

// Engine posts transactions against a read-only rule set and catalog.
// It is safe for concurrent use.
type Engine struct {
	rules   *rules.Set
	catalog Catalog
}

// NewEngine creates an Engine.
func NewEngine(set *rules.Set, catalog Catalog) *Engine {
	return &Engine{rules: set, catalog: catalog}
}

// Post derives the lines for txn using the given rule set and catalog.
func Post(txn model.Transaction, set *rules.Set, catalog Catalog) ([]model.Line, error) {
	res, err := NewEngine(set, catalog).Post(txn)
	if err != nil {
		return nil, err
	}
	return res.Lines, nil
}

type allocation struct {
	account string
	amount  int64
}

// Post selects the first matching rule (or the fallback), splits the amount across
// the target accounts and returns balanced lines, debits first.
func (e *Engine) Post(txn model.Transaction) (Result, error) {
	src, ok := e.rules.Source(txn.Source)
	if !ok {
		return Result{}, &InvalidMappingError{Source: txn.Source, Reason: "no rules configured for source"}
	}
	invalid := func(rule, format string, args ...any) error {
		return &InvalidMappingError{Source: txn.Source, Rule: rule, Reason: fmt.Sprintf(format, args...)}
	}
	if txn.Amount == 0 {
		return Result{}, invalid("", "zero amount")
	}

	srcAcct, ok := e.catalog.Get(src.Account)
	if !ok {
		return Result{}, invalid("", "unknown source account %s", src.Account)
	}

	res := Result{Currency: src.Currency}
	var target rules.Target
	if rule, ok := src.Match(txn); ok {
		target = rule.Target
		res.Rule = rule.Name
		res.BusinessPartner = rule.BusinessPartner
	} else {
		switch src.Fallback.Policy {
		case rules.FallbackSuspense:
			target = rules.Single{Account: src.Fallback.AccountFor(txn.Direction())}
			res.BusinessPartner = src.Fallback.BusinessPartner
			res.Unclassified = true
		default:
			return Result{}, &UnmappedTransactionError{
				File:        txn.File,
				Row:         txn.Row,
				Source:      txn.Source,
				Description: txn.Description,
				Amount:      txn.Amount,
			}
		}
	}

	total := txn.AbsAmount()
	allocs, err := allocate(target, total)
	if err != nil {
		return Result{}, invalid(res.Rule, "%v", err)
	}

	sourceSide := srcAcct.NormalSide
	if txn.Amount < 0 {
		sourceSide = sourceSide.Opposite()
	}
	targetSide := sourceSide.Opposite()

	legs := make([]model.Line, 0, len(allocs)+1)
	legs = append(legs, model.Line{AccountID: src.Account, Side: sourceSide, Amount: total})
	for _, a := range allocs {
		if a.amount == 0 {
			continue
		}
		legs = append(legs, model.Line{AccountID: a.account, Side: targetSide, Amount: a.amount})
	}

	res.Lines = orderLines(legs)
	if err := e.check(res.Lines); err != nil {
		return Result{}, invalid(res.Rule, "%v", err)
	}
	return res, nil
}

// check verifies the lines balance and reference known accounts.
func (e *Engine) check(lines []model.Line) error {
	var debit, credit int64
	for _, l := range lines {
		if l.Amount <= 0 {
			return fmt.Errorf("line %d: non-positive amount %d", l.No, l.Amount)
		}
		if _, ok := e.catalog.Get(l.AccountID); !ok {
			return fmt.Errorf("line %d: unknown account %s", l.No, l.AccountID)
		}
		switch l.Side {
		case model.Debit:
			debit += l.Amount
		case model.Credit:
			credit += l.Amount
		}
	}
	if debit != credit {
		return fmt.Errorf("debits (%d) != credits (%d)", debit, credit)
	}
	return nil
}

// orderLines puts debits before credits, keeping relative order, and numbers them from 1.
func orderLines(legs []model.Line) []model.Line {
	out := make([]model.Line, 0, len(legs))
	for _, side := range []model.Side{model.Debit, model.Credit} {
		for _, l := range legs {
			if l.Side == side {
				l.No = len(out) + 1
				out = append(out, l)
			}
		}
	}
	return out
}

// allocate divides total across a target's accounts.
func allocate(target rules.Target, total int64) ([]allocation, error) {
	switch t := target.(type) {
	case rules.Single:
		return []allocation{{account: t.Account, amount: total}}, nil
	case rules.Split:
		return allocateSplit(t, total)
	default:
		return nil, fmt.Errorf("unsupported target %T", target)
	}
}

// allocateSplit takes fixed shares off the top, floors each proportional share of
// what is left and gives the rounding remainder to the configured share.
func allocateSplit(split rules.Split, total int64) ([]allocation, error) {
	if len(split.Shares) == 0 {
		return nil, fmt.Errorf("split has no shares")
	}
	if split.RemainderTo < 0 || split.RemainderTo >= len(split.Shares) {
		return nil, fmt.Errorf("remainder share %d out of range", split.RemainderTo)
	}

	out := make([]allocation, len(split.Shares))
	var fixed int64
	proportional := false
	for i, s := range split.Shares {
		out[i].account = s.Account
		if s.Proportional() {
			proportional = true
			continue
		}
		out[i].amount = s.Fixed
		fixed += s.Fixed
	}

	if fixed > total {
		return nil, fmt.Errorf("fixed shares (%d) exceed amount (%d)", fixed, total)
	}
	rest := total - fixed
	if !proportional {
		if rest != 0 {
			return nil, fmt.Errorf("fixed shares (%d) do not sum to amount (%d)", fixed, total)
		}
		return out, nil
	}

	var allocated int64
	base := big.NewInt(rest)
	for i, s := range split.Shares {
		if !s.Proportional() {
			continue
		}
		share := new(big.Int).Mul(base, s.Fraction.Num())
		share.Quo(share, s.Fraction.Denom())
		out[i].amount = share.Int64()
		allocated += out[i].amount
	}

	remainder := rest - allocated
	if remainder < 0 {
		return nil, fmt.Errorf("proportional shares over-allocate by %d", -remainder)
	}
	out[split.RemainderTo].amount += remainder
	return out, nil
}
