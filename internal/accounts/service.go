package accounts

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alvazi/microgl/internal/model"
)

// ChartPath is the location of the chart of accounts relative to a project root.
var ChartPath = filepath.Join("accounts", "chart-of-accounts.csv")

// Service provides in-memory lookup over the chart of accounts, ordered by account ID.
// It is read-only after construction and safe for concurrent use.
type Service struct {
	accounts []model.Account
	byID     map[string]model.Account
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	sorted := slices.Clone(accounts)
	slices.SortStableFunc(sorted, func(a, b model.Account) int {
		return strings.Compare(a.ID, b.ID)
	})
	byID := make(map[string]model.Account, len(sorted))
	for _, a := range sorted {
		byID[a.ID] = a
	}
	return &Service{accounts: sorted, byID: byID}
}

// Load reads accounts/chart-of-accounts.csv from a project root and returns a Service.
func Load(root string) (*Service, error) {
	path := filepath.Join(root, ChartPath)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	if len(accts) == 0 {
		return nil, fmt.Errorf("chart of accounts %s is empty", path)
	}
	svc := NewService(accts)
	if err := svc.Validate(); err != nil {
		return nil, fmt.Errorf("chart of accounts %s: %w", path, err)
	}
	return svc, nil
}

// Validate checks the account hierarchy: every parent exists, shares its
// child's type, and no account is its own ancestor.
func (s *Service) Validate() error {
	for _, a := range s.accounts {
		seen := map[string]bool{a.ID: true}
		for cur := a; cur.ParentID != ""; {
			parent, ok := s.byID[cur.ParentID]
			if !ok {
				return fmt.Errorf("account %s: unknown parent %s", cur.ID, cur.ParentID)
			}
			if parent.Type != cur.Type {
				return fmt.Errorf("account %s (%s): parent %s is %s", cur.ID, cur.Type, parent.ID, parent.Type)
			}
			if seen[parent.ID] {
				return fmt.Errorf("account %s: parent cycle through %s", a.ID, parent.ID)
			}
			seen[parent.ID] = true
			cur = parent
		}
	}
	return nil
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Contra reports whether an account grows on the side opposite its type, such as
// accumulated depreciation carried as a credit-normal asset.
func (s *Service) Contra(id string) bool {
	a, ok := s.byID[id]
	return ok && a.NormalSide != a.Type.NormalSide()
}

// ByType returns all accounts of the given type in ID order.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// Save writes the chart of accounts to accounts/chart-of-accounts.csv.
// A chart with a broken hierarchy is refused.
func (s *Service) Save(root string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	dir := filepath.Join(root, filepath.Dir(ChartPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(filepath.Join(root, ChartPath))
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.accounts); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
