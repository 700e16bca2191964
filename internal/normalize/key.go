package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/alvazi/microgl/internal/model"
)

const keySeparator = "\x1f"

// NaturalKey derives a stable identity for a transaction from its source, date, amount
// and description, plus any extra values. Equal inputs always give equal keys.
func NaturalKey(txn model.Transaction, extra ...string) string {
	parts := []string{
		txn.Source,
		txn.Date.Format("2006-01-02"),
		strconv.FormatInt(txn.Amount, 10),
		txn.Description,
	}
	parts = append(parts, extra...)
	sum := sha256.Sum256([]byte(strings.Join(parts, keySeparator)))
	return hex.EncodeToString(sum[:])
}

// Keyer suffixes natural keys that repeat within one file with their occurrence
// number, so two identical rows in a statement stay distinct and a re-import of the
// same file yields the same keys. Use one Keyer per file.
type Keyer struct {
	seen map[string]int
}

// NewKeyer returns an empty Keyer.
func NewKeyer() *Keyer {
	return &Keyer{seen: make(map[string]int)}
}

// Key returns base suffixed with its 1-based occurrence number.
func (k *Keyer) Key(base string) string {
	k.seen[base]++
	return fmt.Sprintf("%s_%d", base, k.seen[base])
}
