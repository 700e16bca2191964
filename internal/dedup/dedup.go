// Package dedup decides whether a bank transaction has already been posted.
package dedup

import "sync"

// Outcome is the result of a duplicate check.
type Outcome int

const (
	New Outcome = iota
	Duplicate
)

func (o Outcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "new"
}

// KeySet is a read view of natural keys already posted.
type KeySet interface {
	Contains(key string) bool
}

// Keys is a map-backed KeySet.
type Keys map[string]struct{}

// NewKeys builds a Keys from a list of natural keys.
func NewKeys(keys ...string) Keys {
	k := make(Keys, len(keys))
	for _, key := range keys {
		k[key] = struct{}{}
	}
	return k
}

// Contains reports whether key is in the set.
func (k Keys) Contains(key string) bool {
	_, ok := k[key]
	return ok
}

// CheckDuplicate reports whether key has been seen.
func CheckDuplicate(key string, keys KeySet) Outcome {
	if keys.Contains(key) {
		return Duplicate
	}
	return New
}

type keyState int

const (
	pending keyState = iota + 1
	committed
)

// Gate makes check-and-mark atomic across concurrent workers. A reserved key counts
// as seen until it is released, so at most one worker posts a given transaction.
type Gate struct {
	mu   sync.Mutex
	keys map[string]keyState
}

// NewGate returns a Gate seeded with keys already persisted.
func NewGate(persisted []string) *Gate {
	g := &Gate{keys: make(map[string]keyState, len(persisted))}
	for _, key := range persisted {
		g.keys[key] = committed
	}
	return g
}

// Reserve marks key as pending and returns New, or returns Duplicate if the key is
// committed or already reserved.
func (g *Gate) Reserve(key string) Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.keys[key]; ok {
		return Duplicate
	}
	g.keys[key] = pending
	return New
}

// Commit marks a reserved key as persisted.
func (g *Gate) Commit(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[key] = committed
}

// Release drops a pending reservation so the key can be retried. Committed keys
// are left alone.
func (g *Gate) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] == pending {
		delete(g.keys, key)
	}
}

// Contains reports whether key is committed or reserved.
func (g *Gate) Contains(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.keys[key]
	return ok
}

// Committed returns the number of persisted keys.
func (g *Gate) Committed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, s := range g.keys {
		if s == committed {
			n++
		}
	}
	return n
}
