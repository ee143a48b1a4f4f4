package core

import (
	"strconv"
	"sync"
	"unicode"
)

// IDGenerator hands out prefixed sequential IDs (S43, AT101, ...). It is
// seeded at boot from the highest numeric suffix observed per prefix in
// the remote store. Uniqueness holds under the single-writer-process
// assumption only; there is no distributed coordination.
type IDGenerator struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{counters: make(map[string]int)}
}

// Seed raises each prefix counter to the given value if higher than what
// is already recorded. Safe to call once per entity type during boot.
func (g *IDGenerator) Seed(maxByPrefix map[string]int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for prefix, max := range maxByPrefix {
		if max > g.counters[prefix] {
			g.counters[prefix] = max
		}
	}
}

// Observe feeds a single existing ID into the seeding state.
func (g *IDGenerator) Observe(id string) {
	prefix, n, ok := SplitID(id)
	if !ok {
		return
	}
	g.Seed(map[string]int{prefix: n})
}

// Next increments the prefix counter and returns the new ID.
func (g *IDGenerator) Next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[prefix]++
	return prefix + strconv.Itoa(g.counters[prefix])
}

// Counters returns a copy of the current per-prefix counters.
func (g *IDGenerator) Counters() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make(map[string]int, len(g.counters))
	for prefix, n := range g.counters {
		cp[prefix] = n
	}
	return cp
}

// SplitID splits an ID into its alphabetic prefix and numeric suffix.
func SplitID(id string) (prefix string, n int, ok bool) {
	i := 0
	for i < len(id) && unicode.IsLetter(rune(id[i])) {
		i++
	}
	if i == 0 || i == len(id) {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return "", 0, false
	}
	return id[:i], n, true
}
