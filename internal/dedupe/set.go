// Package dedupe holds the in-memory snapshot used by the filter stage to
// partition a raw batch into already-seen and new records.
package dedupe

import "sync"

// Set is a ledger snapshot plus an optional static exclusion list. Ledger
// entries and exclusions are both answered as seen, but only ledger entries
// take part in the merge that is written back: exclusions never leak into
// the persisted ledger, so the ledger delta stays exactly the IDs emitted
// this run.
type Set struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	excluded map[string]struct{}
	order    []string // ledger entries in their persisted order
	added    []string // IDs marked during this run, in mark order
}

// NewSet builds a snapshot from the ledger's current entries. Duplicate
// entries in the input are collapsed; first occurrence wins the ordering.
func NewSet(ledger []string) *Set {
	s := &Set{
		seen:     make(map[string]struct{}, len(ledger)),
		excluded: make(map[string]struct{}),
		order:    make([]string, 0, len(ledger)),
	}
	for _, id := range ledger {
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.order = append(s.order, id)
	}
	return s
}

// Exclude registers static exclusions, treated as already seen.
func (s *Set) Exclude(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.excluded[id] = struct{}{}
	}
}

// Seen reports whether the ID is in the ledger snapshot, the exclusion
// list, or was marked earlier in this run.
func (s *Set) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return true
	}
	_, ok := s.excluded[id]
	return ok
}

// Mark records an ID emitted this run. Marking an already-seen ID is a no-op.
func (s *Set) Mark(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.added = append(s.added, id)
}

// Added returns the IDs marked during this run, in mark order.
func (s *Set) Added() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.added))
	copy(out, s.added)
	return out
}

// Merged returns the ledger content to persist: the original entries in
// their original order followed by this run's additions. Strictly additive.
func (s *Set) Merged() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.order)+len(s.added))
	out = append(out, s.order...)
	out = append(out, s.added...)
	return out
}
