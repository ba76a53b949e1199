// Package dedup tracks the URLs already emitted during this run.
package dedup

import "sync"

// Set is the process-lifetime record of emitted URLs. Membership test and
// insert happen under one lock acquisition, so a URL reported by two
// sources in the same cycle is still emitted once. Keys are raw URL
// strings; two spellings of the same resource count as distinct. The set
// never evicts and is never persisted: a restart re-emits whatever sits in
// each source's recent window.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// IsNew reports whether url has not been seen in this run, marking it seen
// when it returns true. For a given url it returns true at most once per
// process lifetime.
func (s *Set) IsNew(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Len returns the number of URLs marked seen.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
