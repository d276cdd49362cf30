// Package session keeps the most recent document text per session for
// follow-up questions.
package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// NoContext is returned by Get when no document has been analyzed under the
// session id, or its entry has expired.
const NoContext = "No document context available. Please upload a document first."

const (
	DefaultSize = 1024
	DefaultTTL  = 2 * time.Hour
)

// Store holds one reference text per session. Put overwrites any earlier
// value for the same id. Implementations are safe for concurrent use.
type Store interface {
	Put(id, text string)
	Get(id string) string
}

// LRUStore is a Store bounded by entry count and per-entry age.
type LRUStore struct {
	cache *expirable.LRU[string, string]
}

// NewLRUStore returns a store holding at most size sessions, each for ttl.
// Non-positive arguments select the defaults.
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRUStore{cache: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (s *LRUStore) Put(id, text string) {
	s.cache.Add(id, text)
}

func (s *LRUStore) Get(id string) string {
	if text, ok := s.cache.Get(id); ok {
		return text
	}
	return NoContext
}

// Len reports the number of live sessions.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
