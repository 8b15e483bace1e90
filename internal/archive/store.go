package archive

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Default bounds for NewStore.
const (
	DefaultStoreSize = 128
	DefaultStoreTTL  = 30 * time.Minute
)

// Store holds generated archives keyed by opaque retrieval tokens. Entries
// expire after the TTL and the least recently used entry is evicted once
// the size bound is reached. It is safe for concurrent use.
type Store struct {
	takeMu sync.Mutex
	cache  *expirable.LRU[string, []byte]
}

// NewStore returns a store bounded to size entries living at most ttl.
// Non-positive arguments use the defaults.
func NewStore(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = DefaultStoreSize
	}
	if ttl <= 0 {
		ttl = DefaultStoreTTL
	}
	return &Store{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Put stores data under a new token and returns it.
func (s *Store) Put(data []byte) string {
	token := uuid.NewString()
	s.cache.Add(token, data)
	return token
}

// Get returns the archive for token without consuming it.
func (s *Store) Get(token string) ([]byte, bool) {
	return s.cache.Get(token)
}

// Take returns the archive for token and removes it, so each token can be
// redeemed once.
func (s *Store) Take(token string) ([]byte, bool) {
	s.takeMu.Lock()
	defer s.takeMu.Unlock()
	data, ok := s.cache.Get(token)
	if ok {
		s.cache.Remove(token)
	}
	return data, ok
}

// Evict removes token and reports whether it was present.
func (s *Store) Evict(token string) bool {
	return s.cache.Remove(token)
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.cache.Len()
}
