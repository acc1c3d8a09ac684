// Package memory provides the bounded, in-process conversation history store.
// Each conversation owns an ordered slice of recent messages; buckets are
// evicted by inactivity TTL and by a least-recently-seen capacity cap so the
// store never grows unbounded under sustained traffic from many chats.
package memory

import (
	"sync"
	"time"

	"github.com/kaiwa-bot/kaiwa/internal/api/middleware"
	log "github.com/sirupsen/logrus"
)

// StoreConfig defines the retention limits for the conversation store.
type StoreConfig struct {
	// HistoryLimit is the maximum number of messages kept per conversation.
	// Oldest messages are dropped first. <= 0 keeps every message.
	HistoryLimit int `yaml:"history-limit" json:"history-limit"`
	// TTL is how long an untouched conversation survives. 0 disables expiry.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// MaxConversations caps the number of live conversations. 0 is unbounded.
	MaxConversations int `yaml:"max-conversations" json:"max-conversations"`
}

// DefaultStoreConfig returns the retention limits used when none are configured.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		HistoryLimit:     50,
		TTL:              2 * time.Hour,
		MaxConversations: 500,
	}
}

// Entry is one stored chat turn. Immutable once appended.
type Entry struct {
	// Sender is the platform user identifier, empty when the platform
	// withheld it.
	Sender string
	// Text is the message text.
	Text string
	// Timestamp is epoch milliseconds, platform-supplied or arrival time.
	Timestamp int64
}

// bucket holds the ordered history (oldest first) for one conversation.
type bucket struct {
	entries  []Entry
	lastSeen time.Time
}

// StoreStats tracks store activity counters.
type StoreStats struct {
	Appends         int64
	TTLExpired      int64
	CapacityEvicted int64
	Size            int
}

// Store maps conversation IDs to bounded history buckets.
//
// A single mutex serializes every read and write, including the recency
// order used for capacity eviction. Expected concurrency is a handful of
// in-flight webhook deliveries, so one lock is deliberate; per-bucket locks
// would complicate the combined TTL+capacity invariant for nothing.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	order   []string // least-recently-seen first
	cfg     StoreConfig
	stats   StoreStats

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates a conversation store with the given retention limits.
func NewStore(cfg StoreConfig) *Store {
	return &Store{
		buckets: make(map[string]*bucket),
		order:   make([]string, 0, cfg.MaxConversations),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Append records one message under a conversation and refreshes its recency.
// The eviction pass runs first, then the bucket is created on demand and
// FIFO-truncated to HistoryLimit.
func (s *Store) Append(conversationID string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	b, ok := s.buckets[conversationID]
	if !ok {
		b = &bucket{}
		s.buckets[conversationID] = b
	}
	b.entries = append(b.entries, e)
	if s.cfg.HistoryLimit > 0 && len(b.entries) > s.cfg.HistoryLimit {
		drop := len(b.entries) - s.cfg.HistoryLimit
		b.entries = append(b.entries[:0:0], b.entries[drop:]...)
	}
	b.lastSeen = now
	s.touchLocked(conversationID)
	s.stats.Appends++

	// A first append for a new conversation can push the store over the
	// cap; enforce it again so the bound holds after every write.
	s.enforceCapLocked()
	middleware.SetConversationCount(len(s.buckets))
}

// Recent returns up to n most recent entries for a conversation in arrival
// order (oldest first). The read refreshes lastSeen and recency order so an
// active-but-quiet conversation stays alive. Returns nil when the
// conversation is absent, expired, or n <= 0.
func (s *Store) Recent(conversationID string, n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	b, ok := s.buckets[conversationID]
	if !ok || n <= 0 {
		return nil
	}
	b.lastSeen = now
	s.touchLocked(conversationID)

	start := 0
	if len(b.entries) > n {
		start = len(b.entries) - n
	}
	out := make([]Entry, len(b.entries)-start)
	copy(out, b.entries[start:])
	return out
}

// Len reports the current number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Stats returns a snapshot of store activity counters.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Size = len(s.buckets)
	return st
}

// evictLocked runs the TTL sweep and then the capacity pass. Callers hold mu.
func (s *Store) evictLocked(now time.Time) {
	if s.cfg.TTL > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			b, ok := s.buckets[id]
			if !ok {
				continue
			}
			if now.Sub(b.lastSeen) > s.cfg.TTL {
				delete(s.buckets, id)
				s.stats.TTLExpired++
				middleware.RecordConversationEviction("ttl")
				continue
			}
			kept = append(kept, id)
		}
		s.order = kept
	}
	s.enforceCapLocked()
	middleware.SetConversationCount(len(s.buckets))
}

// enforceCapLocked removes least-recently-seen buckets until the capacity
// cap holds. Callers hold mu.
func (s *Store) enforceCapLocked() {
	if s.cfg.MaxConversations <= 0 {
		return
	}
	for len(s.buckets) > s.cfg.MaxConversations && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		if _, ok := s.buckets[oldest]; !ok {
			continue
		}
		delete(s.buckets, oldest)
		s.stats.CapacityEvicted++
		middleware.RecordConversationEviction("capacity")
		log.Debugf("conversation store: evicted %s over capacity (%d live)", oldest, len(s.buckets))
	}
}

// touchLocked moves a conversation to the most-recently-seen end of the
// recency order, appending it when absent. Callers hold mu.
func (s *Store) touchLocked(conversationID string) {
	for i, id := range s.order {
		if id == conversationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, conversationID)
}
