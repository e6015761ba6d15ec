package store

import (
	"sync"

	"github.com/AngelCh415/touchpoints/internal/models"
)

// MemoryStore holds the assembled journeys of the latest run, keyed by
// account id. Iteration follows insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]int
	rows  []models.CustomerJourney
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]int)}
}

// Key is the account id, or the company name for customers without one.
func Key(j models.CustomerJourney) string {
	if j.AccountID != "" {
		return j.AccountID
	}
	return j.Company
}

// Upsert stores j, replacing an earlier journey with the same key in place.
// It reports whether the journey was new.
func (s *MemoryStore) Upsert(j models.CustomerJourney) bool {
	k := Key(j)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byKey[k]; ok {
		s.rows[i] = j
		return false
	}
	s.byKey[k] = len(s.rows)
	s.rows = append(s.rows, j)
	return true
}

// Replace swaps the whole dataset, used when a run finishes or a document
// is loaded.
func (s *MemoryStore) Replace(js []models.CustomerJourney) {
	byKey := make(map[string]int, len(js))
	rows := make([]models.CustomerJourney, 0, len(js))
	for _, j := range js {
		k := Key(j)
		if i, ok := byKey[k]; ok {
			rows[i] = j
			continue
		}
		byKey[k] = len(rows)
		rows = append(rows, j)
	}
	s.mu.Lock()
	s.byKey, s.rows = byKey, rows
	s.mu.Unlock()
}

func (s *MemoryStore) Get(key string) (models.CustomerJourney, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byKey[key]
	if !ok {
		return models.CustomerJourney{}, false
	}
	return s.rows[i], true
}

func (s *MemoryStore) All() []models.CustomerJourney {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CustomerJourney, len(s.rows))
	copy(out, s.rows)
	return out
}

// Query returns the journeys accepted by f, in insertion order.
func (s *MemoryStore) Query(f func(models.CustomerJourney) bool) []models.CustomerJourney {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CustomerJourney
	for _, j := range s.rows {
		if f == nil || f(j) {
			out = append(out, j)
		}
	}
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
