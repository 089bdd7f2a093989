package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type closeEntry struct {
	NotificationID string    `json:"notification_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// MemoryStore keeps mirrors in process memory. Used in tests and as the
// default backend for local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	mirrors map[string]*Mirror
	closes  []closeEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mirrors: make(map[string]*Mirror)}
}

func (s *MemoryStore) Upsert(ctx context.Context, m *Mirror) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.mirrors[m.Endpoint]; ok {
		existing.Keys = m.Keys
		existing.LastSeenAt = now
		existing.Active = true
		if m.UserID != "" {
			existing.UserID = m.UserID
		}
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
		return nil
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = now
	m.LastSeenAt = now
	m.Active = true
	stored := *m
	s.mirrors[m.Endpoint] = &stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, endpoint string) (*Mirror, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mirrors[endpoint]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context, activeOnly bool) ([]*Mirror, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Mirror, 0, len(s.mirrors))
	for _, m := range s.mirrors {
		if activeOnly && !m.Active {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkInactive(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.mirrors[endpoint]; ok {
		m.Active = false
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mirrors, endpoint)
	return nil
}

func (s *MemoryStore) DeleteInactive(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for endpoint, m := range s.mirrors {
		if !m.Active {
			delete(s.mirrors, endpoint)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) RecordClose(ctx context.Context, notificationID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes = append(s.closes, closeEntry{NotificationID: notificationID, Timestamp: ts})
	return nil
}

// CloseCount reports how many close entries were recorded.
func (s *MemoryStore) CloseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.closes)
}

func (s *MemoryStore) Close() error {
	return nil
}
