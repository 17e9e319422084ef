// internal/repository/memory.go
package repository

import (
	"sort"
	"sync"

	"github.com/unclebandit/teamcast-backend/internal/model"
)

// MemoryStore is an in-memory Store used by tests and by local runs without
// Postgres. It mirrors the real store's contract exactly: whole-row saves,
// no read-modify-write atomicity across calls.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[model.Partition]map[string]model.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: map[model.Partition]map[string]model.Notification{
			model.PartitionDraft: {},
			model.PartitionSent:  {},
		},
	}
}

func (s *MemoryStore) Get(partition model.Partition, id string) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.rows[partition][id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (s *MemoryStore) Save(n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rows[n.Partition] == nil {
		s.rows[n.Partition] = map[string]model.Notification{}
	}
	s.rows[n.Partition][n.ID] = *n
	return nil
}

func (s *MemoryStore) Delete(partition model.Partition, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows[partition], id)
	return nil
}

func (s *MemoryStore) ListDrafts() ([]*model.Notification, error) {
	return s.list(model.PartitionDraft, 0), nil
}

func (s *MemoryStore) ListRecentSent(limit int) ([]*model.Notification, error) {
	return s.list(model.PartitionSent, limit), nil
}

func (s *MemoryStore) list(partition model.Partition, limit int) []*model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.rows[partition]))
	for k := range s.rows[partition] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	notifications := make([]*model.Notification, 0, len(keys))
	for _, k := range keys {
		n := s.rows[partition][k]
		notifications = append(notifications, &n)
	}
	return notifications
}

var _ Store = (*MemoryStore)(nil)
