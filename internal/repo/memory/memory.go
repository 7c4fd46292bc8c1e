package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/repo"
)

var _ repo.StatusStore = (*Store)(nil)

// Store holds observations in process memory. Latest reports locations in
// the order they were configured, then any others in first-seen order.
type Store struct {
	mu     sync.RWMutex
	order  []domain.LocationID
	latest map[domain.LocationID]domain.Observation
}

func New(locations []domain.LocationID) *Store {
	s := &Store{latest: make(map[domain.LocationID]domain.Observation)}
	seen := make(map[domain.LocationID]bool, len(locations))
	for _, l := range locations {
		if !seen[l] {
			seen[l] = true
			s.order = append(s.order, l)
		}
	}
	return s
}

func (m *Store) Record(ctx context.Context, o domain.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known(o.Location) {
		m.order = append(m.order, o.Location)
	}
	if o.Slot != nil {
		v := *o.Slot
		o.Slot = &v
	}
	m.latest[o.Location] = o
	return nil
}

func (m *Store) known(l domain.LocationID) bool {
	for _, x := range m.order {
		if x == l {
			return true
		}
	}
	return false
}

func (m *Store) Latest(ctx context.Context) ([]domain.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Observation, 0, len(m.latest))
	for _, l := range m.order {
		if o, ok := m.latest[l]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}
