package testitems

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/db"
)

// MockRepository is an in-memory Repository
type MockRepository struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*db.TestItem
	creates   int
	updates   int
	lastQuery db.TestItemFilter
	createErr error
}

var _ Repository = (*MockRepository)(nil)

func NewMockRepository() *MockRepository {
	return &MockRepository{items: make(map[uuid.UUID]*db.TestItem)}
}

func (m *MockRepository) CreateTestItem(ctx context.Context, item *db.TestItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	item.ID = uuid.New()
	copied := *item
	m.items[item.ID] = &copied
	m.creates++
	return nil
}

func (m *MockRepository) GetTestItem(ctx context.Context, id uuid.UUID) (*db.TestItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *MockRepository) ListTestItems(ctx context.Context, filter db.TestItemFilter) ([]db.TestItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = filter

	var matched []db.TestItem
	for _, item := range m.items {
		if filter.TestType != "" && item.TestType != filter.TestType {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.CreatedBy != nil && item.CreatedBy != *filter.CreatedBy {
			continue
		}
		matched = append(matched, *item)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	total := len(matched)
	if filter.Offset >= total {
		return []db.TestItem{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (m *MockRepository) UpdateTestItem(ctx context.Context, item *db.TestItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return db.ErrNotFound
	}
	copied := *item
	m.items[item.ID] = &copied
	m.updates++
	return nil
}

func (m *MockRepository) DeleteTestItem(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.items, id)
	return nil
}
