package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/auth"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/db"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/testitems"
)

// MockStore is an in-memory users and test items store
type MockStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*db.User
	items   map[uuid.UUID]*db.TestItem
	pingErr error
	listErr error
}

var (
	_ auth.UserStore       = (*MockStore)(nil)
	_ testitems.Repository = (*MockStore)(nil)
	_ Pinger               = (*MockStore)(nil)
)

func NewMockStore() *MockStore {
	return &MockStore{
		users: make(map[uuid.UUID]*db.User),
		items: make(map[uuid.UUID]*db.TestItem),
	}
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *MockStore) CreateUser(ctx context.Context, user *db.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range m.users {
		if u.Email == user.Email {
			return db.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	user.IsActive = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockStore) GetUserByID(ctx context.Context, id uuid.UUID) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *MockStore) CreateTestItem(ctx context.Context, item *db.TestItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *MockStore) GetTestItem(ctx context.Context, id uuid.UUID) (*db.TestItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *MockStore) ListTestItems(ctx context.Context, filter db.TestItemFilter) ([]db.TestItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}

	items := []db.TestItem{}
	for _, item := range m.items {
		if filter.TestType != "" && item.TestType != filter.TestType {
			continue
		}
		if filter.CreatedBy != nil && item.CreatedBy != *filter.CreatedBy {
			continue
		}
		items = append(items, *item)
	}
	total := len(items)
	if len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, total, nil
}

func (m *MockStore) UpdateTestItem(ctx context.Context, item *db.TestItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return db.ErrNotFound
	}
	item.UpdatedAt = time.Now()
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *MockStore) DeleteTestItem(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

var errBoom = errors.New("connection reset")
