package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

var (
	// ErrNotFound is returned by updates and deletes that match no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert
	ErrDuplicate = errors.New("record already exists")
)

// Store provides database operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new store
func NewStore(db *DB) *Store {
	return &Store{pool: db.Pool()}
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// TestItem is a stored test case. TypeData holds the normalized payload
// produced by the validator for TestType.
type TestItem struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	Description *string            `json:"description,omitempty"`
	TestType    testtypes.TestType `json:"test_type"`
	TypeData    map[string]any     `json:"type_data"`
	Tags        []string           `json:"tags"`
	Priority    string             `json:"priority"`
	Status      string             `json:"status"`
	CreatedBy   uuid.UUID          `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TestItemFilter narrows ListTestItems. Zero values match everything.
type TestItemFilter struct {
	TestType  testtypes.TestType
	Status    string
	Tag       string
	CreatedBy *uuid.UUID
	Limit     int
	Offset    int
}

const testItemColumns = `id, title, description, test_type, type_data, tags, priority, status, created_by, created_at, updated_at`

// CreateTestItem inserts item, assigning its ID and timestamps
func (s *Store) CreateTestItem(ctx context.Context, item *TestItem) error {
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	if item.Tags == nil {
		item.Tags = []string{}
	}

	typeData, err := encodeTypeData(item.TypeData)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO test_items (`+testItemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, item.ID, item.Title, item.Description, string(item.TestType), typeData, item.Tags,
		item.Priority, item.Status, item.CreatedBy, item.CreatedAt, item.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create test item: %w", err)
	}

	return nil
}

// GetTestItem gets a test item by ID, returning nil when absent
func (s *Store) GetTestItem(ctx context.Context, id uuid.UUID) (*TestItem, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+testItemColumns+` FROM test_items WHERE id = $1`, id)

	item, err := scanTestItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test item: %w", err)
	}

	return item, nil
}

// ListTestItems returns one page of items matching filter, newest first, and the total match count
func (s *Store) ListTestItems(ctx context.Context, filter TestItemFilter) ([]TestItem, int, error) {
	where, args := filter.where()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM test_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count test items: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM test_items%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		testItemColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list test items: %w", err)
	}
	defer rows.Close()

	items := []TestItem{}
	for rows.Next() {
		item, err := scanTestItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan test item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list test items: %w", err)
	}

	return items, total, nil
}

// UpdateTestItem overwrites the mutable columns of item
func (s *Store) UpdateTestItem(ctx context.Context, item *TestItem) error {
	item.UpdatedAt = time.Now()
	if item.Tags == nil {
		item.Tags = []string{}
	}

	typeData, err := encodeTypeData(item.TypeData)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE test_items
		SET title = $2, description = $3, test_type = $4, type_data = $5, tags = $6,
			priority = $7, status = $8, updated_at = $9
		WHERE id = $1
	`, item.ID, item.Title, item.Description, string(item.TestType), typeData, item.Tags,
		item.Priority, item.Status, item.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update test item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTestItem removes a test item
func (s *Store) DeleteTestItem(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM test_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (f TestItemFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.TestType != "" {
		add("test_type = $%d", string(f.TestType))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Tag != "" {
		add("$%d = ANY(tags)", f.Tag)
	}
	if f.CreatedBy != nil {
		add("created_by = $%d", *f.CreatedBy)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanTestItem(row pgx.Row) (*TestItem, error) {
	var (
		item     TestItem
		testType string
		typeData []byte
	)
	err := row.Scan(&item.ID, &item.Title, &item.Description, &testType, &typeData, &item.Tags,
		&item.Priority, &item.Status, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	item.TestType = testtypes.TestType(testType)
	item.TypeData = map[string]any{}
	if len(typeData) > 0 {
		if err := json.Unmarshal(typeData, &item.TypeData); err != nil {
			return nil, fmt.Errorf("failed to decode type_data: %w", err)
		}
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}

	return &item, nil
}

func encodeTypeData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode type_data: %w", err)
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
