// Package testitems manages stored test cases and runs their type-specific
// payload through the validator factory on every write.
package testitems

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/db"
	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

var (
	// ErrNotFound indicates the test item does not exist
	ErrNotFound = errors.New("test item not found")
	// ErrForbidden indicates the caller does not own the test item
	ErrForbidden = errors.New("test item belongs to another user")
)

const (
	maxTitleLength   = 200
	maxTags          = 20
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var (
	priorities = []string{"high", "medium", "low"}
	statuses   = []string{"draft", "active", "deprecated"}
)

// Repository is the persistence used by Service
type Repository interface {
	CreateTestItem(ctx context.Context, item *db.TestItem) error
	GetTestItem(ctx context.Context, id uuid.UUID) (*db.TestItem, error)
	ListTestItems(ctx context.Context, filter db.TestItemFilter) ([]db.TestItem, int, error)
	UpdateTestItem(ctx context.Context, item *db.TestItem) error
	DeleteTestItem(ctx context.Context, id uuid.UUID) error
}

var _ Repository = (*db.Store)(nil)

// CreateInput is the payload for a new test item
type CreateInput struct {
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	TestType    string         `json:"test_type"`
	TypeData    map[string]any `json:"type_data"`
	Tags        []string       `json:"tags"`
	Priority    string         `json:"priority"`
	Status      string         `json:"status"`
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	TestType    *string        `json:"test_type,omitempty"`
	TypeData    map[string]any `json:"type_data,omitempty"`
	Tags        *[]string      `json:"tags,omitempty"`
	Priority    *string        `json:"priority,omitempty"`
	Status      *string        `json:"status,omitempty"`
}

// ListInput selects a page of test items
type ListInput struct {
	TestType  string
	Status    string
	Tag       string
	CreatedBy *uuid.UUID
	Limit     int
	Offset    int
}

// ListResult is one page of test items
type ListResult struct {
	Items  []db.TestItem `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Service implements test item operations
type Service struct {
	repo       Repository
	validators *testtypes.Factory
}

// NewService creates a service. A nil factory means testtypes.DefaultFactory.
func NewService(repo Repository, validators *testtypes.Factory) *Service {
	if validators == nil {
		validators = testtypes.DefaultFactory
	}
	return &Service{repo: repo, validators: validators}
}

// Create validates in and stores it as a new item owned by userID
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*db.TestItem, error) {
	testType, err := parseType(in.TestType)
	if err != nil {
		return nil, err
	}

	item := &db.TestItem{
		Title:       strings.TrimSpace(in.Title),
		Description: trimOptional(in.Description),
		TestType:    testType,
		Tags:        normalizeTags(in.Tags),
		Priority:    orDefault(in.Priority, "medium"),
		Status:      orDefault(in.Status, "draft"),
		CreatedBy:   userID,
	}
	if err := checkItem(item); err != nil {
		return nil, err
	}

	item.TypeData, err = s.validateTypeData(testType, in.TypeData)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateTestItem(ctx, item); err != nil {
		return nil, err
	}

	log.Info().
		Str("test_item_id", item.ID.String()).
		Str("test_type", string(item.TestType)).
		Msg("test item created")

	return item, nil
}

// Get returns an item by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*db.TestItem, error) {
	item, err := s.repo.GetTestItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// List returns a page of items. Limit defaults to 20 and is capped at 100.
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	filter := db.TestItemFilter{
		Status:    strings.ToLower(strings.TrimSpace(in.Status)),
		Tag:       strings.TrimSpace(in.Tag),
		CreatedBy: in.CreatedBy,
		Limit:     in.Limit,
		Offset:    in.Offset,
	}

	if in.TestType != "" {
		t, err := testtypes.ParseTestType(in.TestType)
		if err != nil {
			return nil, err
		}
		filter.TestType = t
	}
	if filter.Status != "" && !slices.Contains(statuses, filter.Status) {
		return nil, inputError(map[string]string{"status": "must be one of: " + strings.Join(statuses, ", ")})
	}

	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.repo.ListTestItems(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListResult{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Update applies in to the item. Type data is validated again when the type
// or the type data changes.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (*db.TestItem, error) {
	item, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		item.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		item.Description = trimOptional(in.Description)
	}
	if in.Tags != nil {
		item.Tags = normalizeTags(*in.Tags)
	}
	if in.Priority != nil {
		item.Priority = orDefault(*in.Priority, "medium")
	}
	if in.Status != nil {
		item.Status = orDefault(*in.Status, "draft")
	}

	typeChanged := false
	if in.TestType != nil {
		t, err := parseType(*in.TestType)
		if err != nil {
			return nil, err
		}
		typeChanged = t != item.TestType
		item.TestType = t
	}

	if err := checkItem(item); err != nil {
		return nil, err
	}

	if in.TypeData != nil || typeChanged {
		raw := item.TypeData
		if in.TypeData != nil {
			raw = in.TypeData
		}
		if typeChanged && in.TypeData == nil {
			// The old payload carries the old type tag.
			raw = withoutType(raw)
		}
		item.TypeData, err = s.validateTypeData(item.TestType, raw)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateTestItem(ctx, item); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	log.Info().Str("test_item_id", item.ID.String()).Msg("test item updated")
	return item, nil
}

// Delete removes an item owned by userID
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.DeleteTestItem(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	log.Info().Str("test_item_id", id.String()).Msg("test item deleted")
	return nil
}

// TypedView decodes the stored type data into its concrete record.
// Items without type data return nil.
func (s *Service) TypedView(item *db.TestItem) (testtypes.TypeData, error) {
	if len(item.TypeData) == 0 {
		return nil, nil
	}
	schema, err := s.validators.GetSchema(item.TestType)
	if err != nil {
		return nil, err
	}
	return schema.Decode(item.TypeData)
}

func (s *Service) owned(ctx context.Context, userID, id uuid.UUID) (*db.TestItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.CreatedBy != userID {
		return nil, ErrForbidden
	}
	return item, nil
}

// validateTypeData runs the factory once; empty payloads are stored as {} unvalidated.
func (s *Service) validateTypeData(t testtypes.TestType, raw map[string]any) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	return s.validators.ValidateTypeData(t, raw)
}

func parseType(s string) (testtypes.TestType, error) {
	if strings.TrimSpace(s) == "" {
		return testtypes.Default(), nil
	}
	return testtypes.ParseTestType(s)
}

func checkItem(item *db.TestItem) error {
	errs := map[string]string{}

	switch n := utf8.RuneCountInString(item.Title); {
	case n == 0:
		errs["title"] = "Title is required"
	case n > maxTitleLength:
		errs["title"] = fmt.Sprintf("Title cannot exceed %d characters", maxTitleLength)
	}

	item.Priority = strings.ToLower(item.Priority)
	if !slices.Contains(priorities, item.Priority) {
		errs["priority"] = "must be one of: " + strings.Join(priorities, ", ")
	}
	item.Status = strings.ToLower(item.Status)
	if !slices.Contains(statuses, item.Status) {
		errs["status"] = "must be one of: " + strings.Join(statuses, ", ")
	}
	if len(item.Tags) > maxTags {
		errs["tags"] = fmt.Sprintf("Cannot have more than %d tags", maxTags)
	}

	if len(errs) > 0 {
		return inputError(errs)
	}
	return nil
}

func inputError(errs map[string]string) *testtypes.ValidationError {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + errs[f]
	}
	return &testtypes.ValidationError{
		Message: "Invalid test item: " + strings.Join(parts, "; "),
		Errors:  errs,
	}
}

// normalizeTags trims, drops blanks and removes duplicates keeping first occurrence
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func withoutType(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != "type" {
			out[k] = v
		}
	}
	return out
}
