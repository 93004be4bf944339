package testtypes

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CacheInfo describes the factory's validator registry
type CacheInfo struct {
	CachedValidators int        `json:"cached_validators"`
	TotalTypes       int        `json:"total_types"`
	CachedTypes      []TestType `json:"cached_types"`
}

// Factory maps a TestType to its validator.
// Validators are stateless, so one instance per type is built up front and shared.
type Factory struct {
	mu         sync.RWMutex
	logger     zerolog.Logger
	validators map[TestType]Validator
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger handed to every validator
func WithLogger(logger zerolog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory builds a factory with a validator for every supported type
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{logger: log.Logger}
	for _, opt := range opts {
		opt(f)
	}
	f.validators = f.buildRegistry()
	return f
}

func (f *Factory) buildRegistry() map[TestType]Validator {
	registry := make(map[TestType]Validator, len(All()))
	for _, t := range All() {
		v, err := NewValidator(t, f.logger)
		if err != nil {
			// All() and NewValidator are defined together; a gap is a programming error.
			panic(fmt.Sprintf("testtypes: no validator for %s: %v", t, err))
		}
		registry[t] = v
	}
	return registry
}

// GetValidator returns the validator for t, or a ValidationError listing supported types
func (f *Factory) GetValidator(t TestType) (Validator, error) {
	f.mu.RLock()
	v, ok := f.validators[t]
	f.mu.RUnlock()
	if !ok {
		return nil, unsupportedTypeError(string(t))
	}
	return v, nil
}

// ValidateTypeData validates raw against t's validator.
// Every failure, including unsupported types and validator panics, is a *ValidationError.
func (f *Factory) ValidateTypeData(t TestType, raw map[string]any) (out map[string]any, err error) {
	v, err := f.GetValidator(t)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().
				Str("test_type", string(t)).
				Interface("panic", r).
				Msg("validator panicked")
			out, err = nil, wrapUnexpected(t, fmt.Errorf("panic: %v", r))
		}
	}()

	out, err = v.Validate(raw)
	if err != nil {
		if _, ok := AsValidationError(err); ok {
			return nil, err
		}
		return nil, wrapUnexpected(t, err)
	}
	return out, nil
}

// Parse validates raw and returns the typed record
func (f *Factory) Parse(t TestType, raw map[string]any) (TypeData, error) {
	v, err := f.GetValidator(t)
	if err != nil {
		return nil, err
	}
	return v.Parse(raw)
}

// GetSchema returns t's schema
func (f *Factory) GetSchema(t TestType) (*Schema, error) {
	v, err := f.GetValidator(t)
	if err != nil {
		return nil, err
	}
	return v.Schema(), nil
}

// SupportedTypes returns every type the factory can validate
func (f *Factory) SupportedTypes() []TestType {
	return All()
}

// IsTypeSupported reports whether t has a validator
func (f *Factory) IsTypeSupported(t TestType) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.validators[t]
	return ok
}

// CacheInfo reports how many validators are registered
func (f *Factory) CacheInfo() CacheInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()

	info := CacheInfo{
		CachedValidators: len(f.validators),
		TotalTypes:       len(All()),
	}
	for _, t := range All() {
		if _, ok := f.validators[t]; ok {
			info.CachedTypes = append(info.CachedTypes, t)
		}
	}
	return info
}

// ClearCache rebuilds every validator
func (f *Factory) ClearCache() {
	registry := f.buildRegistry()

	f.mu.Lock()
	f.validators = registry
	f.mu.Unlock()

	f.logger.Debug().Msg("validator registry rebuilt")
}

// DefaultFactory is the process-wide factory used by the package-level helpers
var DefaultFactory = NewFactory()

// ValidateTypeData validates raw with DefaultFactory
func ValidateTypeData(t TestType, raw map[string]any) (map[string]any, error) {
	return DefaultFactory.ValidateTypeData(t, raw)
}
