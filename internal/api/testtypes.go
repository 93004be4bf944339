package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

// TestTypeSummary lists one supported test type
type TestTypeSummary struct {
	Type     testtypes.TestType `json:"type"`
	Default  bool               `json:"default"`
	Required []string           `json:"required_fields"`
	Fields   []string           `json:"fields"`
}

// SchemaField describes one key of a type-data payload
type SchemaField struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
	Constraints string `json:"constraints,omitempty"`
}

// SchemaResponse is the body of GET /test-types/{type}/schema
type SchemaResponse struct {
	Type   testtypes.TestType `json:"type"`
	Fields []SchemaField      `json:"fields"`
}

// ValidateResponse is the body of a successful dry-run validation
type ValidateResponse struct {
	Valid    bool               `json:"valid"`
	Type     testtypes.TestType `json:"type"`
	TypeData map[string]any     `json:"type_data"`
}

func (s *Server) listTestTypes(w http.ResponseWriter, r *http.Request) {
	types := s.validators.SupportedTypes()
	resp := make([]TestTypeSummary, 0, len(types))
	for _, t := range types {
		schema, err := s.validators.GetSchema(t)
		if err != nil {
			respondServiceError(w, err, "load schema")
			return
		}
		required := schema.Required()
		if required == nil {
			required = []string{}
		}
		resp = append(resp, TestTypeSummary{
			Type:     t,
			Default:  t == testtypes.Default(),
			Required: required,
			Fields:   schema.FieldNames(),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) getTestTypeSchema(w http.ResponseWriter, r *http.Request) {
	t, err := testtypes.ParseTestType(chi.URLParam(r, "type"))
	if err != nil {
		ve, _ := testtypes.AsValidationError(err)
		respondError(w, http.StatusNotFound, ve.Message)
		return
	}

	schema, err := s.validators.GetSchema(t)
	if err != nil {
		respondServiceError(w, err, "load schema")
		return
	}

	fields := make([]SchemaField, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		fields = append(fields, SchemaField{
			Name:        f.Name,
			Kind:        string(f.Kind),
			Required:    f.Required,
			Description: f.Description,
			Constraints: f.Constraints(),
		})
	}
	respondJSON(w, http.StatusOK, SchemaResponse{Type: t, Fields: fields})
}

// validateTestType runs the factory without storing anything
func (s *Server) validateTestType(w http.ResponseWriter, r *http.Request) {
	t, err := testtypes.ParseTestType(chi.URLParam(r, "type"))
	if err != nil {
		respondServiceError(w, err, "validate test data")
		return
	}

	var raw map[string]any
	if err := decodeJSON(r, &raw, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	normalized, err := s.validators.ValidateTypeData(t, raw)
	if err != nil {
		respondServiceError(w, err, "validate test data")
		return
	}
	respondJSON(w, http.StatusOK, ValidateResponse{Valid: true, Type: t, TypeData: normalized})
}
