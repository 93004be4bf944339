package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/browser"
	"github.com/IntelliBrowse-hq/intellibrowse/internal/testitems"
	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func respondValidationError(w http.ResponseWriter, ve *testtypes.ValidationError) {
	resp := ErrorResponse{Error: ve.Message}
	if ve.IsStructural() {
		resp.Details = ve.Errors
	}
	respondJSON(w, http.StatusBadRequest, resp)
}

// respondServiceError maps domain errors onto status codes. Anything
// unrecognised is logged and reported as a 500 without internals.
func respondServiceError(w http.ResponseWriter, err error, action string) {
	if ve, ok := testtypes.AsValidationError(err); ok {
		respondValidationError(w, ve)
		return
	}

	switch {
	case errors.Is(err, testitems.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, testitems.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, browser.ErrUnknownTool):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msgf("failed to %s", action)
		respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON reads a JSON body into v. An empty body is allowed when
// allowEmpty is set and leaves v untouched.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
