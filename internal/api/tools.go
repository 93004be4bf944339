package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/IntelliBrowse-hq/intellibrowse/internal/auth"
)

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"tools":    s.tools.List(),
		"sessions": s.tools.Manager().ListSessions(),
	})
}

// invokeTool handles POST /api/v1/tools/{name}. The body is the tool's
// argument object; tool failures still answer 200 with success=false.
func (s *Server) invokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var args map[string]any
	if err := decodeJSON(r, &args, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.tools.Invoke(r.Context(), name, args)
	if err != nil {
		respondServiceError(w, err, "invoke tool")
		return
	}

	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		log.Debug().Str("tool", name).Str("user_id", userID.String()).Bool("success", result.Success).Msg("tool invoked")
	}

	respondJSON(w, http.StatusOK, result)
}
