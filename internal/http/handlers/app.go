package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/catalog"
	"server/internal/domain"
	"server/internal/metering"
	"server/internal/providers/llm"
)

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	Logger   zerolog.Logger
	Executor *metering.Executor
	Catalog  *catalog.Catalog
	Accounts domain.AccountStore
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps a pipeline error to a status and a body that never leaks
// internals. Verification details, provider messages, and SQL errors stay in
// the logs.
func (a *App) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *llm.ProviderError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, domain.ErrInsufficientCredits):
		writeError(w, http.StatusForbidden, "insufficient credits")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrProfileMissing):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.As(err, &perr):
		a.Logger.Error().Err(err).
			Str("provider", perr.Provider).
			Str("class", string(perr.Class)).
			Int("provider_status", perr.Status).
			Str("path", r.URL.Path).
			Msg("provider call failed")
		writeError(w, http.StatusInternalServerError, "generation failed, credits were not charged")
	case errors.Is(err, domain.ErrUnsupportedModel), errors.Is(err, domain.ErrConfiguration):
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("service misconfigured")
		writeError(w, http.StatusInternalServerError, "service unavailable")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer func() {
		_ = r.Body.Close()
	}()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
