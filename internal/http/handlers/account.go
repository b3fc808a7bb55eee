package handlers

import (
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/routing"
)

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Plan      string    `json:"plan"`
	Credits   int64     `json:"credits"`
	Unlimited bool      `json:"unlimited"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func accountPayload(a *domain.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Email:     a.Email,
		Plan:      string(a.Plan),
		Credits:   a.Credits,
		Unlimited: a.Unlimited(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Me handles GET /v1/me. First access provisions the account.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	_, account, err := a.Executor.LoadAccount(r.Context(), middleware.BearerToken(r))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountPayload(account))
}

type selectPlanRequest struct {
	Plan string `json:"plan"`
}

// SelectPlan handles POST /v1/plans/select. Switching plans resets the
// balance to the new plan's allocation.
func (a *App) SelectPlan(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req selectPlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	plan := domain.Plan(strings.ToLower(strings.TrimSpace(req.Plan)))
	if !domain.KnownPlan(plan) {
		writeError(w, http.StatusBadRequest, "unknown plan")
		return
	}

	policy := domain.ResolvePlan(plan)
	account, err := a.Accounts.SetPlan(r.Context(), subject.ID, plan, policy.Allocation)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.Logger.Info().
		Str("account_id", account.ID).
		Str("plan", string(plan)).
		Int64("credits", account.Credits).
		Msg("plan changed")
	writeJSON(w, http.StatusOK, accountPayload(account))
}

type modelEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Default     bool   `json:"default"`
	Selectable  bool   `json:"selectable"`
}

// Models handles GET /v1/models: the models the caller's plan can use.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	_, account, err := a.Executor.LoadAccount(r.Context(), middleware.BearerToken(r))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	policy := domain.ResolvePlan(account.Plan)

	var entries []modelEntry
	for _, spec := range routing.CatalogModels() {
		selectable := policy.Allows(spec.ID)
		isDefault := spec.ID == policy.DefaultModel
		if !selectable && !isDefault {
			continue
		}
		entries = append(entries, modelEntry{
			ID:          spec.ID,
			DisplayName: spec.DisplayName,
			Default:     isDefault,
			Selectable:  selectable,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": string(account.Plan), "models": entries})
}
