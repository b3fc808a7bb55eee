package handlers

import (
	"net/http"
	"strings"

	"server/internal/domain"
	"server/internal/metering"
	"server/internal/middleware"
	"server/internal/providers/llm"
)

type proofreadRequest struct {
	TextToProofread string `json:"textToProofread"`
}

type proofreadResponse struct {
	ImprovedText string   `json:"improvedText"`
	Suggestions  []string `json:"suggestions"`
	CreditsUsed  int64    `json:"creditsUsed"`
}

type proofreadPayload struct {
	ImprovedText string   `json:"improvedText"`
	Suggestions  []string `json:"suggestions"`
}

const proofreadSystemPrompt = "You are a meticulous proofreader. Respond with a single JSON object " +
	`of the form {"improvedText": string, "suggestions": [string]} and nothing else.`

// Proofread handles POST /v1/proofread.
func (a *App) Proofread(w http.ResponseWriter, r *http.Request) {
	var req proofreadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.TextToProofread)
	if text == "" {
		writeError(w, http.StatusBadRequest, "textToProofread is required")
		return
	}

	out, err := a.Executor.Execute(r.Context(), middleware.BearerToken(r), metering.Operation{
		Kind:   domain.OperationProofread,
		Prompt: "Proofread and improve the following text:\n\n" + text,
		System: proofreadSystemPrompt,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	resp := proofreadResponse{CreditsUsed: out.CreditsCharged}
	payload, err := llm.ParsePayload[proofreadPayload](out.Text)
	if err != nil || strings.TrimSpace(payload.ImprovedText) == "" {
		// The charge already committed; a malformed model reply degrades to
		// the raw text rather than failing the request.
		a.Logger.Warn().Err(err).
			Str("account_id", out.Account.ID).
			Str("model", out.Model.ID).
			Msg("proofread reply was not valid JSON")
		resp.ImprovedText = out.Text
	} else {
		resp.ImprovedText = payload.ImprovedText
		resp.Suggestions = payload.Suggestions
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}
