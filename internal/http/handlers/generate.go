package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"server/internal/domain"
	"server/internal/metering"
	"server/internal/middleware"
)

type generateTemplate struct {
	Name       string `json:"name"`
	CreditCost int64  `json:"creditCost"`
}

type generateRequest struct {
	Topic             string            `json:"topic"`
	Template          *generateTemplate `json:"template"`
	Language          string            `json:"language"`
	AIModelPreference string            `json:"aiModelPreference"`
}

type generateResponse struct {
	Text        string `json:"text"`
	CreditsUsed int64  `json:"creditsUsed"`
	ModelUsed   string `json:"modelUsed"`
}

// Generate handles POST /v1/generate.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	templateName, templateCost := a.resolveTemplate(r.Context(), req.Template)

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = middleware.LocaleFromContext(r.Context())
	}

	out, err := a.Executor.Execute(r.Context(), middleware.BearerToken(r), metering.Operation{
		Kind:            domain.OperationGenerate,
		Prompt:          buildGeneratePrompt(req.Topic, templateName, a.Catalog.LanguageName(r.Context(), language)),
		System:          generateSystemPrompt,
		TemplateName:    templateName,
		TemplateCost:    templateCost,
		ModelPreference: strings.TrimSpace(req.AIModelPreference),
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Text:        out.Text,
		CreditsUsed: out.CreditsCharged,
		ModelUsed:   out.Model.ID,
	})
}

// resolveTemplate prices the request's template. A positive cost in the
// request wins, then the catalog's cost for the named template; zero means
// the base operation cost applies.
func (a *App) resolveTemplate(ctx context.Context, tpl *generateTemplate) (string, int64) {
	if tpl == nil {
		return "", 0
	}
	name := strings.TrimSpace(tpl.Name)
	if tpl.CreditCost > 0 {
		return name, tpl.CreditCost
	}
	if name == "" {
		return "", 0
	}
	if known, ok, err := a.Catalog.TemplateByName(ctx, name); err == nil && ok {
		return name, known.CreditCost
	}
	return name, 0
}

const generateSystemPrompt = "You are a marketing copywriter for small businesses. " +
	"Write engaging, ready-to-publish content. Respond with the content only, no preamble."

func buildGeneratePrompt(topic, templateName, language string) string {
	var sb strings.Builder
	if templateName != "" {
		fmt.Fprintf(&sb, "Using the %q content format, write about: %s.", templateName, topic)
	} else {
		fmt.Fprintf(&sb, "Write about: %s.", topic)
	}
	if language != "" {
		fmt.Fprintf(&sb, " Write in %s.", language)
	}
	return sb.String()
}
