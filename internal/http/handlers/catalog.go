package handlers

import "net/http"

type templateEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CreditCost  int64  `json:"creditCost"`
}

// Templates handles GET /v1/templates.
func (a *App) Templates(w http.ResponseWriter, r *http.Request) {
	templates, err := a.Catalog.Templates(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	entries := make([]templateEntry, 0, len(templates))
	for _, t := range templates {
		entries = append(entries, templateEntry{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Category:    t.Category,
			CreditCost:  t.CreditCost,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": entries})
}

type languageEntry struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages handles GET /v1/languages.
func (a *App) Languages(w http.ResponseWriter, r *http.Request) {
	languages, err := a.Catalog.Languages(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	entries := make([]languageEntry, 0, len(languages))
	for _, l := range languages {
		entries = append(entries, languageEntry{ID: l.ID, Code: l.Code, Name: l.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"languages": entries})
}
