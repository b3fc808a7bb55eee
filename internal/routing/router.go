package routing

import (
	"fmt"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/llm"
)

// ModelSpec binds a public model id to the provider that serves it. APIModel
// is the identifier sent on the wire when it differs from the public id.
type ModelSpec struct {
	ID          string
	DisplayName string
	Provider    string
	APIModel    string
}

var modelCatalog = map[string]ModelSpec{
	"gpt-3.5-turbo": {
		ID:          "gpt-3.5-turbo",
		DisplayName: "GPT-3.5 Turbo",
		Provider:    llm.ProviderOpenAI,
		APIModel:    "gpt-3.5-turbo",
	},
	"gpt-4": {
		ID:          "gpt-4",
		DisplayName: "GPT-4",
		Provider:    llm.ProviderOpenAI,
		APIModel:    "gpt-4",
	},
	"gemini-pro": {
		ID:          "gemini-pro",
		DisplayName: "Gemini Pro",
		Provider:    llm.ProviderGoogle,
		APIModel:    "gemini-1.0-pro",
	},
	"claude-2": {
		ID:          "claude-2",
		DisplayName: "Claude 2",
		Provider:    llm.ProviderPlaceholder,
		APIModel:    "claude-2",
	},
}

// LookupModel returns the catalog entry for a public model id.
func LookupModel(id string) (ModelSpec, bool) {
	spec, ok := modelCatalog[id]
	return spec, ok
}

// CatalogModels lists every model the catalog knows, in a stable order.
func CatalogModels() []ModelSpec {
	ids := []string{"gpt-3.5-turbo", "gpt-4", "gemini-pro", "claude-2"}
	out := make([]ModelSpec, 0, len(ids))
	for _, id := range ids {
		out = append(out, modelCatalog[id])
	}
	return out
}

// Selection is a resolved route: which model to report, which generator to
// call, and which wire-level model id to pass it.
type Selection struct {
	Model     ModelSpec
	Generator llm.Generator
}

// Router resolves a plan policy plus an optional user preference into a
// concrete provider client. Dispatch always goes through the catalog's
// provider tag, never through inspection of the model id itself.
type Router struct {
	generators map[string]llm.Generator
	logger     zerolog.Logger
}

type Options struct {
	OpenAI      llm.Generator
	Google      llm.Generator
	Placeholder llm.Generator
	Logger      zerolog.Logger
}

func NewRouter(opts Options) *Router {
	generators := make(map[string]llm.Generator, 3)
	if opts.OpenAI != nil {
		generators[llm.ProviderOpenAI] = opts.OpenAI
	}
	if opts.Google != nil {
		generators[llm.ProviderGoogle] = opts.Google
	}
	if opts.Placeholder != nil {
		generators[llm.ProviderPlaceholder] = opts.Placeholder
	}
	return &Router{generators: generators, logger: opts.Logger}
}

// Select picks the model for a request. A preference is honored only when the
// plan allows overrides and lists the model; otherwise the plan default wins
// and the preference is dropped silently.
func (r *Router) Select(policy domain.PlanPolicy, preference string) (*Selection, error) {
	modelID := policy.DefaultModel
	if preference != "" && policy.AllowsOverride() && policy.Allows(preference) {
		modelID = preference
	} else if preference != "" && preference != modelID {
		r.logger.Debug().
			Str("plan", string(policy.Plan)).
			Str("preference", preference).
			Str("selected", modelID).
			Msg("model preference ignored")
	}
	spec, ok := modelCatalog[modelID]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", modelID, domain.ErrUnsupportedModel)
	}
	gen, ok := r.generators[spec.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %q for model %q: %w", spec.Provider, modelID, domain.ErrUnsupportedModel)
	}
	return &Selection{Model: spec, Generator: gen}, nil
}
