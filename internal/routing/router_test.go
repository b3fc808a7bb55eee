package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/llm"
)

type stubGenerator struct{ name string }

func (s *stubGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Text: s.name}, nil
}

func newTestRouter() *Router {
	return NewRouter(Options{
		OpenAI:      &stubGenerator{name: "openai"},
		Google:      &stubGenerator{name: "google"},
		Placeholder: &stubGenerator{name: "placeholder"},
		Logger:      zerolog.Nop(),
	})
}

func TestSelectPlanDefault(t *testing.T) {
	r := newTestRouter()
	cases := []struct {
		plan     domain.Plan
		model    string
		provider string
	}{
		{domain.PlanFree, "gpt-3.5-turbo", llm.ProviderOpenAI},
		{domain.PlanBasic, "gpt-3.5-turbo", llm.ProviderOpenAI},
		{domain.PlanPremium, "gemini-pro", llm.ProviderGoogle},
		{domain.PlanUltimate, "gpt-4", llm.ProviderOpenAI},
	}
	for _, tc := range cases {
		sel, err := r.Select(domain.ResolvePlan(tc.plan), "")
		if err != nil {
			t.Fatalf("%s: Select error: %v", tc.plan, err)
		}
		if sel.Model.ID != tc.model {
			t.Fatalf("%s: model = %q, want %q", tc.plan, sel.Model.ID, tc.model)
		}
		if sel.Model.Provider != tc.provider {
			t.Fatalf("%s: provider = %q, want %q", tc.plan, sel.Model.Provider, tc.provider)
		}
	}
}

func TestSelectIgnoresPreferenceForLockedPlans(t *testing.T) {
	r := newTestRouter()
	for _, plan := range []domain.Plan{domain.PlanFree, domain.PlanBasic, domain.PlanPremium} {
		sel, err := r.Select(domain.ResolvePlan(plan), "gpt-4")
		if err != nil {
			t.Fatalf("%s: Select error: %v", plan, err)
		}
		if sel.Model.ID == "gpt-4" && plan != domain.PlanUltimate {
			t.Fatalf("%s: preference honored but plan does not allow overrides", plan)
		}
		want := domain.ResolvePlan(plan).DefaultModel
		if sel.Model.ID != want {
			t.Fatalf("%s: model = %q, want default %q", plan, sel.Model.ID, want)
		}
	}
}

func TestSelectHonorsUltimatePreference(t *testing.T) {
	r := newTestRouter()
	policy := domain.ResolvePlan(domain.PlanUltimate)

	sel, err := r.Select(policy, "claude-2")
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if sel.Model.ID != "claude-2" || sel.Model.Provider != llm.ProviderPlaceholder {
		t.Fatalf("got %+v", sel.Model)
	}

	// Preferences off the selectable list fall back to the plan default.
	sel, err = r.Select(policy, "llama-70b")
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if sel.Model.ID != "gpt-4" {
		t.Fatalf("model = %q, want gpt-4", sel.Model.ID)
	}
}

func TestSelectUnregisteredProvider(t *testing.T) {
	r := NewRouter(Options{
		OpenAI: &stubGenerator{name: "openai"},
		Logger: zerolog.Nop(),
	})
	_, err := r.Select(domain.ResolvePlan(domain.PlanPremium), "")
	if !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("err = %v, want ErrUnsupportedModel", err)
	}
}

func TestGeminiProMapsToAPIModel(t *testing.T) {
	spec, ok := LookupModel("gemini-pro")
	if !ok {
		t.Fatal("gemini-pro missing from catalog")
	}
	if spec.APIModel != "gemini-1.0-pro" {
		t.Fatalf("APIModel = %q", spec.APIModel)
	}
}
