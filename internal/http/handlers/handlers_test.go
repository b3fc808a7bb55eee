package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"server/internal/catalog"
	"server/internal/domain"
	"server/internal/identity"
	"server/internal/metering"
	"server/internal/middleware"
	"server/internal/providers/llm"
	"server/internal/routing"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, raw string) (identity.Subject, error) {
	switch raw {
	case "":
		return identity.Subject{}, domain.ErrUnauthenticated
	case "good":
		return identity.Subject{ID: "user-1", Email: "user@example.com"}, nil
	default:
		return identity.Subject{}, domain.ErrInvalidCredential
	}
}

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]*domain.Account{}}
}

func (f *fakeStore) seed(a domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := a
	f.accounts[a.ID] = &cp
}

func (f *fakeStore) balance(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Credits
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) CreateDefault(ctx context.Context, id, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	now := time.Now()
	a := &domain.Account{ID: id, Email: email, Plan: domain.PlanFree, Credits: domain.DefaultStartingCredits, CreatedAt: now, UpdatedAt: now}
	f.accounts[id] = a
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Charge(ctx context.Context, id string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if a.Credits == domain.UnlimitedCredits {
		return domain.UnlimitedCredits, nil
	}
	if a.Credits < amount {
		return 0, domain.ErrInsufficientCredits
	}
	a.Credits -= amount
	return a.Credits, nil
}

func (f *fakeStore) SetPlan(ctx context.Context, id string, plan domain.Plan, credits int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a.Plan = plan
	a.Credits = credits
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Grant(ctx context.Context, id string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	a.Credits += amount
	return a.Credits, nil
}

type fixedGenerator struct {
	text string
	err  error
}

func (f *fixedGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text}, nil
}

type catalogRows struct {
	pgx.Rows
	templates bool
	idx       int
}

func (c *catalogRows) Next() bool {
	c.idx++
	return c.idx <= 2
}

func (c *catalogRows) Scan(dest ...any) error {
	if c.templates {
		names := []string{"blog-post", "press-release"}
		costs := []int64{0, 25}
		*(dest[0].(*string)) = names[c.idx-1]
		*(dest[1].(*string)) = names[c.idx-1]
		*(dest[2].(*string)) = "desc"
		*(dest[3].(*string)) = "marketing"
		*(dest[4].(*int64)) = costs[c.idx-1]
		return nil
	}
	codes := []string{"en", "id"}
	names := []string{"English", "Indonesian"}
	*(dest[0].(*string)) = codes[c.idx-1]
	*(dest[1].(*string)) = codes[c.idx-1]
	*(dest[2].(*string)) = names[c.idx-1]
	return nil
}

func (c *catalogRows) Err() error { return nil }
func (c *catalogRows) Close()     {}

type catalogExecutor struct{}

func (catalogExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (catalogExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return nil
}

func (catalogExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return &catalogRows{templates: bytes.Contains([]byte(query), []byte("templates"))}, nil
}

func newTestApp(store *fakeStore, gen llm.Generator) *App {
	router := routing.NewRouter(routing.Options{
		OpenAI:      gen,
		Google:      gen,
		Placeholder: gen,
		Logger:      zerolog.Nop(),
	})
	exec := metering.NewExecutor(metering.ExecutorOptions{
		Verifier: fakeVerifier{},
		Accounts: store,
		Router:   router,
		Logger:   zerolog.Nop(),
	})
	return &App{
		Logger:   zerolog.Nop(),
		Executor: exec,
		Catalog:  catalog.New(catalogExecutor{}, zerolog.Nop()),
		Accounts: store,
	}
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestGenerateSuccess(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanFree, Credits: 100})
	app := newTestApp(store, &fixedGenerator{text: "fresh copy"})

	rec := doJSON(t, app.Generate, http.MethodPost, "/v1/generate", "good", map[string]any{
		"topic":    "coffee shop grand opening",
		"language": "en",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "fresh copy" || resp.CreditsUsed != 10 || resp.ModelUsed != "gpt-3.5-turbo" {
		t.Fatalf("resp = %+v", resp)
	}
	if store.balance("user-1") != 90 {
		t.Fatalf("balance = %d, want 90", store.balance("user-1"))
	}
}

func TestGenerateTemplateCostFromCatalog(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanFree, Credits: 100})
	app := newTestApp(store, &fixedGenerator{text: "copy"})

	rec := doJSON(t, app.Generate, http.MethodPost, "/v1/generate", "good", map[string]any{
		"topic":    "new product",
		"template": map[string]any{"name": "press-release"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.balance("user-1") != 75 {
		t.Fatalf("balance = %d, want 75 (catalog cost 25)", store.balance("user-1"))
	}
}

func TestGenerateRequiresAuth(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store, &fixedGenerator{text: "copy"})

	rec := doJSON(t, app.Generate, http.MethodPost, "/v1/generate", "", map[string]any{"topic": "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(store.accounts) != 0 {
		t.Fatal("account provisioned for unauthenticated request")
	}
}

func TestGenerateInvalidTokenIs401(t *testing.T) {
	app := newTestApp(newFakeStore(), &fixedGenerator{text: "copy"})
	rec := doJSON(t, app.Generate, http.MethodPost, "/v1/generate", "forged", map[string]any{"topic": "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGenerateInsufficientCreditsIs403(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanFree, Credits: 5})
	app := newTestApp(store, &fixedGenerator{text: "copy"})

	rec := doJSON(t, app.Generate, http.MethodPost, "/v1/generate", "good", map[string]any{"topic": "x"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if store.balance("user-1") != 5 {
		t.Fatalf("balance = %d, want untouched 5", store.balance("user-1"))
	}
}

func TestGenerateProviderFailureIs500AndUncharged(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanFree, Credits: 100})
	provErr := &llm.ProviderError{Provider: llm.ProviderOpenAI, Class: llm.ClassTransient, Status: 500, Err: errors.New("upstream")}
	app := newTestApp(store, &fixedGenerator{err: provErr})

	rec := doJSON(t, app.Generate, http.MethodPost, "/v1/generate", "good", map[string]any{"topic": "x"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if store.balance("user-1") != 100 {
		t.Fatalf("balance = %d, want 100", store.balance("user-1"))
	}
}

func TestGenerateEmptyTopicIs400(t *testing.T) {
	app := newTestApp(newFakeStore(), &fixedGenerator{text: "copy"})
	rec := doJSON(t, app.Generate, http.MethodPost, "/v1/generate", "good", map[string]any{"topic": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProofreadParsesModelJSON(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanBasic, Credits: 100})
	reply := "```json\n" + `{"improvedText":"Cleaner text.","suggestions":["shorter sentences"]}` + "\n```"
	app := newTestApp(store, &fixedGenerator{text: reply})

	rec := doJSON(t, app.Proofread, http.MethodPost, "/v1/proofread", "good", map[string]any{
		"textToProofread": "some rough text",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp proofreadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ImprovedText != "Cleaner text." || len(resp.Suggestions) != 1 || resp.CreditsUsed != 5 {
		t.Fatalf("resp = %+v", resp)
	}
	if store.balance("user-1") != 95 {
		t.Fatalf("balance = %d, want 95", store.balance("user-1"))
	}
}

func TestProofreadMalformedReplyFallsBackToRawText(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanBasic, Credits: 100})
	app := newTestApp(store, &fixedGenerator{text: "just prose, no JSON"})

	rec := doJSON(t, app.Proofread, http.MethodPost, "/v1/proofread", "good", map[string]any{
		"textToProofread": "some rough text",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp proofreadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ImprovedText != "just prose, no JSON" {
		t.Fatalf("ImprovedText = %q", resp.ImprovedText)
	}
	if resp.Suggestions == nil || len(resp.Suggestions) != 0 {
		t.Fatalf("Suggestions = %#v, want empty array", resp.Suggestions)
	}
}

func TestMeProvisionsAccount(t *testing.T) {
	store := newFakeStore()
	app := newTestApp(store, &fixedGenerator{text: "x"})

	rec := doJSON(t, app.Me, http.MethodGet, "/v1/me", "good", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "user-1" || resp.Plan != "free" || resp.Credits != domain.DefaultStartingCredits {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestModelsForUltimatePlan(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanUltimate, Credits: domain.UnlimitedCredits})
	app := newTestApp(store, &fixedGenerator{text: "x"})

	rec := doJSON(t, app.Models, http.MethodGet, "/v1/models", "good", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Plan   string       `json:"plan"`
		Models []modelEntry `json:"models"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Plan != "ultimate" || len(resp.Models) != 3 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSelectPlanResetsAllocation(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanFree, Credits: 120})
	app := newTestApp(store, &fixedGenerator{text: "x"})

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]string{"plan": "Premium"})
	req := httptest.NewRequest(http.MethodPost, "/v1/plans/select", &buf)
	req = req.WithContext(middleware.ContextWithSubject(req.Context(), identity.Subject{ID: "user-1"}))
	rec := httptest.NewRecorder()
	app.SelectPlan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Plan != "premium" || resp.Credits != 50000 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSelectPlanUnknownPlanIs400(t *testing.T) {
	store := newFakeStore()
	store.seed(domain.Account{ID: "user-1", Plan: domain.PlanFree, Credits: 120})
	app := newTestApp(store, &fixedGenerator{text: "x"})

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]string{"plan": "platinum"})
	req := httptest.NewRequest(http.MethodPost, "/v1/plans/select", &buf)
	req = req.WithContext(middleware.ContextWithSubject(req.Context(), identity.Subject{ID: "user-1"}))
	rec := httptest.NewRecorder()
	app.SelectPlan(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if store.balance("user-1") != 120 {
		t.Fatalf("balance = %d, want untouched", store.balance("user-1"))
	}
}
