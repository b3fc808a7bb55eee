package metering

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/identity"
	"server/internal/providers/llm"
	"server/internal/routing"
)

// TokenVerifier validates a raw bearer token and yields the caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (identity.Subject, error)
}

// UsageEvent is one billable (or anomalous) provider invocation.
type UsageEvent struct {
	ID         uuid.UUID
	AccountID  string
	EventType  string
	Success    bool
	Credits    int64
	Properties map[string]any
}

// UsageRecorder persists usage events. Recording is best effort: a failed
// write is logged, never surfaced to the caller.
type UsageRecorder interface {
	Record(ctx context.Context, event UsageEvent) error
}

// Operation is one metered request against a provider model.
type Operation struct {
	Kind            domain.OperationKind
	Prompt          string
	System          string
	TemplateName    string
	TemplateCost    int64
	ModelPreference string
}

// Outcome is the result of a completed operation after the charge committed.
type Outcome struct {
	Subject        identity.Subject
	Account        *domain.Account
	Model          routing.ModelSpec
	Text           string
	CreditsCharged int64
	Balance        int64
}

// Executor runs the metered request pipeline: verify the caller, load or
// provision the account, price the operation, check affordability, invoke the
// provider, then commit the charge. Credits move only after the provider
// succeeds; a provider failure leaves the balance untouched.
type Executor struct {
	verifier TokenVerifier
	accounts domain.AccountStore
	router   *routing.Router
	usage    UsageRecorder
	logger   zerolog.Logger
}

type ExecutorOptions struct {
	Verifier TokenVerifier
	Accounts domain.AccountStore
	Router   *routing.Router
	Usage    UsageRecorder
	Logger   zerolog.Logger
}

func NewExecutor(opts ExecutorOptions) *Executor {
	return &Executor{
		verifier: opts.Verifier,
		accounts: opts.Accounts,
		router:   opts.Router,
		usage:    opts.Usage,
		logger:   opts.Logger,
	}
}

// Execute runs op on behalf of the bearer of token.
func (e *Executor) Execute(ctx context.Context, token string, op Operation) (*Outcome, error) {
	subject, err := e.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := e.loadOrProvision(ctx, subject)
	if err != nil {
		return nil, err
	}

	cost := domain.ComputeCost(op.Kind, op.TemplateCost)
	policy := domain.ResolvePlan(account.Plan)

	if !account.CanAfford(cost) {
		e.logger.Info().
			Str("account_id", account.ID).
			Str("operation", string(op.Kind)).
			Int64("cost", cost).
			Int64("balance", account.Credits).
			Msg("operation refused: insufficient credits")
		return nil, fmt.Errorf("cost %d exceeds balance %d: %w", cost, account.Credits, domain.ErrInsufficientCredits)
	}

	selection, err := e.router.Select(policy, op.ModelPreference)
	if err != nil {
		return nil, err
	}

	resp, err := selection.Generator.Generate(ctx, llm.Request{
		Model:  selection.Model.APIModel,
		Prompt: op.Prompt,
		System: op.System,
	})
	if err != nil {
		e.recordUsage(ctx, UsageEvent{
			ID:        uuid.New(),
			AccountID: account.ID,
			EventType: eventType(op.Kind),
			Success:   false,
			Credits:   0,
			Properties: map[string]any{
				"model": selection.Model.ID,
				"error": err.Error(),
			},
		})
		return nil, err
	}

	balance, err := e.commitCharge(ctx, account, op, selection.Model, cost)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Subject:        subject,
		Account:        account,
		Model:          selection.Model,
		Text:           resp.Text,
		CreditsCharged: cost,
		Balance:        balance,
	}, nil
}

// LoadAccount resolves the caller's account, provisioning it on first access.
func (e *Executor) LoadAccount(ctx context.Context, token string) (identity.Subject, *domain.Account, error) {
	subject, err := e.verifier.Verify(ctx, token)
	if err != nil {
		return identity.Subject{}, nil, err
	}
	account, err := e.loadOrProvision(ctx, subject)
	if err != nil {
		return identity.Subject{}, nil, err
	}
	return subject, account, nil
}

func (e *Executor) loadOrProvision(ctx context.Context, subject identity.Subject) (*domain.Account, error) {
	account, err := e.accounts.GetByID(ctx, subject.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	account, err = e.accounts.CreateDefault(ctx, subject.ID, subject.Email)
	if err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("account_id", account.ID).
		Str("plan", string(account.Plan)).
		Int64("credits", account.Credits).
		Msg("account provisioned")
	return account, nil
}

// commitCharge deducts cost after a successful provider call. A concurrent
// spend can drain the balance between the affordability check and the commit;
// the work is already done, so the outcome stands and the shortfall is
// recorded as a reconciliation anomaly instead of being compensated.
func (e *Executor) commitCharge(ctx context.Context, account *domain.Account, op Operation, model routing.ModelSpec, cost int64) (int64, error) {
	balance, err := e.accounts.Charge(ctx, account.ID, cost)
	switch {
	case err == nil:
		e.recordUsage(ctx, UsageEvent{
			ID:        uuid.New(),
			AccountID: account.ID,
			EventType: eventType(op.Kind),
			Success:   true,
			Credits:   cost,
			Properties: map[string]any{
				"model":    model.ID,
				"template": op.TemplateName,
			},
		})
		return balance, nil
	case errors.Is(err, domain.ErrInsufficientCredits):
		e.logger.Error().
			Str("account_id", account.ID).
			Str("operation", string(op.Kind)).
			Int64("cost", cost).
			Msg("charge lost race after provider call, balance not compensated")
		e.recordUsage(ctx, UsageEvent{
			ID:        uuid.New(),
			AccountID: account.ID,
			EventType: "reconciliation_anomaly",
			Success:   false,
			Credits:   cost,
			Properties: map[string]any{
				"model":     model.ID,
				"operation": string(op.Kind),
			},
		})
		return account.Credits, nil
	default:
		return 0, err
	}
}

func (e *Executor) recordUsage(ctx context.Context, event UsageEvent) {
	if e.usage == nil {
		return
	}
	if err := e.usage.Record(ctx, event); err != nil {
		e.logger.Warn().Err(err).
			Str("account_id", event.AccountID).
			Str("event_type", event.EventType).
			Msg("usage event not recorded")
	}
}

func eventType(kind domain.OperationKind) string {
	switch kind {
	case domain.OperationProofread:
		return "proofread"
	default:
		return "generate"
	}
}
