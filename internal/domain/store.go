package domain

import "context"

// AccountStore defines the durable account operations the service relies on.
// Charge must execute as one isolated transaction: the balance is re-read
// inside the transaction and either the full amount is deducted or nothing is.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)

	// CreateDefault provisions an account on first authenticated access.
	// First writer wins: a concurrent create never overwrites an existing
	// record, later callers read the winner's row.
	CreateDefault(ctx context.Context, id, email string) (*Account, error)

	// Charge atomically deducts amount and returns the new balance.
	// Returns ErrInsufficientCredits when the re-read balance is finite and
	// below amount, ErrNotFound when the account does not exist. A balance of
	// UnlimitedCredits is never decremented.
	Charge(ctx context.Context, id string, amount int64) (int64, error)

	// SetPlan switches the account to the plan and resets its balance to the
	// plan allocation.
	SetPlan(ctx context.Context, id string, plan Plan, credits int64) (*Account, error)

	// Grant adds amount credits and returns the new balance.
	Grant(ctx context.Context, id string, amount int64) (int64, error)
}
