package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// AccountRepositoryPG implements domain.AccountStore backed by PostgreSQL.
// Plain reads and writes go through the marker-logging executor; Charge opens
// its own transaction on the pool because the balance must be re-read under a
// row lock before the deduction.
type AccountRepositoryPG struct {
	pool   *pgxpool.Pool
	sql    infra.SQLExecutor
	logger zerolog.Logger
}

func NewAccountRepository(pool *pgxpool.Pool, sql infra.SQLExecutor, logger zerolog.Logger) *AccountRepositoryPG {
	return &AccountRepositoryPG{pool: pool, sql: sql, logger: logger}
}

// GetByID fetches an account by the verified subject id.
func (r *AccountRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectAccountByID, id)
	return scanAccount(row)
}

// CreateDefault provisions an account with the free plan and starting
// balance. The insert is ON CONFLICT DO NOTHING, so a concurrent provisioner
// cannot clobber an existing row; the re-read returns whichever row won.
func (r *AccountRepositoryPG) CreateDefault(ctx context.Context, id, email string) (*domain.Account, error) {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertDefaultAccount,
		id, email, string(domain.PlanFree), domain.DefaultStartingCredits)
	if err != nil {
		return nil, fmt.Errorf("provision account: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Charge deducts amount inside one transaction. The balance is re-read with
// FOR UPDATE so a concurrent charge cannot overdraw the account; either the
// full amount is deducted or nothing changes.
func (r *AccountRepositoryPG) Charge(ctx context.Context, id string, amount int64) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin charge: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var credits int64
	if err := tx.QueryRow(ctx, sqlinline.QSelectAccountForUpdate, id).Scan(&credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("lock account: %w", err)
	}

	if credits == domain.UnlimitedCredits {
		if _, err := tx.Exec(ctx, sqlinline.QTouchAccount, id); err != nil {
			return 0, fmt.Errorf("touch account: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("commit charge: %w", err)
		}
		return domain.UnlimitedCredits, nil
	}

	if credits < amount {
		return 0, fmt.Errorf("balance %d below cost %d: %w", credits, amount, domain.ErrInsufficientCredits)
	}

	var balance int64
	if err := tx.QueryRow(ctx, sqlinline.QDeductCredits, id, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("deduct credits: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit charge: %w", err)
	}
	return balance, nil
}

// SetPlan switches the plan and resets the balance to the plan allocation.
func (r *AccountRepositoryPG) SetPlan(ctx context.Context, id string, plan domain.Plan, credits int64) (*domain.Account, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSetAccountPlan, id, string(plan), credits)
	return scanAccount(row)
}

// Grant adds credits; unlimited accounts keep their sentinel balance.
func (r *AccountRepositoryPG) Grant(ctx context.Context, id string, amount int64) (int64, error) {
	var balance int64
	if err := r.sql.QueryRow(ctx, sqlinline.QGrantCredits, id, amount).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var plan string
	if err := row.Scan(&a.ID, &a.Email, &plan, &a.Credits, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.Plan = domain.Plan(plan)
	return &a, nil
}

var _ domain.AccountStore = (*AccountRepositoryPG)(nil)
