package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
)

// userplan switches an account's plan or grants extra credits without going
// through the HTTP surface. Plan switches reset the balance to the plan
// allocation unless -credits overrides it.
func main() {
	var (
		idFlag      string
		planFlag    string
		creditsFlag int64
		grantFlag   int64
	)

	flag.StringVar(&idFlag, "id", "", "account ID (the identity provider subject)")
	flag.StringVar(&planFlag, "plan", "", "plan to assign (free, basic, premium, ultimate)")
	flag.Int64Var(&creditsFlag, "credits", 0, "balance override for the plan switch (-1 for unlimited, 0 uses the plan allocation)")
	flag.Int64Var(&grantFlag, "grant", 0, "credits to add to the current balance instead of switching plans")
	flag.Parse()

	accountID := strings.TrimSpace(idFlag)
	if accountID == "" {
		exitWithError(errors.New("-id is required"))
	}

	plan := domain.Plan(strings.TrimSpace(strings.ToLower(planFlag)))
	if planFlag != "" && !domain.KnownPlan(plan) {
		exitWithError(fmt.Errorf("unsupported plan %q", planFlag))
	}
	if planFlag == "" && grantFlag == 0 {
		exitWithError(errors.New("either -plan or -grant must be provided"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "userplan").Logger()
	accounts := repo.NewAccountRepository(pool, infra.NewSQLRunner(pool, logger), logger)

	opCtx, cancelOp := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelOp()

	if grantFlag != 0 {
		balance, err := accounts.Grant(opCtx, accountID, grantFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to grant credits: %w", err))
		}
		fmt.Printf("granted %d credits to %s, balance now %d\n", grantFlag, accountID, balance)
		return
	}

	credits := creditsFlag
	if credits == 0 {
		credits = domain.ResolvePlan(plan).Allocation
	}

	account, err := accounts.SetPlan(opCtx, accountID, plan, credits)
	if err != nil {
		exitWithError(fmt.Errorf("failed to update plan: %w", err))
	}
	fmt.Printf("account %s now on plan %s with %d credits\n", account.ID, account.Plan, account.Credits)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
