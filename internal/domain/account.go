package domain

import "time"

// Plan enumerates billing plans.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanBasic    Plan = "basic"
	PlanPremium  Plan = "premium"
	PlanUltimate Plan = "ultimate"
)

// UnlimitedCredits is the balance sentinel for accounts that are never charged.
const UnlimitedCredits int64 = -1

// DefaultStartingCredits is granted when an account is lazily provisioned.
const DefaultStartingCredits int64 = 5000

// Account is the durable per-subject record of plan and remaining credits.
// The ID is the verified subject identifier from the identity provider.
type Account struct {
	ID        string
	Email     string
	Plan      Plan
	Credits   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unlimited reports whether the account is exempt from charging.
func (a Account) Unlimited() bool {
	return a.Credits == UnlimitedCredits
}

// CanAfford reports whether the balance covers the given cost.
func (a Account) CanAfford(cost int64) bool {
	return a.Unlimited() || a.Credits >= cost
}
