package domain

// OperationKind identifies a paid operation.
type OperationKind string

const (
	OperationGenerate  OperationKind = "GENERATE"
	OperationProofread OperationKind = "PROOFREAD"
)

// Base credit costs per operation when no template cost applies.
const (
	GenerateBaseCost  int64 = 10
	ProofreadBaseCost int64 = 5
)

// PlanPolicy describes what a plan is entitled to. Selectable is non-empty
// only for plans that permit a per-request model preference.
type PlanPolicy struct {
	Plan         Plan
	DefaultModel string
	Selectable   []string
	Unlimited    bool
	Allocation   int64
}

// AllowsOverride reports whether the plan honors a user model preference.
func (p PlanPolicy) AllowsOverride() bool {
	return len(p.Selectable) > 0
}

// Allows reports whether the given model may be selected under this plan.
func (p PlanPolicy) Allows(model string) bool {
	for _, m := range p.Selectable {
		if m == model {
			return true
		}
	}
	return false
}

var planPolicies = map[Plan]PlanPolicy{
	PlanFree: {
		Plan:         PlanFree,
		DefaultModel: "gpt-3.5-turbo",
		Allocation:   DefaultStartingCredits,
	},
	PlanBasic: {
		Plan:         PlanBasic,
		DefaultModel: "gpt-3.5-turbo",
		Allocation:   10000,
	},
	PlanPremium: {
		Plan:         PlanPremium,
		DefaultModel: "gemini-pro",
		Allocation:   50000,
	},
	PlanUltimate: {
		Plan:         PlanUltimate,
		DefaultModel: "gpt-4",
		Selectable:   []string{"gpt-4", "gemini-pro", "claude-2"},
		Unlimited:    true,
		Allocation:   UnlimitedCredits,
	},
}

// ResolvePlan maps a plan id to its policy. Unknown or legacy plan values
// resolve to the free policy so a corrupted account stays serviceable.
func ResolvePlan(plan Plan) PlanPolicy {
	if policy, ok := planPolicies[plan]; ok {
		return policy
	}
	return planPolicies[PlanFree]
}

// KnownPlan reports whether the plan id is part of the configured table.
func KnownPlan(plan Plan) bool {
	_, ok := planPolicies[plan]
	return ok
}

// ComputeCost returns the credit cost of an operation. A positive template
// cost overrides the generation base cost; proofreading has a flat cost.
func ComputeCost(kind OperationKind, templateCost int64) int64 {
	if kind == OperationProofread {
		return ProofreadBaseCost
	}
	if templateCost > 0 {
		return templateCost
	}
	return GenerateBaseCost
}
