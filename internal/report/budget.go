package report

import "slices"

// Budget line item types.
const (
	OneTime   = "One-time"
	Recurring = "Recurring (Monthly)"
)

// DefaultCurrency is used when a generator omits the currency.
const DefaultCurrency = "BDT"

// BudgetPlan is the startup budget derived from the root report.
// TotalBudget, Capex, Opex and each category Total are aggregates of the
// line items; Recalculate keeps them consistent.
type BudgetPlan struct {
	TotalBudget float64          `json:"totalBudget" validate:"min=0"`
	Capex       float64          `json:"capex" validate:"min=0"`
	Opex        float64          `json:"opex" validate:"min=0"`
	Currency    string           `json:"currency"`
	Breakdown   []BudgetCategory `json:"breakdown" validate:"required,dive"`
	Advice      []string         `json:"advice"`
	CostGuides  []CostGuide      `json:"costGuides" validate:"dive"`
}

type BudgetCategory struct {
	Category string       `json:"category" validate:"nonempty"`
	Total    float64      `json:"total"`
	Items    []BudgetItem `json:"items" validate:"required,dive"`
}

type BudgetItem struct {
	Item string  `json:"item" validate:"nonempty"`
	Cost float64 `json:"cost" validate:"min=0"`
	Type string  `json:"type" validate:"budget_type"`
}

type CostGuide struct {
	Title       string `json:"title" validate:"nonempty"`
	Description string `json:"description"`
}

// NewBudgetItem returns the placeholder row added by "add item".
func NewBudgetItem() BudgetItem {
	return BudgetItem{Item: "New Item", Cost: 0, Type: OneTime}
}

// Kind implements Artifact.
func (b *BudgetPlan) Kind() Kind { return KindBudget }

// Validate checks the plan against the budget schema.
func (b *BudgetPlan) Validate() ValidationResult {
	return validateStruct(b)
}

// Recalculate returns a copy of b with every aggregate recomputed from the
// line items. Capex sums one-time items and Opex sums monthly recurring items.
func (b BudgetPlan) Recalculate() BudgetPlan {
	out := b.Clone()
	out.Capex, out.Opex = 0, 0
	for i := range out.Breakdown {
		cat := &out.Breakdown[i]
		cat.Total = 0
		for _, it := range cat.Items {
			cat.Total += it.Cost
			switch it.Type {
			case OneTime:
				out.Capex += it.Cost
			case Recurring:
				out.Opex += it.Cost
			}
		}
	}
	out.TotalBudget = out.Capex + out.Opex
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	return out
}

// Clone deep-copies the plan.
func (b BudgetPlan) Clone() BudgetPlan {
	out := b
	if b.Breakdown != nil {
		out.Breakdown = make([]BudgetCategory, len(b.Breakdown))
		for i, cat := range b.Breakdown {
			out.Breakdown[i] = cat
			out.Breakdown[i].Items = slices.Clone(cat.Items)
		}
	}
	out.Advice = slices.Clone(b.Advice)
	out.CostGuides = slices.Clone(b.CostGuides)
	return out
}
