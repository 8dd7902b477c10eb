// Package validate provides reusable record validation utilities.
// These functions can be called from tests, API handlers, or pipeline
// code to verify that persisted maintenance data is internally
// consistent before it feeds the analytical models.
package validate

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

// CostTolerance absorbs cent-level rounding when a stored total is
// compared against the sum of its components.
const CostTolerance = 0.01

// =============================================================================
// VIOLATIONS
// =============================================================================

// Violation is one failed check on one record.
type Violation struct {
	Entity string `json:"entity"`
	Ref    string `json:"ref"`
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s: %s", v.Entity, v.Ref, v.Field, v.Detail)
}

// =============================================================================
// COST COMPOSITION CHECKS
// =============================================================================

// CostCheck verifies a stored total against the sum of its parts.
type CostCheck struct {
	Reported   float64
	Computed   float64
	Difference float64
	IsBalanced bool
	Tolerance  float64
}

// CheckWorkOrderCosts validates total = labor + parts + vendor within
// tolerance.
func CheckWorkOrderCosts(wo *models.WorkOrder) *CostCheck {
	computed := wo.LaborCost + wo.PartsCost + wo.VendorCost
	diff := wo.TotalCost - computed

	return &CostCheck{
		Reported:   wo.TotalCost,
		Computed:   computed,
		Difference: diff,
		IsBalanced: math.Abs(diff) <= CostTolerance,
		Tolerance:  CostTolerance,
	}
}

// CheckRollupComposition validates total = pm + corrective + contract
// within tolerance.
func CheckRollupComposition(r *models.MonthlyRollup) *CostCheck {
	computed := r.PMCost + r.CorrectiveCost + r.ContractCostAllocated
	diff := r.TotalCost - computed

	return &CostCheck{
		Reported:   r.TotalCost,
		Computed:   computed,
		Difference: diff,
		IsBalanced: math.Abs(diff) <= CostTolerance,
		Tolerance:  CostTolerance,
	}
}

// =============================================================================
// RECORD CHECKS
// =============================================================================

// Equipment checks one registry entry: a positive acquisition cost and
// an installation date no earlier than acquisition.
func Equipment(eq *models.Equipment) []Violation {
	var out []Violation
	if eq.AcquisitionCost <= 0 {
		out = append(out, Violation{
			Entity: "equipment",
			Ref:    eq.AssetTag,
			Field:  "acquisition_cost",
			Detail: fmt.Sprintf("must be positive, got %.2f", eq.AcquisitionCost),
		})
	}
	if eq.InstallationDate != nil && eq.InstallationDate.Before(eq.AcquisitionDate) {
		out = append(out, Violation{
			Entity: "equipment",
			Ref:    eq.AssetTag,
			Field:  "installation_date",
			Detail: "precedes acquisition date",
		})
	}
	return out
}

// WorkOrder checks one work order. acquired is the owning asset's
// acquisition date; pass the zero time to skip that comparison.
func WorkOrder(wo *models.WorkOrder, acquired time.Time) []Violation {
	var out []Violation

	if check := CheckWorkOrderCosts(wo); !check.IsBalanced {
		out = append(out, Violation{
			Entity: "work_order",
			Ref:    wo.WorkOrderNumber,
			Field:  "total_cost",
			Detail: fmt.Sprintf("%.2f does not match components %.2f", check.Reported, check.Computed),
		})
	}
	if wo.CompletedDate != nil && wo.CompletedDate.Before(wo.OpenedDate) {
		out = append(out, Violation{
			Entity: "work_order",
			Ref:    wo.WorkOrderNumber,
			Field:  "completed_date",
			Detail: "precedes opened date",
		})
	}
	if !acquired.IsZero() && wo.OpenedDate.Before(acquired) {
		out = append(out, Violation{
			Entity: "work_order",
			Ref:    wo.WorkOrderNumber,
			Field:  "opened_date",
			Detail: "precedes asset acquisition",
		})
	}
	return out
}

// Contract checks that a service contract's coverage window is ordered.
func Contract(c *models.ServiceContract) []Violation {
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return []Violation{{
			Entity: "contract",
			Ref:    fmt.Sprintf("contract %d", c.ID),
			Field:  "end_date",
			Detail: "precedes start date",
		}}
	}
	return nil
}

// Rollups checks one asset's monthly rollups: each total must decompose
// and months must be unique. Gaps are legal; the Aggregator writes rows
// only for months with activity.
func Rollups(ref string, rows []models.MonthlyRollup) []Violation {
	var out []Violation

	seen := make(map[string]bool, len(rows))
	for i := range rows {
		r := &rows[i]
		if check := CheckRollupComposition(r); !check.IsBalanced {
			out = append(out, Violation{
				Entity: "rollup",
				Ref:    ref,
				Field:  "total_cost",
				Detail: fmt.Sprintf("%s: %.2f does not match components %.2f",
					r.Month.Format("2006-01"), check.Reported, check.Computed),
			})
		}
		key := r.Month.Format("2006-01")
		if seen[key] {
			out = append(out, Violation{
				Entity: "rollup",
				Ref:    ref,
				Field:  "month",
				Detail: key + " appears more than once",
			})
		}
		seen[key] = true
	}
	return out
}

// =============================================================================
// STORE SWEEP
// =============================================================================

// Report summarises a sweep over the whole store.
type Report struct {
	AssetsChecked     int         `json:"assets_checked"`
	WorkOrdersChecked int         `json:"work_orders_checked"`
	RollupsChecked    int         `json:"rollups_checked"`
	Violations        []Violation `json:"violations"`
}

// Clean reports whether the sweep found no violations.
func (r Report) Clean() bool {
	return len(r.Violations) == 0
}

// Checker sweeps every asset in the store.
type Checker struct {
	equipment *store.EquipmentRepo
	orders    *store.WorkOrderRepo
	contracts *store.ContractRepo
	rollups   *store.RollupRepo
}

// NewChecker creates a checker bound to conn.
func NewChecker(conn *gorm.DB) *Checker {
	return &Checker{
		equipment: store.NewEquipmentRepo(conn),
		orders:    store.NewWorkOrderRepo(conn),
		contracts: store.NewContractRepo(conn),
		rollups:   store.NewRollupRepo(conn),
	}
}

// Sweep checks every asset and its dependent records, collecting all
// violations rather than stopping at the first.
func (c *Checker) Sweep(ctx context.Context) (Report, error) {
	assets, err := c.equipment.ByFacility(ctx, "")
	if err != nil {
		return Report{}, fmt.Errorf("failed to sweep records: %w", err)
	}

	var report Report
	for i := range assets {
		eq := &assets[i]
		report.AssetsChecked++
		report.Violations = append(report.Violations, Equipment(eq)...)

		orders, err := c.orders.ByEquipment(ctx, eq.ID)
		if err != nil {
			return Report{}, err
		}
		for j := range orders {
			report.WorkOrdersChecked++
			report.Violations = append(report.Violations, WorkOrder(&orders[j], eq.AcquisitionDate)...)
		}

		contracts, err := c.contracts.ByEquipment(ctx, eq.ID)
		if err != nil {
			return Report{}, err
		}
		for j := range contracts {
			report.Violations = append(report.Violations, Contract(&contracts[j])...)
		}

		rollups, err := c.rollups.History(ctx, eq.ID)
		if err != nil {
			return Report{}, err
		}
		report.RollupsChecked += len(rollups)
		report.Violations = append(report.Violations, Rollups(eq.AssetTag, rollups)...)
	}
	return report, nil
}
