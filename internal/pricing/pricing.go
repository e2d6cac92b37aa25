// Package pricing holds the pure cost formulas shared by the rollup
// engine, the task service, and the ingestion pipeline. Profit margins
// are reporting attributes and never enter any formula here.
package pricing

import "github.com/casaplan/casaplan-backend/internal/types"

// TaskCost is quantity*unitPrice clamped at zero, plus labor when present.
func TaskCost(quantity, unitPrice float64, laborCost *float64) float64 {
	base := quantity * unitPrice
	if base < 0 {
		base = 0
	}
	if laborCost != nil {
		base += *laborCost
	}
	return base
}

func MaterialAssignmentCost(quantityUsed, catalogUnitPrice float64) float64 {
	return quantityUsed * catalogUnitPrice
}

func PhaseCostFromTasks(tasks []*types.Task) float64 {
	var total float64
	for _, t := range tasks {
		if t == nil {
			continue
		}
		total += t.EstimatedCost
	}
	return total
}

// PhaseDurationFromTasks sums task durations; tasks without one count as 0.
func PhaseDurationFromTasks(tasks []*types.Task) int {
	var total int
	for _, t := range tasks {
		if t == nil || t.EstimatedDuration == nil {
			continue
		}
		total += *t.EstimatedDuration
	}
	return total
}

func PlanTotal(phases []*types.PlanPhase) float64 {
	var total float64
	for _, p := range phases {
		if p == nil {
			continue
		}
		total += p.EstimatedCost
	}
	return total
}
