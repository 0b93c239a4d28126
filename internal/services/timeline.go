// Package services holds the rollover engine and the orchestration around
// the record store: timeline building, carryover propagation, availability
// aggregation and the allocation write path.
package services

import (
	"envelope/internal/core"
)

// BuildTimeline groups raw allocations and categorized transactions into
// per-month, per-category (assigned, activity) cells. Only months with at
// least one allocation or one categorized transaction appear. The function
// is pure; callers supply rows already restricted to the wanted range.
func BuildTimeline(allocations []core.Allocation, transactions []core.Transaction) core.Timeline {
	timeline := make(core.Timeline)

	cell := func(m core.Month, categoryID int64) *core.MonthCell {
		byCat, ok := timeline[m]
		if !ok {
			byCat = make(map[int64]core.MonthCell)
			timeline[m] = byCat
		}
		c := byCat[categoryID]
		return &c
	}

	for _, a := range allocations {
		c := cell(a.Month, a.CategoryID)
		c.Assigned = c.Assigned.Add(a.Assigned)
		timeline[a.Month][a.CategoryID] = *c
	}

	for _, t := range transactions {
		if t.CategoryID == nil {
			continue
		}
		m := core.MonthOfDate(t.Date)
		c := cell(m, *t.CategoryID)
		c.Activity = c.Activity.Add(t.Amount)
		timeline[m][*t.CategoryID] = *c
	}

	return timeline
}
