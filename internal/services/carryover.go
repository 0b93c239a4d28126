package services

import (
	"envelope/internal/core"
)

// PropagateCarryover walks the timeline's months in chronological order and
// returns the carry-forward map entering the month after the last one in the
// timeline. It is a pure left-to-right fold: each step reads the previous
// month's map and builds a fresh one, so redirection never observes its own
// writes.
//
// Per category and month, rawBalance = carried + assigned + activity. A
// negative rawBalance always carries forward as debt, whatever the strategy.
// A positive balance follows the category's policy: rollover keeps it, sweep
// moves the whole of it to the target (one hop per month; the target's own
// sweep only applies from the next month's step), none forfeits it back to
// the To Be Budgeted pool. A sweep whose target is missing, foreign, or the
// category itself degrades to none.
func PropagateCarryover(categories []core.Category, timeline core.Timeline) core.CarryoverMap {
	known := make(map[int64]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}

	carryover := make(core.CarryoverMap)
	for _, month := range timeline.Months() {
		next := make(core.CarryoverMap)

		// Every category of the user participates, active this month or
		// not: debt and rolled balances keep moving through quiet months.
		for _, cat := range categories {
			cell := timeline.Cell(month, cat.ID)
			rawBalance := carryover.Get(cat.ID).Add(cell.Assigned).Add(cell.Activity)

			if rawBalance.Sign() < 0 {
				next.Add(cat.ID, rawBalance)
				continue
			}

			switch cat.RolloverStrategy {
			case core.StrategyRollover:
				next.Add(cat.ID, rawBalance)
			case core.StrategySweep:
				if target, ok := cat.SweepTarget(); ok && target != cat.ID && known[target] {
					next.Add(target, rawBalance)
				}
				// Targetless or invalid sweep forfeits, like none.
			}
			// StrategyNone: forfeited, reconciled by the summary formula.
		}

		carryover = next
	}

	return carryover
}
