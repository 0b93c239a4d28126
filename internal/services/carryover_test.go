package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func cat(id int64, strategy core.RolloverStrategy, sweepTarget *int64) core.Category {
	return core.Category{ID: id, UserID: 1, Name: "cat", RolloverStrategy: strategy, SweepTargetID: sweepTarget}
}

func ptr(v int64) *int64 { return &v }

func cellMap(cells map[int64]core.MonthCell) map[int64]core.MonthCell { return cells }

func assertCarry(t *testing.T, got core.CarryoverMap, categoryID int64, want string) {
	t.Helper()
	if !got.Get(categoryID).Equal(dec(want)) {
		t.Errorf("carryover[%d] = %s, want %s", categoryID, got.Get(categoryID), want)
	}
}

func TestPropagateCarryover_RolloverCarriesPositiveBalance(t *testing.T) {
	// Scenario A: assigned=100, activity=-30 in 2026-01 carries 70 into February.
	categories := []core.Category{cat(1, core.StrategyRollover, nil)}
	timeline := core.Timeline{
		"2026-01": cellMap(map[int64]core.MonthCell{
			1: {Assigned: dec("100"), Activity: dec("-30")},
		}),
	}

	got := PropagateCarryover(categories, timeline)
	assertCarry(t, got, 1, "70")
}

func TestPropagateCarryover_NoneForfeitsPositiveBalance(t *testing.T) {
	// Scenario B: strategy none forfeits the 50 back to the pool.
	categories := []core.Category{cat(1, core.StrategyNone, nil)}
	timeline := core.Timeline{
		"2026-01": cellMap(map[int64]core.MonthCell{
			1: {Assigned: dec("50"), Activity: decimal.Zero},
		}),
	}

	got := PropagateCarryover(categories, timeline)
	assertCarry(t, got, 1, "0")
	if len(got) != 0 {
		t.Errorf("forfeited balance should leave no carry entries, got %v", got)
	}
}

func TestPropagateCarryover_SweepRedirectsFullBalance(t *testing.T) {
	// Scenario C: C sweeps its 40 into D; C itself carries nothing.
	categories := []core.Category{
		cat(1, core.StrategySweep, ptr(2)),
		cat(2, core.StrategyRollover, nil),
	}
	timeline := core.Timeline{
		"2026-01": cellMap(map[int64]core.MonthCell{
			1: {Assigned: dec("40"), Activity: decimal.Zero},
		}),
	}

	got := PropagateCarryover(categories, timeline)
	assertCarry(t, got, 1, "0")
	assertCarry(t, got, 2, "40")
}

func TestPropagateCarryover_DebtAlwaysCarries(t *testing.T) {
	// Scenario D: overspending carries as debt whatever the strategy says.
	tests := []struct {
		name     string
		strategy core.RolloverStrategy
		target   *int64
	}{
		{name: "none", strategy: core.StrategyNone},
		{name: "rollover", strategy: core.StrategyRollover},
		{name: "sweep", strategy: core.StrategySweep, target: ptr(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categories := []core.Category{
				cat(1, tt.strategy, tt.target),
				cat(2, core.StrategyRollover, nil),
			}
			timeline := core.Timeline{
				"2026-01": cellMap(map[int64]core.MonthCell{
					1: {Assigned: dec("10"), Activity: dec("-50")},
				}),
			}

			got := PropagateCarryover(categories, timeline)
			assertCarry(t, got, 1, "-40")
			assertCarry(t, got, 2, "0")
		})
	}
}

func TestPropagateCarryover_DebtCompoundsAcrossMonths(t *testing.T) {
	categories := []core.Category{cat(1, core.StrategyNone, nil)}
	timeline := core.Timeline{
		"2026-01": cellMap(map[int64]core.MonthCell{
			1: {Assigned: decimal.Zero, Activity: dec("-40")},
		}),
		"2026-02": cellMap(map[int64]core.MonthCell{
			1: {Assigned: dec("15"), Activity: decimal.Zero},
		}),
	}

	// -40 carries into February, 15 assigned leaves -25 entering March.
	got := PropagateCarryover(categories, timeline)
	assertCarry(t, got, 1, "-25")
}

func TestPropagateCarryover_SweepChainIsOneHopPerMonth(t *testing.T) {
	// A sweeps to B, B sweeps to C. Within one month-step the redirected
	// amount lands on B and stays there; B's own sweep moves it to C only
	// in the following month's step.
	categories := []core.Category{
		cat(1, core.StrategySweep, ptr(2)),
		cat(2, core.StrategySweep, ptr(3)),
		cat(3, core.StrategyRollover, nil),
	}
	january := core.Timeline{
		"2026-01": cellMap(map[int64]core.MonthCell{
			1: {Assigned: dec("30"), Activity: decimal.Zero},
		}),
	}

	afterJanuary := PropagateCarryover(categories, january)
	assertCarry(t, afterJanuary, 1, "0")
	assertCarry(t, afterJanuary, 2, "30")
	assertCarry(t, afterJanuary, 3, "0")

	// One quiet month later the 30 has moved on to C.
	withFebruary := core.Timeline{
		"2026-01": january["2026-01"],
		"2026-02": cellMap(map[int64]core.MonthCell{}),
	}
	afterFebruary := PropagateCarryover(categories, withFebruary)
	assertCarry(t, afterFebruary, 2, "0")
	assertCarry(t, afterFebruary, 3, "30")
}

func TestPropagateCarryover_SweepAccumulatesOntoTargetOwnCarry(t *testing.T) {
	// The target rolls its own 20 and receives the swept 30: both survive.
	categories := []core.Category{
		cat(1, core.StrategySweep, ptr(2)),
		cat(2, core.StrategyRollover, nil),
	}
	timeline := core.Timeline{
		"2026-01": cellMap(map[int64]core.MonthCell{
			1: {Assigned: dec("30"), Activity: decimal.Zero},
			2: {Assigned: dec("20"), Activity: decimal.Zero},
		}),
	}

	got := PropagateCarryover(categories, timeline)
	assertCarry(t, got, 2, "50")
}

func TestPropagateCarryover_InvalidSweepTargetsForfeit(t *testing.T) {
	tests := []struct {
		name   string
		target *int64
	}{
		{name: "no target", target: nil},
		{name: "self target", target: ptr(1)},
		{name: "unknown target", target: ptr(99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categories := []core.Category{cat(1, core.StrategySweep, tt.target)}
			timeline := core.Timeline{
				"2026-01": cellMap(map[int64]core.MonthCell{
					1: {Assigned: dec("25"), Activity: decimal.Zero},
				}),
			}

			got := PropagateCarryover(categories, timeline)
			assertCarry(t, got, 1, "0")
		})
	}
}

func TestPropagateCarryover_QuietCategoryKeepsRolling(t *testing.T) {
	// A rollover category with no rows in later months still carries its
	// balance through them.
	categories := []core.Category{cat(1, core.StrategyRollover, nil)}
	timeline := core.Timeline{
		"2025-11": cellMap(map[int64]core.MonthCell{
			1: {Assigned: dec("80"), Activity: dec("-5")},
		}),
		"2026-02": cellMap(map[int64]core.MonthCell{
			1: {Assigned: decimal.Zero, Activity: dec("-10")},
		}),
	}

	got := PropagateCarryover(categories, timeline)
	assertCarry(t, got, 1, "65")
}

func TestPropagateCarryover_EmptyTimeline(t *testing.T) {
	categories := []core.Category{cat(1, core.StrategyRollover, nil)}
	got := PropagateCarryover(categories, core.Timeline{})
	if len(got) != 0 {
		t.Errorf("empty timeline should produce an empty carryover, got %v", got)
	}
}
