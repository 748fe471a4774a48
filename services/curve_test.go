package services

import "testing"

// --- Evaluate ---

func TestEvaluate_FlatCurve(t *testing.T) {
	c := DefaultLevelCurve // 1000 XP per level, cap 100

	tests := []struct {
		name    string
		totalXP int64
		want    LevelState
	}{
		{"zero", 0, LevelState{Level: 1, CurrentLevelXP: 0, XPToNextLevel: 1000}},
		{"mid level", 950, LevelState{Level: 1, CurrentLevelXP: 950, XPToNextLevel: 50}},
		{"exact boundary", 1000, LevelState{Level: 2, CurrentLevelXP: 0, XPToNextLevel: 1000}},
		{"crossed boundary", 1050, LevelState{Level: 2, CurrentLevelXP: 50, XPToNextLevel: 950}},
		{"several levels", 4500, LevelState{Level: 5, CurrentLevelXP: 500, XPToNextLevel: 500}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Evaluate(tc.totalXP)
			if got != tc.want {
				t.Errorf("Evaluate(%d) = %+v, want %+v", tc.totalXP, got, tc.want)
			}
		})
	}
}

func TestEvaluate_CarryOverAcrossBoundary(t *testing.T) {
	c := DefaultLevelCurve
	before := c.Evaluate(950)
	after := c.Evaluate(950 + 100)
	if after.Level != before.Level+1 {
		t.Errorf("level = %d, want %d", after.Level, before.Level+1)
	}
	if after.CurrentLevelXP != 50 {
		t.Errorf("CurrentLevelXP = %d, want 50 (overflow carried into the new level)", after.CurrentLevelXP)
	}
}

func TestEvaluate_PrestigeRollover(t *testing.T) {
	c := DefaultLevelCurve
	// 99 level-ups at 1000 XP each reach the cap of 100 and roll prestige.
	atCap := int64(99) * 1000
	got := c.Evaluate(atCap)
	if got.PrestigeLevel != 1 || got.Level != 1 || got.CurrentLevelXP != 0 {
		t.Errorf("Evaluate(%d) = %+v, want prestige 1 level 1 with 0 in-level XP", atCap, got)
	}

	justBefore := c.Evaluate(atCap - 1)
	if justBefore.PrestigeLevel != 0 || justBefore.Level != 99 {
		t.Errorf("Evaluate(%d) = %+v, want prestige 0 level 99", atCap-1, justBefore)
	}
}

func TestEvaluate_MonotonicAsTotalGrows(t *testing.T) {
	c := LevelCurve{BaseXP: 100, Growth: 1.2, LevelCap: 10}
	prev := c.Evaluate(0)
	for xp := int64(1); xp < 50000; xp += 37 {
		cur := c.Evaluate(xp)
		if cur.PrestigeLevel < prev.PrestigeLevel {
			t.Fatalf("prestige decreased at total %d: %+v after %+v", xp, cur, prev)
		}
		if cur.PrestigeLevel == prev.PrestigeLevel && cur.Level < prev.Level {
			t.Fatalf("level decreased at total %d: %+v after %+v", xp, cur, prev)
		}
		if cur.CurrentLevelXP < 0 || cur.XPToNextLevel < 1 {
			t.Fatalf("invalid split at total %d: %+v", xp, cur)
		}
		prev = cur
	}
}

func TestEvaluate_NegativeTotalClampsToZero(t *testing.T) {
	got := DefaultLevelCurve.Evaluate(-500)
	want := DefaultLevelCurve.Evaluate(0)
	if got != want {
		t.Errorf("Evaluate(-500) = %+v, want %+v", got, want)
	}
}

// --- CostForLevel ---

func TestCostForLevel_GrowthRaisesCost(t *testing.T) {
	c := LevelCurve{BaseXP: 100, Growth: 1.5, LevelCap: 100}
	prev := c.CostForLevel(1)
	for n := 2; n <= 50; n++ {
		cost := c.CostForLevel(n)
		if cost < prev {
			t.Fatalf("CostForLevel(%d) = %d, below CostForLevel(%d) = %d", n, cost, n-1, prev)
		}
		prev = cost
	}
}

func TestCostForLevel_NeverBelowOne(t *testing.T) {
	c := LevelCurve{BaseXP: 0, Growth: 0, LevelCap: 100}
	if got := c.CostForLevel(5); got != 1 {
		t.Errorf("CostForLevel(5) = %d, want 1", got)
	}
}

// --- LevelCurveFromEnv ---

func TestLevelCurveFromEnv(t *testing.T) {
	t.Setenv("XP_CURVE_BASE", "2500")
	t.Setenv("XP_CURVE_GROWTH", "1.1")
	t.Setenv("XP_LEVEL_CAP", "60")

	c := LevelCurveFromEnv()
	if c.BaseXP != 2500 || c.Growth != 1.1 || c.LevelCap != 60 {
		t.Errorf("LevelCurveFromEnv() = %+v", c)
	}
}

func TestLevelCurveFromEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("XP_CURVE_BASE", "not-a-number")
	t.Setenv("XP_CURVE_GROWTH", "-2")
	t.Setenv("XP_LEVEL_CAP", "1")

	c := LevelCurveFromEnv()
	if c != DefaultLevelCurve {
		t.Errorf("LevelCurveFromEnv() = %+v, want defaults %+v", c, DefaultLevelCurve)
	}
}
