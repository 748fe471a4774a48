package services

import (
	"log"
	"math"
	"os"
	"strconv"
)

// LevelCurve converts lifetime XP into prestige/level/in-level XP. It is a
// pure, total function over non-negative totals: the same total always maps
// to the same state, and the derived level never decreases as XP grows.
type LevelCurve struct {
	BaseXP   int64   // cost of a level at growth 0
	Growth   float64 // per-level cost scales with level^Growth
	LevelCap int     // reaching the cap rolls prestige and restarts at level 1
}

// DefaultLevelCurve: flat 1000 XP per level, prestige at level 100.
var DefaultLevelCurve = LevelCurve{
	BaseXP:   1000,
	Growth:   0,
	LevelCap: 100,
}

// LevelCurveFromEnv reads XP_CURVE_BASE, XP_CURVE_GROWTH and XP_LEVEL_CAP,
// falling back to the defaults for anything unset or unparsable.
func LevelCurveFromEnv() LevelCurve {
	c := DefaultLevelCurve
	if v := os.Getenv("XP_CURVE_BASE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.BaseXP = n
		} else {
			log.Printf("⚠️ Ignoring invalid XP_CURVE_BASE=%q", v)
		}
	}
	if v := os.Getenv("XP_CURVE_GROWTH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Growth = f
		} else {
			log.Printf("⚠️ Ignoring invalid XP_CURVE_GROWTH=%q", v)
		}
	}
	if v := os.Getenv("XP_LEVEL_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			c.LevelCap = n
		} else {
			log.Printf("⚠️ Ignoring invalid XP_LEVEL_CAP=%q", v)
		}
	}
	return c
}

// LevelState is the derived position on the curve.
type LevelState struct {
	PrestigeLevel  int
	Level          int
	CurrentLevelXP int64
	XPToNextLevel  int64
}

// CostForLevel returns the XP needed to advance from level n to n+1.
// cost(n) = floor(BaseXP * n^Growth), never below 1.
func (c LevelCurve) CostForLevel(n int) int64 {
	if n < 1 {
		n = 1
	}
	cost := int64(float64(c.BaseXP) * math.Pow(float64(n), c.Growth))
	if cost < 1 {
		cost = 1
	}
	return cost
}

// Evaluate walks the curve from level 1, consuming totalXP. Crossing the
// level cap rolls prestige and restarts the walk at level 1 on the remaining
// XP — the stored lifetime total is untouched, which is what keeps it
// monotonic across prestige resets.
func (c LevelCurve) Evaluate(totalXP int64) LevelState {
	if totalXP < 0 {
		totalXP = 0
	}
	xp := totalXP
	level := 1
	prestige := 0
	for {
		cost := c.CostForLevel(level)
		if xp < cost {
			return LevelState{
				PrestigeLevel:  prestige,
				Level:          level,
				CurrentLevelXP: xp,
				XPToNextLevel:  cost - xp,
			}
		}
		xp -= cost
		level++
		if level >= c.LevelCap {
			prestige++
			level = 1
		}
	}
}
