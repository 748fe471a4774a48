package models

import (
	"time"
)

// LeaderboardEntry is a derived, read-time projection — it is never written
// back onto UserProgression. Rank is positional within the requested scope.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	ExternalUserID string `json:"user_id"`
	Username       string `json:"username,omitempty"`
	TotalXP        int64  `json:"total_xp"`
	Level          int    `json:"level"`
	PrestigeLevel  int    `json:"prestige_level"`
}

// LeaderboardSnapshot caches one precomputed global top-N page. The refresh
// job rewrites it wholesale; reads fall back to live computation when stale.
type LeaderboardSnapshot struct {
	ID          string             `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	Scope       string             `gorm:"uniqueIndex;not null" json:"scope"` // only "global" is materialized
	Entries     []LeaderboardEntry `gorm:"serializer:json" json:"entries"`
	RefreshedAt time.Time          `gorm:"not null" json:"refreshed_at"`
}
