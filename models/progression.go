package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgression is the authoritative per-user progression record
// (denormalized for performance). Level, prestige and the in-level XP split
// are derived from TotalXP by the leveling curve and are never written
// independently of it.
type UserProgression struct {
	ID             string `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core progression. TotalXP is lifetime XP and only ever grows.
	TotalXP        int64 `json:"total_xp" gorm:"default:0"`
	Level          int   `json:"level" gorm:"default:1"`
	PrestigeLevel  int   `json:"prestige_level" gorm:"default:0"`
	CurrentLevelXP int64 `json:"current_level_xp" gorm:"default:0"`
	XPToNextLevel  int64 `json:"xp_to_next_level" gorm:"default:0"`

	// Equipped cosmetics — opaque references, ownership is validated by the
	// inventory service, not here.
	EquippedTitle string `json:"equipped_title,omitempty"`
	EquippedFrame string `json:"equipped_frame,omitempty"`
	EquippedTheme string `json:"equipped_theme,omitempty"`

	// Showcase badges displayed on the profile, capped at MaxShowcaseBadges.
	ShowcaseBadgeIDs []string `json:"showcase_badge_ids" gorm:"serializer:json"`

	// Activity counters consumed by the badge evaluator.
	MatchesPlayed   int64 `json:"matches_played" gorm:"default:0"`
	MatchesWon      int64 `json:"matches_won" gorm:"default:0"`
	QuestsCompleted int64 `json:"quests_completed" gorm:"default:0"`

	// Milestones
	LastLevelUpAt    *time.Time `json:"last_level_up_at,omitempty"`
	LastPrestigeUpAt *time.Time `json:"last_prestige_up_at,omitempty"`

	Timestamps
}

// MaxShowcaseBadges bounds the showcase list on the profile.
const MaxShowcaseBadges = 5

// XPTransaction is the immutable XP ledger. One row per applied delta and
// one marker row per prestige rollover so resets stay auditable.
type XPTransaction struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	Amount         int64     `json:"amount"`
	Source         string    `gorm:"not null" json:"source"` // e.g. "match_result", "quest:daily-win-3", "prestige"
	TotalAfter     int64     `json:"total_after"`
	LevelAfter     int       `json:"level_after"`
	PrestigeAfter  int       `json:"prestige_after"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
