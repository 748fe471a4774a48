package models

import (
	"time"
)

// SeasonStatus is the publishing lifecycle of a battle pass season.
// The season scheduler moves scheduled → active → ended on the boundaries.
type SeasonStatus string

const (
	SeasonStatusDraft     SeasonStatus = "draft"
	SeasonStatusScheduled SeasonStatus = "scheduled"
	SeasonStatusActive    SeasonStatus = "active"
	SeasonStatusEnded     SeasonStatus = "ended"
)

// BattlePassTier splits the reward track into the free and the paid lane.
type BattlePassTier string

const (
	TierFree    BattlePassTier = "free"
	TierPremium BattlePassTier = "premium"
)

// BattlePass is one season of the reward track. Immutable while active.
type BattlePass struct {
	ID         string       `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	Slug       string       `gorm:"uniqueIndex;not null" json:"slug"` // e.g. "season-3"
	Name       string       `gorm:"not null" json:"name"`
	Status     SeasonStatus `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	StartsAt   time.Time    `gorm:"not null" json:"starts_at"`
	EndsAt     time.Time    `gorm:"not null" json:"ends_at"`
	XPPerLevel int64        `gorm:"not null;default:1000" json:"xp_per_level"`
	MaxLevel   int          `gorm:"not null;default:50" json:"max_level"`

	Rewards []BattlePassReward `gorm:"foreignKey:BattlePassID" json:"rewards,omitempty"`

	Timestamps
}

// BattlePassReward is one claimable entry on the track, keyed (level, tier).
type BattlePassReward struct {
	ID           string         `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	BattlePassID string         `gorm:"not null;index;uniqueIndex:idx_bp_level_tier,priority:1" json:"battle_pass_id"`
	Level        int            `gorm:"not null;uniqueIndex:idx_bp_level_tier,priority:2" json:"level"`
	Tier         BattlePassTier `gorm:"type:varchar(8);not null;uniqueIndex:idx_bp_level_tier,priority:3" json:"tier"`
	Title        string         `gorm:"not null" json:"title"`
	ArtURL       string         `gorm:"type:text" json:"art_url"`
	Payload      RewardPayload  `gorm:"serializer:json" json:"payload"`

	Timestamps
}

// BattlePassProgress is a user's enrollment in one season. CurrentXP is
// season-local and distinct from account XP.
type BattlePassProgress struct {
	ID             string `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_bp_enrollment,priority:1" json:"external_user_id"`
	BattlePassID   string `gorm:"not null;index;uniqueIndex:idx_bp_enrollment,priority:2" json:"battle_pass_id"`
	IsPremium      bool   `gorm:"default:false" json:"is_premium"`
	CurrentLevel   int    `gorm:"default:1" json:"current_level"`
	CurrentXP      int64  `gorm:"default:0" json:"current_xp"` // season-local, lifetime within the season

	Timestamps
}

// BattlePassRewardClaim is the membership row of the claimed-rewards set.
// The unique index is the write-time guard: a reward id can join the set at
// most once per enrollment, no matter how many clients race.
type BattlePassRewardClaim struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	ProgressID string    `gorm:"not null;index;uniqueIndex:idx_bp_claim,priority:1" json:"progress_id"`
	RewardID   string    `gorm:"not null;uniqueIndex:idx_bp_claim,priority:2" json:"reward_id"`
	ClaimedAt  time.Time `gorm:"autoCreateTime" json:"claimed_at"`
}
