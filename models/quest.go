package models

import (
	"time"
)

// QuestPeriod is the recurrence class of a quest definition.
type QuestPeriod string

const (
	QuestPeriodDaily   QuestPeriod = "daily"
	QuestPeriodWeekly  QuestPeriod = "weekly"
	QuestPeriodSpecial QuestPeriod = "special"
)

// QuestStatus is the lifecycle state of a single assignment. Transitions
// only move forward: active → completed → claimed, or active/completed →
// expired. Claimed and expired are terminal.
type QuestStatus string

const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusExpired   QuestStatus = "expired"
	QuestStatusClaimed   QuestStatus = "claimed"
)

// QuestDefinition is an immutable catalog entry. Progress events are matched
// by Metric (and GameID when scoped), and the assignment completes once the
// accumulated count reaches Target.
type QuestDefinition struct {
	ID           string          `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	Slug         string          `gorm:"uniqueIndex;not null" json:"slug"` // e.g. "daily-win-3"
	Title        string          `gorm:"not null" json:"title"`
	Description  string          `json:"description"`
	Period       QuestPeriod     `gorm:"type:varchar(16);not null;index" json:"period"`
	Metric       string          `gorm:"not null" json:"metric"` // e.g. "match_won", "match_played"
	Target       int64           `gorm:"not null" json:"target"`
	GameID       string          `gorm:"index" json:"game_id,omitempty"` // empty = any game
	XPReward     int64           `gorm:"not null" json:"xp_reward"`
	BonusRewards []RewardPayload `gorm:"serializer:json" json:"bonus_rewards,omitempty"`
	Active       bool            `gorm:"default:true;index" json:"active"`

	Timestamps
}

// UserQuest is one assignment of a definition to a user for a single period
// instance. PeriodKey disambiguates successive daily/weekly cycles so history
// is never overwritten; the unique index makes concurrent assignment across
// devices collapse into one row.
type UserQuest struct {
	ID             string      `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	ExternalUserID string      `gorm:"not null;index;uniqueIndex:idx_user_quest_period,priority:1" json:"external_user_id"`
	QuestID        string      `gorm:"not null;uniqueIndex:idx_user_quest_period,priority:2" json:"quest_id"`
	PeriodKey      string      `gorm:"not null;index;uniqueIndex:idx_user_quest_period,priority:3" json:"period_key"` // "2026-08-28" or "2026-W35"
	Progress       int64       `gorm:"default:0" json:"progress"`
	Target         int64       `gorm:"not null" json:"target"`
	Status         QuestStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	AssignedAt     time.Time   `gorm:"not null" json:"assigned_at"`
	ExpiresAt      time.Time   `gorm:"not null;index" json:"expires_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	ClaimedAt      *time.Time  `json:"claimed_at,omitempty"`

	Quest *QuestDefinition `gorm:"foreignKey:QuestID" json:"quest,omitempty"`

	Timestamps
}

// Terminal reports whether the status can never change again.
func (s QuestStatus) Terminal() bool {
	return s == QuestStatusClaimed || s == QuestStatusExpired
}

// DefaultQuestCatalog seeds the definition table on first boot.
var DefaultQuestCatalog = []QuestDefinition{
	{
		Slug:        "daily-play-1",
		Title:       "Warm Up",
		Description: "Play a match today",
		Period:      QuestPeriodDaily,
		Metric:      "match_played",
		Target:      1,
		XPReward:    50,
	},
	{
		Slug:        "daily-play-3",
		Title:       "On a Roll",
		Description: "Play 3 matches today",
		Period:      QuestPeriodDaily,
		Metric:      "match_played",
		Target:      3,
		XPReward:    100,
	},
	{
		Slug:        "daily-win-1",
		Title:       "First Blood",
		Description: "Win a match today",
		Period:      QuestPeriodDaily,
		Metric:      "match_won",
		Target:      1,
		XPReward:    150,
	},
	{
		Slug:        "daily-social",
		Title:       "Squad Up",
		Description: "Play a match in a party",
		Period:      QuestPeriodDaily,
		Metric:      "party_match_played",
		Target:      1,
		XPReward:    75,
	},
	{
		Slug:        "weekly-win-10",
		Title:       "Dominator",
		Description: "Win 10 matches this week",
		Period:      QuestPeriodWeekly,
		Metric:      "match_won",
		Target:      10,
		XPReward:    500,
		BonusRewards: []RewardPayload{
			{Kind: RewardKindCurrency, Amount: 250, CurrencyCode: "coins"},
		},
	},
	{
		Slug:        "weekly-play-20",
		Title:       "Grinder",
		Description: "Play 20 matches this week",
		Period:      QuestPeriodWeekly,
		Metric:      "match_played",
		Target:      20,
		XPReward:    400,
	},
	{
		Slug:        "weekly-reach-level",
		Title:       "Climbing",
		Description: "Level up twice this week",
		Period:      QuestPeriodWeekly,
		Metric:      "level_up",
		Target:      2,
		XPReward:    300,
	},
}
