package models

import (
	"time"
)

// BadgeDefinition: static catalog (seeded at boot, extended by admins).
type BadgeDefinition struct {
	ID          string           `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	Slug        string           `gorm:"uniqueIndex;not null" json:"slug"` // e.g. "first-win"
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	IconURL     string           `gorm:"type:text" json:"icon_url"` // R2 URL
	Rarity      string           `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	IsSecret    bool             `gorm:"default:false" json:"is_secret"`
	Criteria    map[string]int64 `gorm:"serializer:json" json:"criteria"` // e.g. {"matches_won": 10}
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge: a grant record. Once created it is never revoked; the unique
// index makes the grant an idempotent insert keyed (user, badge).
type UserBadge struct {
	ID             string           `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	ExternalUserID string           `gorm:"not null;index;uniqueIndex:idx_user_badge,priority:1" json:"external_user_id"`
	BadgeID        string           `gorm:"not null;uniqueIndex:idx_user_badge,priority:2" json:"badge_id"`
	EarnedAt       time.Time        `gorm:"autoCreateTime" json:"earned_at"`
	SeasonSlug     string           `json:"season_slug,omitempty"`
	StatsSnapshot  map[string]int64 `gorm:"serializer:json" json:"stats_snapshot,omitempty"`

	Badge *BadgeDefinition `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}

// DefaultBadgeCatalog seeds the definition table on first boot.
var DefaultBadgeCatalog = []BadgeDefinition{
	{
		Slug:        "first-match",
		Name:        "First Steps",
		Description: "Played your first match",
		Rarity:      "common",
		Criteria:    map[string]int64{"matches_played": 1},
	},
	{
		Slug:        "first-win",
		Name:        "First Blood",
		Description: "Won your first match",
		Rarity:      "common",
		Criteria:    map[string]int64{"matches_won": 1},
	},
	{
		Slug:        "centurion",
		Name:        "Centurion",
		Description: "Played 100 matches",
		Rarity:      "rare",
		Criteria:    map[string]int64{"matches_played": 100},
	},
	{
		Slug:        "quest-machine",
		Name:        "Quest Machine",
		Description: "Completed 50 quests",
		Rarity:      "rare",
		Criteria:    map[string]int64{"quests_completed": 50},
	},
	{
		Slug:        "level-25",
		Name:        "Veteran",
		Description: "Reached level 25",
		Rarity:      "epic",
		Criteria:    map[string]int64{"level": 25},
	},
	{
		Slug:        "prestige-1",
		Name:        "Reborn",
		Description: "Prestiged for the first time",
		Rarity:      "legendary",
		Criteria:    map[string]int64{"prestige_level": 1},
	},
	{
		Slug:        "night-owl",
		Name:        "Night Owl",
		Description: "???",
		Rarity:      "epic",
		IsSecret:    true,
		Criteria:    map[string]int64{"matches_won": 500},
	},
}
