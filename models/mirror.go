package models

import (
	"time"

	"gorm.io/gorm"
)

// EntitlementMirror mirrors premium entitlement data from the wallet service.
// The engine only reads the tier flag — it never moves money.
type EntitlementMirror struct {
	ID                 string     `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalUserID     string     `gorm:"not null;uniqueIndex" json:"external_user_id"`
	IsPremium          bool       `gorm:"not null" json:"is_premium"`
	PremiumSince       *time.Time `json:"premium_since,omitempty"`
	PremiumExpiresAt   *time.Time `json:"premium_expires_at,omitempty"`
	LastEntitlementSeen time.Time `gorm:"not null" json:"last_entitlement_seen"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProfileMirror mirrors the profile service fields the engine needs for
// leaderboard scopes and admin search.
type ProfileMirror struct {
	ID             string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex" json:"external_user_id"`
	Username       string    `gorm:"index" json:"username"`
	Region         string    `gorm:"type:varchar(8);index" json:"region"` // e.g. "eu", "na", "apac"
	AvatarURL      string    `gorm:"type:text" json:"avatar_url,omitempty"`
	AccountStatus  string    `json:"account_status"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FriendEdge mirrors one accepted friendship from the social service.
// Edges are stored directed; the sync worker writes both directions.
type FriendEdge struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_friend_edge,priority:1" json:"external_user_id"`
	FriendUserID   string    `gorm:"not null;uniqueIndex:idx_friend_edge,priority:2" json:"friend_user_id"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}
