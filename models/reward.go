package models

import (
	"fmt"
	"time"
)

// RewardKind tags the finite set of things a reward can grant. Payloads are
// decoded and validated once at the catalog boundary instead of being passed
// around as untyped maps.
type RewardKind string

const (
	RewardKindXP       RewardKind = "xp"
	RewardKindCurrency RewardKind = "currency"
	RewardKindCosmetic RewardKind = "cosmetic"
	RewardKindItem     RewardKind = "item"
)

// RewardPayload is the tagged union over reward kinds. Exactly the fields for
// the tagged kind are meaningful; Validate enforces that shape.
type RewardPayload struct {
	Kind         RewardKind `json:"kind"`
	Amount       int64      `json:"amount,omitempty"`        // xp, currency
	CurrencyCode string     `json:"currency_code,omitempty"` // currency
	CosmeticRef  string     `json:"cosmetic_ref,omitempty"`  // cosmetic
	ItemRef      string     `json:"item_ref,omitempty"`      // item
}

// Validate checks the payload shape for its kind.
func (p RewardPayload) Validate() error {
	switch p.Kind {
	case RewardKindXP:
		if p.Amount <= 0 {
			return fmt.Errorf("xp reward requires a positive amount")
		}
	case RewardKindCurrency:
		if p.Amount <= 0 || p.CurrencyCode == "" {
			return fmt.Errorf("currency reward requires a positive amount and currency code")
		}
	case RewardKindCosmetic:
		if p.CosmeticRef == "" {
			return fmt.Errorf("cosmetic reward requires a cosmetic ref")
		}
	case RewardKindItem:
		if p.ItemRef == "" {
			return fmt.Errorf("item reward requires an item ref")
		}
	default:
		return fmt.Errorf("unknown reward kind %q", p.Kind)
	}
	return nil
}

// GrantSource identifies the claimable that produced a grant.
type GrantSource string

const (
	GrantSourceQuest      GrantSource = "quest"
	GrantSourceBattlePass GrantSource = "battle_pass"
	GrantSourceBadge      GrantSource = "badge"
	GrantSourceAdmin      GrantSource = "admin"
)

// RewardGrant records what was actually granted. Rows are immutable once
// created; the unique index doubles as the idempotency guard so retrying a
// claim can never grant twice.
type RewardGrant struct {
	ID             string          `gorm:"primaryKey;type:uuid;default:(gen_random_uuid())" json:"id"`
	ExternalUserID string          `gorm:"not null;index;uniqueIndex:idx_grant_source,priority:1" json:"external_user_id"`
	SourceKind     GrantSource     `gorm:"type:varchar(16);not null;uniqueIndex:idx_grant_source,priority:2" json:"source_kind"`
	SourceRef      string          `gorm:"not null;uniqueIndex:idx_grant_source,priority:3" json:"source_ref"` // user quest id, battle pass reward id, badge id
	Payloads       []RewardPayload `gorm:"serializer:json" json:"payloads"`
	GrantedAt      time.Time       `gorm:"autoCreateTime" json:"granted_at"`
}
