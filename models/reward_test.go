package models

import "testing"

func TestRewardPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload RewardPayload
		wantErr bool
	}{
		{"xp ok", RewardPayload{Kind: RewardKindXP, Amount: 100}, false},
		{"xp zero amount", RewardPayload{Kind: RewardKindXP}, true},
		{"xp negative amount", RewardPayload{Kind: RewardKindXP, Amount: -5}, true},
		{"currency ok", RewardPayload{Kind: RewardKindCurrency, Amount: 250, CurrencyCode: "coins"}, false},
		{"currency without code", RewardPayload{Kind: RewardKindCurrency, Amount: 250}, true},
		{"cosmetic ok", RewardPayload{Kind: RewardKindCosmetic, CosmeticRef: "frame-gold"}, false},
		{"cosmetic without ref", RewardPayload{Kind: RewardKindCosmetic}, true},
		{"item ok", RewardPayload{Kind: RewardKindItem, ItemRef: "crate-1"}, false},
		{"item without ref", RewardPayload{Kind: RewardKindItem}, true},
		{"unknown kind", RewardPayload{Kind: "loot"}, true},
		{"empty kind", RewardPayload{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestQuestStatusTerminal(t *testing.T) {
	terminal := map[QuestStatus]bool{
		QuestStatusActive:    false,
		QuestStatusCompleted: false,
		QuestStatusClaimed:   true,
		QuestStatusExpired:   true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestDefaultCatalogsHaveValidPayloads(t *testing.T) {
	for _, def := range DefaultQuestCatalog {
		for _, p := range def.BonusRewards {
			if err := p.Validate(); err != nil {
				t.Errorf("quest %s: invalid bonus payload: %v", def.Slug, err)
			}
		}
		if def.Target < 1 || def.XPReward < 0 {
			t.Errorf("quest %s: target=%d xp=%d", def.Slug, def.Target, def.XPReward)
		}
	}
	for _, def := range DefaultBadgeCatalog {
		if len(def.Criteria) == 0 {
			t.Errorf("badge %s: seeded without criteria is never grantable", def.Slug)
		}
	}
}
