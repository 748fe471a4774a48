package services

import (
	"testing"

	"progression-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- CriteriaMet ---

func TestCriteriaMet(t *testing.T) {
	tests := []struct {
		name     string
		criteria map[string]int64
		stats    map[string]int64
		want     bool
	}{
		{"single satisfied", map[string]int64{"matches_won": 10}, map[string]int64{"matches_won": 10}, true},
		{"single below", map[string]int64{"matches_won": 10}, map[string]int64{"matches_won": 9}, false},
		{"all must hold", map[string]int64{"matches_won": 5, "level": 10}, map[string]int64{"matches_won": 20, "level": 9}, false},
		{"missing counter reads as zero", map[string]int64{"prestige_level": 1}, map[string]int64{}, false},
		{"empty criteria never match", map[string]int64{}, map[string]int64{"matches_won": 999}, false},
		{"nil criteria never match", nil, map[string]int64{"matches_won": 999}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CriteriaMet(tc.criteria, tc.stats); got != tc.want {
				t.Errorf("CriteriaMet = %v, want %v", got, tc.want)
			}
		})
	}
}

// --- Evaluate ---

func seedBadgeFixture(t *testing.T, db *gorm.DB) (*BadgeService, models.BadgeDefinition) {
	t.Helper()
	svc := NewBadgeService(db, NewEventBus())
	def := models.BadgeDefinition{
		ID: uuid.NewString(), Slug: "ten-wins", Name: "Veteran",
		Rarity: "rare", Criteria: map[string]int64{"matches_won": 10},
	}
	if err := db.Create(&def).Error; err != nil {
		t.Fatalf("seed badge: %v", err)
	}
	return svc, def
}

func seedProgression(t *testing.T, db *gorm.DB, userID string, wins int64) {
	t.Helper()
	prog := models.UserProgression{
		ID: uuid.NewString(), ExternalUserID: userID,
		Level: 1, MatchesWon: wins,
	}
	if err := db.Create(&prog).Error; err != nil {
		t.Fatalf("seed progression: %v", err)
	}
}

func TestEvaluate_GrantsWhenCriteriaMet(t *testing.T) {
	db := newTestDB(t)
	svc, def := seedBadgeFixture(t, db)
	seedProgression(t, db, "user-1", 12)

	granted, err := svc.Evaluate("user-1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(granted) != 1 || granted[0] != "ten-wins" {
		t.Fatalf("granted = %v, want [ten-wins]", granted)
	}

	var row models.UserBadge
	if err := db.First(&row, "external_user_id = ? AND badge_id = ?", "user-1", def.ID).Error; err != nil {
		t.Fatalf("load grant: %v", err)
	}
	if row.StatsSnapshot["matches_won"] != 12 {
		t.Errorf("snapshot matches_won = %d, want 12", row.StatsSnapshot["matches_won"])
	}
}

func TestEvaluate_SecondPassGrantsNothing(t *testing.T) {
	db := newTestDB(t)
	svc, _ := seedBadgeFixture(t, db)
	seedProgression(t, db, "user-1", 12)

	if _, err := svc.Evaluate("user-1"); err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	granted, err := svc.Evaluate("user-1")
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if len(granted) != 0 {
		t.Errorf("second pass granted %v, want nothing", granted)
	}

	var count int64
	db.Model(&models.UserBadge{}).Where("external_user_id = ?", "user-1").Count(&count)
	if count != 1 {
		t.Errorf("grant rows = %d, want 1", count)
	}
}

func TestEvaluate_BelowCriteriaGrantsNothing(t *testing.T) {
	db := newTestDB(t)
	svc, _ := seedBadgeFixture(t, db)
	seedProgression(t, db, "user-1", 9)

	granted, err := svc.Evaluate("user-1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(granted) != 0 {
		t.Errorf("granted = %v, want nothing below criteria", granted)
	}
}

func TestEvaluate_NoProgressionRecordIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc, _ := seedBadgeFixture(t, db)

	granted, err := svc.Evaluate("ghost-user")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if granted != nil {
		t.Errorf("granted = %v, want nil for unknown user", granted)
	}
}

// --- Catalog ---

func TestCatalog_WithholdsUnearnedSecrets(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db, NewEventBus())

	open := models.BadgeDefinition{
		ID: uuid.NewString(), Slug: "first-win", Name: "First Blood",
		Criteria: map[string]int64{"matches_won": 1},
	}
	secret := models.BadgeDefinition{
		ID: uuid.NewString(), Slug: "night-owl", Name: "Night Owl",
		IsSecret: true, Criteria: map[string]int64{"matches_played": 100},
	}
	for _, def := range []*models.BadgeDefinition{&open, &secret} {
		if err := db.Create(def).Error; err != nil {
			t.Fatalf("seed def: %v", err)
		}
	}

	anon, err := svc.Catalog("")
	if err != nil {
		t.Fatalf("Catalog anonymous: %v", err)
	}
	if len(anon) != 1 || anon[0].Slug != "first-win" {
		t.Errorf("anonymous catalog = %d entries, want only first-win", len(anon))
	}

	// Earning the secret badge reveals it for that user only.
	if err := db.Create(&models.UserBadge{
		ID: uuid.NewString(), ExternalUserID: "user-1", BadgeID: secret.ID,
	}).Error; err != nil {
		t.Fatalf("seed grant: %v", err)
	}
	mine, err := svc.Catalog("user-1")
	if err != nil {
		t.Fatalf("Catalog user-1: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("earned-secret catalog = %d entries, want 2", len(mine))
	}
	other, err := svc.Catalog("user-2")
	if err != nil {
		t.Fatalf("Catalog user-2: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("other user catalog = %d entries, want 1", len(other))
	}
}

func TestProgressToward_ExcludesSecrets(t *testing.T) {
	db := newTestDB(t)
	svc := NewBadgeService(db, NewEventBus())
	seedProgression(t, db, "user-1", 4)

	defs := []models.BadgeDefinition{
		{ID: uuid.NewString(), Slug: "ten-wins", Name: "Veteran", Criteria: map[string]int64{"matches_won": 10}},
		{ID: uuid.NewString(), Slug: "night-owl", Name: "Night Owl", IsSecret: true, Criteria: map[string]int64{"matches_played": 100}},
	}
	for i := range defs {
		if err := db.Create(&defs[i]).Error; err != nil {
			t.Fatalf("seed def: %v", err)
		}
	}

	progress, err := svc.ProgressToward("user-1")
	if err != nil {
		t.Fatalf("ProgressToward: %v", err)
	}
	if len(progress) != 1 {
		t.Fatalf("entries = %d, want 1 (secret excluded)", len(progress))
	}
	entry := progress[0]
	if entry.Badge.Slug != "ten-wins" || entry.Earned {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Current["matches_won"] != 4 {
		t.Errorf("current matches_won = %d, want 4", entry.Current["matches_won"])
	}
}
