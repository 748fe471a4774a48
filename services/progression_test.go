package services

import (
	"errors"
	"sync"
	"testing"

	"progression-engine/models"

	"github.com/google/uuid"
)

func TestEnsureProgressionRecord_Idempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, DefaultLevelCurve, NewEventBus())

	first, err := svc.EnsureProgressionRecord("user-1")
	if err != nil {
		t.Fatalf("EnsureProgressionRecord: %v", err)
	}
	if first.Level != 1 || first.TotalXP != 0 || first.XPToNextLevel != 1000 {
		t.Errorf("fresh record = %+v", first)
	}

	second, err := svc.EnsureProgressionRecord("user-1")
	if err != nil {
		t.Fatalf("EnsureProgressionRecord again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created a new row: %s vs %s", second.ID, first.ID)
	}
}

func TestApplyXPDelta_RejectsNegative(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, DefaultLevelCurve, NewEventBus())

	_, err := svc.ApplyXPDelta("user-1", -50, "match_result")
	if !errors.Is(err, ErrInvalidDelta) {
		t.Errorf("err = %v, want ErrInvalidDelta", err)
	}
}

func TestApplyXPDelta_LevelsUpAcrossBoundary(t *testing.T) {
	db := newTestDB(t)
	bus := NewEventBus()
	svc := NewProgressionService(db, DefaultLevelCurve, bus)

	if _, err := svc.ApplyXPDelta("user-1", 950, "match_result"); err != nil {
		t.Fatalf("first delta: %v", err)
	}
	events, cancel := bus.Subscribe("user-1")
	defer cancel()

	prog, err := svc.ApplyXPDelta("user-1", 100, "match_result")
	if err != nil {
		t.Fatalf("second delta: %v", err)
	}
	if prog.TotalXP != 1050 || prog.Level != 2 || prog.CurrentLevelXP != 50 {
		t.Errorf("progression = total %d level %d in-level %d, want 1050/2/50",
			prog.TotalXP, prog.Level, prog.CurrentLevelXP)
	}
	if prog.LastLevelUpAt == nil {
		t.Errorf("LastLevelUpAt not stamped on level-up")
	}

	select {
	case ev := <-events:
		if ev.Kind != EventLevelUp {
			t.Errorf("event kind = %s, want %s", ev.Kind, EventLevelUp)
		}
	default:
		t.Errorf("no level_up event published")
	}
}

func TestApplyXPDelta_WritesLedger(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, DefaultLevelCurve, NewEventBus())

	if _, err := svc.ApplyXPDelta("user-1", 300, "quest:daily-win-1"); err != nil {
		t.Fatalf("ApplyXPDelta: %v", err)
	}
	var tx models.XPTransaction
	if err := db.First(&tx, "external_user_id = ?", "user-1").Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if tx.Amount != 300 || tx.Source != "quest:daily-win-1" || tx.TotalAfter != 300 || tx.LevelAfter != 1 {
		t.Errorf("ledger row = %+v", tx)
	}
}

func TestApplyXPDelta_PrestigeRollover(t *testing.T) {
	db := newTestDB(t)
	bus := NewEventBus()
	svc := NewProgressionService(db, DefaultLevelCurve, bus)

	// One level short of the cap, then cross it.
	if _, err := svc.ApplyXPDelta("user-1", 98*1000, "grind"); err != nil {
		t.Fatalf("first delta: %v", err)
	}
	prog, err := svc.ApplyXPDelta("user-1", 1000, "grind")
	if err != nil {
		t.Fatalf("rollover delta: %v", err)
	}

	if prog.PrestigeLevel != 1 || prog.Level != 1 {
		t.Errorf("after rollover: prestige %d level %d, want 1/1", prog.PrestigeLevel, prog.Level)
	}
	if prog.TotalXP != 99000 {
		t.Errorf("TotalXP = %d, want the lifetime total untouched by the reset", prog.TotalXP)
	}
	if prog.LastPrestigeUpAt == nil {
		t.Errorf("LastPrestigeUpAt not stamped")
	}

	var markers int64
	db.Model(&models.XPTransaction{}).
		Where("external_user_id = ? AND source = ?", "user-1", "prestige").
		Count(&markers)
	if markers != 1 {
		t.Errorf("prestige ledger markers = %d, want 1", markers)
	}
}

func TestApplyXPDelta_ConcurrentDeltasAllLand(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, DefaultLevelCurve, NewEventBus())
	if _, err := svc.EnsureProgressionRecord("user-1"); err != nil {
		t.Fatalf("ensure record: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ApplyXPDelta("user-1", 100, "match_result"); err != nil {
				t.Errorf("ApplyXPDelta: %v", err)
			}
		}()
	}
	wg.Wait()

	prog, err := svc.GetProgression("user-1")
	if err != nil {
		t.Fatalf("GetProgression: %v", err)
	}
	if prog.TotalXP != writers*100 {
		t.Errorf("TotalXP = %d, want %d (no lost increments)", prog.TotalXP, writers*100)
	}
	state := DefaultLevelCurve.Evaluate(prog.TotalXP)
	if prog.Level != state.Level || prog.CurrentLevelXP != state.CurrentLevelXP {
		t.Errorf("derived columns diverged from curve: row %d/%d, curve %d/%d",
			prog.Level, prog.CurrentLevelXP, state.Level, state.CurrentLevelXP)
	}
}

func TestRecordStat_MapsMetricsToCounters(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, DefaultLevelCurve, NewEventBus())

	if err := svc.RecordStat("user-1", "match_played", 3); err != nil {
		t.Fatalf("RecordStat: %v", err)
	}
	if err := svc.RecordStat("user-1", "match_won", 1); err != nil {
		t.Fatalf("RecordStat: %v", err)
	}
	if err := svc.RecordStat("user-1", "teabags_performed", 40); err != nil {
		t.Fatalf("RecordStat unknown metric: %v", err)
	}

	prog, _ := svc.GetProgression("user-1")
	if prog.MatchesPlayed != 3 || prog.MatchesWon != 1 {
		t.Errorf("counters = played %d won %d, want 3/1", prog.MatchesPlayed, prog.MatchesWon)
	}
}

func TestSetShowcaseBadges(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, DefaultLevelCurve, NewEventBus())

	def := models.BadgeDefinition{ID: uuid.NewString(), Slug: "first-win", Name: "First Blood"}
	if err := db.Create(&def).Error; err != nil {
		t.Fatalf("seed def: %v", err)
	}
	if err := db.Create(&models.UserBadge{
		ID: uuid.NewString(), ExternalUserID: "user-1", BadgeID: def.ID,
	}).Error; err != nil {
		t.Fatalf("seed grant: %v", err)
	}

	prog, err := svc.SetShowcaseBadges("user-1", []string{def.ID})
	if err != nil {
		t.Fatalf("SetShowcaseBadges: %v", err)
	}
	if len(prog.ShowcaseBadgeIDs) != 1 || prog.ShowcaseBadgeIDs[0] != def.ID {
		t.Errorf("showcase = %v", prog.ShowcaseBadgeIDs)
	}

	if _, err := svc.SetShowcaseBadges("user-1", []string{uuid.NewString()}); !errors.Is(err, ErrNotEligible) {
		t.Errorf("unearned badge err = %v, want ErrNotEligible", err)
	}

	tooMany := make([]string, models.MaxShowcaseBadges+1)
	for i := range tooMany {
		tooMany[i] = uuid.NewString()
	}
	if _, err := svc.SetShowcaseBadges("user-1", tooMany); !errors.Is(err, ErrNotEligible) {
		t.Errorf("over-cap err = %v, want ErrNotEligible", err)
	}
}

func TestXPHistory_NewestFirstPaginated(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db, DefaultLevelCurve, NewEventBus())

	for i := 0; i < 5; i++ {
		if _, err := svc.ApplyXPDelta("user-1", 10, "match_result"); err != nil {
			t.Fatalf("seed delta %d: %v", i, err)
		}
	}

	page, total, err := svc.XPHistory("user-1", 1, 3)
	if err != nil {
		t.Fatalf("XPHistory: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 3 {
		t.Errorf("page size = %d, want 3", len(page))
	}

	rest, _, err := svc.XPHistory("user-1", 2, 3)
	if err != nil {
		t.Fatalf("XPHistory page 2: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("page 2 size = %d, want 2", len(rest))
	}
}
