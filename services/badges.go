package services

import (
	"errors"
	"log"
	"time"

	"progression-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BadgeService checks unlock criteria against a user's stats snapshot and
// grants each satisfied badge exactly once. Grants are never revoked.
type BadgeService struct {
	DB  *gorm.DB
	Bus *EventBus

	// SeasonSlug tags grants with the running season for display, when set.
	SeasonSlug func(now time.Time) string
}

func NewBadgeService(db *gorm.DB, bus *EventBus) *BadgeService {
	return &BadgeService{DB: db, Bus: bus}
}

// StatsSnapshot flattens the progression row into the counters badge
// criteria are written against.
func StatsSnapshot(prog *models.UserProgression) map[string]int64 {
	return map[string]int64{
		"matches_played":   prog.MatchesPlayed,
		"matches_won":      prog.MatchesWon,
		"quests_completed": prog.QuestsCompleted,
		"level":            int64(prog.Level),
		"prestige_level":   int64(prog.PrestigeLevel),
		"total_xp":         prog.TotalXP,
	}
}

// CriteriaMet reports whether every counter in the criteria map reaches its
// minimum. An empty criteria map never matches — definitions without
// criteria are granted manually, not by the evaluator.
func CriteriaMet(criteria, stats map[string]int64) bool {
	if len(criteria) == 0 {
		return false
	}
	for key, min := range criteria {
		if stats[key] < min {
			return false
		}
	}
	return true
}

// Evaluate grants every not-yet-earned badge whose criteria the user's
// current snapshot satisfies, returning the slugs granted this pass. The
// insert is keyed (user, badge), so concurrent evaluations cannot double
// grant: the loser's insert is a no-op.
func (s *BadgeService) Evaluate(externalUserID string) ([]string, error) {
	var prog models.UserProgression
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no stats yet, nothing can unlock
		}
		return nil, err
	}
	stats := StatsSnapshot(&prog)

	var defs []models.BadgeDefinition
	if err := s.DB.Find(&defs).Error; err != nil {
		return nil, err
	}

	earned, err := s.earnedSet(externalUserID)
	if err != nil {
		return nil, err
	}

	var granted []string
	for _, def := range defs {
		if earned[def.ID] || !CriteriaMet(def.Criteria, stats) {
			continue
		}
		ok, err := s.grant(externalUserID, def, stats)
		if err != nil {
			return granted, err
		}
		if ok {
			granted = append(granted, def.Slug)
		}
	}
	return granted, nil
}

// grant is the idempotent insert. Returns false when another evaluation won
// the race (or the badge was already there).
func (s *BadgeService) grant(externalUserID string, def models.BadgeDefinition, stats map[string]int64) (bool, error) {
	row := models.UserBadge{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		BadgeID:        def.ID,
		StatsSnapshot:  stats,
	}
	if s.SeasonSlug != nil {
		row.SeasonSlug = s.SeasonSlug(time.Now().UTC())
	}
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	log.Printf("🎖️ Badge unlocked: %s → %s", def.Slug, externalUserID)
	s.Bus.Publish(Event{
		Kind:   EventBadgeUnlocked,
		UserID: externalUserID,
		Payload: map[string]interface{}{
			"badge_slug": def.Slug,
			"rarity":     def.Rarity,
		},
	})
	return true, nil
}

func (s *BadgeService) earnedSet(externalUserID string) (map[string]bool, error) {
	var rows []models.UserBadge
	if err := s.DB.Where("external_user_id = ?", externalUserID).Find(&rows).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		set[r.BadgeID] = true
	}
	return set, nil
}

// UserBadges returns the user's grants with their definitions.
func (s *BadgeService) UserBadges(externalUserID string) ([]models.UserBadge, error) {
	var rows []models.UserBadge
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Preload("Badge").
		Order("earned_at DESC").
		Find(&rows).Error
	return rows, err
}

// Catalog lists definitions for display. Secret badges are withheld unless
// the user has already earned them; they still unlock through the normal
// grant path.
func (s *BadgeService) Catalog(externalUserID string) ([]models.BadgeDefinition, error) {
	var defs []models.BadgeDefinition
	if err := s.DB.Order("created_at ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	earned := map[string]bool{}
	if externalUserID != "" {
		var err error
		earned, err = s.earnedSet(externalUserID)
		if err != nil {
			return nil, err
		}
	}
	out := defs[:0]
	for _, def := range defs {
		if def.IsSecret && !earned[def.ID] {
			continue
		}
		out = append(out, def)
	}
	return out, nil
}

// BadgeProgress is one entry of the "toward" display.
type BadgeProgress struct {
	Badge    models.BadgeDefinition `json:"badge"`
	Criteria map[string]int64       `json:"criteria"`
	Current  map[string]int64       `json:"current"`
	Earned   bool                   `json:"earned"`
}

// ProgressToward lists non-secret definitions with the user's current
// counters next to each criterion.
func (s *BadgeService) ProgressToward(externalUserID string) ([]BadgeProgress, error) {
	var prog models.UserProgression
	stats := map[string]int64{}
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err == nil {
		stats = StatsSnapshot(&prog)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var defs []models.BadgeDefinition
	if err := s.DB.Where("is_secret = ?", false).Order("created_at ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	earned, err := s.earnedSet(externalUserID)
	if err != nil {
		return nil, err
	}

	out := make([]BadgeProgress, 0, len(defs))
	for _, def := range defs {
		entry := BadgeProgress{
			Badge:    def,
			Criteria: def.Criteria,
			Current:  map[string]int64{},
			Earned:   earned[def.ID],
		}
		for key := range def.Criteria {
			entry.Current[key] = stats[key]
		}
		out = append(out, entry)
	}
	return out, nil
}
