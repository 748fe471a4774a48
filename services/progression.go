package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"progression-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressionService owns the authoritative level/XP/prestige record.
// All XP flows through ApplyXPDelta; the derived columns are recomputed from
// the curve inside the same transaction, never written independently.
type ProgressionService struct {
	DB    *gorm.DB
	Curve LevelCurve
	Bus   *EventBus

	// Badges is re-evaluated after every XP change (fire-and-forget, like a
	// stat counter bump). OnLevelUp feeds level-target quests; wired in main.
	Badges    *BadgeService
	OnLevelUp func(externalUserID string, levelsGained int)
}

func NewProgressionService(db *gorm.DB, curve LevelCurve, bus *EventBus) *ProgressionService {
	return &ProgressionService{DB: db, Curve: curve, Bus: bus}
}

// EnsureProgressionRecord ensures a UserProgression row exists (idempotent).
func (s *ProgressionService) EnsureProgressionRecord(externalUserID string) (*models.UserProgression, error) {
	var prog models.UserProgression
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state := s.Curve.Evaluate(0)
		prog = models.UserProgression{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			TotalXP:        0,
			Level:          state.Level,
			PrestigeLevel:  state.PrestigeLevel,
			CurrentLevelXP: state.CurrentLevelXP,
			XPToNextLevel:  state.XPToNextLevel,
		}
		if err := s.DB.Create(&prog).Error; err != nil {
			// Lost a concurrent-create race — the other writer's row wins.
			if rerr := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; rerr != nil {
				return nil, err
			}
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// GetProgression returns the user's record, creating it on first contact.
func (s *ProgressionService) GetProgression(externalUserID string) (*models.UserProgression, error) {
	return s.EnsureProgressionRecord(externalUserID)
}

// ApplyXPDelta atomically adds amount to the lifetime total and rewrites the
// derived level columns from the curve. The increment is a single
// `total_xp = total_xp + ?` update, so concurrent deltas from two devices
// both land; the derived columns converge because they are pure functions of
// the total. Negative deltas are an upstream integration bug and rejected.
func (s *ProgressionService) ApplyXPDelta(externalUserID string, amount int64, source string) (*models.UserProgression, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: %d from %s", ErrInvalidDelta, amount, source)
	}
	if _, err := s.EnsureProgressionRecord(externalUserID); err != nil {
		return nil, err
	}

	var updated *models.UserProgression
	var oldState, newState LevelState
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		updated, oldState, newState, err = s.applyDelta(tx, externalUserID, amount, source)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎮 XP applied: %s +%d → total=%d lvl=%d prestige=%d (source: %s)",
		externalUserID, amount, updated.TotalXP, updated.Level, updated.PrestigeLevel, source)

	s.afterXPChange(externalUserID, oldState, newState)
	return updated, nil
}

// applyDelta is the transactional core of ApplyXPDelta. It must run inside
// tx and assumes the progression row already exists; callers composing it
// into a larger transaction (the claim path) call EnsureProgressionRecord
// before opening the transaction and afterXPChange after it commits.
func (s *ProgressionService) applyDelta(tx *gorm.DB, externalUserID string, amount int64, source string) (*models.UserProgression, LevelState, LevelState, error) {
	var none LevelState
	if amount < 0 {
		return nil, none, none, fmt.Errorf("%w: %d from %s", ErrInvalidDelta, amount, source)
	}

	if err := tx.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn("total_xp", gorm.Expr("total_xp + ?", amount)).Error; err != nil {
		return nil, none, none, err
	}

	var prog models.UserProgression
	if err := tx.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return nil, none, none, err
	}

	oldState := s.Curve.Evaluate(prog.TotalXP - amount)
	newState := s.Curve.Evaluate(prog.TotalXP)

	cols := map[string]interface{}{
		"level":            newState.Level,
		"prestige_level":   newState.PrestigeLevel,
		"current_level_xp": newState.CurrentLevelXP,
		"xp_to_next_level": newState.XPToNextLevel,
	}
	now := time.Now().UTC()
	if levelAdvanced(oldState, newState) {
		cols["last_level_up_at"] = &now
	}
	if newState.PrestigeLevel > oldState.PrestigeLevel {
		cols["last_prestige_up_at"] = &now
	}
	if err := tx.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumns(cols).Error; err != nil {
		return nil, none, none, err
	}

	ledger := models.XPTransaction{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Amount:         amount,
		Source:         source,
		TotalAfter:     prog.TotalXP,
		LevelAfter:     newState.Level,
		PrestigeAfter:  newState.PrestigeLevel,
	}
	if err := tx.Create(&ledger).Error; err != nil {
		return nil, none, none, err
	}
	// The prestige reset gets its own ledger marker so the level/XP reset is
	// auditable rather than inferred.
	if newState.PrestigeLevel > oldState.PrestigeLevel {
		marker := models.XPTransaction{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Amount:         0,
			Source:         "prestige",
			TotalAfter:     prog.TotalXP,
			LevelAfter:     newState.Level,
			PrestigeAfter:  newState.PrestigeLevel,
		}
		if err := tx.Create(&marker).Error; err != nil {
			return nil, none, none, err
		}
	}

	var updated models.UserProgression
	if err := tx.Where("external_user_id = ?", externalUserID).First(&updated).Error; err != nil {
		return nil, none, none, err
	}
	return &updated, oldState, newState, nil
}

// afterXPChange publishes level events and kicks the downstream consumers.
// Runs outside the transaction; everything here is best-effort.
func (s *ProgressionService) afterXPChange(externalUserID string, oldState, newState LevelState) {
	gained := levelsGained(s.Curve, oldState, newState)
	if gained > 0 {
		s.Bus.Publish(Event{
			Kind:   EventLevelUp,
			UserID: externalUserID,
			Payload: map[string]interface{}{
				"level":          newState.Level,
				"prestige_level": newState.PrestigeLevel,
				"levels_gained":  gained,
			},
		})
		if s.OnLevelUp != nil {
			s.OnLevelUp(externalUserID, gained)
		}
	}
	if newState.PrestigeLevel > oldState.PrestigeLevel {
		s.Bus.Publish(Event{
			Kind:   EventPrestigeUp,
			UserID: externalUserID,
			Payload: map[string]interface{}{
				"prestige_level": newState.PrestigeLevel,
			},
		})
	}
	if s.Badges != nil {
		if _, err := s.Badges.Evaluate(externalUserID); err != nil {
			log.Printf("⚠️ Badge evaluation failed for %s: %v", externalUserID, err)
		}
	}
}

func levelAdvanced(old, new LevelState) bool {
	return new.PrestigeLevel > old.PrestigeLevel ||
		(new.PrestigeLevel == old.PrestigeLevel && new.Level > old.Level)
}

// levelsGained counts level-ups between two curve states, including the
// levels crossed through a prestige rollover.
func levelsGained(c LevelCurve, old, new LevelState) int {
	prestigeLevels := (new.PrestigeLevel - old.PrestigeLevel) * (c.LevelCap - 1)
	return prestigeLevels + new.Level - old.Level
}

// RecordStat bumps the activity counters the badge evaluator reads. Unknown
// metrics are ignored — only this engine's counters live here.
func (s *ProgressionService) RecordStat(externalUserID, metric string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if _, err := s.EnsureProgressionRecord(externalUserID); err != nil {
		return err
	}
	var col string
	switch metric {
	case "match_played", "party_match_played":
		col = "matches_played"
	case "match_won":
		col = "matches_won"
	default:
		return nil
	}
	err := s.DB.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn(col, gorm.Expr(col+" + ?", amount)).Error
	if err != nil {
		return err
	}
	if s.Badges != nil {
		if _, err := s.Badges.Evaluate(externalUserID); err != nil {
			log.Printf("⚠️ Badge evaluation failed for %s: %v", externalUserID, err)
		}
	}
	return nil
}

// IncrementQuestsCompleted is called by the claim service when a quest
// reward is materialized.
func (s *ProgressionService) IncrementQuestsCompleted(tx *gorm.DB, externalUserID string) error {
	return tx.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn("quests_completed", gorm.Expr("quests_completed + 1")).Error
}

// EquipCosmetics sets the equipped title/frame/theme. References are opaque;
// inventory ownership is the shop service's concern, not this engine's.
func (s *ProgressionService) EquipCosmetics(externalUserID string, title, frame, theme *string) (*models.UserProgression, error) {
	prog, err := s.EnsureProgressionRecord(externalUserID)
	if err != nil {
		return nil, err
	}
	cols := map[string]interface{}{}
	if title != nil {
		cols["equipped_title"] = *title
	}
	if frame != nil {
		cols["equipped_frame"] = *frame
	}
	if theme != nil {
		cols["equipped_theme"] = *theme
	}
	if len(cols) == 0 {
		return prog, nil
	}
	if err := s.DB.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumns(cols).Error; err != nil {
		return nil, err
	}
	return s.GetProgression(externalUserID)
}

// SetShowcaseBadges replaces the showcase list. Every id must be a badge this
// engine actually granted to the user.
func (s *ProgressionService) SetShowcaseBadges(externalUserID string, badgeIDs []string) (*models.UserProgression, error) {
	if len(badgeIDs) > models.MaxShowcaseBadges {
		return nil, fmt.Errorf("%w: showcase is capped at %d badges", ErrNotEligible, models.MaxShowcaseBadges)
	}
	if len(badgeIDs) > 0 {
		var owned int64
		if err := s.DB.Model(&models.UserBadge{}).
			Where("external_user_id = ? AND badge_id IN ?", externalUserID, badgeIDs).
			Count(&owned).Error; err != nil {
			return nil, err
		}
		if owned != int64(len(badgeIDs)) {
			return nil, fmt.Errorf("%w: showcase includes badges the user has not earned", ErrNotEligible)
		}
	}
	if _, err := s.EnsureProgressionRecord(externalUserID); err != nil {
		return nil, err
	}
	// Write through the schema field so the json serializer runs; a raw
	// column update would store the slice unserialized.
	if err := s.DB.Model(&models.UserProgression{}).
		Where("external_user_id = ?", externalUserID).
		Select("showcase_badge_ids").
		Updates(&models.UserProgression{ShowcaseBadgeIDs: badgeIDs}).Error; err != nil {
		return nil, err
	}
	return s.GetProgression(externalUserID)
}

// XPHistory returns the newest ledger entries, paginated.
func (s *ProgressionService) XPHistory(externalUserID string, page, size int) ([]models.XPTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	var total int64
	if err := s.DB.Model(&models.XPTransaction{}).
		Where("external_user_id = ?", externalUserID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []models.XPTransaction
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&txs).Error
	return txs, total, err
}
