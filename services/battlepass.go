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

// BattlePassService owns season catalogs and per-user enrollments. Season XP
// is tracked apart from account XP: leveling the pass never grants account
// XP except through explicit reward entries routed via the claim service.
type BattlePassService struct {
	DB  *gorm.DB
	Bus *EventBus
}

func NewBattlePassService(db *gorm.DB, bus *EventBus) *BattlePassService {
	return &BattlePassService{DB: db, Bus: bus}
}

// SeasonLevel converts season-local XP to a level under a uniform per-level
// cost. Level 1 is the floor, maxLevel the ceiling.
func SeasonLevel(xp, xpPerLevel int64, maxLevel int) int {
	if xpPerLevel <= 0 {
		return 1
	}
	level := 1 + int(xp/xpPerLevel)
	if level < 1 {
		level = 1
	}
	if level > maxLevel {
		level = maxLevel
	}
	return level
}

// CanClaim is the read-side eligibility gate:
// level reached AND (free tier OR premium enrollment) AND not yet claimed.
func CanClaim(progress *models.BattlePassProgress, reward *models.BattlePassReward, claimed map[string]bool) bool {
	if progress == nil || reward == nil {
		return false
	}
	if progress.CurrentLevel < reward.Level {
		return false
	}
	if reward.Tier == models.TierPremium && !progress.IsPremium {
		return false
	}
	return !claimed[reward.ID]
}

// RewardsForLevel filters a season's catalog to the entries at one level.
func RewardsForLevel(pass *models.BattlePass, level int) []models.BattlePassReward {
	var out []models.BattlePassReward
	for _, r := range pass.Rewards {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// ActiveSeason returns the currently active season with its reward catalog.
func (s *BattlePassService) ActiveSeason(now time.Time) (*models.BattlePass, error) {
	var pass models.BattlePass
	err := s.DB.Where("status = ?", models.SeasonStatusActive).
		Preload("Rewards", func(db *gorm.DB) *gorm.DB {
			return db.Order("level ASC, tier ASC")
		}).
		First(&pass).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

// EnsureEnrollment creates the user's progress row for the season if absent.
// The premium flag is seeded from the entitlement mirror and kept fresh by
// the entitlement sync worker afterwards.
func (s *BattlePassService) EnsureEnrollment(externalUserID string, pass *models.BattlePass) (*models.BattlePassProgress, error) {
	var progress models.BattlePassProgress
	err := s.DB.Where("external_user_id = ? AND battle_pass_id = ?", externalUserID, pass.ID).
		First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress = models.BattlePassProgress{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		BattlePassID:   pass.ID,
		IsPremium:      s.isPremium(externalUserID),
		CurrentLevel:   1,
		CurrentXP:      0,
	}
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress).Error; err != nil {
		return nil, err
	}
	// Re-read: a concurrent enrollment may have won the insert.
	if err := s.DB.Where("external_user_id = ? AND battle_pass_id = ?", externalUserID, pass.ID).
		First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (s *BattlePassService) isPremium(externalUserID string) bool {
	var mirror models.EntitlementMirror
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&mirror).Error; err != nil {
		return false
	}
	if mirror.PremiumExpiresAt != nil && mirror.PremiumExpiresAt.Before(time.Now().UTC()) {
		return false
	}
	return mirror.IsPremium
}

// AddSeasonXP advances the season track. The XP increment is atomic and the
// level column is rewritten from the season-local total, mirroring how the
// account curve works.
func (s *BattlePassService) AddSeasonXP(externalUserID string, amount int64, now time.Time) (*models.BattlePassProgress, error) {
	if amount < 0 {
		return nil, ErrInvalidDelta
	}
	pass, err := s.ActiveSeason(now)
	if err != nil {
		return nil, err
	}
	progress, err := s.EnsureEnrollment(externalUserID, pass)
	if err != nil {
		return nil, err
	}
	oldLevel := progress.CurrentLevel

	var updated models.BattlePassProgress
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BattlePassProgress{}).
			Where("id = ?", progress.ID).
			UpdateColumn("current_xp", gorm.Expr("current_xp + ?", amount)).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", progress.ID).First(&updated).Error; err != nil {
			return err
		}
		newLevel := SeasonLevel(updated.CurrentXP, pass.XPPerLevel, pass.MaxLevel)
		if newLevel != updated.CurrentLevel {
			if err := tx.Model(&models.BattlePassProgress{}).
				Where("id = ?", progress.ID).
				UpdateColumn("current_level", newLevel).Error; err != nil {
				return err
			}
			updated.CurrentLevel = newLevel
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.CurrentLevel > oldLevel {
		log.Printf("🎫 Season level up: %s → %d (%s)", externalUserID, updated.CurrentLevel, pass.Slug)
		s.Bus.Publish(Event{
			Kind:   EventSeasonLevelUp,
			UserID: externalUserID,
			Payload: map[string]interface{}{
				"season": pass.Slug,
				"level":  updated.CurrentLevel,
			},
		})
	}
	return &updated, nil
}

// ClaimedRewardIDs returns the claimed set for one enrollment.
func (s *BattlePassService) ClaimedRewardIDs(progressID string) (map[string]bool, error) {
	var claims []models.BattlePassRewardClaim
	if err := s.DB.Where("progress_id = ?", progressID).Find(&claims).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(claims))
	for _, c := range claims {
		set[c.RewardID] = true
	}
	return set, nil
}

// ProgressSummary is the read model for the battle pass screen.
type ProgressSummary struct {
	Season        *models.BattlePass         `json:"season"`
	Progress      *models.BattlePassProgress `json:"progress"`
	ClaimedIDs    []string                   `json:"claimed_reward_ids"`
	Claimable     []string                   `json:"claimable_reward_ids"`
	LevelFraction float64                    `json:"level_fraction"` // within-level progress, 0.0–1.0
}

// Summary assembles the user's view of the active season.
func (s *BattlePassService) Summary(externalUserID string, now time.Time) (*ProgressSummary, error) {
	pass, err := s.ActiveSeason(now)
	if err != nil {
		return nil, err
	}
	progress, err := s.EnsureEnrollment(externalUserID, pass)
	if err != nil {
		return nil, err
	}
	claimed, err := s.ClaimedRewardIDs(progress.ID)
	if err != nil {
		return nil, err
	}

	summary := &ProgressSummary{Season: pass, Progress: progress}
	for id := range claimed {
		summary.ClaimedIDs = append(summary.ClaimedIDs, id)
	}
	for i := range pass.Rewards {
		if CanClaim(progress, &pass.Rewards[i], claimed) {
			summary.Claimable = append(summary.Claimable, pass.Rewards[i].ID)
		}
	}
	if progress.CurrentLevel >= pass.MaxLevel {
		summary.LevelFraction = 1.0
	} else if pass.XPPerLevel > 0 {
		within := progress.CurrentXP - int64(progress.CurrentLevel-1)*pass.XPPerLevel
		summary.LevelFraction = float64(within) / float64(pass.XPPerLevel)
		if summary.LevelFraction < 0 {
			summary.LevelFraction = 0
		} else if summary.LevelFraction > 1 {
			summary.LevelFraction = 1
		}
	}
	return summary, nil
}

// UpgradeToPremium flips the enrollment flag once the entitlement mirror
// confirms the purchase. Money never moves through this engine.
func (s *BattlePassService) UpgradeToPremium(externalUserID string, now time.Time) (*models.BattlePassProgress, error) {
	pass, err := s.ActiveSeason(now)
	if err != nil {
		return nil, err
	}
	progress, err := s.EnsureEnrollment(externalUserID, pass)
	if err != nil {
		return nil, err
	}
	if progress.IsPremium {
		return progress, nil
	}
	if !s.isPremium(externalUserID) {
		return nil, ErrNotEligible
	}
	if err := s.DB.Model(&models.BattlePassProgress{}).
		Where("id = ?", progress.ID).
		UpdateColumn("is_premium", true).Error; err != nil {
		return nil, err
	}
	progress.IsPremium = true
	return progress, nil
}

// RollSeasons advances season lifecycle on its time boundaries:
// scheduled → active at starts_at, active → ended at ends_at. Idempotent;
// runs on the gocron cadence.
func (s *BattlePassService) RollSeasons(now time.Time) error {
	u := now.UTC()
	res := s.DB.Model(&models.BattlePass{}).
		Where("status = ? AND starts_at <= ? AND ends_at > ?", models.SeasonStatusScheduled, u, u).
		UpdateColumn("status", models.SeasonStatusActive)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("🚀 Activated %d battle pass season(s)", res.RowsAffected)
	}

	res = s.DB.Model(&models.BattlePass{}).
		Where("status = ? AND ends_at <= ?", models.SeasonStatusActive, u).
		UpdateColumn("status", models.SeasonStatusEnded)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("🏁 Ended %d battle pass season(s)", res.RowsAffected)
	}
	return nil
}
