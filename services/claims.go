package services

import (
	"errors"
	"fmt"
	"time"

	"progression-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimService is the single mutation path that turns a completed quest or
// an eligible battle-pass reward into granted XP/currency/cosmetics.
//
// Every claim is two guards in sequence inside one transaction: a
// conditional status flip (or claimed-set insert) and a unique-indexed
// RewardGrant insert, with the XP application on the same transaction.
// Either guard losing its race means somebody else granted, and a failure
// anywhere rolls the whole claim back, so nothing is ever granted twice and
// nothing is ever half-granted.
type ClaimService struct {
	DB          *gorm.DB
	Progression *ProgressionService
	BattlePass  *BattlePassService
	Bus         *EventBus
}

func NewClaimService(db *gorm.DB, prog *ProgressionService, bp *BattlePassService, bus *EventBus) *ClaimService {
	return &ClaimService{DB: db, Progression: prog, BattlePass: bp, Bus: bus}
}

// ClaimResult summarizes what a successful claim granted.
type ClaimResult struct {
	Source    models.GrantSource     `json:"source"`
	SourceRef string                 `json:"source_ref"`
	XPGranted int64                  `json:"xp_granted"`
	Payloads  []models.RewardPayload `json:"payloads"`
}

// ClaimQuest claims a completed quest assignment.
//
// Preconditions: the row exists, belongs to the caller, is completed and not
// past its expiry. The completed→claimed transition is a compare-and-swap:
// zero rows affected means some other request got there first (or the row is
// in another state), never a silent double grant.
func (s *ClaimService) ClaimQuest(externalUserID, userQuestID string, now time.Time) (*ClaimResult, error) {
	u := now.UTC()

	var uq models.UserQuest
	err := s.DB.Where("id = ? AND external_user_id = ?", userQuestID, externalUserID).
		Preload("Quest").
		First(&uq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: quest assignment %s", ErrNotFound, userQuestID)
	}
	if err != nil {
		return nil, err
	}
	if uq.Quest == nil {
		return nil, fmt.Errorf("%w: quest definition for assignment %s", ErrNotFound, userQuestID)
	}

	// A rolled-over period makes the row unclaimable even if it was
	// completed; persist the transition while rejecting.
	if uq.Status != models.QuestStatusClaimed && !uq.ExpiresAt.After(u) {
		s.DB.Model(&models.UserQuest{}).
			Where("id = ? AND status IN ?", uq.ID,
				[]models.QuestStatus{models.QuestStatusActive, models.QuestStatusCompleted}).
			UpdateColumn("status", models.QuestStatusExpired)
		return nil, fmt.Errorf("%w: quest assignment %s", ErrExpired, userQuestID)
	}

	payloads := append([]models.RewardPayload{
		{Kind: models.RewardKindXP, Amount: uq.Quest.XPReward},
	}, uq.Quest.BonusRewards...)

	// The progression row must exist before the claim transaction opens; the
	// XP application inside it updates in place and never creates.
	if _, err := s.Progression.EnsureProgressionRecord(externalUserID); err != nil {
		return nil, err
	}

	// Flip, grant, XP and the counter bump commit or roll back together: a
	// failure mid-claim leaves the quest claimable and the retry walks the
	// whole path again.
	claimedAt := u
	var effects []levelTransition
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		flip := tx.Model(&models.UserQuest{}).
			Where("id = ? AND external_user_id = ? AND status = ? AND expires_at > ?",
				uq.ID, externalUserID, models.QuestStatusCompleted, u).
			UpdateColumns(map[string]interface{}{
				"status":     models.QuestStatusClaimed,
				"claimed_at": &claimedAt,
			})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			switch uq.Status {
			case models.QuestStatusActive:
				return fmt.Errorf("%w: quest not completed yet", ErrNotEligible)
			case models.QuestStatusExpired:
				return fmt.Errorf("%w: quest assignment %s", ErrExpired, userQuestID)
			case models.QuestStatusClaimed:
				// Fall through: if an earlier claim flipped the status but died
				// before materializing the grant, the grant guard below lets
				// this retry finish the job; otherwise it reports AlreadyClaimed.
			default:
				return fmt.Errorf("%w: quest assignment %s", ErrAlreadyClaimed, userQuestID)
			}
		}

		granted, xp, err := s.materialize(tx, externalUserID, models.GrantSourceQuest, uq.ID, payloads)
		if err != nil {
			return err
		}
		if !granted {
			return fmt.Errorf("%w: quest assignment %s", ErrAlreadyClaimed, userQuestID)
		}
		effects = xp

		// Bumping before commit means the post-commit badge evaluation sees
		// the new quests_completed count, so a badge earned by this very
		// claim unlocks now rather than on the next XP event.
		return s.Progression.IncrementQuestsCompleted(tx, externalUserID)
	})
	if err != nil {
		return nil, err
	}
	for _, e := range effects {
		s.Progression.afterXPChange(externalUserID, e.old, e.new)
	}

	result := &ClaimResult{
		Source:    models.GrantSourceQuest,
		SourceRef: uq.ID,
		XPGranted: uq.Quest.XPReward,
		Payloads:  payloads,
	}
	s.publishGrant(externalUserID, result, map[string]interface{}{"quest_slug": uq.Quest.Slug})
	return result, nil
}

// ClaimBattlePassReward claims one reward entry off the active season track.
//
// Eligibility (level reached, tier owned) is checked up front, but set
// membership is re-checked at write time by the unique claim-row insert, so
// two concurrent claims that both passed the read-side check still collapse
// into one grant.
func (s *ClaimService) ClaimBattlePassReward(externalUserID, rewardID string, now time.Time) (*ClaimResult, error) {
	var reward models.BattlePassReward
	err := s.DB.Where("id = ?", rewardID).First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: battle pass reward %s", ErrNotFound, rewardID)
	}
	if err != nil {
		return nil, err
	}

	var pass models.BattlePass
	if err := s.DB.Where("id = ?", reward.BattlePassID).First(&pass).Error; err != nil {
		return nil, err
	}
	switch pass.Status {
	case models.SeasonStatusActive:
	case models.SeasonStatusEnded:
		return nil, fmt.Errorf("%w: season %s has ended", ErrExpired, pass.Slug)
	default:
		return nil, fmt.Errorf("%w: season %s is not active", ErrNotEligible, pass.Slug)
	}

	progress, err := s.BattlePass.EnsureEnrollment(externalUserID, &pass)
	if err != nil {
		return nil, err
	}
	if progress.CurrentLevel < reward.Level {
		return nil, fmt.Errorf("%w: requires level %d, at %d", ErrNotEligible, reward.Level, progress.CurrentLevel)
	}
	if reward.Tier == models.TierPremium && !progress.IsPremium {
		return nil, fmt.Errorf("%w: premium track not owned", ErrNotEligible)
	}

	if _, err := s.Progression.EnsureProgressionRecord(externalUserID); err != nil {
		return nil, err
	}

	var effects []levelTransition
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.BattlePassRewardClaim{
			ID:         uuid.NewString(),
			ProgressID: progress.ID,
			RewardID:   reward.ID,
		})
		if ins.Error != nil {
			return ins.Error
		}
		// ins.RowsAffected == 0 falls through for the same retry-recovery
		// reason as the quest path: the grant guard is the final arbiter.

		granted, xp, err := s.materialize(tx, externalUserID, models.GrantSourceBattlePass, reward.ID,
			[]models.RewardPayload{reward.Payload})
		if err != nil {
			return err
		}
		if !granted {
			return fmt.Errorf("%w: battle pass reward %s", ErrAlreadyClaimed, rewardID)
		}
		effects = xp
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, e := range effects {
		s.Progression.afterXPChange(externalUserID, e.old, e.new)
	}

	result := &ClaimResult{
		Source:    models.GrantSourceBattlePass,
		SourceRef: reward.ID,
		Payloads:  []models.RewardPayload{reward.Payload},
	}
	if reward.Payload.Kind == models.RewardKindXP {
		result.XPGranted = reward.Payload.Amount
	}
	s.publishGrant(externalUserID, result, map[string]interface{}{
		"season": pass.Slug,
		"level":  reward.Level,
		"tier":   reward.Tier,
	})
	return result, nil
}

// levelTransition carries the curve states around an XP application so the
// level/prestige events can be published after the claim transaction commits.
type levelTransition struct {
	old LevelState
	new LevelState
}

// materialize writes the immutable grant record and applies any XP payloads,
// all on the caller's transaction — grant row and XP ledger commit together.
// The unique (user, source kind, source ref) index is the idempotency guard:
// zero rows affected means this exact claimable was granted before.
func (s *ClaimService) materialize(tx *gorm.DB, externalUserID string, source models.GrantSource, sourceRef string, payloads []models.RewardPayload) (bool, []levelTransition, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.RewardGrant{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		SourceKind:     source,
		SourceRef:      sourceRef,
		Payloads:       payloads,
	})
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil, nil
	}

	var effects []levelTransition
	for _, p := range payloads {
		if p.Kind != models.RewardKindXP {
			// Currency/cosmetic/item payloads live on the grant record; the
			// wallet and inventory services consume them from there.
			continue
		}
		_, oldState, newState, err := s.Progression.applyDelta(tx, externalUserID, p.Amount, fmt.Sprintf("%s:%s", source, sourceRef))
		if err != nil {
			return false, nil, err
		}
		effects = append(effects, levelTransition{old: oldState, new: newState})
	}
	return true, effects, nil
}

func (s *ClaimService) publishGrant(externalUserID string, result *ClaimResult, extra map[string]interface{}) {
	payload := map[string]interface{}{
		"source":     result.Source,
		"source_ref": result.SourceRef,
		"xp_granted": result.XPGranted,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.Bus.Publish(Event{Kind: EventRewardGranted, UserID: externalUserID, Payload: payload})
}

// Grants lists the user's grant history, newest first.
func (s *ClaimService) Grants(externalUserID string, limit int) ([]models.RewardGrant, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var grants []models.RewardGrant
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("granted_at DESC").
		Limit(limit).
		Find(&grants).Error
	return grants, err
}
