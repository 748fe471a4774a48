package services

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"time"

	"progression-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Quests assigned per period instance.
const (
	DailyQuestCount  = 3
	WeeklyQuestCount = 2
)

// QuestCycleService assigns period quests, tracks progress and owns the
// active → completed and → expired transitions. Claiming is the claim
// service's job, never this one's.
type QuestCycleService struct {
	DB  *gorm.DB
	Bus *EventBus
}

func NewQuestCycleService(db *gorm.DB, bus *EventBus) *QuestCycleService {
	return &QuestCycleService{DB: db, Bus: bus}
}

// --- Period boundaries -------------------------------------------------
//
// All boundaries are pure functions of a server-supplied clock. Client
// wall-clock time never participates, so a skewed device cannot stretch a
// period. Daily cutover is 00:00 UTC; weekly is Monday 00:00 UTC.

// DailyPeriodKey identifies the UTC day containing t, e.g. "2026-08-28".
func DailyPeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WeeklyPeriodKey identifies the ISO week containing t, e.g. "2026-W35".
func WeeklyPeriodKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// NextDailyReset returns the next 00:00 UTC strictly after t.
func NextDailyReset(t time.Time) time.Time {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(24 * time.Hour)
}

// NextWeeklyReset returns the next Monday 00:00 UTC strictly after t.
func NextWeeklyReset(t time.Time) time.Time {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	days := (int(time.Monday) - int(u.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return midnight.Add(time.Duration(days) * 24 * time.Hour)
}

func periodKeyFor(period models.QuestPeriod, t time.Time) string {
	if period == models.QuestPeriodWeekly {
		return WeeklyPeriodKey(t)
	}
	return DailyPeriodKey(t)
}

func expiryFor(period models.QuestPeriod, t time.Time) time.Time {
	if period == models.QuestPeriodWeekly {
		return NextWeeklyReset(t)
	}
	return NextDailyReset(t)
}

// --- Assignment --------------------------------------------------------

// ActiveQuestSet is the read model for the quest screen.
type ActiveQuestSet struct {
	Daily  []models.UserQuest `json:"daily"`
	Weekly []models.UserQuest `json:"weekly"`
	Resets struct {
		Daily  time.Time `json:"daily"`
		Weekly time.Time `json:"weekly"`
	} `json:"resets"`
}

// ActiveQuests returns the user's current daily and weekly assignments,
// creating them when the period boundary has been crossed and none exist for
// the new period key. Overdue rows from earlier periods are expired on read
// so a client polling right after the cutover sees the transition at once.
func (s *QuestCycleService) ActiveQuests(externalUserID string, now time.Time) (*ActiveQuestSet, error) {
	if _, err := s.ExpireOverdueForUser(externalUserID, now); err != nil {
		return nil, err
	}

	if err := s.ensureAssignments(externalUserID, models.QuestPeriodDaily, now, DailyQuestCount); err != nil {
		return nil, err
	}
	if err := s.ensureAssignments(externalUserID, models.QuestPeriodWeekly, now, WeeklyQuestCount); err != nil {
		return nil, err
	}

	set := &ActiveQuestSet{}
	set.Resets.Daily = NextDailyReset(now)
	set.Resets.Weekly = NextWeeklyReset(now)

	load := func(period models.QuestPeriod, dst *[]models.UserQuest) error {
		return s.DB.
			Joins("JOIN quest_definitions ON quest_definitions.id = user_quests.quest_id").
			Where("user_quests.external_user_id = ? AND user_quests.period_key = ? AND quest_definitions.period = ?",
				externalUserID, periodKeyFor(period, now), period).
			Preload("Quest").
			Order("user_quests.assigned_at ASC, user_quests.id ASC").
			Find(dst).Error
	}
	if err := load(models.QuestPeriodDaily, &set.Daily); err != nil {
		return nil, err
	}
	if err := load(models.QuestPeriodWeekly, &set.Weekly); err != nil {
		return nil, err
	}
	return set, nil
}

// ensureAssignments creates the period's rows if the user has none yet. The
// selection is a deterministic shuffle seeded from (user, period key), so two
// devices racing across a boundary pick identical quests and the unique
// index collapses their inserts into one row set.
func (s *QuestCycleService) ensureAssignments(externalUserID string, period models.QuestPeriod, now time.Time, count int) error {
	periodKey := periodKeyFor(period, now)

	var existing int64
	err := s.DB.Model(&models.UserQuest{}).
		Joins("JOIN quest_definitions ON quest_definitions.id = user_quests.quest_id").
		Where("user_quests.external_user_id = ? AND user_quests.period_key = ? AND quest_definitions.period = ?",
			externalUserID, periodKey, period).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	var defs []models.QuestDefinition
	if err := s.DB.Where("period = ? AND active = ?", period, true).
		Order("slug ASC").
		Find(&defs).Error; err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}

	picked := pickQuests(defs, externalUserID, periodKey, count)
	expiresAt := expiryFor(period, now)

	rows := make([]models.UserQuest, 0, len(picked))
	for _, def := range picked {
		rows = append(rows, models.UserQuest{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			QuestID:        def.ID,
			PeriodKey:      periodKey,
			Progress:       0,
			Target:         def.Target,
			Status:         models.QuestStatusActive,
			AssignedAt:     now.UTC(),
			ExpiresAt:      expiresAt,
		})
	}
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return err
	}
	log.Printf("📋 Assigned %d %s quest(s) to %s for %s", len(rows), period, externalUserID, periodKey)
	return nil
}

// pickQuests shuffles the eligible catalog with a seed derived from the user
// and period key, then takes the first count entries.
func pickQuests(defs []models.QuestDefinition, externalUserID, periodKey string, count int) []models.QuestDefinition {
	h := fnv.New64a()
	h.Write([]byte(externalUserID))
	h.Write([]byte("|"))
	h.Write([]byte(periodKey))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	shuffled := make([]models.QuestDefinition, len(defs))
	copy(shuffled, defs)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}

// AssignSpecial hands a special (event) quest to one user. Unlike period
// quests these carry an explicit expiry.
func (s *QuestCycleService) AssignSpecial(externalUserID, questSlug string, expiresAt time.Time, now time.Time) (*models.UserQuest, error) {
	var def models.QuestDefinition
	if err := s.DB.Where("slug = ? AND period = ? AND active = ?", questSlug, models.QuestPeriodSpecial, true).
		First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: special quest %q", ErrNotFound, questSlug)
		}
		return nil, err
	}
	row := models.UserQuest{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		QuestID:        def.ID,
		PeriodKey:      "special:" + def.Slug,
		Target:         def.Target,
		Status:         models.QuestStatusActive,
		AssignedAt:     now.UTC(),
		ExpiresAt:      expiresAt.UTC(),
	}
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// --- Progress ----------------------------------------------------------

// RecordProgress applies a gameplay event to every matching active
// assignment. The increment and the completion flip are both guarded on
// status='active', so late events against finished or expired rows are
// no-ops instead of corrupting terminal states.
func (s *QuestCycleService) RecordProgress(externalUserID, metric string, amount int64, gameID string, now time.Time) error {
	if amount <= 0 {
		return nil
	}

	var matches []models.UserQuest
	err := s.DB.
		Joins("JOIN quest_definitions ON quest_definitions.id = user_quests.quest_id").
		Where("user_quests.external_user_id = ? AND user_quests.status = ? AND user_quests.expires_at > ?",
			externalUserID, models.QuestStatusActive, now.UTC()).
		Where("quest_definitions.metric = ?", metric).
		Where("quest_definitions.game_id = '' OR quest_definitions.game_id = ?", gameID).
		Preload("Quest").
		Find(&matches).Error
	if err != nil {
		return err
	}

	for _, uq := range matches {
		// Progress is clamped at the target: a single oversized event
		// completes the quest, it never displays as 5/2.
		if err := s.DB.Model(&models.UserQuest{}).
			Where("id = ? AND status = ?", uq.ID, models.QuestStatusActive).
			UpdateColumn("progress", gorm.Expr(
				"CASE WHEN progress + ? > target THEN target ELSE progress + ? END", amount, amount)).Error; err != nil {
			return err
		}

		completedAt := now.UTC()
		res := s.DB.Model(&models.UserQuest{}).
			Where("id = ? AND status = ? AND progress >= target", uq.ID, models.QuestStatusActive).
			UpdateColumns(map[string]interface{}{
				"status":       models.QuestStatusCompleted,
				"completed_at": &completedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			slug := ""
			if uq.Quest != nil {
				slug = uq.Quest.Slug
			}
			log.Printf("✅ Quest completed: %s → %s (%s)", slug, externalUserID, uq.PeriodKey)
			s.Bus.Publish(Event{
				Kind:   EventQuestCompleted,
				UserID: externalUserID,
				Payload: map[string]interface{}{
					"user_quest_id": uq.ID,
					"quest_slug":    slug,
					"period_key":    uq.PeriodKey,
				},
			})
		}
	}
	return nil
}

// --- Expiry ------------------------------------------------------------

// ExpireOverdueForUser persists expiry for one user's overdue rows.
func (s *QuestCycleService) ExpireOverdueForUser(externalUserID string, now time.Time) (int64, error) {
	res := s.DB.Model(&models.UserQuest{}).
		Where("external_user_id = ? AND status IN ? AND expires_at <= ?",
			externalUserID,
			[]models.QuestStatus{models.QuestStatusActive, models.QuestStatusCompleted},
			now.UTC()).
		UpdateColumn("status", models.QuestStatusExpired)
	return res.RowsAffected, res.Error
}

// ExpireOverdue is the sweep behind the gocron job. Idempotent; the on-read
// path above makes its cadence a latency knob, not a correctness one.
func (s *QuestCycleService) ExpireOverdue(now time.Time) (int64, error) {
	res := s.DB.Model(&models.UserQuest{}).
		Where("status IN ? AND expires_at <= ?",
			[]models.QuestStatus{models.QuestStatusActive, models.QuestStatusCompleted},
			now.UTC()).
		UpdateColumn("status", models.QuestStatusExpired)
	if res.Error == nil && res.RowsAffected > 0 {
		log.Printf("⏰ Expired %d overdue quest assignment(s)", res.RowsAffected)
	}
	return res.RowsAffected, res.Error
}
