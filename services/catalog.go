package services

import (
	"errors"
	"fmt"
	"time"

	"progression-engine/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogService is the admin surface for quest, badge and season catalogs.
// Catalog rows are operator-managed; slugs are derived from titles once at
// creation and never change afterwards.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// SeedDefaults loads the built-in quest and badge catalogs, skipping any
// slug that already exists. Runs at boot.
func (s *CatalogService) SeedDefaults() error {
	for _, def := range models.DefaultQuestCatalog {
		def.ID = uuid.NewString()
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&def).Error; err != nil {
			return err
		}
	}
	for _, def := range models.DefaultBadgeCatalog {
		def.ID = uuid.NewString()
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&def).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateQuestInput mirrors the admin request body.
type CreateQuestInput struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Period       models.QuestPeriod     `json:"period"`
	Metric       string                 `json:"metric"`
	Target       int64                  `json:"target"`
	GameID       string                 `json:"game_id"`
	XPReward     int64                  `json:"xp_reward"`
	BonusRewards []models.RewardPayload `json:"bonus_rewards"`
}

func (in CreateQuestInput) validate() error {
	if in.Title == "" || in.Metric == "" {
		return fmt.Errorf("title and metric are required")
	}
	switch in.Period {
	case models.QuestPeriodDaily, models.QuestPeriodWeekly, models.QuestPeriodSpecial:
	default:
		return fmt.Errorf("unknown period %q", in.Period)
	}
	if in.Target < 1 {
		return fmt.Errorf("target must be at least 1")
	}
	if in.XPReward < 0 {
		return fmt.Errorf("xp reward cannot be negative")
	}
	for _, p := range in.BonusRewards {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreateQuest adds a definition with a slug derived from the period + title,
// e.g. "daily-win-3-matches".
func (s *CatalogService) CreateQuest(in CreateQuestInput) (*models.QuestDefinition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	def := models.QuestDefinition{
		ID:           uuid.NewString(),
		Slug:         slug.Make(string(in.Period) + " " + in.Title),
		Title:        in.Title,
		Description:  in.Description,
		Period:       in.Period,
		Metric:       in.Metric,
		Target:       in.Target,
		GameID:       in.GameID,
		XPReward:     in.XPReward,
		BonusRewards: in.BonusRewards,
		Active:       true,
	}
	if err := s.DB.Create(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

// RetireQuest deactivates a definition so it stops entering new periods.
// Existing assignments keep running to their expiry.
func (s *CatalogService) RetireQuest(questSlug string) error {
	res := s.DB.Model(&models.QuestDefinition{}).
		Where("slug = ?", questSlug).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: quest %q", ErrNotFound, questSlug)
	}
	return nil
}

// CreateBadgeInput mirrors the admin request body.
type CreateBadgeInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Rarity      string           `json:"rarity"`
	IsSecret    bool             `json:"is_secret"`
	Criteria    map[string]int64 `json:"criteria"`
	IconURL     string           `json:"icon_url"`
}

func (s *CatalogService) CreateBadge(in CreateBadgeInput) (*models.BadgeDefinition, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if len(in.Criteria) == 0 {
		return nil, fmt.Errorf("criteria are required")
	}
	rarity := in.Rarity
	if rarity == "" {
		rarity = "common"
	}
	def := models.BadgeDefinition{
		ID:          uuid.NewString(),
		Slug:        slug.Make(in.Name),
		Name:        in.Name,
		Description: in.Description,
		Rarity:      rarity,
		IsSecret:    in.IsSecret,
		Criteria:    in.Criteria,
		IconURL:     in.IconURL,
	}
	if err := s.DB.Create(&def).Error; err != nil {
		return nil, err
	}
	return &def, nil
}

// SetBadgeIcon updates the catalog entry after an R2 upload.
func (s *CatalogService) SetBadgeIcon(badgeSlug, iconURL string) error {
	res := s.DB.Model(&models.BadgeDefinition{}).
		Where("slug = ?", badgeSlug).
		Update("icon_url", iconURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: badge %q", ErrNotFound, badgeSlug)
	}
	return nil
}

// CreateSeasonInput mirrors the admin request body.
type CreateSeasonInput struct {
	Name       string    `json:"name"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	XPPerLevel int64     `json:"xp_per_level"`
	MaxLevel   int       `json:"max_level"`

	Rewards []CreateSeasonRewardInput `json:"rewards"`
}

type CreateSeasonRewardInput struct {
	Level   int                   `json:"level"`
	Tier    models.BattlePassTier `json:"tier"`
	Title   string                `json:"title"`
	Payload models.RewardPayload  `json:"payload"`
}

// CreateSeason creates a scheduled season with its ordered reward track.
// The season scheduler activates it when starts_at arrives.
func (s *CatalogService) CreateSeason(in CreateSeasonInput) (*models.BattlePass, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("ends_at must be after starts_at")
	}
	if in.XPPerLevel < 1 {
		in.XPPerLevel = 1000
	}
	if in.MaxLevel < 2 {
		in.MaxLevel = 50
	}

	pass := models.BattlePass{
		ID:         uuid.NewString(),
		Slug:       slug.Make(in.Name),
		Name:       in.Name,
		Status:     models.SeasonStatusScheduled,
		StartsAt:   in.StartsAt.UTC(),
		EndsAt:     in.EndsAt.UTC(),
		XPPerLevel: in.XPPerLevel,
		MaxLevel:   in.MaxLevel,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&pass).Error; err != nil {
			return err
		}
		for _, r := range in.Rewards {
			if r.Level < 1 || r.Level > pass.MaxLevel {
				return fmt.Errorf("reward level %d outside 1..%d", r.Level, pass.MaxLevel)
			}
			if r.Tier != models.TierFree && r.Tier != models.TierPremium {
				return fmt.Errorf("unknown tier %q", r.Tier)
			}
			if err := r.Payload.Validate(); err != nil {
				return err
			}
			reward := models.BattlePassReward{
				ID:           uuid.NewString(),
				BattlePassID: pass.ID,
				Level:        r.Level,
				Tier:         r.Tier,
				Title:        r.Title,
				Payload:      r.Payload,
			}
			if err := tx.Create(&reward).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

// SetRewardArt updates a reward entry after an R2 upload.
func (s *CatalogService) SetRewardArt(rewardID, artURL string) error {
	res := s.DB.Model(&models.BattlePassReward{}).
		Where("id = ?", rewardID).
		Update("art_url", artURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: battle pass reward %q", ErrNotFound, rewardID)
	}
	return nil
}

// QuestBySlug is a lookup helper for the admin routes.
func (s *CatalogService) QuestBySlug(questSlug string) (*models.QuestDefinition, error) {
	var def models.QuestDefinition
	err := s.DB.Where("slug = ?", questSlug).First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: quest %q", ErrNotFound, questSlug)
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}
