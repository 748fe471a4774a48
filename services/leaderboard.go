package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"progression-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardScope selects whose progression rows participate in a ranking.
type LeaderboardScope struct {
	Kind   string // "global", "region", "friends"
	Region string // region scope
	UserID string // friends scope: friends-of this user
}

// LeaderboardService derives ranked views from progression snapshots. It is
// strictly read-side: rank is positional, recomputed per call, and never
// written onto user state. Ties break on external user id ascending so the
// order is reproducible for identical inputs.
type LeaderboardService struct {
	DB *gorm.DB

	// SnapshotTTL bounds how stale the cached global page may be before
	// reads fall back to live computation. Zero disables the cache.
	SnapshotTTL  time.Duration
	SnapshotSize int
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db, SnapshotTTL: 5 * time.Minute, SnapshotSize: 100}
}

// Rank computes the top entries for a scope.
func (s *LeaderboardService) Rank(scope LeaderboardScope, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	if scope.Kind == "global" && s.SnapshotTTL > 0 {
		if entries, ok := s.freshSnapshot(limit); ok {
			return entries, nil
		}
	}
	return s.rankLive(scope, limit)
}

func (s *LeaderboardService) rankLive(scope LeaderboardScope, limit int) ([]models.LeaderboardEntry, error) {
	q := s.DB.Model(&models.UserProgression{}).
		Select("user_progressions.external_user_id, user_progressions.total_xp, user_progressions.level, user_progressions.prestige_level")

	switch scope.Kind {
	case "global":
	case "region":
		q = q.Joins("JOIN profile_mirrors ON profile_mirrors.external_user_id = user_progressions.external_user_id").
			Where("profile_mirrors.region = ?", scope.Region)
	case "friends":
		// Friends-of includes the user's own row so they see themselves on
		// the board.
		q = q.Where(
			"user_progressions.external_user_id = ? OR user_progressions.external_user_id IN (?)",
			scope.UserID,
			s.DB.Model(&models.FriendEdge{}).
				Select("friend_user_id").
				Where("external_user_id = ?", scope.UserID),
		)
	default:
		return nil, fmt.Errorf("%w: leaderboard scope %q", ErrNotFound, scope.Kind)
	}

	type row struct {
		ExternalUserID string
		TotalXP        int64
		Level          int
		PrestigeLevel  int
	}
	var rows []row
	if err := q.Order("user_progressions.total_xp DESC, user_progressions.external_user_id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.LeaderboardEntry{
			Rank:           i + 1,
			ExternalUserID: r.ExternalUserID,
			TotalXP:        r.TotalXP,
			Level:          r.Level,
			PrestigeLevel:  r.PrestigeLevel,
		}
	}
	s.attachUsernames(entries)
	return entries, nil
}

// attachUsernames decorates entries from the profile mirror; missing
// profiles simply display without a name.
func (s *LeaderboardService) attachUsernames(entries []models.LeaderboardEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ExternalUserID
	}
	var profiles []models.ProfileMirror
	if err := s.DB.Where("external_user_id IN ?", ids).Find(&profiles).Error; err != nil {
		log.Printf("⚠️ Username lookup failed: %v", err)
		return
	}
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.ExternalUserID] = p.Username
	}
	for i := range entries {
		entries[i].Username = names[entries[i].ExternalUserID]
	}
}

// UserRank computes the caller's own global rank as 1 + count of strictly
// higher totals. It is independent of any materialized page, so it stays
// correct when the user is far outside the top-N window.
func (s *LeaderboardService) UserRank(externalUserID string) (*models.LeaderboardEntry, error) {
	var prog models.UserProgression
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no progression for %s", ErrNotFound, externalUserID)
	}
	if err != nil {
		return nil, err
	}

	var higher int64
	if err := s.DB.Model(&models.UserProgression{}).
		Where("total_xp > ?", prog.TotalXP).
		Count(&higher).Error; err != nil {
		return nil, err
	}

	entry := &models.LeaderboardEntry{
		Rank:           int(higher) + 1,
		ExternalUserID: prog.ExternalUserID,
		TotalXP:        prog.TotalXP,
		Level:          prog.Level,
		PrestigeLevel:  prog.PrestigeLevel,
	}
	decorated := []models.LeaderboardEntry{*entry}
	s.attachUsernames(decorated)
	entry.Username = decorated[0].Username
	return entry, nil
}

// --- Snapshot cache ----------------------------------------------------

func (s *LeaderboardService) freshSnapshot(limit int) ([]models.LeaderboardEntry, bool) {
	var snap models.LeaderboardSnapshot
	if err := s.DB.Where("scope = ?", "global").First(&snap).Error; err != nil {
		return nil, false
	}
	if time.Since(snap.RefreshedAt) > s.SnapshotTTL || len(snap.Entries) < limit {
		return nil, false
	}
	return snap.Entries[:limit], true
}

// RefreshSnapshot recomputes the cached global page. It is an idempotent
// projection rebuild: safe on any cadence, safe to skip entirely.
func (s *LeaderboardService) RefreshSnapshot() error {
	entries, err := s.rankLive(LeaderboardScope{Kind: "global"}, s.SnapshotSize)
	if err != nil {
		return err
	}
	snap := models.LeaderboardSnapshot{
		ID:          uuid.NewString(),
		Scope:       "global",
		Entries:     entries,
		RefreshedAt: time.Now().UTC(),
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{"entries", "refreshed_at"}),
	}).Create(&snap).Error
}
