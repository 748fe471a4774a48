// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"progression-engine/models"
	"progression-engine/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mirroredProfile matches the JSON response from the profile service.
type mirroredProfile struct {
	ExternalID    string    `json:"external_id"`
	Username      string    `json:"username"`
	Region        string    `json:"region"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	AccountStatus string    `json:"account_status"`
	FriendIDs     []string  `json:"friend_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type getProfileChangesResponse struct {
	Profiles []mirroredProfile `json:"profiles"`
}

// ProfileSyncWorker mirrors profile and friend-graph changes from the
// profile service. The local copy feeds the region and friends leaderboard
// scopes and the admin player search; it is display data, never identity.
type ProfileSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewProfileSyncWorker(db *gorm.DB, profileServiceBaseURL, endpointPath, serviceToken string) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      profileServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Profile Sync Worker (profile service → profile_mirrors)…")
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial profile sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Profile sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Profile Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *ProfileSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM profile_mirrors WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

func (w *ProfileSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call profile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("profile service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response getProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile response: %w", err)
	}
	if len(response.Profiles) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Applying %d profile change(s)", len(response.Profiles))
	for _, p := range response.Profiles {
		if err := w.upsertProfile(p); err != nil {
			return err
		}
	}
	return nil
}

func (w *ProfileSyncWorker) upsertProfile(p mirroredProfile) error {
	now := time.Now().UTC()
	row := models.ProfileMirror{
		ID:             uuid.NewString(),
		ExternalUserID: p.ExternalID,
		Username:       p.Username,
		Region:         p.Region,
		AccountStatus:  p.AccountStatus,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p.AvatarURL != nil {
		row.AvatarURL = *p.AvatarURL
	}
	err := w.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "region", "avatar_url", "account_status", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert profile for %s: %w", p.ExternalID, err)
	}

	// Friend edges: replace the outgoing set, write both directions.
	return w.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("external_user_id = ?", p.ExternalID).
			Delete(&models.FriendEdge{}).Error; err != nil {
			return err
		}
		for _, friendID := range p.FriendIDs {
			edges := []models.FriendEdge{
				{ID: uuid.NewString(), ExternalUserID: p.ExternalID, FriendUserID: friendID, UpdatedAt: now},
				{ID: uuid.NewString(), ExternalUserID: friendID, FriendUserID: p.ExternalID, UpdatedAt: now},
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edges).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
