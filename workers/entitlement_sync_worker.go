package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"progression-engine/models"
	"progression-engine/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntitlementSyncClient polls the wallet service for premium-tier changes
// and mirrors them locally. The engine only ever reads the flag; purchases
// and currency custody stay on the wallet side.
type EntitlementSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewEntitlementSyncClient(db *gorm.DB) *EntitlementSyncClient {
	baseURL := os.Getenv("ENTITLEMENT_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("ENTITLEMENT_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("PROGRESSION_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("PROGRESSION_SERVICE_TOKEN environment variable is required for entitlement sync")
	}

	return &EntitlementSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// entitlementFromWallet matches the wallet service's JSON response.
type entitlementFromWallet struct {
	UserID           string     `json:"user_id"`
	IsPremium        bool       `json:"is_premium"`
	PremiumSince     *time.Time `json:"premium_since,omitempty"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (c *EntitlementSyncClient) GetChangedEntitlements(ctx context.Context, since time.Time) ([]entitlementFromWallet, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/entitlements", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call entitlement service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("entitlement service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Entitlements []entitlementFromWallet `json:"entitlements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode entitlement response: %w", err)
	}
	return response.Entitlements, nil
}

// apply upserts the mirror rows and refreshes is_premium on active season
// enrollments so a mid-season purchase unlocks the premium lane without any
// further user action.
func (c *EntitlementSyncClient) apply(entitlements []entitlementFromWallet) error {
	for _, e := range entitlements {
		now := time.Now().UTC()
		row := models.EntitlementMirror{
			ID:                  uuid.NewString(),
			ExternalUserID:      e.UserID,
			IsPremium:           e.IsPremium,
			PremiumSince:        e.PremiumSince,
			PremiumExpiresAt:    e.PremiumExpiresAt,
			LastEntitlementSeen: e.UpdatedAt,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		err := c.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_premium", "premium_since", "premium_expires_at",
				"last_entitlement_seen", "updated_at",
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to upsert entitlement for %s: %w", e.UserID, err)
		}

		if e.IsPremium {
			err = c.DB.Model(&models.BattlePassProgress{}).
				Where("external_user_id = ? AND is_premium = ? AND battle_pass_id IN (?)",
					e.UserID, false,
					c.DB.Model(&models.BattlePass{}).Select("id").Where("status = ?", models.SeasonStatusActive),
				).
				UpdateColumn("is_premium", true).Error
			if err != nil {
				return fmt.Errorf("failed to refresh enrollment premium flag for %s: %w", e.UserID, err)
			}
		}
	}
	return nil
}

// PollEntitlements runs the sync loop until ctx is cancelled.
func PollEntitlements(ctx context.Context, client *EntitlementSyncClient, pollInterval time.Duration) {
	log.Println("Starting entitlement polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Entitlement polling stopped.")
			return
		case <-ticker.C:
			pollStart := time.Now().UTC()

			entitlements, err := client.GetChangedEntitlements(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling entitlements: %v", err)
				continue
			}
			if len(entitlements) == 0 {
				continue
			}

			log.Printf("📥 Received %d entitlement change(s) from wallet service.", len(entitlements))
			if err := client.apply(entitlements); err != nil {
				log.Printf("❌ Error applying entitlement changes: %v", err)
				continue
			}
			lastSyncTime = pollStart
		}
	}
}
