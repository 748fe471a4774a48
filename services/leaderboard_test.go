package services

import (
	"errors"
	"testing"

	"progression-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func seedRankedUsers(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []models.UserProgression{
		{ID: uuid.NewString(), ExternalUserID: "alice", TotalXP: 5000, Level: 6},
		{ID: uuid.NewString(), ExternalUserID: "bob", TotalXP: 3000, Level: 4},
		{ID: uuid.NewString(), ExternalUserID: "carol", TotalXP: 3000, Level: 4},
		{ID: uuid.NewString(), ExternalUserID: "dave", TotalXP: 100, Level: 1},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed progression: %v", err)
		}
	}
	profiles := []models.ProfileMirror{
		{ID: uuid.NewString(), ExternalUserID: "alice", Username: "Alice", Region: "eu"},
		{ID: uuid.NewString(), ExternalUserID: "bob", Username: "Bob", Region: "na"},
		{ID: uuid.NewString(), ExternalUserID: "carol", Username: "Carol", Region: "eu"},
		{ID: uuid.NewString(), ExternalUserID: "dave", Username: "Dave", Region: "eu"},
	}
	for i := range profiles {
		if err := db.Create(&profiles[i]).Error; err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	}
}

func TestRank_GlobalOrderAndTieBreak(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	seedRankedUsers(t, db)

	entries, err := svc.Rank(LeaderboardScope{Kind: "global"}, 10)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	wantOrder := []string{"alice", "bob", "carol", "dave"} // tie on 3000 breaks by id asc
	if len(entries) != len(wantOrder) {
		t.Fatalf("entries = %d, want %d", len(entries), len(wantOrder))
	}
	for i, want := range wantOrder {
		if entries[i].ExternalUserID != want {
			t.Errorf("position %d = %s, want %s", i+1, entries[i].ExternalUserID, want)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("rank at position %d = %d", i, entries[i].Rank)
		}
	}
	if entries[0].Username != "Alice" {
		t.Errorf("username not attached: %q", entries[0].Username)
	}
}

func TestRank_RegionScope(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	seedRankedUsers(t, db)

	entries, err := svc.Rank(LeaderboardScope{Kind: "region", Region: "eu"}, 10)
	if err != nil {
		t.Fatalf("Rank region: %v", err)
	}
	wantOrder := []string{"alice", "carol", "dave"}
	if len(entries) != len(wantOrder) {
		t.Fatalf("entries = %d, want %d", len(entries), len(wantOrder))
	}
	for i, want := range wantOrder {
		if entries[i].ExternalUserID != want {
			t.Errorf("position %d = %s, want %s", i+1, entries[i].ExternalUserID, want)
		}
	}
}

func TestRank_FriendsScopeIncludesSelf(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	seedRankedUsers(t, db)

	edges := []models.FriendEdge{
		{ID: uuid.NewString(), ExternalUserID: "dave", FriendUserID: "alice"},
		{ID: uuid.NewString(), ExternalUserID: "dave", FriendUserID: "bob"},
	}
	for i := range edges {
		if err := db.Create(&edges[i]).Error; err != nil {
			t.Fatalf("seed edge: %v", err)
		}
	}

	entries, err := svc.Rank(LeaderboardScope{Kind: "friends", UserID: "dave"}, 10)
	if err != nil {
		t.Fatalf("Rank friends: %v", err)
	}
	wantOrder := []string{"alice", "bob", "dave"}
	if len(entries) != len(wantOrder) {
		t.Fatalf("entries = %d, want %d (friends + self)", len(entries), len(wantOrder))
	}
	for i, want := range wantOrder {
		if entries[i].ExternalUserID != want {
			t.Errorf("position %d = %s, want %s", i+1, entries[i].ExternalUserID, want)
		}
	}
}

func TestRank_UnknownScope(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	_, err := svc.Rank(LeaderboardScope{Kind: "galactic"}, 10)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUserRank(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	seedRankedUsers(t, db)

	tests := []struct {
		user string
		rank int
	}{
		{"alice", 1},
		{"bob", 2},   // 1 strictly higher total
		{"carol", 2}, // ties share a rank
		{"dave", 4},
	}
	for _, tc := range tests {
		entry, err := svc.UserRank(tc.user)
		if err != nil {
			t.Fatalf("UserRank(%s): %v", tc.user, err)
		}
		if entry.Rank != tc.rank {
			t.Errorf("UserRank(%s) = %d, want %d", tc.user, entry.Rank, tc.rank)
		}
	}

	if _, err := svc.UserRank("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UserRank(ghost) err = %v, want ErrNotFound", err)
	}
}

func TestRefreshSnapshot_ServesCachedGlobalPage(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db)
	seedRankedUsers(t, db)

	if err := svc.RefreshSnapshot(); err != nil {
		t.Fatalf("RefreshSnapshot: %v", err)
	}

	// Mutate the live table; the cached page should still serve the old order
	// until the TTL lapses.
	db.Model(&models.UserProgression{}).
		Where("external_user_id = ?", "dave").
		UpdateColumn("total_xp", 99999)

	entries, err := svc.Rank(LeaderboardScope{Kind: "global"}, 4)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if entries[0].ExternalUserID != "alice" {
		t.Errorf("top entry = %s, want cached alice", entries[0].ExternalUserID)
	}

	// Refreshing again folds the new total in.
	if err := svc.RefreshSnapshot(); err != nil {
		t.Fatalf("RefreshSnapshot: %v", err)
	}
	entries, err = svc.Rank(LeaderboardScope{Kind: "global"}, 4)
	if err != nil {
		t.Fatalf("Rank after refresh: %v", err)
	}
	if entries[0].ExternalUserID != "dave" {
		t.Errorf("top entry after refresh = %s, want dave", entries[0].ExternalUserID)
	}
}
