package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		userID     string
		wantKind   string
		wantRegion string
		wantErr    int // 0 = no error, else expected HTTP status
	}{
		{"default is global", "", "", "global", "", 0},
		{"explicit global", "global", "", "global", "", 0},
		{"region", "region:EU", "", "region", "eu", 0},
		{"region without code", "region:", "", "", "", fiber.StatusBadRequest},
		{"friends with auth", "friends", "user-1", "friends", "", 0},
		{"friends without auth", "friends", "", "", "", fiber.StatusUnauthorized},
		{"unknown", "galactic", "", "", "", fiber.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scope, err := parseScope(tc.raw, tc.userID)
			if tc.wantErr != 0 {
				fe, ok := err.(*fiber.Error)
				if !ok {
					t.Fatalf("err = %v, want *fiber.Error with status %d", err, tc.wantErr)
				}
				if fe.Code != tc.wantErr {
					t.Errorf("status = %d, want %d", fe.Code, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseScope: %v", err)
			}
			if scope.Kind != tc.wantKind || scope.Region != tc.wantRegion {
				t.Errorf("scope = %+v", scope)
			}
			if tc.wantKind == "friends" && scope.UserID != tc.userID {
				t.Errorf("friends scope UserID = %q, want %q", scope.UserID, tc.userID)
			}
		})
	}
}
