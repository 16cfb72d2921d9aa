// Package profile supplies the current user's identity block for envelope
// construction. The authoritative source is the profile service; a
// last-known-profile cache sits in front of it with explicit invalidation
// hooks for profile-update events.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scholarshelf/pkg/domain"
)

// Service resolves a user's current profile fields.
type Service interface {
	Profile(ctx context.Context, userID string) (domain.Party, error)
}

// HTTPService calls the profile service over HTTP.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

// NewHTTPService builds a profile client for the given base URL.
func NewHTTPService(baseURL string) *HTTPService {
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Profile fetches one user's profile fields.
func (s *HTTPService) Profile(ctx context.Context, userID string) (domain.Party, error) {
	endpoint := s.baseURL + "/internal/profiles/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Party{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Party{}, fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Party{}, fmt.Errorf("profile request: status %d", resp.StatusCode)
	}
	var party domain.Party
	if err := json.NewDecoder(resp.Body).Decode(&party); err != nil {
		return domain.Party{}, fmt.Errorf("decode profile: %w", err)
	}
	if party.UserID == "" {
		party.UserID = userID
	}
	return party, nil
}
