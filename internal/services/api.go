// API client for the encore backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultTimeout = 15 * time.Second
)

// APIService is the typed HTTP client for the backend API.
//
// All authenticated endpoints take the bearer token as a parameter: the
// client holds no session state of its own, so a token replacement mid-flight
// never affects requests already issued. A shared rate limiter keeps polling
// and manual refetches from hammering the backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAPIService creates a new API client for the backend at baseURL.
//
// A nil client gets a default with a request timeout; per-call deadlines
// beyond that are the caller's business via ctx.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
	}
}

// BaseURL returns the configured backend base URL.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// LoginURL returns the browser URL that starts the backend's authorization
// flow. The backend redirects back to redirectURI with access and refresh
// query parameters; state is echoed for CSRF validation.
func (a *APIService) LoginURL(state, redirectURI string) string {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	if redirectURI != "" {
		q.Set("redirect_uri", redirectURI)
	}

	loginURL := a.baseURL + "/auth/spotify/login/"
	if encoded := q.Encode(); encoded != "" {
		loginURL += "?" + encoded
	}
	return loginURL
}

// doRequest performs an HTTP request against the backend.
//
// A non-empty token is sent as a bearer credential. Non-2xx responses are
// returned as [*StatusError]; transport failures come back wrapped. The
// response body is decoded into result when non-nil.
func (a *APIService) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	apiURL := a.baseURL + path

	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Profile validates an access token by fetching the user it belongs to.
//
// GET /auth/user/: any non-2xx means the token is not usable.
func (a *APIService) Profile(ctx context.Context, token string) (*UserProfile, error) {
	var profile UserProfile
	if err := a.doRequest(ctx, http.MethodGet, "/auth/user/", token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// NowPlaying fetches the current playback state.
func (a *APIService) NowPlaying(ctx context.Context, token string) (*NowPlayingData, error) {
	var data NowPlayingData
	if err := a.doRequest(ctx, http.MethodGet, "/user/now-playing/", token, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// RecentlyPlayed fetches the play history feed in server order.
func (a *APIService) RecentlyPlayed(ctx context.Context, token string) ([]RecentlyPlayedItem, error) {
	var resp recentlyPlayedResponse
	if err := a.doRequest(ctx, http.MethodGet, "/user/recently-played/", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// SearchMusic queries the catalog. itemType narrows the search when non-empty.
func (a *APIService) SearchMusic(ctx context.Context, token, query string, itemType ItemType) (*SearchResults, error) {
	q := url.Values{}
	q.Set("q", query)
	if itemType != "" {
		q.Set("type", string(itemType))
	}

	var results SearchResults
	path := "/discover/search/music/?" + q.Encode()
	if err := a.doRequest(ctx, http.MethodGet, path, token, nil, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// ItemRating fetches the current user's rating for one item.
func (a *APIService) ItemRating(ctx context.Context, token, itemID string, itemType ItemType) (*RatingLookup, error) {
	var lookup RatingLookup
	path := itemPath("/ratings/item/", itemID, itemType)
	if err := a.doRequest(ctx, http.MethodGet, path, token, nil, &lookup); err != nil {
		return nil, asResource("rating", err)
	}
	return &lookup, nil
}

// ItemReview fetches the current user's review for one item.
func (a *APIService) ItemReview(ctx context.Context, token, itemID string, itemType ItemType) (*ReviewLookup, error) {
	var lookup ReviewLookup
	path := itemPath("/reviews/item/", itemID, itemType)
	if err := a.doRequest(ctx, http.MethodGet, path, token, nil, &lookup); err != nil {
		return nil, asResource("review", err)
	}
	return &lookup, nil
}

// SaveRating creates or replaces the user's rating for an item.
func (a *APIService) SaveRating(ctx context.Context, token string, req SaveRatingRequest) error {
	if err := a.doRequest(ctx, http.MethodPost, "/ratings/", token, req, nil); err != nil {
		return asResource("rating", err)
	}
	return nil
}

// SaveReview creates or replaces the user's review for an item.
func (a *APIService) SaveReview(ctx context.Context, token string, req SaveReviewRequest) error {
	if err := a.doRequest(ctx, http.MethodPost, "/reviews/", token, req, nil); err != nil {
		return asResource("review", err)
	}
	return nil
}

func itemPath(base, itemID string, itemType ItemType) string {
	q := url.Values{}
	q.Set("spotify_id", itemID)
	q.Set("item_type", string(itemType))
	return base + "?" + q.Encode()
}

// asResource tags a [StatusError] with the sub-resource name so callers can
// surface "<sub-resource> request failed with status <code>" messages.
func asResource(name string, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		statusErr.Resource = name
	}
	return err
}
