// package services defines the wire types and typed HTTP client for the
// encore backend API
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ItemType identifies the kind of catalog item a rating or review targets.
//
// The set is closed: exactly track, album, and artist. An item is joined
// against its rating and review by the (id, item type) pair.
type ItemType string

const (
	ItemTrack  ItemType = "track"
	ItemAlbum  ItemType = "album"
	ItemArtist ItemType = "artist"
)

// ParseItemType validates a textual item type.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(strings.ToLower(strings.TrimSpace(s))) {
	case ItemTrack:
		return ItemTrack, nil
	case ItemAlbum:
		return ItemAlbum, nil
	case ItemArtist:
		return ItemArtist, nil
	default:
		return "", fmt.Errorf("unknown item type: %q", s)
	}
}

// UserProfile represents the authenticated user as returned by GET /auth/user/.
//
// Profiles are immutable snapshots, replaced wholesale on revalidation.
type UserProfile struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	SpotifyID   *string `json:"spotify_id"`
}

// NowPlayingData represents the current playback state from GET /user/now-playing/.
type NowPlayingData struct {
	Status     string   `json:"status"` // one of playing, paused, inactive
	IsPlaying  bool     `json:"is_playing"`
	ProgressMS *int     `json:"progress_ms"`
	DurationMS *int     `json:"duration_ms"`
	TrackName  *string  `json:"track_name"`
	Artists    []string `json:"artists"`
	Album      *string  `json:"album"`
	AlbumImage *string  `json:"album_image"`
}

// RecentlyPlayedItem is one entry of the play history feed.
type RecentlyPlayedItem struct {
	TrackID    string   `json:"track_id"`
	PlayedAt   string   `json:"played_at"`
	TrackName  string   `json:"track_name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	AlbumImage *string  `json:"album_image"`
	DurationMS int      `json:"duration_ms"`
}

type recentlyPlayedResponse struct {
	Items []RecentlyPlayedItem `json:"items"`
}

// SearchTrack is a track entry from the catalog search endpoint.
type SearchTrack struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	ImageURL *string  `json:"image_url"`
}

// SearchAlbum is an album entry from the catalog search endpoint.
type SearchAlbum struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	ImageURL *string  `json:"image_url"`
}

// SearchArtist is an artist entry from the catalog search endpoint.
type SearchArtist struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ImageURL *string `json:"image_url"`
}

// SearchResults holds the track/album/artist arrays returned by
// GET /discover/search/music/.
type SearchResults struct {
	Tracks  []SearchTrack  `json:"tracks"`
	Albums  []SearchAlbum  `json:"albums"`
	Artists []SearchArtist `json:"artists"`
}

// Decimal is a numeric value the backend may encode as either a JSON string
// ("4.50") or a JSON number (4.5). Ratings are stored server-side as
// two-decimal strings, so both arrive in practice.
type Decimal string

// UnmarshalJSON accepts string and number tokens.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*d = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*d = Decimal(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*d = Decimal(n.String())
	return nil
}

// Float parses the decimal's textual representation.
func (d Decimal) Float() (float64, error) {
	return strconv.ParseFloat(string(d), 64)
}

// RatingLookup is the response of GET /ratings/item/.
type RatingLookup struct {
	Exists bool           `json:"exists"`
	Rating *RatingPayload `json:"rating,omitempty"`
}

// RatingPayload carries the stored rating value.
type RatingPayload struct {
	Rating Decimal `json:"rating"`
}

// ReviewLookup is the response of GET /reviews/item/.
type ReviewLookup struct {
	Exists bool           `json:"exists"`
	Review *ReviewPayload `json:"review,omitempty"`
}

// ReviewPayload carries the stored review text.
type ReviewPayload struct {
	Text string `json:"text"`
}

// SaveRatingRequest is the body of POST /ratings/.
//
// Rating travels as a two-decimal string because the backend stores a
// fixed-precision decimal.
type SaveRatingRequest struct {
	SpotifyID string   `json:"spotify_id"`
	ItemType  ItemType `json:"item_type"`
	ItemName  string   `json:"item_name"`
	Rating    string   `json:"rating"`
}

// SaveReviewRequest is the body of POST /reviews/.
type SaveReviewRequest struct {
	SpotifyID string   `json:"spotify_id"`
	ItemType  ItemType `json:"item_type"`
	ItemName  string   `json:"item_name"`
	Text      string   `json:"text"`
}

// StatusError reports a non-2xx response from the backend, as distinct from a
// transport failure. Resource names the sub-resource the request targeted
// when known (e.g. "rating", "review").
type StatusError struct {
	Resource string
	Code     int
}

func (e *StatusError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("request failed with status %d", e.Code)
	}
	return fmt.Sprintf("%s request failed with status %d", e.Resource, e.Code)
}
