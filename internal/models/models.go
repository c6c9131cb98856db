// package models defines the data model for listening-history exports
package models

import (
	"time"

	"github.com/desertthunder/encore/internal/services"
)

// HistoryEntry is one played item annotated with the user's rating and
// review, when either exists. Rating and Review stay nil for unrated items.
type HistoryEntry struct {
	TrackID    string   `json:"track_id"`
	PlayedAt   string   `json:"played_at"`
	TrackName  string   `json:"track_name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Rating     *float64 `json:"rating,omitempty"`
	Review     *string  `json:"review,omitempty"`
}

// HistoryExport is a complete annotated listening-history snapshot.
type HistoryExport struct {
	Username    string         `json:"username"`
	GeneratedAt time.Time      `json:"generated_at"`
	Entries     []HistoryEntry `json:"entries"`
}

// FromRecentlyPlayed builds an unannotated entry from a feed item.
func FromRecentlyPlayed(item services.RecentlyPlayedItem) HistoryEntry {
	return HistoryEntry{
		TrackID:    item.TrackID,
		PlayedAt:   item.PlayedAt,
		TrackName:  item.TrackName,
		Artists:    item.Artists,
		Album:      item.Album,
		DurationMS: item.DurationMS,
	}
}

// Artist returns the first credited artist, empty for untagged entries.
func (e HistoryEntry) Artist() string {
	if len(e.Artists) == 0 {
		return ""
	}
	return e.Artists[0]
}
