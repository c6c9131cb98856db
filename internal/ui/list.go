package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/encore/internal/reconcile"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

var (
	_ list.Item = recentItem{}
	_ list.Item = searchItem{}
)

// recentItem wraps [services.RecentlyPlayedItem] to implement [list.Item].
type recentItem struct {
	item services.RecentlyPlayedItem
}

func (i recentItem) FilterValue() string { return i.item.TrackName }
func (i recentItem) Title() string       { return i.item.TrackName }
func (i recentItem) Description() string {
	desc := strings.Join(i.item.Artists, ", ")
	if i.item.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Album)
	}
	return fmt.Sprintf("%s [%s]", desc, shared.FormatDuration(i.item.DurationMS))
}

// selected converts the feed entry into the selection the editor operates on.
// Entries without a track ID cannot be rated and return nil.
func (i recentItem) selected() *reconcile.SelectedItem {
	if i.item.TrackID == "" {
		return nil
	}
	return &reconcile.SelectedItem{
		ID:       i.item.TrackID,
		Type:     services.ItemTrack,
		Title:    i.item.TrackName,
		Subtitle: strings.Join(i.item.Artists, ", "),
	}
}

// searchItem is one catalog search result of any item type.
type searchItem struct {
	id       string
	kind     services.ItemType
	name     string
	subtitle string
	imageURL *string
}

func (i searchItem) FilterValue() string { return i.name }
func (i searchItem) Title() string       { return i.name }
func (i searchItem) Description() string {
	if i.subtitle == "" {
		return string(i.kind)
	}
	return fmt.Sprintf("%s • %s", i.kind, i.subtitle)
}

func (i searchItem) selected() *reconcile.SelectedItem {
	sel := &reconcile.SelectedItem{
		ID:       i.id,
		Type:     i.kind,
		Title:    i.name,
		Subtitle: i.subtitle,
	}
	if i.imageURL != nil {
		sel.ImageURL = *i.imageURL
	}
	return sel
}

// searchItems flattens a search response into display order: tracks, then
// albums, then artists.
func searchItems(results *services.SearchResults) []list.Item {
	if results == nil {
		return nil
	}

	items := make([]list.Item, 0, len(results.Tracks)+len(results.Albums)+len(results.Artists))
	for _, t := range results.Tracks {
		items = append(items, searchItem{
			id:       t.ID,
			kind:     services.ItemTrack,
			name:     t.Name,
			subtitle: strings.Join(t.Artists, ", "),
			imageURL: t.ImageURL,
		})
	}
	for _, a := range results.Albums {
		items = append(items, searchItem{
			id:       a.ID,
			kind:     services.ItemAlbum,
			name:     a.Name,
			subtitle: strings.Join(a.Artists, ", "),
			imageURL: a.ImageURL,
		})
	}
	for _, a := range results.Artists {
		items = append(items, searchItem{
			id:       a.ID,
			kind:     services.ItemArtist,
			name:     a.Name,
			imageURL: a.ImageURL,
		})
	}
	return items
}
