package reconcile

import (
	"sync"

	"github.com/desertthunder/encore/internal/services"
)

// SelectedItem identifies the catalog item targeted for rating/review
// editing, plus the display metadata the editor shows.
type SelectedItem struct {
	ID       string
	Type     services.ItemType
	Title    string
	Subtitle string
	ImageURL string
}

// Selection holds which item, if any, the editor is open for. Nil means no
// editor is open.
type Selection struct {
	mu   sync.Mutex
	item *SelectedItem
}

// Select records item as the current target; nil clears the selection.
func (s *Selection) Select(item *SelectedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.item = item
}

// Clear drops the current selection.
func (s *Selection) Clear() {
	s.Select(nil)
}

// Current returns the selected item, nil when nothing is selected.
func (s *Selection) Current() *SelectedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.item
}
