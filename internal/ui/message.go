package ui

import (
	"time"

	"github.com/desertthunder/encore/internal/services"
)

// tickMsg drives snapshot re-reads from the feed synchronizers.
type tickMsg time.Time

// searchDoneMsg carries a completed catalog search.
type searchDoneMsg struct {
	results *services.SearchResults
	err     error
}

// editorOpenedMsg reports the baseline fetch for a newly opened editor.
type editorOpenedMsg struct {
	itemID string
	err    error
}

// saveDoneMsg reports the outcome of a save attempt.
type saveDoneMsg struct {
	err error
}
