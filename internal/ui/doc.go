// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for rating what you listen to:
//  1. [HomeView] : Now-playing card plus the recently-played feed
//  2. [SearchView] : Catalog search across tracks, albums, and artists
//  3. [EditorView] : Rating/review editor for the selected item
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View
// pattern. Feed data comes from two poll synchronizers started on init; a
// once-per-second tick message re-reads their snapshots so slow responses
// never block rendering. The editor view fronts a reconciler that owns the
// fetch/diff/save cycle for the selected item.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
