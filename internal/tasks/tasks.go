// package tasks implements long-running history export operations.
//
// The core abstraction is ExportEngine, which assembles an annotated
// listening-history snapshot and writes it to disk. Operations emit progress
// updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/time/rate"
)

// BackendClient is the slice of the API client the engine needs.
type BackendClient interface {
	Profile(ctx context.Context, token string) (*services.UserProfile, error)
	RecentlyPlayed(ctx context.Context, token string) ([]services.RecentlyPlayedItem, error)
	ItemRating(ctx context.Context, token, itemID string, itemType services.ItemType) (*services.RatingLookup, error)
	ItemReview(ctx context.Context, token, itemID string, itemType services.ItemType) (*services.ReviewLookup, error)
}

// ExportOpts contains configuration for history exports.
type ExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputPath string  // Output path (default derived from username)
	NumWorkers int     // Concurrent annotation workers (default: 5)
	RateLimit  float64 // Requests per second (default: 5)
	Limit      int     // Maximum entries to export (0 = all)
}

// ExportResult summarizes a completed export.
type ExportResult struct {
	Export            *models.HistoryExport
	Files             []string
	AnnotatedCount    int // entries that have a rating or review
	AnnotateFailCount int
}

// ExportEngine builds annotated history exports.
type ExportEngine struct {
	api BackendClient
}

// NewExportEngine creates an ExportEngine backed by the given client.
func NewExportEngine(api BackendClient) *ExportEngine {
	return &ExportEngine{api: api}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run fetches the play history, annotates each entry with the user's rating
// and review, and writes the result in the requested format.
//
// Annotation uses a rate-limited worker pool; an entry whose lookups fail is
// exported unannotated rather than failing the run.
func (e *ExportEngine) Run(ctx context.Context, token string, prog chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	e.sendProgress(prog, fetchProfileUpdate())
	profile, err := e.api.Profile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	e.sendProgress(prog, fetchHistoryUpdate())
	items, err := e.api.RecentlyPlayed(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch history: %v", shared.ErrAPIRequest, err)
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	entries, failed := e.annotate(ctx, token, prog, items, opts)

	export := &models.HistoryExport{
		Username:    profile.Username,
		GeneratedAt: time.Now(),
		Entries:     entries,
	}

	result := &ExportResult{
		Export:            export,
		AnnotateFailCount: failed,
	}
	for _, entry := range entries {
		if entry.Rating != nil || entry.Review != nil {
			result.AnnotatedCount++
		}
	}

	e.sendProgress(prog, writeFilesUpdate(opts.Format))
	files, err := e.write(export, opts)
	if err != nil {
		return result, err
	}
	result.Files = files

	return result, nil
}

// annotate joins each history item with its rating and review via a worker
// pool. Entry order matches the input order regardless of completion order.
func (e *ExportEngine) annotate(ctx context.Context, token string, prog chan<- ProgressUpdate, items []services.RecentlyPlayedItem, opts ExportOpts) ([]models.HistoryEntry, int) {
	entries := make([]models.HistoryEntry, len(items))
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	type job struct {
		index int
		item  services.RecentlyPlayedItem
	}
	jobs := make(chan job, len(items))

	var mu sync.Mutex
	failed := 0
	done := 0

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				entry := models.FromRecentlyPlayed(j.item)

				ok := j.item.TrackID != ""
				if ok {
					if err := limiter.Wait(ctx); err != nil {
						ok = false
					}
				}
				if ok {
					if rating, err := e.api.ItemRating(ctx, token, j.item.TrackID, services.ItemTrack); err != nil {
						ok = false
					} else if rating.Exists && rating.Rating != nil {
						if v, err := rating.Rating.Rating.Float(); err == nil {
							entry.Rating = &v
						}
					}
				}
				if ok {
					if review, err := e.api.ItemReview(ctx, token, j.item.TrackID, services.ItemTrack); err != nil {
						ok = false
					} else if review.Exists && review.Review != nil {
						text := review.Review.Text
						entry.Review = &text
					}
				}

				mu.Lock()
				entries[j.index] = entry
				if !ok && j.item.TrackID != "" {
					failed++
				}
				done++
				step := done
				mu.Unlock()

				e.sendProgress(prog, annotateUpdate(step, len(items), j.item.TrackName))
			}
		}()
	}

	for i, item := range items {
		jobs <- job{index: i, item: item}
	}
	close(jobs)
	wg.Wait()

	return entries, failed
}

// write serializes the export in the requested format.
func (e *ExportEngine) write(export *models.HistoryExport, opts ExportOpts) ([]string, error) {
	switch opts.Format {
	case "csv":
		res, err := formatter.WriteCSVExport(export, opts.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.HistoryFile, res.MetadataFile}, nil

	case "markdown", "md":
		path, err := formatter.WriteMarkdownExport(export, opts.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return []string{path}, nil

	case "txt":
		path, err := formatter.WriteTextExport(export, opts.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil

	case "json", "":
		path, err := formatter.WriteJSONExport(export, opts.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("JSON export failed: %w", err)
		}
		return []string{path}, nil

	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, opts.Format)
	}
}
