// Package reconcile implements the fetch/diff/save cycle for user-authored
// ratings and reviews.
//
// One editing session spans the interval from an item being opened to it
// being closed. On open, the reconciler reads the item's rating and review
// in parallel, combines them into a baseline [Record], and seeds the editable
// drafts from it exactly once. Saving is gated on the drafts diverging from
// the baseline and runs as a two-step saga: the rating write commits first,
// and only its success admits the review write. A failed second step leaves
// the first committed; there is no rollback because the backend offers none.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// notAuthenticatedMsg is the fixed message shown whenever a token is missing.
const notAuthenticatedMsg = "Not authenticated"

// Record is the last-known server state for one item's rating and review.
// Nil fields mean the server has no value for that sub-resource.
type Record struct {
	ItemID string
	Rating *float64
	Review *string
}

// Drafts holds the user's in-progress edits as raw text.
type Drafts struct {
	RatingInput string
	ReviewInput string
}

// API is the slice of the backend client the reconciler needs.
type API interface {
	ItemRating(ctx context.Context, token, itemID string, itemType services.ItemType) (*services.RatingLookup, error)
	ItemReview(ctx context.Context, token, itemID string, itemType services.ItemType) (*services.ReviewLookup, error)
	SaveRating(ctx context.Context, token string, req services.SaveRatingRequest) error
	SaveReview(ctx context.Context, token string, req services.SaveReviewRequest) error
}

// TokenSource supplies the current session token.
// session.Manager implements it.
type TokenSource interface {
	IsAuthenticated() bool
	AccessToken() string
}

// Reconciler drives one rating/review editing session at a time.
type Reconciler struct {
	api     API
	session TokenSource
	logger  *log.Logger

	mu             sync.Mutex
	item           *SelectedItem
	data           *Record
	drafts         Drafts
	initializedFor string
	fetchErr       string
	saveErr        string
}

// NewReconciler creates a Reconciler with no open session.
func NewReconciler(api API, session TokenSource, logger *log.Logger) *Reconciler {
	return &Reconciler{api: api, session: session, logger: logger}
}

// Open begins an editing session for item: drafts reset, prior errors
// dropped, baseline fetched. A nil item is equivalent to [Reconciler.Close].
func (r *Reconciler) Open(ctx context.Context, item *SelectedItem) error {
	r.mu.Lock()
	r.item = item
	r.data = nil
	r.drafts = Drafts{}
	r.initializedFor = ""
	r.fetchErr = ""
	r.saveErr = ""
	r.mu.Unlock()

	if item == nil {
		return nil
	}
	return r.Fetch(ctx)
}

// Close ends the editing session and discards all per-session state.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.item = nil
	r.data = nil
	r.drafts = Drafts{}
	r.initializedFor = ""
	r.fetchErr = ""
	r.saveErr = ""
}

// Fetch reads the item's rating and review and rebuilds the baseline.
//
// The two reads go out concurrently and are joined before the combined
// record is stored. A non-2xx on either sub-resource degrades just that
// field to absent with a warning; only a transport failure fails the fetch
// as a whole and clears the baseline. Responses for an item that is no
// longer selected are discarded. The drafts are seeded from the record the
// first time it arrives for this item; a manual re-fetch never clobbers
// in-progress edits.
func (r *Reconciler) Fetch(ctx context.Context) error {
	r.mu.Lock()
	item := r.item
	r.mu.Unlock()

	if item == nil {
		return nil
	}

	if !r.session.IsAuthenticated() {
		r.mu.Lock()
		r.data = nil
		r.fetchErr = notAuthenticatedMsg
		r.mu.Unlock()
		return shared.ErrNotAuthenticated
	}

	token := r.session.AccessToken()
	itemID := item.ID
	itemType := item.Type

	r.mu.Lock()
	r.fetchErr = ""
	r.mu.Unlock()

	var (
		wg        sync.WaitGroup
		rating    *services.RatingLookup
		review    *services.ReviewLookup
		ratingErr error
		reviewErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		rating, ratingErr = r.api.ItemRating(ctx, token, itemID, item.Type)
	}()
	go func() {
		defer wg.Done()
		review, reviewErr = r.api.ItemReview(ctx, token, itemID, item.Type)
	}()
	wg.Wait()

	record := Record{ItemID: itemID}

	if err := r.subResource("rating", ratingErr); err != nil {
		return r.failFetch(err, itemID, itemType)
	} else if ratingErr == nil && rating.Exists && rating.Rating != nil {
		if parsed, err := rating.Rating.Rating.Float(); err == nil {
			record.Rating = &parsed
		}
	}

	if err := r.subResource("review", reviewErr); err != nil {
		return r.failFetch(err, itemID, itemType)
	} else if reviewErr == nil && review.Exists && review.Review != nil {
		text := review.Review.Text
		record.Review = &text
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The selection may have moved on while the reads were in flight.
	if r.item == nil || r.item.ID != itemID || r.item.Type != itemType {
		return nil
	}

	r.data = &record

	if r.initializedFor != itemID {
		r.drafts = Drafts{}
		if record.Rating != nil {
			r.drafts.RatingInput = fmt.Sprintf("%.2f", clamp(*record.Rating))
		}
		if record.Review != nil {
			r.drafts.ReviewInput = *record.Review
		}
		r.initializedFor = itemID
	}

	return nil
}

// subResource decides how one of the two parallel reads affects the fetch:
// nil and non-2xx keep going (the latter degrades the field to absent),
// transport errors abort.
func (r *Reconciler) subResource(name string, err error) error {
	if err == nil {
		return nil
	}

	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		if r.logger != nil {
			r.logger.Warnf("%s item request failed: %d", name, statusErr.Code)
		}
		return nil
	}
	return err
}

// failFetch records a fetch-phase failure, unless the selection moved on
// while the reads were in flight; a late failure for a deselected item must
// not clobber the current item's state.
func (r *Reconciler) failFetch(err error, itemID string, itemType services.ItemType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.item == nil || r.item.ID != itemID || r.item.Type != itemType {
		return err
	}
	r.data = nil
	r.fetchErr = err.Error()
	return err
}

// SetRatingInput replaces the rating draft text.
func (r *Reconciler) SetRatingInput(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts.RatingInput = s
}

// SetReviewInput replaces the review draft text.
func (r *Reconciler) SetReviewInput(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts.ReviewInput = s
}

// Drafts returns the current draft texts.
func (r *Reconciler) Drafts() Drafts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drafts
}

// Data returns a copy of the baseline record, nil when none is loaded.
func (r *Reconciler) Data() *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil
	}
	copied := *r.data
	return &copied
}

// FetchError returns the current fetch-phase error message, empty when none.
func (r *Reconciler) FetchError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchErr
}

// SaveError returns the current save-phase error message, empty when none.
// Fetch and save errors are tracked separately so one never blocks retrying
// the other.
func (r *Reconciler) SaveError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveErr
}

// Clean reports whether saving is disabled: true when the drafts carry no
// usable value at all, or when their normalized form matches the baseline.
func (r *Reconciler) Clean() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleanLocked()
}

func (r *Reconciler) cleanLocked() bool {
	draftRating := parseRating(r.drafts.RatingInput)
	draftReview := normalizeReview(r.drafts.ReviewInput)

	if draftRating == nil && draftReview == nil {
		return true
	}

	var baseRating *float64
	var baseReview *string
	if r.data != nil {
		if r.data.Rating != nil {
			clamped := clamp(*r.data.Rating)
			baseRating = &clamped
		}
		baseReview = r.data.Review
	}

	return floatEqual(draftRating, baseRating) && stringEqual(draftReview, baseReview)
}

// Save runs the two-step save saga for the open item.
//
// The rating write, when applicable, is issued and resolved strictly before
// the review write; a rating failure means the review request is never sent.
// A review failure after a successful rating write is reported, but the
// rating stays committed server-side. On full success the baseline is merged
// field-by-field: only the parts actually saved replace their prior values.
// With nothing usable in the drafts, Save succeeds without issuing requests.
func (r *Reconciler) Save(ctx context.Context) error {
	r.mu.Lock()
	item := r.item
	drafts := r.drafts
	r.mu.Unlock()

	if item == nil {
		return nil
	}

	if !r.session.IsAuthenticated() {
		r.setSaveErr(notAuthenticatedMsg)
		return shared.ErrNotAuthenticated
	}
	token := r.session.AccessToken()

	draftRating := parseRating(drafts.RatingInput)
	draftReview := normalizeReview(drafts.ReviewInput)

	r.setSaveErr("")

	if draftRating == nil && draftReview == nil {
		return nil
	}

	if draftRating != nil {
		req := services.SaveRatingRequest{
			SpotifyID: item.ID,
			ItemType:  item.Type,
			ItemName:  item.Title,
			Rating:    fmt.Sprintf("%.2f", *draftRating),
		}
		if err := r.api.SaveRating(ctx, token, req); err != nil {
			r.setSaveErr(err.Error())
			return err
		}
	}

	if draftReview != nil {
		req := services.SaveReviewRequest{
			SpotifyID: item.ID,
			ItemType:  item.Type,
			ItemName:  item.Title,
			Text:      *draftReview,
		}
		if err := r.api.SaveReview(ctx, token, req); err != nil {
			r.setSaveErr(err.Error())
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil || r.data.ItemID != item.ID {
		r.data = &Record{ItemID: item.ID}
	}
	if draftRating != nil {
		r.data.Rating = draftRating
	}
	if draftReview != nil {
		r.data.Review = draftReview
	}

	return nil
}

func (r *Reconciler) setSaveErr(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = msg
}

// parseRating converts draft text to a clamped rating; nil when the text is
// not numeric.
func parseRating(input string) *float64 {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil
	}
	clamped := clamp(parsed)
	return &clamped
}

// normalizeReview trims draft text; nil when nothing remains.
func normalizeReview(input string) *string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// clamp bounds a rating to the closed interval [0, 5].
func clamp(v float64) float64 {
	return math.Min(5, math.Max(0, v))
}

func floatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
