package reconcile_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/encore/internal/reconcile"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	tu "github.com/desertthunder/encore/internal/testing"
)

func trackItem() *reconcile.SelectedItem {
	return &reconcile.SelectedItem{
		ID:    "track-1",
		Type:  services.ItemTrack,
		Title: "Pink Moon",
	}
}

func newReconciler(api *tu.MockBackend, authed bool) *reconcile.Reconciler {
	tokens := &tu.StaticTokens{Authenticated: authed, Access: "tok"}
	return reconcile.NewReconciler(api, tokens, shared.NewLogger(io.Discard))
}

func existingRating(v string) *services.RatingLookup {
	return &services.RatingLookup{
		Exists: true,
		Rating: &services.RatingPayload{Rating: services.Decimal(v)},
	}
}

func existingReview(text string) *services.ReviewLookup {
	return &services.ReviewLookup{
		Exists: true,
		Review: &services.ReviewPayload{Text: text},
	}
}

func TestReconcilerFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("builds a baseline from both sub-resources", func(t *testing.T) {
		api := &tu.MockBackend{
			RatingFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.RatingLookup, error) {
				return existingRating("4.00"), nil
			},
			ReviewFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.ReviewLookup, error) {
				return existingReview("haunting"), nil
			},
		}
		r := newReconciler(api, true)

		if err := r.Open(ctx, trackItem()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data := r.Data()
		if data == nil {
			t.Fatal("expected baseline record")
		}
		if data.Rating == nil || *data.Rating != 4.0 {
			t.Errorf("expected rating 4.0, got %v", data.Rating)
		}
		if data.Review == nil || *data.Review != "haunting" {
			t.Errorf("expected review text, got %v", data.Review)
		}

		drafts := r.Drafts()
		if drafts.RatingInput != "4.00" {
			t.Errorf("expected seeded rating draft 4.00, got %q", drafts.RatingInput)
		}
		if drafts.ReviewInput != "haunting" {
			t.Errorf("expected seeded review draft, got %q", drafts.ReviewInput)
		}
	})

	t.Run("a non-2xx on one sub-resource degrades just that field", func(t *testing.T) {
		api := &tu.MockBackend{
			RatingFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.RatingLookup, error) {
				return nil, &services.StatusError{Resource: "rating", Code: 500}
			},
			ReviewFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.ReviewLookup, error) {
				return existingReview("still here"), nil
			},
		}
		r := newReconciler(api, true)

		if err := r.Open(ctx, trackItem()); err != nil {
			t.Fatalf("expected degraded fetch to succeed, got %v", err)
		}

		data := r.Data()
		if data == nil {
			t.Fatal("expected baseline record")
		}
		if data.Rating != nil {
			t.Errorf("expected rating absent, got %v", *data.Rating)
		}
		if data.Review == nil || *data.Review != "still here" {
			t.Errorf("expected review preserved, got %v", data.Review)
		}
		if r.FetchError() != "" {
			t.Errorf("expected no fetch error, got %q", r.FetchError())
		}
	})

	t.Run("a transport failure fails the fetch and clears the baseline", func(t *testing.T) {
		api := &tu.MockBackend{
			RatingFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.RatingLookup, error) {
				return nil, errors.New("connection refused")
			},
		}
		r := newReconciler(api, true)

		if err := r.Open(ctx, trackItem()); err == nil {
			t.Fatal("expected an error")
		}
		if r.Data() != nil {
			t.Error("expected baseline cleared")
		}
		if r.FetchError() == "" {
			t.Error("expected fetch error recorded")
		}
	})

	t.Run("missing token reports the fixed message", func(t *testing.T) {
		r := newReconciler(&tu.MockBackend{}, false)

		err := r.Open(ctx, trackItem())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if r.FetchError() != "Not authenticated" {
			t.Errorf("unexpected message %q", r.FetchError())
		}
	})

	t.Run("a re-fetch never clobbers in-progress edits", func(t *testing.T) {
		api := &tu.MockBackend{
			RatingFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.RatingLookup, error) {
				return existingRating("2.00"), nil
			},
		}
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())

		r.SetRatingInput("4.5")
		if err := r.Fetch(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := r.Drafts().RatingInput; got != "4.5" {
			t.Errorf("expected edit preserved, got %q", got)
		}
	})

	t.Run("a late transport failure for a deselected item is discarded", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		api := &tu.MockBackend{
			RatingFunc: func(_ context.Context, _, itemID string, _ services.ItemType) (*services.RatingLookup, error) {
				if itemID == "item-a" {
					close(entered)
					<-release
					return nil, errors.New("connection refused")
				}
				return existingRating("3.00"), nil
			},
		}
		r := newReconciler(api, true)

		itemA := &reconcile.SelectedItem{ID: "item-a", Type: services.ItemTrack, Title: "A"}
		done := make(chan error, 1)
		go func() { done <- r.Open(ctx, itemA) }()
		<-entered

		itemB := &reconcile.SelectedItem{ID: "item-b", Type: services.ItemTrack, Title: "B"}
		if err := r.Open(ctx, itemB); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		close(release)
		if err := <-done; err == nil {
			t.Fatal("expected the stale fetch to report its error to its caller")
		}

		data := r.Data()
		if data == nil || data.ItemID != "item-b" {
			t.Fatalf("late failure clobbered the current baseline, got %+v", data)
		}
		if r.FetchError() != "" {
			t.Errorf("late failure clobbered the fetch error, got %q", r.FetchError())
		}
	})

	t.Run("responses are matched on id and type together", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		api := &tu.MockBackend{
			RatingFunc: func(_ context.Context, _, _ string, itemType services.ItemType) (*services.RatingLookup, error) {
				if itemType == services.ItemTrack {
					close(entered)
					<-release
					return existingRating("5.00"), nil
				}
				return existingRating("2.00"), nil
			},
		}
		r := newReconciler(api, true)

		asTrack := &reconcile.SelectedItem{ID: "shared-id", Type: services.ItemTrack, Title: "X"}
		done := make(chan error, 1)
		go func() { done <- r.Open(ctx, asTrack) }()
		<-entered

		asAlbum := &reconcile.SelectedItem{ID: "shared-id", Type: services.ItemAlbum, Title: "X"}
		if err := r.Open(ctx, asAlbum); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data := r.Data()
		if data == nil || data.Rating == nil || *data.Rating != 2.0 {
			t.Errorf("late same-id response for a different type applied, got %+v", data)
		}
	})

	t.Run("out-of-range stored ratings are clamped in the seeded draft", func(t *testing.T) {
		api := &tu.MockBackend{
			RatingFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.RatingLookup, error) {
				return existingRating("9.50"), nil
			},
		}
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())

		if got := r.Drafts().RatingInput; got != "5.00" {
			t.Errorf("expected clamped draft 5.00, got %q", got)
		}
	})
}

func TestReconcilerClean(t *testing.T) {
	ctx := context.Background()

	api := &tu.MockBackend{
		RatingFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.RatingLookup, error) {
			return existingRating("3.00"), nil
		},
		ReviewFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.ReviewLookup, error) {
			return existingReview("fine"), nil
		},
	}

	t.Run("clean right after open", func(t *testing.T) {
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())
		if !r.Clean() {
			t.Error("expected clean drafts after open")
		}
	})

	t.Run("whitespace-only changes stay clean", func(t *testing.T) {
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())
		r.SetRatingInput(" 3.00 ")
		r.SetReviewInput("  fine  ")
		if !r.Clean() {
			t.Error("expected normalized drafts to match the baseline")
		}
	})

	t.Run("a real edit makes the drafts dirty", func(t *testing.T) {
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())
		r.SetRatingInput("4")
		if r.Clean() {
			t.Error("expected dirty drafts")
		}
	})

	t.Run("garbage rating text alone has nothing to save", func(t *testing.T) {
		r := newReconciler(&tu.MockBackend{}, true)
		r.Open(ctx, trackItem())
		r.SetRatingInput("abc")
		if !r.Clean() {
			t.Error("unparseable rating with no review must stay clean")
		}
	})
}

func TestReconcilerSave(t *testing.T) {
	ctx := context.Background()

	t.Run("missing token fails with the fixed message", func(t *testing.T) {
		r := newReconciler(&tu.MockBackend{}, false)
		if err := r.Open(ctx, trackItem()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated from open, got %v", err)
		}
		r.SetRatingInput("4")

		if err := r.Save(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if r.SaveError() != "Not authenticated" {
			t.Errorf("unexpected message %q", r.SaveError())
		}
	})

	t.Run("a failed rating write stops the review write", func(t *testing.T) {
		reviewCalls := 0
		api := &tu.MockBackend{
			SaveRatingFunc: func(_ context.Context, _ string, _ services.SaveRatingRequest) error {
				return &services.StatusError{Resource: "rating", Code: 500}
			},
			SaveReviewFunc: func(_ context.Context, _ string, _ services.SaveReviewRequest) error {
				reviewCalls++
				return nil
			},
		}
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())
		r.SetRatingInput("4")
		r.SetReviewInput("great")

		if err := r.Save(ctx); err == nil {
			t.Fatal("expected an error")
		}
		if reviewCalls != 0 {
			t.Errorf("review must never be sent after a rating failure, got %d calls", reviewCalls)
		}
		if r.SaveError() != "rating request failed with status 500" {
			t.Errorf("unexpected message %q", r.SaveError())
		}
	})

	t.Run("a failed review write leaves the rating committed", func(t *testing.T) {
		var saved services.SaveRatingRequest
		api := &tu.MockBackend{
			SaveRatingFunc: func(_ context.Context, _ string, req services.SaveRatingRequest) error {
				saved = req
				return nil
			},
			SaveReviewFunc: func(_ context.Context, _ string, _ services.SaveReviewRequest) error {
				return &services.StatusError{Resource: "review", Code: 503}
			},
		}
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())
		r.SetRatingInput("3.5")
		r.SetReviewInput("great")

		if err := r.Save(ctx); err == nil {
			t.Fatal("expected an error")
		}
		if saved.Rating != "3.50" {
			t.Errorf("expected rating written first, got %+v", saved)
		}
		if r.SaveError() != "review request failed with status 503" {
			t.Errorf("unexpected message %q", r.SaveError())
		}
	})

	t.Run("success merges only the saved parts into the baseline", func(t *testing.T) {
		api := &tu.MockBackend{
			ReviewFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.ReviewLookup, error) {
				return existingReview("old review"), nil
			},
		}
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())
		r.SetRatingInput("4.25")
		r.SetReviewInput("") // leave the review alone

		if err := r.Save(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data := r.Data()
		if data.Rating == nil || *data.Rating != 4.25 {
			t.Errorf("expected rating merged, got %v", data.Rating)
		}
		if data.Review == nil || *data.Review != "old review" {
			t.Errorf("expected untouched review preserved, got %v", data.Review)
		}
	})

	t.Run("nothing usable in the drafts saves nothing", func(t *testing.T) {
		ratingCalls := 0
		api := &tu.MockBackend{
			SaveRatingFunc: func(_ context.Context, _ string, _ services.SaveRatingRequest) error {
				ratingCalls++
				return nil
			},
		}
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())
		r.SetRatingInput("   ")

		if err := r.Save(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ratingCalls != 0 {
			t.Errorf("expected no requests, got %d", ratingCalls)
		}
	})

	t.Run("a no-op save clears a stale save error", func(t *testing.T) {
		api := &tu.MockBackend{
			SaveRatingFunc: func(_ context.Context, _ string, _ services.SaveRatingRequest) error {
				return &services.StatusError{Resource: "rating", Code: 500}
			},
		}
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())

		r.SetRatingInput("4")
		if err := r.Save(ctx); err == nil {
			t.Fatal("expected an error")
		}
		if r.SaveError() == "" {
			t.Fatal("expected a save error recorded")
		}

		r.SetRatingInput("")
		if err := r.Save(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.SaveError() != "" {
			t.Errorf("stale save error survived, got %q", r.SaveError())
		}
	})

	t.Run("out-of-range draft ratings are clamped before the write", func(t *testing.T) {
		var saved services.SaveRatingRequest
		api := &tu.MockBackend{
			SaveRatingFunc: func(_ context.Context, _ string, req services.SaveRatingRequest) error {
				saved = req
				return nil
			},
		}
		r := newReconciler(api, true)
		r.Open(ctx, trackItem())
		r.SetRatingInput("-2")

		if err := r.Save(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if saved.Rating != "0.00" {
			t.Errorf("expected clamped rating 0.00, got %q", saved.Rating)
		}
	})
}

func TestReconcilerClose(t *testing.T) {
	ctx := context.Background()

	api := &tu.MockBackend{
		RatingFunc: func(_ context.Context, _, _ string, _ services.ItemType) (*services.RatingLookup, error) {
			return existingRating("3.00"), nil
		},
	}
	r := newReconciler(api, true)
	r.Open(ctx, trackItem())
	r.SetReviewInput("draft text")

	r.Close()

	if r.Data() != nil {
		t.Error("expected baseline discarded")
	}
	if r.Drafts() != (reconcile.Drafts{}) {
		t.Error("expected drafts reset")
	}
	if r.FetchError() != "" || r.SaveError() != "" {
		t.Error("expected errors reset")
	}
}
