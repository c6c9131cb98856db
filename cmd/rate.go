package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/reconcile"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// Rate opens an editing session for one item, applies the flag values as
// drafts, and saves.
func (r *Runner) Rate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	itemID := cmd.StringArg("id")
	if itemID == "" {
		return fmt.Errorf("%w: item id is required", shared.ErrMissingArgument)
	}

	itemType, err := parseTypeFlag(cmd.String("type"))
	if err != nil {
		return err
	}
	if itemType == "" {
		itemType = services.ItemTrack
	}

	rating := cmd.String("rating")
	review := cmd.String("review")
	if rating == "" && review == "" {
		return fmt.Errorf("%w: provide --rating, --review, or both", shared.ErrMissingArgument)
	}

	rec := reconcile.NewReconciler(r.api, r.session, r.logger)
	item := &reconcile.SelectedItem{
		ID:    itemID,
		Type:  itemType,
		Title: cmd.String("name"),
	}

	if err := rec.Open(ctx, item); err != nil {
		return fmt.Errorf("failed to load current state: %w", err)
	}

	// Untouched flags keep the server's current value.
	if rating != "" {
		rec.SetRatingInput(rating)
	}
	if review != "" {
		rec.SetReviewInput(review)
	}

	if rec.Clean() {
		r.writePlain("Nothing to save\n")
		return nil
	}

	if err := rec.Save(ctx); err != nil {
		if msg := rec.SaveError(); msg != "" {
			return fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
		}
		return err
	}

	data := rec.Data()
	r.writePlain("✓ Saved\n")
	if data != nil && data.Rating != nil {
		r.writePlain("  Rating: %.2f/5\n", *data.Rating)
	}
	if data != nil && data.Review != nil {
		r.writePlain("  Review: %s\n", *data.Review)
	}
	return nil
}

// parseTypeFlag validates an optional --type value; empty means unfiltered.
func parseTypeFlag(s string) (services.ItemType, error) {
	if s == "" {
		return "", nil
	}
	itemType, err := services.ParseItemType(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return itemType, nil
}
