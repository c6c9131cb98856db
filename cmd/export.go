package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes an annotated listening-history snapshot to disk.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	opts := tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputPath: cmd.String("output"),
		Limit:      int(cmd.Int("limit")),
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.Run(ctx, r.session.AccessToken(), progress, opts)
	close(progress)
	wg.Wait()

	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	r.writePlainln("✓ Exported %d entries (%d annotated)", len(result.Export.Entries), result.AnnotatedCount)
	if result.AnnotateFailCount > 0 {
		r.writePlain("⚠ %d entries could not be annotated\n", result.AnnotateFailCount)
	}
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	return nil
}
