package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oldleaf/shelfscan/internal/batch"
	"github.com/oldleaf/shelfscan/internal/catalog"
	"github.com/oldleaf/shelfscan/internal/export"
	"github.com/oldleaf/shelfscan/internal/imaging"
	"github.com/oldleaf/shelfscan/internal/models"
	"github.com/oldleaf/shelfscan/internal/pipeline"
	"github.com/oldleaf/shelfscan/internal/synopsis"
	"github.com/oldleaf/shelfscan/internal/vision"
	"github.com/spf13/cobra"
)

func newProcessCmd() *cobra.Command {
	var (
		dir      string
		out      string
		snapshot string
		noCrop   bool
		model    string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Catalog a directory of cover photos and build the import feed",
		Long: `Processes every image in a directory through the cataloging pipeline and
writes the bulk-import feed archive.

Filenames that start with digits pre-fill the price field, e.g. 380.1.jpg
lists the book at 380. Failed items are reported and skipped; they never
abort the run.`,
		Example: `  # Catalog a folder of photos into a dated feed zip
  shelfscan process --dir ./photos

  # Custom output name, no auto-cropping
  shelfscan process --dir ./photos --out feed.zip --no-crop

  # Also dump a parquet snapshot of the accepted catalog
  shelfscan process --dir ./photos --snapshot catalog.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := batch.New(pipeline.New(vision.New(model), synopsis.New(model)))
			store := catalog.New()

			dirEntries, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("failed to read directory: %w", err)
			}
			for _, de := range dirEntries {
				if de.IsDir() {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, de.Name()))
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", de.Name(), err)
				}
				if imaging.Format(data) == "" {
					slog.Debug("Skipping non-image file", "name", de.Name())
					continue
				}
				orch.Add(de.Name(), data)
			}

			if len(orch.Items()) == 0 {
				return fmt.Errorf("no images found in %s", dir)
			}

			if err := orch.Run(cmd.Context(), !noCrop); err != nil {
				return err
			}

			failed := 0
			for _, item := range orch.Items() {
				if item.Status == models.StatusFailed {
					failed++
					slog.Warn("Item failed", "filename", item.Filename)
				}
			}

			accepted := store.AcceptBatch(orch.TakeCompleted())

			if snapshot != "" {
				f, err := os.Create(snapshot)
				if err != nil {
					return fmt.Errorf("failed to create snapshot file: %w", err)
				}
				if err := export.WriteSnapshot(f, store.History()); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("failed to close snapshot file: %w", err)
				}
				slog.Info("Catalog snapshot written", "path", snapshot)
			}

			now := time.Now()
			feed, err := export.BuildFeed(store.History(), now)
			if errors.Is(err, export.ErrNothingToExport) {
				slog.Warn("No items completed, nothing to export", "failed", failed)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to build feed: %w", err)
			}

			if out == "" {
				out = export.ArchiveName(now)
			}
			if err := os.WriteFile(out, feed, 0644); err != nil {
				return fmt.Errorf("failed to write feed archive: %w", err)
			}
			store.ArchiveAll()

			slog.Info("Feed written", "path", out, "entries", len(accepted), "failed", failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory of cover photos to process (required)")
	cmd.Flags().StringVar(&out, "out", "", "Feed archive path (default: dated name in the working directory)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Also write a parquet snapshot of the accepted catalog")
	cmd.Flags().BoolVar(&noCrop, "no-crop", false, "Disable bounding-box cover cropping")
	cmd.Flags().StringVar(&model, "model", "", "Gemini model name (default: SHELFSCAN_MODEL or the flash model)")

	if err := cmd.MarkFlagRequired("dir"); err != nil {
		slog.Error("Unable to mark flag required", "err", err)
	}

	return cmd
}
