package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"librarydesk/internal/enrich"
)

const enrichLockName = "librarydesk-enrich.lock"

var errEnrichRunning = errors.New("another enrichment run is in progress")

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var (
		batch    int
		lockPath string
	)
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fill in authors and titles for books registered without metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lockPath == "" {
				prof, err := ctx.ensureProfile()
				if err != nil {
					return err
				}
				lockPath = filepath.Join(prof.Desk.LockDir, enrichLockName)
			}
			lock := flock.New(lockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock %s: %w", lockPath, err)
			}
			if !ok {
				return fmt.Errorf("%w (lock %s)", errEnrichRunning, lockPath)
			}
			defer func() { _ = lock.Unlock() }()

			return ctx.withDesk(cmd.Context(), cmd.ErrOrStderr(), func(d *desk) error {
				meta, err := d.metadataService()
				if err != nil {
					return err
				}
				svc := enrich.NewService(d.enrichBooks, d.runs, meta, d.log, enrich.Config{BatchSize: batch})
				run, err := svc.Run(cmd.Context())
				if run != nil {
					fmt.Fprintln(cmd.OutOrStdout(), renderTable(
						[]string{"Run", "Store", "Status", "Scanned", "Enriched", "Skipped", "Failed"},
						[][]string{{
							run.ID, d.backend, string(run.Status),
							strconv.Itoa(run.Scanned), strconv.Itoa(run.Enriched),
							strconv.Itoa(run.Skipped), strconv.Itoa(run.Failed),
						}},
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
					))
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", enrich.DefaultBatchSize, "Books to process in this run")
	cmd.Flags().StringVar(&lockPath, "lock", "", "Lock file guarding concurrent runs (default in profile desk.lock_dir)")
	return cmd
}
