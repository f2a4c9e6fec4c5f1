package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/bellfinder/internal/dove"
	"github.com/stwalsh4118/bellfinder/internal/services"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dove-file>",
		Short: "Parse a Dove file and report problems without storing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := dove.ParseReader(f, opts.newLogger(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "rows: %d\ntowers: %d\nskipped: %d\n", result.Rows, len(result.Towers), len(result.Skipped))
			for _, rowErr := range result.Skipped {
				printf(out, "  %v\n", rowErr)
			}
			if len(result.Towers) == 0 {
				return services.ErrEmptyFeed
			}
			return nil
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.openStack(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			st.Close()
			printf(cmd.OutOrStdout(), "database is up to date\n")
			return nil
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "import <dove-file>",
		Short: "Replace the tower directory with a Dove file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			st, err := opts.openStack(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := st.towers.ImportDove(ctx, f)
			if err != nil {
				if errors.Is(err, services.ErrEmptyFeed) && report != nil {
					printf(cmd.OutOrStdout(), "rows: %d\nskipped: %d\n", report.Rows, len(report.Skipped))
				}
				return err
			}
			if version != "" {
				if err := st.prefs.SetDataVersion(ctx, version); err != nil {
					return fmt.Errorf("failed to record data version: %w", err)
				}
			}

			printf(cmd.OutOrStdout(), "rows: %d\ntowers: %d\nskipped: %d\n", report.Rows, report.Inserted, len(report.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "data-version", "", "record this Dove data version after a successful import")
	return cmd
}

func newExportVisitsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export-visits [file]",
		Short: "Write the visit log as a CSV backup (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := opts.openStack(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var w io.Writer = cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := st.visits.ExportVisits(ctx, w)
			if err != nil {
				return err
			}
			st.log.Info("Visits exported", map[string]interface{}{"visits": n})
			return nil
		},
	}
}

func newImportVisitsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-visits <file>",
		Short: "Restore or append visits from a CSV backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			st, err := opts.openStack(ctx, cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := st.visits.ImportVisits(ctx, f)
			if err != nil {
				return err
			}

			mode := "appended"
			if report.Restore {
				mode = "restored"
			}
			printf(cmd.OutOrStdout(), "rows: %d\n%s: %d\n", report.Rows, mode, report.Inserted)
			return nil
		},
	}
}
