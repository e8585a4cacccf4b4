package main

import (
	"context"
	"fmt"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/app"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
	"github.com/spf13/cobra"
)

func ratelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ratelimit",
		Aliases: []string{"rl"},
		Short:   "Inspect and manage rate limit records in the configured backend",
	}
	cmd.AddCommand(ratelimitListCmd())
	cmd.AddCommand(ratelimitStatusCmd())
	cmd.AddCommand(ratelimitResetCmd())
	cmd.AddCommand(ratelimitSweepCmd())
	return cmd
}

// withApp connects the configured backends for the duration of fn.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func ratelimitListCmd() *cobra.Command {
	var (
		prefix string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records ordered by key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				records, err := a.Limiter.List(cmd.Context(), prefix, limit)
				if err != nil {
					return err
				}
				return renderRecords(cmd.OutOrStdout(), outputFormat, records)
			})
		},
	}
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Only keys starting with this prefix")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum records (max 1000)")
	return cmd
}

func ratelimitStatusCmd() *cobra.Command {
	var preset string
	cmd := &cobra.Command{
		Use:   "status <function> <identifier>",
		Short: "Show remaining requests without counting one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, id := args[0], args[1]
			if preset == "" {
				preset = fn
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				cfg, err := a.Presets.Get(preset)
				if err != nil {
					return err
				}
				res := a.Limiter.Status(cmd.Context(), fn, id, cfg)
				return renderStatus(cmd.OutOrStdout(), outputFormat, statusView{
					Key:         service.StorageKey(fn, id),
					Preset:      preset,
					MaxRequests: cfg.MaxRequests,
					Window:      cfg.Window.String(),
					Allowed:     res.Allowed,
					Remaining:   res.Remaining,
					ResetAt:     res.ResetAt,
				})
			})
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "Preset to evaluate against (defaults to the function name)")
	return cmd
}

func ratelimitResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <function> <identifier>",
		Short: "Delete the record so the identifier starts with a clean window",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				key := service.StorageKey(args[0], args[1])
				if !a.Limiter.Reset(cmd.Context(), args[0], args[1]) {
					return fmt.Errorf("reset %s failed, see log output", key)
				}
				if outputFormat == formatJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"reset": true, "key": key})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", key)
				return nil
			})
		},
	}
}

func ratelimitSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete records with no activity inside the stale window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				deleted, err := a.Limiter.Sweep(cmd.Context())
				if err != nil {
					return fmt.Errorf("sweep stopped after %d deletions: %w", deleted, err)
				}
				if outputFormat == formatJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"deleted": deleted})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d stale records\n", deleted)
				return nil
			})
		},
	}
}
