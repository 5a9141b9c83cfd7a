package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talkah/talkah-backend/internal/database"
)

func newMigrateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(rt.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newPlanChangesCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan-changes",
		Short: "Manage scheduled plan changes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Apply every pending plan change whose effective date has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := rt.services().Subscriptions.ApplyDuePlanChanges(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d plan change(s)\n", applied)
			if err != nil {
				return fmt.Errorf("some plan changes failed: %w", err)
			}
			return nil
		},
	})
	return cmd
}

func newUsageCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <user-id>",
		Short: "Print a user's usage for the current period",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(args[0]); err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := uuid.MustParse(args[0])
			summary, err := rt.services().Usage.Summary(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}
