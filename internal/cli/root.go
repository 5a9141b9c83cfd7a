// Package cli implements talkahctl, the operations command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/talkah/talkah-backend/internal/app"
	"github.com/talkah/talkah-backend/internal/config"
	"github.com/talkah/talkah-backend/internal/database"
	"github.com/talkah/talkah-backend/internal/logging"
)

// runtime holds what subcommands share once the root pre-run has connected.
type runtime struct {
	cfg *config.Config
	db  *gorm.DB
}

func (r *runtime) services() *app.Services {
	return app.NewServices(r.cfg, r.db, app.Transports{Billing: app.NewBilling(r.cfg)})
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}
	var logLevel string

	root := &cobra.Command{
		Use:   "talkahctl",
		Short: "Talkah operations CLI",
		Long: `talkahctl runs maintenance tasks against the Talkah database:
schema migrations, applying due plan changes and inspecting a user's usage.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(logLevel)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			rt.cfg, rt.db = cfg, db
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if rt.db == nil {
				return nil
			}
			return database.Close(rt.db)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newMigrateCmd(rt))
	root.AddCommand(newPlanChangesCmd(rt))
	root.AddCommand(newUsageCmd(rt))
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
