// Package cli is the choreboss command line: the HTTP server plus a few
// roster commands for use from a terminal.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreboss/internal/authz"
	"github.com/dukerupert/choreboss/internal/config"
	"github.com/dukerupert/choreboss/internal/credential"
	"github.com/dukerupert/choreboss/internal/database"
	"github.com/dukerupert/choreboss/internal/logging"
	"github.com/dukerupert/choreboss/internal/store"
	"github.com/dukerupert/choreboss/internal/tracker"
)

// RootOptions holds global flags and what PersistentPreRunE derives from
// them.
type RootOptions struct {
	DBPath    string
	LogLevel  string
	LogFormat string

	Config *config.Config
	Logger *slog.Logger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "choreboss",
		Short:         "Household chore rotation tracker",
		Long:          "choreboss keeps a household roster in rotation order and hands each chore to the next person when it is done.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (default from CHOREBOSS_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRosterCommand(opts))
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewCompleteCommand(opts))

	return cmd
}

// load reads the environment, lets flags override it, and installs the
// logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid log format %q: must be text or json", cfg.LogFormat))
	}

	o.Config = cfg
	o.Logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(o.Logger)
	return nil
}

// openTracker opens the database and builds a tracker on it. The caller
// closes the returned *sql.DB.
func (o *RootOptions) openTracker() (*tracker.Service, *sql.DB, error) {
	db, err := database.Open(o.Config.DBPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open database", err)
	}
	hasher := credential.NewBcrypt(o.Config.BcryptCost)
	policy, err := authz.New(store.NewPersonStore(db), store.NewChoreStore(db), hasher,
		authz.WithLogger(o.Logger.With("component", "authz")))
	if err != nil {
		db.Close()
		return nil, nil, WrapExitError(ExitCommandError, "load policy", err)
	}
	svc := tracker.New(db, hasher, policy, tracker.SystemClock{},
		tracker.WithLogger(o.Logger.With("component", "tracker")))
	return svc, db, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
