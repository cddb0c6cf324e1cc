// Command ledgerctl runs administrative tasks against a splitledger
// database: schema migrations, offline split previews, balance reports and
// group archiving.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Administer a splitledger database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().String("db", "./data/ledger.db", "path to the SQLite database")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		migrateCmd(),
		splitCmd(),
		balancesCmd(),
		archiveCmd("archive-group", "Archive a group", true),
		archiveCmd("restore-group", "Restore an archived group", false),
	)
	return root
}

// initConfig binds flags and SPLITLEDGER_* environment variables, e.g.
// SPLITLEDGER_DB for --db.
func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("SPLITLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	level := logging.ParseLevel(v.GetString("log-level"))
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, false))
	cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, v))
	return nil
}

type configKey struct{}

// settings returns the viper instance built by initConfig.
func settings(cmd *cobra.Command) *viper.Viper {
	if v, ok := cmd.Context().Value(configKey{}).(*viper.Viper); ok {
		return v
	}
	return viper.New()
}

func openStore(cmd *cobra.Command) (*sqlite.SQLiteStore, error) {
	dbPath := settings(cmd).GetString("db")
	slog.Debug("Opening database", "path", dbPath)
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	return store, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
