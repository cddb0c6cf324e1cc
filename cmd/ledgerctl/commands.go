package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := settings(cmd).GetString("db")
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
			if err := sqlite.RunMigrations(dbPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema of %s is up to date\n", dbPath)
			return nil
		},
	}
}

func splitCmd() *cobra.Command {
	var (
		shares  map[string]int64
		amounts map[string]string
	)
	cmd := &cobra.Command{
		Use:   "split AMOUNT PARTICIPANT...",
		Short: "Preview how an amount is split, without recording it",
		Example: `  ledgerctl split 100 alice bob carol
  ledgerctl split 90 alice bob --shares alice=1,bob=2
  ledgerctl split 50 alice bob --amounts alice=20,bob=30`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			strategy, err := buildStrategy(shares, amounts)
			if err != nil {
				return err
			}
			alloc, err := calculator.Calculate(amount, args[1:], strategy)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "PARTICIPANT\tAMOUNT\n")
			for _, s := range alloc {
				fmt.Fprintf(w, "%s\t%s\n", s.ParticipantID, s.Amount.StringFixed(2))
			}
			fmt.Fprintf(w, "TOTAL\t%s\n", alloc.Total().StringFixed(2))
			return w.Flush()
		},
	}
	cmd.Flags().StringToInt64Var(&shares, "shares", nil, "split by share counts, e.g. alice=1,bob=2")
	cmd.Flags().StringToStringVar(&amounts, "amounts", nil, "split by exact amounts, e.g. alice=20,bob=30")
	return cmd
}

// buildStrategy picks the split strategy from the --shares and --amounts
// flags. Neither flag means an even split.
func buildStrategy(shares map[string]int64, amounts map[string]string) (models.SplitStrategy, error) {
	switch {
	case len(shares) > 0 && len(amounts) > 0:
		return nil, errors.New("--shares and --amounts are mutually exclusive")
	case len(shares) > 0:
		return models.NewShareSplit(shares)
	case len(amounts) > 0:
		parsed := make(map[string]decimal.Decimal, len(amounts))
		for id, s := range amounts {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("invalid amount %q for %s", s, id)
			}
			parsed[id] = d
		}
		return models.NewCustomSplit(parsed)
	}
	return models.EvenSplit{}, nil
}

func balancesCmd() *cobra.Command {
	var (
		concurrency int
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "balances USER_ID",
		Short: "Print a user's balances across all groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := ledger.NewBalanceService(store,
				ledger.WithConcurrency(concurrency),
				ledger.WithGroupTimeout(timeout),
			)
			total, err := svc.GetTotalBalances(cmd.Context(), args[0])
			var partial *errs.PartialFailure
			if err != nil && !errors.As(err, &partial) {
				return err
			}
			if err := printBalances(cmd, total); err != nil {
				return err
			}
			// Partial results are printed, then reported as a failure.
			return err
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "groups loaded in parallel")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "time limit per group")
	return cmd
}

func printBalances(cmd *cobra.Command, total *ledger.TotalBalances) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "GROUP\tCOUNTERPARTY\tNET\n")
	for _, g := range total.Groups {
		name := g.GroupName
		if g.Archived {
			name += " (archived)"
		}
		if len(g.Counterparties) == 0 {
			fmt.Fprintf(w, "%s\t-\tsettled up\n", name)
			continue
		}
		for _, p := range g.Counterparties {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, p.CounterpartyID, p.Net.StringFixed(2))
		}
	}
	fmt.Fprintf(w, "\nYOU OWE\t\t%s\n", total.YouOwe.StringFixed(2))
	fmt.Fprintf(w, "YOU'RE OWED\t\t%s\n", total.YoureOwed.StringFixed(2))

	failed := make([]string, len(total.Failed))
	for i, f := range total.Failed {
		failed[i] = f.GroupID
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(w, "UNAVAILABLE\t%s\t\n", id)
	}
	return w.Flush()
}

func archiveCmd(use, short string, archived bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " GROUP_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetGroupArchived(cmd.Context(), args[0], archived, time.Now().Unix()); err != nil {
				return err
			}
			state := "active"
			if archived {
				state = "archived"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "group %s is now %s\n", args[0], state)
			return nil
		},
	}
}
