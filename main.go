package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"library-lending/internal/config"
	"library-lending/library"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var (
		seed        string
		ledger      string
		logLevel    string
		borrowLimit int
	)

	cmd := &cobra.Command{
		Use:          "library",
		Short:        "In-memory library lending system",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("seed") {
				cfg.Library.SeedFile = seed
			}
			if flags.Changed("ledger") {
				cfg.Ledger.Path = ledger
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if flags.Changed("borrow-limit") {
				cfg.Library.BorrowLimit = borrowLimit
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, in, out)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)

	cmd.Flags().StringVar(&seed, "seed", "", "JSON file with books and users to preload")
	cmd.Flags().StringVar(&ledger, "ledger", "", "SQLite ledger path (default in memory)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	cmd.Flags().IntVar(&borrowLimit, "borrow-limit", 0, "borrow limit for new users")

	cmd.AddCommand(newCheckISBNCmd())
	return cmd
}

func newCheckISBNCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-isbn ISBN...",
		Short: "Validate ISBN-10/ISBN-13 check digits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invalid := 0
			for _, isbn := range args {
				status := "valid"
				if !library.ValidISBN(isbn) {
					status = "INVALID"
					invalid++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", isbn, status)
			}
			if invalid > 0 {
				return fmt.Errorf("%d invalid ISBN(s)", invalid)
			}
			return nil
		},
	}
}

// run wires the library with fx and hands it to the REPL until the user exits.
func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	var mgr *library.LibraryManager
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			newLibraryManager,
		),
		fx.Populate(&mgr),
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down: %v\n", err)
		}
	}()

	return newREPL(in, out, mgr).Run()
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

func newLibraryManager(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*library.LibraryManager, error) {
	mgr, err := library.NewLibraryManager(library.Options{
		LedgerPath:  cfg.Ledger.Path,
		BorrowLimit: cfg.Library.BorrowLimit,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Library.SeedFile != "" {
		books, users, err := mgr.LoadSeedFile(cfg.Library.SeedFile)
		if err != nil {
			mgr.Close()
			return nil, err
		}
		logger.Info("seed loaded", slog.String("file", cfg.Library.SeedFile), slog.Int("books", books), slog.Int("users", users))
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return mgr.Close()
		},
	})
	return mgr, nil
}
