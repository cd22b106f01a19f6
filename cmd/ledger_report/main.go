package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"library-lending/internal/config"
	"library-lending/library"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04"

func main() {
	if err := newReportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newReportCmd() *cobra.Command {
	var (
		top     int
		entries bool
		session string
	)
	cmd := &cobra.Command{
		Use:          "ledger_report [LEDGER]",
		Short:        "Print lending reports from a SQLite ledger file",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ledgerPath(args)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), path, session, top, entries)
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of most borrowed books to show")
	cmd.Flags().BoolVar(&entries, "entries", false, "also list every checkout")
	cmd.Flags().StringVar(&session, "session", library.AllSessions, "restrict the report to one session id")
	return cmd
}

// ledgerPath takes the path from the command line, falling back to LIBRARY_LEDGER_PATH.
func ledgerPath(args []string) (string, error) {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			return "", err
		}
		path = cfg.Ledger.Path
	}
	if path == library.MemoryLedger {
		return "", errors.New("an in-memory ledger cannot be reported on; pass a ledger file")
	}
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrap(err, "ledger not accessible")
	}
	return path, nil
}

func report(w io.Writer, path, session string, top int, withEntries bool) error {
	ledger, err := library.OpenLedger(path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	counts, err := ledger.MostBorrowed(session, top)
	if err != nil {
		return errors.Wrap(err, "most borrowed")
	}
	totals, err := ledger.UserTotals(session)
	if err != nil {
		return errors.Wrap(err, "user totals")
	}

	fmt.Fprintf(w, "Ledger: %s\n", path)
	if session != library.AllSessions {
		fmt.Fprintf(w, "Session: %s\n", session)
	}
	fmt.Fprintln(w)
	library.WriteReport(w, counts, totals)

	if !withEntries || len(counts) == 0 {
		return nil
	}
	all, err := ledger.Entries(session)
	if err != nil {
		return errors.Wrap(err, "entries")
	}
	fmt.Fprintln(w, "\nCheckouts:")
	fmt.Fprintf(w, "%-8s %-20s %-14s %-30s %-17s %s\n", "Session", "User", "ISBN", "Title", "Checked out", "Returned")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, e := range all {
		returned := "-"
		if e.ReturnTime != nil {
			returned = e.ReturnTime.Format(timeLayout)
		}
		fmt.Fprintf(w, "%-8s %-20s %-14s %-30s %-17s %s\n",
			e.Session[:min(8, len(e.Session))],
			library.TruncateString(e.UserName, 20), e.ISBN, library.TruncateString(e.Title, 30),
			e.CheckoutTime.Format(timeLayout), returned)
	}
	return nil
}
