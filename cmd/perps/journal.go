package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/perps/journal"
)

var journalDB string

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the trade journal",
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade_id>",
	Short: "Show a single trade by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(journalDB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()

		rec, err := j.GetTrade(args[0])
		if err != nil {
			return err
		}
		fmt.Println(journal.FormatTradeOrg(rec))
		return nil
	},
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printDay(time.Now().Format("2006-01-02"))
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a given day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printDay(args[0])
	},
}

func printDay(day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(recs) == 0 {
		fmt.Printf("no trades closed on %s\n", day)
		return nil
	}
	fmt.Println(journal.FormatTradesOrg(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour), nil
}

func init() {
	journalCmd.PersistentFlags().StringVar(&journalDB, "db", "trades.db", "path to the SQLite journal")
	journalCmd.AddCommand(journalTradeCmd, journalTodayCmd, journalDayCmd)
	rootCmd.AddCommand(journalCmd)
}
