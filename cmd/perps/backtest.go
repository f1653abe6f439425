package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/perps/backtest"
	"github.com/rustyeddy/perps/bybit"
)

var backtestLimit int

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical candles through the configured strategies",
	Long: `Backtest fetches recent candle history for each configured strategy's
symbol and replays it through the same dispatcher and ledger the live engine
uses. Each strategy runs in isolation with its own starting balance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		strats, err := buildStrategies(cfg)
		if err != nil {
			return err
		}

		client := bybit.NewClient(restURL(), "", "", cfg.Feed.Interval)

		opts := backtest.Options{
			Capital:       cfg.Account.Capital,
			Leverage:      cfg.Trading.Leverage,
			FeeRate:       cfg.Trading.FeeRate,
			PositionPct:   cfg.Risk.MaxPositionPct,
			StopLossPct:   cfg.Trading.StopLossPct,
			TakeProfitPct: cfg.Trading.TakeProfitPct,
			// Isolated single-strategy replays: the portfolio ceilings are
			// effectively disabled so sizing matches the compounding balance.
			MaxPositionPct:   1.0,
			MaxOpenPositions: 1,
		}

		for _, strat := range strats {
			candles, err := client.FetchKlines(cmd.Context(), strat.Symbol(), backtestLimit)
			if err != nil {
				return err
			}
			fmt.Printf("=== %s (%d candles) ===\n", strat.Symbol(), len(candles))

			res, err := backtest.Run(cmd.Context(), strat, candles, opts, log)
			if err != nil {
				return err
			}
			fmt.Println(res)
		}
		return nil
	},
}

func init() {
	backtestCmd.Flags().IntVar(&backtestLimit, "limit", 1000, "number of historical candles to replay")
	rootCmd.AddCommand(backtestCmd)
}
