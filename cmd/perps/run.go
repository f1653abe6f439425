package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/perps/bybit"
	"github.com/rustyeddy/perps/config"
	"github.com/rustyeddy/perps/engine"
	"github.com/rustyeddy/perps/feed"
	"github.com/rustyeddy/perps/journal"
	"github.com/rustyeddy/perps/ledger"
	"github.com/rustyeddy/perps/notify"
	"github.com/rustyeddy/perps/risk"
	"github.com/rustyeddy/perps/state"
	"github.com/rustyeddy/perps/strategy"
)

var (
	liveMode bool
	testnet  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading engine against the live market feed",
	Long: `Run connects to the public market-data stream and trades the configured
strategies. By default fills are simulated (paper mode); --live places real
orders and requires exchange API credentials in the environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		secrets, err := config.LoadSecrets()
		if err != nil {
			return err
		}
		if liveMode && !secrets.HasExchange() {
			return fmt.Errorf("--live requires BYBIT_API_KEY and BYBIT_API_SECRET")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runEngine(ctx, cfg, secrets)
	},
}

func init() {
	runCmd.Flags().BoolVar(&liveMode, "live", false, "place real orders instead of simulating fills")
	runCmd.Flags().BoolVar(&testnet, "testnet", false, "use the exchange testnet for REST calls")
	rootCmd.AddCommand(runCmd)
}

func runEngine(ctx context.Context, cfg *config.Config, secrets *config.Secrets) error {
	var notifier notify.Notifier = notify.Nop{}
	if secrets.HasTelegram() {
		notifier = notify.NewTelegram(secrets.TelegramToken, secrets.TelegramChatID)
	}

	var jrnl journal.Journal
	if cfg.Journal.DBPath != "" {
		sq, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer sq.Close()
		jrnl = sq
	}

	riskMgr := risk.New(risk.Limits{
		MaxOpenPositions:  cfg.Risk.MaxOpenPositions,
		MaxPositionPct:    cfg.Risk.MaxPositionPct,
		DailyLossLimitPct: cfg.Risk.DailyLossLimitPct,
	}, cfg.Account.Capital, riskStatePath(cfg), log)
	if err := riskMgr.Load(); err != nil {
		return err
	}

	led := ledger.New(ledger.Params{
		Capital:  cfg.Account.Capital,
		Leverage: cfg.Trading.Leverage,
		FeeRate:  cfg.Trading.FeeRate,
	}, riskMgr, jrnl, log)

	strats, err := buildStrategies(cfg)
	if err != nil {
		return err
	}

	client := bybit.NewClient(restURL(), secrets.BybitAPIKey, secrets.BybitAPISecret, cfg.Feed.Interval)

	var placer strategy.OrderPlacer
	if liveMode {
		for _, sym := range cfg.Symbols() {
			if err := client.SetLeverage(ctx, sym, cfg.Trading.Leverage); err != nil {
				return err
			}
		}
		placer = client
	}

	disp := strategy.NewDispatcher(strategy.Params{
		PositionPct:   cfg.Risk.MaxPositionPct,
		StopLossPct:   cfg.Trading.StopLossPct,
		TakeProfitPct: cfg.Trading.TakeProfitPct,
		Leverage:      cfg.Trading.Leverage,
	}, strats, led, riskMgr, placer, notifier, log)

	eng := engine.New(cfg.Symbols(), led, riskMgr, disp, state.NewStore(cfg.State.Path), notifier, log)
	if err := eng.Restore(); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if err := eng.WarmUp(ctx, client); err != nil {
		return err
	}

	if err := notifier.Send(ctx, "Trading started\n"+eng.Summary()); err != nil {
		log.Warnf("notify start: %v", err)
	}

	sup := feed.NewSupervisor(feed.Config{
		URL:      cfg.Feed.URL,
		Symbols:  cfg.Symbols(),
		Interval: cfg.Feed.Interval,
	}, eng, log)

	err = sup.Run(ctx)

	// Flush state on the way out so a restart picks up where we stopped.
	if saveErr := eng.Save(); saveErr != nil {
		log.Errorf("save state on shutdown: %v", saveErr)
	}
	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}

func buildStrategies(cfg *config.Config) ([]strategy.Strategy, error) {
	strats := make([]strategy.Strategy, 0, len(cfg.Strategies))
	for _, sc := range cfg.Strategies {
		s, err := strategy.ByName(sc.Kind, sc.Name, sc.Symbol, sc.Params)
		if err != nil {
			return nil, err
		}
		strats = append(strats, s)
	}
	return strats, nil
}

// riskStatePath keeps the risk counters file next to the trading snapshot.
func riskStatePath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.State.Path), "risk_state.json")
}

func restURL() string {
	if testnet {
		return bybit.TestnetURL
	}
	return bybit.MainnetURL
}
