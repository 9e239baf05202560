package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mzahran/scalpbot/internal/cache/redis"
	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/engine"
	"github.com/mzahran/scalpbot/internal/executor"
	"github.com/mzahran/scalpbot/internal/journal"
	"github.com/mzahran/scalpbot/internal/notify"
	"github.com/mzahran/scalpbot/internal/risk"
	"github.com/mzahran/scalpbot/internal/server"
	"github.com/mzahran/scalpbot/internal/server/handler"
	"github.com/mzahran/scalpbot/internal/server/ws"
	"github.com/mzahran/scalpbot/internal/service"
)

// core bundles the decision and execution components one mode runs with.
// trades is nil in monitor mode; nothing downstream of it can place orders.
type core struct {
	engine  *engine.Engine
	riskMgr *risk.Manager
	trades  *service.TradeService
	state   *service.BotState
}

// buildCore constructs the engine, risk manager, and bot state from config.
// When withTrading is set it also builds the executor and trade service.
func (a *App) buildCore(deps *Dependencies, withTrading bool) *core {
	eng := engine.New(deps.Broker, engine.Config{
		MinConfluence:     a.cfg.Engine.MinConfluence,
		SkipExtremeRegime: a.cfg.Engine.SkipExtremeRegime,
		HistoryLimit:      a.cfg.Engine.HistoryLimit,
	}, a.logger)

	riskMgr := risk.NewManager(deps.Broker, risk.Config{
		MaxRiskPerTradePct: a.cfg.Risk.MaxRiskPerTradePct,
		MaxDailyLossPct:    a.cfg.Risk.MaxDailyLossPct,
		MaxOpenPositions:   a.cfg.Risk.MaxOpenPositions,
		FreeMarginMinPct:   a.cfg.Risk.FreeMarginMinPct,
		MaxLotSize:         a.cfg.Trading.MaxLotSize,
		MinLotOverrides:    a.cfg.Risk.MinLotOverrides,
		CorrelatedPairs:    a.cfg.Risk.CorrelatedPairs,
	}, a.logger)

	state := service.NewBotState(a.cfg.Trading.AutoExecute)

	c := &core{engine: eng, riskMgr: riskMgr, state: state}

	if withTrading {
		exec := executor.New(deps.Broker, deps.Broker, executor.Config{
			MaxLotSize: a.cfg.Trading.MaxLotSize,
			Magic:      a.cfg.Broker.Magic,
			Deviation:  a.cfg.Broker.Deviation,
		}, a.logger)
		c.trades = service.NewTradeService(riskMgr, exec, deps.Broker, deps.SignalBus, state, deps.Notifier, a.logger)

		if a.cfg.Trading.AutoExecute {
			for _, symbol := range a.cfg.Trading.Symbols {
				eng.SetAutoExecute(symbol, true)
			}
		}
	}

	return c
}

// loadSettings restores persisted strategy enable flags and overrides into
// the engine. A missing store or an empty table is not an error.
func (a *App) loadSettings(ctx context.Context, deps *Dependencies, eng *engine.Engine) {
	if deps.SettingsStore == nil {
		return
	}
	settings, err := deps.SettingsStore.List(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "loading strategy settings failed",
			slog.String("error", err.Error()),
		)
		return
	}
	eng.ApplySettings(settings)
	a.logger.InfoContext(ctx, "strategy settings restored",
		slog.Int("count", len(settings)),
	)
}

// TradeMode runs the full pipeline: per-symbol signal loops, account
// reconciliation, auto-execution of accepted signals, and the HTTP server.
// Orders are only placed once the bot is armed over the API.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode",
		slog.Any("symbols", a.cfg.Trading.Symbols),
		slog.Bool("auto_execute", a.cfg.Trading.AutoExecute),
	)

	c := a.buildCore(deps, true)
	a.loadSettings(ctx, deps, c.engine)

	g, ctx := errgroup.WithContext(ctx)

	for _, symbol := range a.cfg.Trading.Symbols {
		symbol := symbol
		g.Go(func() error {
			return a.signalLoop(ctx, deps, c, symbol)
		})
	}

	g.Go(func() error {
		return a.accountLoop(ctx, deps, c)
	})

	a.startJournal(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, c)
	}

	return g.Wait()
}

// MonitorMode runs the signal and account loops and the HTTP server, but
// builds no execution path: signals are generated and published only.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Any("symbols", a.cfg.Trading.Symbols),
	)

	c := a.buildCore(deps, false)
	a.loadSettings(ctx, deps, c.engine)

	g, ctx := errgroup.WithContext(ctx)

	for _, symbol := range a.cfg.Trading.Symbols {
		symbol := symbol
		g.Go(func() error {
			return a.signalLoop(ctx, deps, c, symbol)
		})
	}

	g.Go(func() error {
		return a.accountLoop(ctx, deps, c)
	})

	a.startJournal(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, c)

	return g.Wait()
}

// ServerMode serves the API without a terminal session: strategy settings,
// bot state, and the WebSocket bridge. Useful for dashboards pointed at a
// shared Redis while the trading process runs elsewhere.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	eng := engine.New(nil, engine.Config{
		MinConfluence:     a.cfg.Engine.MinConfluence,
		SkipExtremeRegime: a.cfg.Engine.SkipExtremeRegime,
		HistoryLimit:      a.cfg.Engine.HistoryLimit,
	}, a.logger)
	a.loadSettings(ctx, deps, eng)

	state := service.NewBotState(false)

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		Symbols:   a.cfg.Trading.Symbols,
		StartedAt: time.Now(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, serverHandlers(deps, eng, state, a), hub, a.logger)

	a.runServer(ctx, g, srv)

	return g.Wait()
}

// serverHandlers builds the reduced handler set for server mode: no broker,
// no execution path.
func serverHandlers(deps *Dependencies, eng *engine.Engine, state *service.BotState, a *App) server.Handlers {
	h := server.Handlers{
		Health:   handler.NewHealthHandler(nil, a.logger),
		Strategy: handler.NewStrategyHandler(eng, deps.SettingsStore, a.logger),
		Bot:      handler.NewBotHandler(state, a.logger),
	}
	if deps.JournalReader != nil {
		h.Journal = handler.NewJournalHandler(deps.JournalReader, a.cfg.Journal.Prefix, a.logger)
	}
	return h
}

// signalLoop evaluates one symbol on the configured cadence. Evaluation
// errors are logged and the loop keeps going; a cancelled context ends it.
func (a *App) signalLoop(ctx context.Context, deps *Dependencies, c *core, symbol string) error {
	interval := a.cfg.Engine.SignalInterval.Duration
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "signal loop started",
		slog.String("symbol", symbol),
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !c.state.Running() {
				a.logger.InfoContext(ctx, "signal loop stopping", slog.String("symbol", symbol))
				return nil
			}
			if c.state.Paused() {
				continue
			}

			a.cacheTick(ctx, deps, symbol)

			sig, regime, err := c.engine.Evaluate(ctx, symbol)
			if err != nil {
				a.logger.WarnContext(ctx, "evaluation failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
				continue
			}
			if sig == nil {
				continue
			}

			a.publishSignal(ctx, deps.SignalBus, *sig, regime)

			if c.trades != nil && c.state.AutoTrade() && c.engine.AutoExecute(symbol) {
				decision, outcome, err := c.trades.ExecuteSignal(ctx, *sig, regime)
				switch {
				case err != nil:
					a.logger.ErrorContext(ctx, "auto-execution failed",
						slog.String("symbol", symbol),
						slog.String("error", err.Error()),
					)
				case !decision.Approved:
					a.logger.InfoContext(ctx, "auto-execution rejected",
						slog.String("symbol", symbol),
						slog.String("reason", decision.Reason),
					)
				case outcome != nil:
					a.logger.InfoContext(ctx, "auto-execution result",
						slog.String("symbol", symbol),
						slog.Bool("success", outcome.Success),
						slog.String("message", outcome.Message),
					)
				}
			}
		}
	}
}

// accountLoop reconciles the risk manager's daily PnL baseline against the
// live account on the configured cadence and publishes account snapshots.
func (a *App) accountLoop(ctx context.Context, deps *Dependencies, c *core) error {
	interval := a.cfg.Engine.AccountInterval.Duration
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wasPaused bool

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !c.state.Running() {
				return nil
			}

			snapshot, err := deps.Broker.AccountSnapshot(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "account reconciliation failed",
					slog.String("error", err.Error()),
				)
				continue
			}

			c.riskMgr.SyncFromAccount(snapshot.Balance)

			paused := c.riskMgr.IsPaused()
			if paused && !wasPaused && deps.Notifier != nil {
				msg := fmt.Sprintf("daily PnL %s, balance %.2f",
					c.riskMgr.DailyPnL().StringFixed(2), snapshot.Balance)
				if err := deps.Notifier.Notify(ctx, notify.EventRiskPaused, "Trading paused by risk manager", msg); err != nil {
					a.logger.WarnContext(ctx, "risk pause notification failed",
						slog.String("error", err.Error()),
					)
				}
			}
			wasPaused = paused

			payload, err := json.Marshal(map[string]any{
				"type":      "account",
				"account":   snapshot,
				"daily_pnl": c.riskMgr.DailyPnL(),
				"paused":    c.riskMgr.IsPaused(),
			})
			if err != nil {
				continue
			}
			if err := deps.SignalBus.Publish(ctx, redis.ChannelAccount, payload); err != nil {
				a.logger.WarnContext(ctx, "publish account failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// startJournal runs the stream archiver under the group when journal
// storage is wired.
func (a *App) startJournal(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.JournalWriter == nil {
		return
	}

	arch := journal.NewArchiver(deps.SignalBus, deps.JournalWriter, deps.JournalReader, journal.Config{
		Streams: map[string]string{
			"signals": redis.StreamSignals,
			"orders":  redis.StreamOrders,
		},
		Prefix:        a.cfg.Journal.Prefix,
		Interval:      a.cfg.Journal.Interval.Duration,
		RetentionDays: a.cfg.Journal.RetentionDays,
	}, a.logger)

	g.Go(func() error {
		return arch.Run(ctx)
	})
}

// cacheTick stores the symbol's latest quote so the API can serve it
// without touching the terminal. Best-effort.
func (a *App) cacheTick(ctx context.Context, deps *Dependencies, symbol string) {
	tick, err := deps.Broker.GetTick(ctx, symbol)
	if err != nil || tick == nil {
		return
	}
	if err := deps.TickCache.SetTick(ctx, symbol, *tick); err != nil {
		a.logger.WarnContext(ctx, "tick cache update failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
}

// publishSignal fans an accepted signal out on the bus and appends it to
// the durable stream. Best-effort.
func (a *App) publishSignal(ctx context.Context, bus domain.SignalBus, sig domain.SignalResult, regime domain.VolatilityRegime) {
	payload, err := json.Marshal(map[string]any{
		"type":   "signal",
		"signal": sig,
		"regime": regime,
	})
	if err != nil {
		return
	}

	if err := bus.Publish(ctx, redis.ChannelSignals, payload); err != nil {
		a.logger.WarnContext(ctx, "publish signal failed", slog.String("error", err.Error()))
	}
	if err := bus.StreamAppend(ctx, redis.StreamSignals, payload); err != nil {
		a.logger.WarnContext(ctx, "stream append failed", slog.String("error", err.Error()))
	}
}

// startHTTPServer builds the full handler set for trade/monitor modes and
// runs the server plus the WebSocket hub under the group.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *core) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		Symbols:   a.cfg.Trading.Symbols,
		StartedAt: time.Now(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Broker, a.logger),
		Account:  handler.NewAccountHandler(deps.Broker, c.riskMgr, deps.TickCache, a.logger),
		Signals:  handler.NewSignalHandler(c.engine, a.logger),
		Strategy: handler.NewStrategyHandler(c.engine, deps.SettingsStore, a.logger),
		Bot:      handler.NewBotHandler(c.state, a.logger),
	}
	if c.trades != nil {
		handlers.Trade = handler.NewTradeHandler(c.trades, a.logger)
	}
	if deps.JournalReader != nil {
		handlers.Journal = handler.NewJournalHandler(deps.JournalReader, a.cfg.Journal.Prefix, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	a.runServer(ctx, g, srv)
}

// runServer starts the HTTP server under the group and shuts it down
// gracefully when the context ends.
func (a *App) runServer(ctx context.Context, g *errgroup.Group, srv *server.Server) {
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
