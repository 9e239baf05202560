package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/executor"
	"github.com/mzahran/scalpbot/internal/notify"
	"github.com/mzahran/scalpbot/internal/risk"
)

// TradeService runs the approve-size-execute pipeline for accepted signals.
// It is the single path to the broker: the auto-execute loop and the HTTP
// handlers both go through it, so risk checks cannot be bypassed.
type TradeService struct {
	riskMgr  *risk.Manager
	exec     *executor.Executor
	broker   domain.BrokerGateway
	bus      domain.SignalBus // optional
	state    *BotState
	notifier *notify.Notifier // optional
	logger   *slog.Logger
}

// NewTradeService creates a TradeService. bus and notifier may be nil, in
// which case outcomes are not published or alerted.
func NewTradeService(
	riskMgr *risk.Manager,
	exec *executor.Executor,
	broker domain.BrokerGateway,
	bus domain.SignalBus,
	state *BotState,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		riskMgr:  riskMgr,
		exec:     exec,
		broker:   broker,
		bus:      bus,
		state:    state,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "trade_service")),
	}
}

// ExecuteSignal takes an accepted signal through risk approval, position
// sizing, and order submission. The regime scales the lot. It returns the
// risk decision and, when approved, the execution outcome.
func (s *TradeService) ExecuteSignal(ctx context.Context, sig domain.SignalResult, regime domain.VolatilityRegime) (domain.RiskDecision, *domain.OrderOutcome, error) {
	if !s.state.Armed() {
		return domain.RiskDecision{Approved: false, Reason: "bot is not armed for live execution"}, nil, nil
	}

	snapshot, err := s.broker.AccountSnapshot(ctx)
	if err != nil {
		return domain.RiskDecision{}, nil, fmt.Errorf("trade_service: account snapshot: %w", err)
	}

	decision := s.riskMgr.ApproveTrade(ctx, sig.Symbol, sig.Direction, snapshot.Equity)
	if !decision.Approved {
		s.logger.InfoContext(ctx, "trade rejected by risk",
			slog.String("symbol", sig.Symbol),
			slog.String("reason", decision.Reason),
		)
		return decision, nil, nil
	}

	lot := s.riskMgr.CalculateLotSize(ctx, sig.Symbol, snapshot.Equity, sig.StopDistance(), regime)
	if lot <= 0 {
		decision = domain.RiskDecision{Approved: false, Reason: "calculated lot size is zero"}
		return decision, nil, nil
	}

	intent := domain.TradeIntent{
		ID:         uuid.NewString(),
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Lot:        lot,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Comment:    fmt.Sprintf("scalpbot %s", sig.Strategy),
		CreatedAt:  time.Now().UTC(),
	}

	outcome := s.exec.ExecuteMarketOrder(ctx, intent)
	s.publishOutcome(ctx, intent.Symbol, outcome)
	s.notifyOutcome(ctx, intent, outcome)
	return decision, &outcome, nil
}

// notifyOutcome raises an operator alert for a fill or a rejected order.
func (s *TradeService) notifyOutcome(ctx context.Context, intent domain.TradeIntent, outcome domain.OrderOutcome) {
	if s.notifier == nil {
		return
	}

	event := notify.EventOrderFilled
	title := fmt.Sprintf("Order filled: %s %s", intent.Direction, intent.Symbol)
	if !outcome.Success {
		event = notify.EventOrderFailed
		title = fmt.Sprintf("Order failed: %s %s", intent.Direction, intent.Symbol)
	}

	message := fmt.Sprintf("lot %.2f, sl %.5f, tp %.5f\n%s",
		intent.Lot, intent.StopLoss, intent.TakeProfit, outcome.Message)

	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "outcome notification failed", slog.String("error", err.Error()))
	}
}

// ClosePosition closes an open position, optionally with a partial lot.
func (s *TradeService) ClosePosition(ctx context.Context, positionID int64, lot float64) domain.OrderOutcome {
	outcome := s.exec.ClosePosition(ctx, positionID, lot)
	s.publishOutcome(ctx, "", outcome)
	return outcome
}

// CloseAllPositions closes every open position, optionally filtered by
// symbol.
func (s *TradeService) CloseAllPositions(ctx context.Context, symbol string) []domain.OrderOutcome {
	outcomes := s.exec.CloseAllPositions(ctx, symbol)
	for _, o := range outcomes {
		s.publishOutcome(ctx, symbol, o)
	}
	return outcomes
}

// ModifyPosition updates the stop loss and take profit of an open position.
func (s *TradeService) ModifyPosition(ctx context.Context, positionID int64, stopLoss, takeProfit float64) domain.OrderOutcome {
	outcome := s.exec.ModifyPosition(ctx, positionID, stopLoss, takeProfit)
	s.publishOutcome(ctx, "", outcome)
	return outcome
}

// publishOutcome fans an execution outcome out on the bus. Failures are
// logged, never propagated; publishing is best-effort.
func (s *TradeService) publishOutcome(ctx context.Context, symbol string, outcome domain.OrderOutcome) {
	if s.bus == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"type":    "order_outcome",
		"symbol":  symbol,
		"outcome": outcome,
	})
	if err != nil {
		return
	}

	if err := s.bus.Publish(ctx, domain.ChannelOrders, payload); err != nil {
		s.logger.WarnContext(ctx, "publish outcome failed", slog.String("error", err.Error()))
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamOrders, payload); err != nil {
		s.logger.WarnContext(ctx, "stream append failed", slog.String("error", err.Error()))
	}
}
