// Package executor translates approved, sized trade intents into broker
// order requests and interprets the broker's result codes into a uniform
// outcome taxonomy.
package executor

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mzahran/scalpbot/internal/domain"
)

const defaultDeviation = 15

// Config holds executor-level order parameters.
type Config struct {
	// MaxLotSize is the global volume cap applied on top of the
	// instrument maximum.
	MaxLotSize float64
	// Magic tags orders placed by this process.
	Magic int
	// Deviation is the maximum accepted slippage in points. Zero means
	// the default of 15.
	Deviation int
}

// Executor builds, pre-validates, submits, and interprets broker orders.
// The broker gateway owns the authoritative validation; the executor
// only normalizes volume locally before asking.
type Executor struct {
	broker     domain.BrokerGateway
	marketData domain.MarketData
	cfg        Config
	logger     *slog.Logger
}

// New creates an Executor.
func New(broker domain.BrokerGateway, marketData domain.MarketData, cfg Config, logger *slog.Logger) *Executor {
	if cfg.Deviation <= 0 {
		cfg.Deviation = defaultDeviation
	}
	return &Executor{
		broker:     broker,
		marketData: marketData,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "order_executor")),
	}
}

// ExecuteMarketOrder normalizes the intent's volume, builds the broker
// request at the current quote, pre-checks it broker-side, submits, and
// maps the result. Every failure path returns a structured outcome, not
// an error.
func (e *Executor) ExecuteMarketOrder(ctx context.Context, intent domain.TradeIntent) domain.OrderOutcome {
	if !e.broker.Connected() {
		return failure("Broker not connected")
	}

	constraints, err := e.broker.InstrumentConstraints(ctx, intent.Symbol)
	if err != nil || constraints == nil {
		return failure("Unknown instrument " + intent.Symbol)
	}

	lot := e.NormalizeVolume(constraints, intent.Lot)
	if lot <= 0 {
		return failure("Invalid lot size")
	}

	tick, err := e.marketData.GetTick(ctx, intent.Symbol)
	if err != nil || tick == nil {
		return failure("No tick data")
	}

	price := tick.Ask
	if intent.Direction == domain.DirectionSell {
		price = tick.Bid
	}

	req := domain.OrderRequest{
		Symbol:     intent.Symbol,
		Direction:  intent.Direction,
		Volume:     lot,
		Price:      price,
		StopLoss:   intent.StopLoss,
		TakeProfit: intent.TakeProfit,
		Deviation:  e.cfg.Deviation,
		Magic:      e.cfg.Magic,
		Comment:    intent.Comment,
	}
	return e.validateAndSend(ctx, req)
}

// ModifyPosition adjusts the stop loss and take profit of an open
// position through the same validate/send/interpret pipeline.
func (e *Executor) ModifyPosition(ctx context.Context, positionID int64, stopLoss, takeProfit float64) domain.OrderOutcome {
	pos, ok := e.findPosition(ctx, positionID)
	if !ok {
		return failure("Position not found")
	}
	req := domain.OrderRequest{
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		Volume:     pos.Volume,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Magic:      e.cfg.Magic,
		PositionID: positionID,
	}
	return e.send(ctx, req)
}

// ClosePosition closes an open position at market. When overrideLot is
// zero the position's own volume is used; the order direction is the
// inverse of the position's.
func (e *Executor) ClosePosition(ctx context.Context, positionID int64, overrideLot float64) domain.OrderOutcome {
	pos, ok := e.findPosition(ctx, positionID)
	if !ok {
		return failure("Position not found")
	}

	volume := pos.Volume
	if overrideLot > 0 {
		volume = overrideLot
	}
	direction := domain.DirectionSell
	if pos.Direction == domain.DirectionSell {
		direction = domain.DirectionBuy
	}

	tick, err := e.marketData.GetTick(ctx, pos.Symbol)
	if err != nil || tick == nil {
		return failure("No tick data")
	}
	price := tick.Bid
	if direction == domain.DirectionBuy {
		price = tick.Ask
	}

	req := domain.OrderRequest{
		Symbol:       pos.Symbol,
		Direction:    direction,
		Volume:       volume,
		Price:        price,
		Deviation:    e.cfg.Deviation,
		Magic:        e.cfg.Magic,
		Comment:      "close_position",
		PositionID:   positionID,
		CloseRequest: true,
	}
	return e.send(ctx, req)
}

// CloseAllPositions closes every open position, optionally filtered by
// symbol. With no open positions it returns an empty result set, not an
// error.
func (e *Executor) CloseAllPositions(ctx context.Context, symbol string) []domain.OrderOutcome {
	positions, err := e.broker.OpenPositions(ctx, symbol)
	if err != nil || len(positions) == 0 {
		return []domain.OrderOutcome{}
	}
	out := make([]domain.OrderOutcome, 0, len(positions))
	for _, pos := range positions {
		out = append(out, e.ClosePosition(ctx, pos.ID, 0))
	}
	return out
}

// NormalizeVolume clamps lot to [min, min(max, global cap)] and floors
// it to the nearest volume-step multiple using exact decimal arithmetic.
func (e *Executor) NormalizeVolume(constraints *domain.InstrumentConstraints, lot float64) float64 {
	minLot := decimal.NewFromFloat(constraints.MinLot)
	maxLot := decimal.NewFromFloat(constraints.MaxLot)
	step := decimal.NewFromFloat(constraints.LotStep)
	if globalCap := decimal.NewFromFloat(e.cfg.MaxLotSize); globalCap.IsPositive() && globalCap.LessThan(maxLot) {
		maxLot = globalCap
	}
	if maxLot.LessThan(minLot) {
		e.logger.Info("global cap below instrument minimum",
			slog.String("min_lot", minLot.String()),
			slog.String("max_lot", maxLot.String()),
		)
		maxLot = minLot
	}

	v := decimal.NewFromFloat(lot)
	if v.LessThan(minLot) {
		v = minLot
	}
	if v.GreaterThan(maxLot) {
		v = maxLot
	}
	if step.IsPositive() {
		v = v.Div(step).Floor().Mul(step)
	}
	f, _ := v.Float64()
	return f
}

// validateAndSend asks the broker to pre-check the request before
// submitting it. A failed pre-check surfaces the mapped message without
// ever sending the order.
func (e *Executor) validateAndSend(ctx context.Context, req domain.OrderRequest) domain.OrderOutcome {
	code, err := e.broker.ValidateOrder(ctx, req)
	if err != nil {
		return failure("Order check failed: " + err.Error())
	}
	if code != domain.RetcodeDone {
		e.logger.Info("order pre-check failed",
			slog.Int("retcode", int(code)),
			slog.String("message", retcodeMessage(code)),
			slog.String("symbol", req.Symbol),
		)
		return domain.OrderOutcome{Success: false, Message: retcodeMessage(code), Retcode: code}
	}
	return e.send(ctx, req)
}

// send submits the request and interprets the result.
func (e *Executor) send(ctx context.Context, req domain.OrderRequest) domain.OrderOutcome {
	res, err := e.broker.SubmitOrder(ctx, req)
	if err != nil || res == nil {
		return failure("No result from broker")
	}
	out := outcome(res)
	e.logger.Info("order send result",
		slog.Bool("success", out.Success),
		slog.Int("retcode", int(out.Retcode)),
		slog.String("message", out.Message),
		slog.String("symbol", req.Symbol),
		slog.Float64("volume", req.Volume),
	)
	return out
}

func (e *Executor) findPosition(ctx context.Context, positionID int64) (domain.Position, bool) {
	positions, err := e.broker.OpenPositions(ctx, "")
	if err != nil {
		return domain.Position{}, false
	}
	for _, pos := range positions {
		if pos.ID == positionID {
			return pos, true
		}
	}
	return domain.Position{}, false
}
