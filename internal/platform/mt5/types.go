package mt5

import (
	"time"

	"github.com/mzahran/scalpbot/internal/domain"
)

// apiBar is one OHLCV sample as the bridge serializes it.
type apiBar struct {
	Time   int64   `json:"time"` // Unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (b apiBar) toDomain() domain.Bar {
	return domain.Bar{
		Time:   time.Unix(b.Time, 0).UTC(),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

// apiTick is a live quote as the bridge serializes it.
type apiTick struct {
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
	Volume float64 `json:"volume"`
	TimeMs int64   `json:"time_msc"`
}

func (t apiTick) toDomain(symbol string) domain.Tick {
	return domain.Tick{
		Symbol: symbol,
		Bid:    t.Bid,
		Ask:    t.Ask,
		Last:   t.Last,
		Volume: t.Volume,
		Time:   time.UnixMilli(t.TimeMs).UTC(),
	}
}

// apiAccount mirrors the terminal's account info fields the core uses.
type apiAccount struct {
	Equity     float64 `json:"equity"`
	Balance    float64 `json:"balance"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"margin_free"`
	Currency   string  `json:"currency"`
}

func (a apiAccount) toDomain() domain.AccountSnapshot {
	return domain.AccountSnapshot{
		Equity:     a.Equity,
		Balance:    a.Balance,
		Margin:     a.Margin,
		FreeMargin: a.FreeMargin,
		Currency:   a.Currency,
	}
}

// apiPosition is an open position as the bridge serializes it.
type apiPosition struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"` // 0 buy, 1 sell
	Volume     float64 `json:"volume"`
	PriceOpen  float64 `json:"price_open"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Profit     float64 `json:"profit"`
	TimeOpen   int64   `json:"time"` // Unix seconds
}

func (p apiPosition) toDomain() domain.Position {
	direction := domain.DirectionBuy
	if p.Type == 1 {
		direction = domain.DirectionSell
	}
	return domain.Position{
		ID:         p.Ticket,
		Symbol:     p.Symbol,
		Direction:  direction,
		Volume:     p.Volume,
		OpenPrice:  p.PriceOpen,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		Profit:     p.Profit,
		OpenedAt:   time.Unix(p.TimeOpen, 0).UTC(),
	}
}

// apiSymbolInfo carries the instrument constraints the sizing code needs.
type apiSymbolInfo struct {
	VolumeMin  float64 `json:"volume_min"`
	VolumeMax  float64 `json:"volume_max"`
	VolumeStep float64 `json:"volume_step"`
	TickValue  float64 `json:"trade_tick_value"`
	TickSize   float64 `json:"trade_tick_size"`
}

func (s apiSymbolInfo) toDomain() domain.InstrumentConstraints {
	return domain.InstrumentConstraints{
		MinLot:    s.VolumeMin,
		MaxLot:    s.VolumeMax,
		LotStep:   s.VolumeStep,
		TickValue: s.TickValue,
		TickSize:  s.TickSize,
	}
}

// apiOrderRequest is the trade request the bridge forwards to the terminal.
type apiOrderRequest struct {
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"sl,omitempty"`
	TakeProfit float64 `json:"tp,omitempty"`
	Deviation  int     `json:"deviation,omitempty"`
	Magic      int     `json:"magic,omitempty"`
	Comment    string  `json:"comment,omitempty"`
	Position   int64   `json:"position,omitempty"`
	Close      bool    `json:"close,omitempty"`
}

func toAPIOrderRequest(req domain.OrderRequest) apiOrderRequest {
	return apiOrderRequest{
		Symbol:     req.Symbol,
		Direction:  string(req.Direction),
		Volume:     req.Volume,
		Price:      req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Deviation:  req.Deviation,
		Magic:      req.Magic,
		Comment:    req.Comment,
		Position:   req.PositionID,
		Close:      req.CloseRequest,
	}
}

// apiOrderResult is the terminal's trade result as the bridge serializes it.
type apiOrderResult struct {
	Retcode int     `json:"retcode"`
	Order   int64   `json:"order"`
	Deal    int64   `json:"deal"`
	Price   float64 `json:"price"`
	Volume  float64 `json:"volume"`
	Comment string  `json:"comment"`
}

func (r apiOrderResult) toDomain() domain.OrderResult {
	return domain.OrderResult{
		Retcode:    domain.Retcode(r.Retcode),
		OrderID:    r.Order,
		DealID:     r.Deal,
		FillPrice:  r.Price,
		FillVolume: r.Volume,
		Comment:    r.Comment,
	}
}
