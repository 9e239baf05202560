package domain

import "time"

// AccountSnapshot is the broker's view of the account at one instant.
type AccountSnapshot struct {
	Equity     float64 `json:"equity"`
	Balance    float64 `json:"balance"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Currency   string  `json:"currency,omitempty"`
}

// Position is an open trade reported by the broker.
type Position struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Volume     float64   `json:"volume"`
	OpenPrice  float64   `json:"open_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Profit     float64   `json:"profit"`
	OpenedAt   time.Time `json:"opened_at"`
}

// InstrumentConstraints are the broker's trading limits for one symbol.
// Lot sizes must stay within [MinLot, MaxLot] and be a multiple of
// LotStep; TickValue/TickSize converts price distance into account
// currency per lot.
type InstrumentConstraints struct {
	Symbol    string
	MinLot    float64
	MaxLot    float64
	LotStep   float64
	TickValue float64
	TickSize  float64
}
