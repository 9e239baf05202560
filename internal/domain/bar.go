package domain

import "time"

// Timeframe identifies the bar interval requested from the market-data
// provider. Values mirror the broker terminal's chart periods.
type Timeframe string

const (
	TimeframeM1  Timeframe = "M1"
	TimeframeM5  Timeframe = "M5"
	TimeframeM15 Timeframe = "M15"
	TimeframeH1  Timeframe = "H1"
	TimeframeH4  Timeframe = "H4"
	TimeframeD1  Timeframe = "D1"
)

// Bar is a single OHLCV sample. Bars arrive as ordered, append-only
// sequences per (symbol, timeframe) and are immutable once produced.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Tick is an ephemeral bid/ask snapshot. It is consumed at decision time
// and never retained.
type Tick struct {
	Symbol string
	Bid    float64
	Ask    float64
	Last   float64
	Volume float64
	Time   time.Time
}

// Spread returns the current bid/ask spread. A non-positive spread marks
// a stale or crossed quote.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// Closes extracts the closing prices of a bar series in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
