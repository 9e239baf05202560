package domain

import "time"

// Retcode is the broker's numeric outcome code for an order request.
// Values follow the MetaTrader 5 trade-server convention.
type Retcode int

const (
	RetcodeRequote       Retcode = 10004
	RetcodeReject        Retcode = 10006
	RetcodeCancel        Retcode = 10007
	RetcodePlaced        Retcode = 10008
	RetcodeDone          Retcode = 10009
	RetcodeDonePartial   Retcode = 10010
	RetcodeError         Retcode = 10011
	RetcodeTimeout       Retcode = 10012
	RetcodeInvalid       Retcode = 10013
	RetcodeInvalidVolume Retcode = 10014
	RetcodeInvalidPrice  Retcode = 10015
	RetcodeInvalidStops  Retcode = 10016
	RetcodeTradeDisabled Retcode = 10017
	RetcodeMarketClosed  Retcode = 10018
	RetcodeNoMoney       Retcode = 10019
	RetcodePriceOff      Retcode = 10021
	RetcodeLimitVolume   Retcode = 10027
	RetcodeConnection    Retcode = 10031
)

// OrderRequest is the normalized broker order payload. The gateway owns
// the authoritative validation of these fields.
type OrderRequest struct {
	Symbol       string
	Direction    Direction
	Volume       float64
	Price        float64
	StopLoss     float64
	TakeProfit   float64
	Deviation    int // max slippage in points
	Magic        int
	Comment      string
	PositionID   int64 // set when closing or modifying an existing position
	CloseRequest bool
}

// OrderResult is the broker's response to a submitted order.
type OrderResult struct {
	Retcode    Retcode
	OrderID    int64
	DealID     int64
	FillPrice  float64
	FillVolume float64
	Comment    string
}

// OrderOutcome is the uniform interpretation of a broker result. Success
// is exactly the Done retcode; every other code is a structured failure
// with the raw code preserved for diagnostics.
type OrderOutcome struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Retcode    Retcode `json:"retcode,omitempty"`
	OrderID    int64   `json:"order_id,omitempty"`
	DealID     int64   `json:"deal_id,omitempty"`
	FillPrice  float64 `json:"fill_price,omitempty"`
	FillVolume float64 `json:"fill_volume,omitempty"`
}

// TradeIntent is an approved, sized decision handed to the executor.
type TradeIntent struct {
	ID         string
	Symbol     string
	Direction  Direction
	Lot        float64
	StopLoss   float64
	TakeProfit float64
	Comment    string
	CreatedAt  time.Time
}
