package executor

import (
	"fmt"

	"github.com/mzahran/scalpbot/internal/domain"
)

// retcodeMessages maps broker return codes to the fixed outcome
// taxonomy. Anything outside this table is reported as unknown with the
// raw code preserved.
var retcodeMessages = map[domain.Retcode]string{
	domain.RetcodeDone:          "Order executed successfully",
	domain.RetcodeRequote:       "Requote received",
	domain.RetcodeReject:        "Order rejected by server",
	domain.RetcodeCancel:        "Order cancelled",
	domain.RetcodePlaced:        "Order placed (pending)",
	domain.RetcodeNoMoney:       "Insufficient margin",
	domain.RetcodePriceOff:      "Price changed, no requote",
	domain.RetcodeInvalid:       "Invalid request",
	domain.RetcodeInvalidVolume: "Invalid volume",
	domain.RetcodeInvalidPrice:  "Invalid price",
	domain.RetcodeInvalidStops:  "Invalid SL/TP",
	domain.RetcodeMarketClosed:  "Market closed",
	domain.RetcodeConnection:    "No connection",
	domain.RetcodeTimeout:       "Request timeout",
	domain.RetcodeLimitVolume:   "Invalid volume",
}

// retcodeMessage returns the mapped message for code, or a generic
// unknown message carrying the raw code.
func retcodeMessage(code domain.Retcode) string {
	if msg, ok := retcodeMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown retcode %d", code)
}

// outcome interprets a broker result. Success is exactly the Done code.
func outcome(res *domain.OrderResult) domain.OrderOutcome {
	return domain.OrderOutcome{
		Success:    res.Retcode == domain.RetcodeDone,
		Message:    retcodeMessage(res.Retcode),
		Retcode:    res.Retcode,
		OrderID:    res.OrderID,
		DealID:     res.DealID,
		FillPrice:  res.FillPrice,
		FillVolume: res.FillVolume,
	}
}

// failure builds a structured failure outcome with no retcode.
func failure(message string) domain.OrderOutcome {
	return domain.OrderOutcome{Success: false, Message: message}
}
