package indicator

import "github.com/mzahran/scalpbot/internal/domain"

// VWAP computes the cumulative volume-weighted average price over bars,
// using (high+low+close)/3 as the typical price. It returns ok=false
// when the cumulative volume of the whole series is zero, in which case
// the value is undefined and must propagate as absent. Positions where
// the running volume is still zero carry 0.
func VWAP(bars []domain.Bar) (series []float64, ok bool) {
	if len(bars) == 0 {
		return nil, false
	}
	out := make([]float64, len(bars))
	var cumVol, cumTPV float64
	for i, b := range bars {
		tp := (b.High + b.Low + b.Close) / 3
		cumVol += b.Volume
		cumTPV += tp * b.Volume
		if cumVol > 0 {
			out[i] = cumTPV / cumVol
		}
	}
	if cumVol == 0 {
		return nil, false
	}
	return out, true
}
