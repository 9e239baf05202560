package indicator

import "github.com/mzahran/scalpbot/internal/domain"

// TrueRange returns the per-bar true range: the greatest of high-low,
// |high-prevClose| and |low-prevClose|. The first bar uses high-low.
func TrueRange(bars []domain.Bar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	out := make([]float64, len(bars))
	out[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := abs(bars[i].High - bars[i-1].Close)
		lc := abs(bars[i].Low - bars[i-1].Close)
		out[i] = max3(hl, hc, lc)
	}
	return out
}

// ATR computes the average true range as a rolling mean of the true range
// over period. Only defined values are returned: the result length is
// len(bars)-period+1.
func ATR(bars []domain.Bar, period int) []float64 {
	if period <= 0 || len(bars) < period {
		return nil
	}
	tr := TrueRange(bars)
	out := make([]float64, 0, len(tr)-period+1)
	var sum float64
	for i, v := range tr {
		sum += v
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
