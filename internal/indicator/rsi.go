package indicator

// RSI computes the relative strength index using rolling average gain and
// loss over period. The result contains only the defined values: its
// length is len(values)-period (one delta per value after the first,
// windowed by period). A zero average loss with gains present yields 100,
// the maximally overbought reading, rather than an error; a window with no
// movement at all reads 50.
func RSI(values []float64, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return nil
	}

	n := len(values) - 1
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	out := make([]float64, 0, n-period+1)
	var gainSum, lossSum float64
	for i := 0; i < n; i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i >= period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period-1 {
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			if avgGain > 0 {
				out = append(out, 100)
			} else {
				out = append(out, 50)
			}
			continue
		}
		rs := avgGain / avgLoss
		out = append(out, 100-100/(1+rs))
	}
	return out
}
