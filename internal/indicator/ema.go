// Package indicator provides stateless numeric transforms over ordered
// price series. Every function is pure and restartable: calling it again
// on a grown window recomputes from scratch rather than carrying state.
package indicator

// EMA computes the exponential moving average of values with the
// smoothing factor 2/(period+1). The first value seeds the series; there
// is no simple-moving-average warm-up. The returned slice has the same
// length as the input.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
