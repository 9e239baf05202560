package indicator

import "math"

// BollingerBands holds the middle band (rolling mean) and the upper and
// lower bands at mean ± k·std. All three slices have the same length,
// len(values)-period+1: only defined values are returned.
type BollingerBands struct {
	MA    []float64
	Upper []float64
	Lower []float64
}

// Width returns upper-lower at index i.
func (b BollingerBands) Width(i int) float64 {
	return b.Upper[i] - b.Lower[i]
}

// Len returns the number of defined band values.
func (b BollingerBands) Len() int {
	return len(b.MA)
}

// Bollinger computes Bollinger Bands over values with the given period
// and standard-deviation multiplier.
func Bollinger(values []float64, period int, k float64) BollingerBands {
	if period <= 0 || len(values) < period {
		return BollingerBands{}
	}
	n := len(values) - period + 1
	bands := BollingerBands{
		MA:    make([]float64, 0, n),
		Upper: make([]float64, 0, n),
		Lower: make([]float64, 0, n),
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean := meanOf(window)
		std := stdOf(window, mean)
		bands.MA = append(bands.MA, mean)
		bands.Upper = append(bands.Upper, mean+k*std)
		bands.Lower = append(bands.Lower, mean-k*std)
	}
	return bands
}

func meanOf(window []float64) float64 {
	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

// stdOf uses the sample standard deviation (n-1 divisor), matching the
// rolling-std convention of the reference series.
func stdOf(window []float64, mean float64) float64 {
	if len(window) < 2 {
		return 0
	}
	var sum float64
	for _, v := range window {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(window)-1))
}
