package strategy

// Params maps tunable numeric knobs for one strategy. A stored base
// record is never mutated in place: runtime overrides are merged into a
// fresh effective value at evaluation time.
type Params map[string]float64

// Merge returns a new Params with overrides applied on top of p.
// Override keys win; p itself is left untouched. A nil override returns
// a copy of p.
func (p Params) Merge(overrides map[string]float64) Params {
	out := make(Params, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Get returns the value for key, or fallback when the key is absent.
func (p Params) Get(key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// Int returns the value for key truncated to int, or fallback when the
// key is absent or non-positive.
func (p Params) Int(key string, fallback int) int {
	if v, ok := p[key]; ok && int(v) > 0 {
		return int(v)
	}
	return fallback
}
