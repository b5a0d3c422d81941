package embedding

import "math"

// NormalizeL2Slice normalizes the slice in place to unit L2 norm. A zero
// vector is left unchanged.
func NormalizeL2Slice(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}

// embedEach calls embed for every text, stopping at the first error.
func embedEach(texts []string, embed func(string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
