package vector

import "math"

// InnerProduct returns the inner product of two vectors, or 0 if their lengths differ.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1], or 0
// when either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
