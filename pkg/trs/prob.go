package trs

import "math"

// LogZero is the log-probability of an impossible event.
var LogZero = math.Inf(-1)

// LogSumExp returns log(sum(exp(xs))) without overflow. It returns LogZero
// for an empty input or when every term is LogZero.
func LogSumExp(xs ...float64) float64 {
	hi := LogZero
	for _, x := range xs {
		if x > hi {
			hi = x
		}
	}
	if math.IsInf(hi, -1) {
		return LogZero
	}
	if math.IsInf(hi, 1) {
		return hi
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - hi)
	}
	return hi + math.Log(sum)
}

func logAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// logProb is math.Log that maps 0 to LogZero explicitly.
func logProb(p float64) float64 {
	if p <= 0 {
		return LogZero
	}
	return math.Log(p)
}
