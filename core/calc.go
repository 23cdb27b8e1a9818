package core

import "math/big"

var (
	ten  = big.NewInt(10)
	half = big.NewRat(1, 2)
)

// Round1 rounds x to one decimal place, ties going up.
// Rounding is done on the exact binary value of x, so 1.25 gives 1.3 while 0.15 (stored as 0.1499...) gives 0.1.
func Round1(x float64) float64 {
	r := new(big.Rat).SetFloat64(x)
	if r == nil { // NaN or Inf
		return x
	}
	r.Mul(r, new(big.Rat).SetInt(ten))
	r.Add(r, half)
	q := new(big.Int).Div(r.Num(), r.Denom()) // Euclidean division: floor for a positive denominator
	f, _ := new(big.Rat).SetFrac(q, ten).Float64()
	return f
}

// Percent returns part / whole * 100 rounded to one decimal, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return Round1(float64(part) / float64(whole) * 100)
}

// Mean returns the arithmetic mean of values rounded to one decimal, or 0 when there are none.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Round1(sum / float64(len(values)))
}
