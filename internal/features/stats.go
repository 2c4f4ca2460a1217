package features

import (
	"math"
	"time"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// pstd is the population standard deviation (ddof=0).
func pstd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// ratio divides and returns 0 for a non-positive denominator.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Clip bounds x to [lo, hi].
func Clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func countPositive(xs []float64) int {
	n := 0
	for _, x := range xs {
		if x > 0 {
			n++
		}
	}
	return n
}

func countAtLeast(xs []float64, threshold float64) int {
	n := 0
	for _, x := range xs {
		if x >= threshold {
			n++
		}
	}
	return n
}

func tail[T any](xs []T, n int) []T {
	if n <= 0 {
		return xs[:0]
	}
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// monthIndex maps a date onto a continuous calendar-month axis.
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// MonthsBetween returns the whole calendar months from a to b, ignoring days.
func MonthsBetween(a, b time.Time) int {
	return monthIndex(b) - monthIndex(a)
}
