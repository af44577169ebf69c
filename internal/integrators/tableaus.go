package integrators

import "math"

// Embedded pairs. Order is the order of the propagated solution.

// CashKarp54 is the 5(4) pair of Cash and Karp (1990).
func CashKarp54() *Tableau {
	return &Tableau{
		Name:          "Cash-Karp 5(4)",
		Order:         5,
		EmbeddedOrder: 4,
		C:             []float64{0, 1.0 / 5.0, 3.0 / 10.0, 3.0 / 5.0, 1, 7.0 / 8.0},
		A: [][]float64{
			{1.0 / 5.0},
			{3.0 / 40.0, 9.0 / 40.0},
			{3.0 / 10.0, -9.0 / 10.0, 6.0 / 5.0},
			{-11.0 / 54.0, 5.0 / 2.0, -70.0 / 27.0, 35.0 / 27.0},
			{1631.0 / 55296.0, 175.0 / 512.0, 575.0 / 13824.0, 44275.0 / 110592.0, 253.0 / 4096.0},
		},
		B:     []float64{37.0 / 378.0, 0, 250.0 / 621.0, 125.0 / 594.0, 0, 512.0 / 1771.0},
		BStar: []float64{2825.0 / 27648.0, 0, 18575.0 / 48384.0, 13525.0 / 55296.0, 277.0 / 14336.0, 1.0 / 4.0},
	}
}

// Fehlberg45 is the Runge-Kutta-Fehlberg pair (1969) propagating the fifth
// order solution.
func Fehlberg45() *Tableau {
	return &Tableau{
		Name:          "Fehlberg 4(5)",
		Order:         5,
		EmbeddedOrder: 4,
		C:             []float64{0, 1.0 / 4.0, 3.0 / 8.0, 12.0 / 13.0, 1, 1.0 / 2.0},
		A: [][]float64{
			{1.0 / 4.0},
			{3.0 / 32.0, 9.0 / 32.0},
			{1932.0 / 2197.0, -7200.0 / 2197.0, 7296.0 / 2197.0},
			{439.0 / 216.0, -8, 3680.0 / 513.0, -845.0 / 4104.0},
			{-8.0 / 27.0, 2, -3544.0 / 2565.0, 1859.0 / 4104.0, -11.0 / 40.0},
		},
		B:     []float64{16.0 / 135.0, 0, 6656.0 / 12825.0, 28561.0 / 56430.0, -9.0 / 50.0, 2.0 / 55.0},
		BStar: []float64{25.0 / 216.0, 0, 1408.0 / 2565.0, 2197.0 / 4104.0, -1.0 / 5.0, 0},
	}
}

// BogackiShampine32 is the 3(2) pair of Bogacki and Shampine (1989).
func BogackiShampine32() *Tableau {
	return &Tableau{
		Name:          "Bogacki-Shampine 3(2)",
		Order:         3,
		EmbeddedOrder: 2,
		C:             []float64{0, 1.0 / 2.0, 3.0 / 4.0, 1},
		A: [][]float64{
			{1.0 / 2.0},
			{0, 3.0 / 4.0},
			{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0},
		},
		B:     []float64{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0, 0},
		BStar: []float64{7.0 / 24.0, 1.0 / 4.0, 1.0 / 3.0, 1.0 / 8.0},
		FSAL:  true,
	}
}

// HighamHall54 is the 5(4) pair of Higham and Hall (1990).
func HighamHall54() *Tableau {
	return &Tableau{
		Name:          "Higham-Hall 5(4)",
		Order:         5,
		EmbeddedOrder: 4,
		C:             []float64{0, 2.0 / 9.0, 1.0 / 3.0, 1.0 / 2.0, 3.0 / 5.0, 1, 1},
		A: [][]float64{
			{2.0 / 9.0},
			{1.0 / 12.0, 1.0 / 4.0},
			{1.0 / 8.0, 0, 3.0 / 8.0},
			{91.0 / 500.0, -27.0 / 100.0, 78.0 / 125.0, 8.0 / 125.0},
			{-11.0 / 20.0, 27.0 / 20.0, 12.0 / 5.0, -36.0 / 5.0, 5},
			{1.0 / 12.0, 0, 27.0 / 32.0, -4.0 / 3.0, 125.0 / 96.0, 5.0 / 48.0},
		},
		B:     []float64{1.0 / 12.0, 0, 27.0 / 32.0, -4.0 / 3.0, 125.0 / 96.0, 5.0 / 48.0, 0},
		BStar: []float64{2.0 / 15.0, 0, 27.0 / 80.0, -2.0 / 15.0, 25.0 / 48.0, 1.0 / 24.0, 1.0 / 10.0},
		FSAL:  true,
	}
}

// Fixed step methods.

func Euler() *Tableau {
	return &Tableau{
		Name:  "Euler",
		Order: 1,
		C:     []float64{0},
		A:     [][]float64{},
		B:     []float64{1},
	}
}

func Midpoint() *Tableau {
	return &Tableau{
		Name:  "Midpoint",
		Order: 2,
		C:     []float64{0, 1.0 / 2.0},
		A:     [][]float64{{1.0 / 2.0}},
		B:     []float64{0, 1},
	}
}

func ClassicalRK4() *Tableau {
	return &Tableau{
		Name:  "Classical Runge-Kutta",
		Order: 4,
		C:     []float64{0, 1.0 / 2.0, 1.0 / 2.0, 1},
		A: [][]float64{
			{1.0 / 2.0},
			{0, 1.0 / 2.0},
			{0, 0, 1},
		},
		B: []float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0},
	}
}

// ThreeEighths is Kutta's 3/8 rule.
func ThreeEighths() *Tableau {
	return &Tableau{
		Name:  "3/8",
		Order: 4,
		C:     []float64{0, 1.0 / 3.0, 2.0 / 3.0, 1},
		A: [][]float64{
			{1.0 / 3.0},
			{-1.0 / 3.0, 1},
			{1, -1, 1},
		},
		B: []float64{1.0 / 8.0, 3.0 / 8.0, 3.0 / 8.0, 1.0 / 8.0},
	}
}

// Gill is the fourth order method of Gill (1951).
func Gill() *Tableau {
	sqrt2 := math.Sqrt2
	return &Tableau{
		Name:  "Gill",
		Order: 4,
		C:     []float64{0, 1.0 / 2.0, 1.0 / 2.0, 1},
		A: [][]float64{
			{1.0 / 2.0},
			{(sqrt2 - 1) / 2, (2 - sqrt2) / 2},
			{0, -sqrt2 / 2, 1 + sqrt2/2},
		},
		B: []float64{1.0 / 6.0, (2 - sqrt2) / 6, (2 + sqrt2) / 6, 1.0 / 6.0},
	}
}
