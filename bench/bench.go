// Package bench provides classic benchmark functions for exercising
// samplers: deterministic, known global optima, cheap to evaluate. They
// stand in for a real scoring pipeline when profiling or comparing search
// strategies.
package bench

import (
	"fmt"
	"math"

	"github.com/MichaelAllen1966/hypertune"
)

// Func is a deterministic benchmark function over a real vector.
// All built-in functions are minimized.
type Func func(x []float64) float64

// Sphere is sum(x_i^2). Global minimum 0 at the origin. The easiest
// possible landscape: convex, separable, smooth.
func Sphere(x []float64) float64 {
	var sum float64

	for _, v := range x {
		sum += v * v
	}

	return sum
}

// Rastrigin is 10n + sum(x_i^2 - 10 cos(2 pi x_i)). Global minimum 0 at
// the origin, with a regular lattice of deep local minima. Standard stress
// test for exploration.
func Rastrigin(x []float64) float64 {
	sum := 10 * float64(len(x))

	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}

	return sum
}

// Rosenbrock is sum(100 (x_{i+1} - x_i^2)^2 + (1 - x_i)^2). Global minimum
// 0 at (1, ..., 1), reached through a narrow curved valley.
func Rosenbrock(x []float64) float64 {
	var sum float64

	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]

		sum += 100*a*a + b*b
	}

	return sum
}

// Himmelblau is (x^2 + y - 11)^2 + (x + y^2 - 7)^2, defined for exactly
// two dimensions. Four global minima, all with value 0.
func Himmelblau(x []float64) float64 {
	if len(x) != 2 {
		panic(fmt.Sprintf("himmelblau is two-dimensional, got %d", len(x)))
	}

	a := x[0]*x[0] + x[1] - 11
	b := x[0] + x[1]*x[1] - 7

	return a*a + b*b
}

// ByName resolves a built-in function from its lowercase name.
func ByName(name string) (Func, error) {
	switch name {
	case "sphere":
		return Sphere, nil
	case "rastrigin":
		return Rastrigin, nil
	case "rosenbrock":
		return Rosenbrock, nil
	case "himmelblau":
		return Himmelblau, nil
	default:
		return nil, fmt.Errorf("unknown benchmark function %q", name)
	}
}

// Dimensions reports the exact arity a built-in function requires. Zero
// means the function accepts any number of dimensions.
func Dimensions(name string) int {
	if name == "himmelblau" {
		return 2
	}

	return 0
}

// Objective wraps a benchmark function as a study objective over dim
// continuous parameters named x0..x{dim-1}, each on [low, high].
func Objective(f Func, dim int, low, high float64) hypertune.ObjectiveFunc {
	return func(t *hypertune.Trial) (float64, error) {
		x := make([]float64, dim)

		for i := range x {
			v, err := t.SuggestFloat(fmt.Sprintf("x%d", i), low, high)
			if err != nil {
				return 0, err
			}

			x[i] = v
		}

		return f(x), nil
	}
}
