package hypertune

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

//////
// Grid search.
//////

// ErrGridExhausted is returned by GridSampler once every point of the
// declared Cartesian product has been proposed. Study.Optimize treats it as
// a normal end of the search rather than a failure.
var ErrGridExhausted = errors.New("grid exhausted")

// GridSampler enumerates the full Cartesian product of a discrete search
// space, in a fixed order, visiting each point exactly once. The search
// space passed to NewGridSampler fully determines the enumeration: names
// are ordered lexicographically and the last name varies fastest.
//
// Only enumerable domains are accepted: IntUniform and Categorical.
// Continuous domains have no finite grid; declare them as stepped integers
// instead or use a different sampler.
type GridSampler struct {
	mu sync.Mutex

	// names holds the parameter names in enumeration order.
	names []string

	// points holds, per name, the admissible internal values.
	points [][]float64

	// total is the size of the Cartesian product.
	total int

	// next is the index of the next unvisited grid point.
	next int
}

// NewGridSampler builds a grid over space. It fails on empty spaces and on
// non-enumerable domains.
func NewGridSampler(space SearchSpace) (*GridSampler, error) {
	if len(space) == 0 {
		return nil, errors.New("grid sampler: empty search space")
	}

	names := maps.Keys(space)
	sort.Strings(names)

	points := make([][]float64, 0, len(names))
	total := 1

	for _, name := range names {
		if err := validateDistribution(name, space[name]); err != nil {
			return nil, fmt.Errorf("grid sampler: %w", err)
		}

		var axis []float64

		switch d := space[name].(type) {
		case IntUniform:
			step := d.Step
			if step <= 0 {
				step = 1
			}

			for v := d.Low; v <= d.High; v += step {
				axis = append(axis, float64(v))
			}

		case Categorical:
			for i := range d.Choices {
				axis = append(axis, float64(i))
			}

		default:
			return nil, fmt.Errorf("grid sampler: parameter %q: %T is not enumerable", name, space[name])
		}

		points = append(points, axis)
		total *= len(axis)
	}

	return &GridSampler{names: names, points: points, total: total}, nil
}

// Size returns the number of points in the grid.
func (s *GridSampler) Size() int { return s.total }

// SampleRelative implements RelativeSampler. Each call consumes the next
// unvisited grid point; once the product set is spent it returns
// ErrGridExhausted. The space argument is ignored: the grid was fixed at
// construction and a study using this sampler must suggest exactly the
// declared parameters.
func (s *GridSampler) SampleRelative(_ *Study, _ FrozenTrial, _ SearchSpace) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= s.total {
		return nil, ErrGridExhausted
	}

	// Mixed-radix decode of the point index: last axis varies fastest.
	idx := s.next
	s.next++

	assignment := make(map[string]float64, len(s.names))

	for i := len(s.names) - 1; i >= 0; i-- {
		axis := s.points[i]
		assignment[s.names[i]] = axis[idx%len(axis)]
		idx /= len(axis)
	}

	return assignment, nil
}
