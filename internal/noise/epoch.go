package noise

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// EpochAveragedVariance returns the variance of the minimum-variance
// unbiased combination of channels that all measure the same arrival time,
// (uᵀ C⁻¹ u)⁻¹ with u the all-ones vector.
//
// A covariance that is identically zero describes an absent noise source
// and reduces to zero. Any other C that is not positive definite yields
// ErrSingularCovariance.
func EpochAveragedVariance(c mat.Symmetric) (float64, error) {
	n := c.SymmetricDim()
	if n == 0 {
		return 0, fmt.Errorf("%w: empty matrix", ErrSingularCovariance)
	}
	if isZero(c) {
		return 0, nil
	}

	chol, err := factorize(c)
	if err != nil {
		return 0, err
	}

	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	u := mat.NewVecDense(n, ones)

	var w mat.VecDense
	if err = solveVec(chol, &w, u); err != nil {
		return 0, err
	}

	inv := mat.Dot(u, &w)
	if !(inv > 0) || math.IsInf(inv, 0) {
		return 0, fmt.Errorf("%w: uᵀC⁻¹u = %g", ErrSingularCovariance, inv)
	}
	return 1 / inv, nil
}

// EpochAveragedError is the square root of EpochAveragedVariance.
func EpochAveragedError(c mat.Symmetric) (float64, error) {
	v, err := EpochAveragedVariance(c)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

func factorize(c mat.Symmetric) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(c); !ok {
		return nil, fmt.Errorf("%w: not positive definite", ErrSingularCovariance)
	}
	return &chol, nil
}

// solveVec solves C x = b. Poor conditioning alone is tolerated: clamped
// channels routinely push the condition number past gonum's threshold while
// the solution remains usable.
func solveVec(chol *mat.Cholesky, dst *mat.VecDense, b mat.Vector) error {
	return tolerateCondition(chol.SolveVecTo(dst, b))
}

func solve(chol *mat.Cholesky, dst *mat.Dense, b mat.Matrix) error {
	return tolerateCondition(chol.SolveTo(dst, b))
}

func tolerateCondition(err error) error {
	if err == nil {
		return nil
	}

	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSingularCovariance, err)
}

func isZero(c mat.Symmetric) bool {
	n := c.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if c.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}
