package rnd

import (
	"errors"
	"fmt"
)

var (
	ErrDomain               = errors.New("domain error")
	ErrNonConvergence       = errors.New("did not converge")
	ErrDegenerateDerivative = errors.New("degenerate derivative")
	ErrExtrapolation        = errors.New("extrapolation outside fitted range")
)

// DomainError reports pricing inputs for which the model is undefined, or a
// market price no volatility can reproduce.
type DomainError struct {
	Field  string
	Value  float64
	Reason string
}

func (self *DomainError) Error() string {
	return fmt.Sprintf("%s: %s=%g %s", ErrDomain, self.Field, self.Value,
		self.Reason)
}

func (self *DomainError) Is(target error) bool {
	return target == ErrDomain
}

func newDomainError(field string, value float64, reason string) error {
	return &DomainError{Field: field, Value: value, Reason: reason}
}

// NonConvergenceError is returned when the volatility solver exhausts its
// iteration budget. Last holds the final iterate for diagnostics only.
type NonConvergenceError struct {
	Iterations int
	Last       float64
	Residual   float64
}

func (self *NonConvergenceError) Error() string {
	return fmt.Sprintf("implied vol %s after %d iterations "+
		"(last sigma=%g, residual=%g)", ErrNonConvergence, self.Iterations,
		self.Last, self.Residual)
}

func (self *NonConvergenceError) Is(target error) bool {
	return target == ErrNonConvergence
}

// DegenerateDerivativeError is returned when vega is numerically zero at an
// iterate, which makes the Newton step meaningless.
type DegenerateDerivativeError struct {
	Iteration  int
	Volatility float64
	Vega       float64
}

func (self *DegenerateDerivativeError) Error() string {
	return fmt.Sprintf("%s: vega=%g at sigma=%g (iteration %d)",
		ErrDegenerateDerivative, self.Vega, self.Volatility, self.Iteration)
}

func (self *DegenerateDerivativeError) Is(target error) bool {
	return target == ErrDegenerateDerivative
}

// ExtrapolationError is returned when a smoothed volatility curve is queried
// outside the strikes it was fitted on.
type ExtrapolationError struct {
	Strike float64
	Lo     float64
	Hi     float64
}

func (self *ExtrapolationError) Error() string {
	return fmt.Sprintf("%s: strike %g not in [%g, %g]", ErrExtrapolation,
		self.Strike, self.Lo, self.Hi)
}

func (self *ExtrapolationError) Is(target error) bool {
	return target == ErrExtrapolation
}
