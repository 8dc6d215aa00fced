package pipeline

import (
	"context"
	"errors"
)

// ReadinessChecker reports whether a dependency is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Readiness is ready when every member is.
type Readiness []ReadinessChecker

// CheckReadiness runs every check and joins the failures.
func (r Readiness) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
