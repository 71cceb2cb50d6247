package lie

import "errors"

var (
	// ErrDimensionMismatch indicates tangent vectors of different dimensions.
	ErrDimensionMismatch = errors.New("lie: tangent dimension mismatch")
)
