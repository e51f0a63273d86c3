package usage

import "errors"

var (
	ErrQuotaExceeded  = errors.New("usage quota exceeded")
	ErrMetricNotFound = errors.New("usage metric not found")
	ErrInvalidSize    = errors.New("invalid usage size")
)
