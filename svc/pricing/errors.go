package pricing

import "errors"

var (
	ErrCapacityExceeded = errors.New("requested storage exceeds the largest batch depth")
	ErrInvalidRequest   = errors.New("invalid capacity request")
	ErrUnknownTier      = errors.New("unknown subscription tier")
	ErrInvalidPriceList = errors.New("invalid price list")
)
