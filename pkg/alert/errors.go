package alert

import "errors"

var (
	ErrSendFailed     = errors.New("alert send failed")
	ErrRateLimited    = errors.New("alert rate limited")
	ErrInvalidChannel = errors.New("invalid alert channel")
)
