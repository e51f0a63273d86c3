package scheduler

import "errors"

var (
	ErrInvalidSchedule        = errors.New("invalid schedule format")
	ErrJobAlreadyRegistered   = errors.New("job already registered")
	ErrJobNotFound            = errors.New("job not found")
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered jobs")
	ErrJobPanicked            = errors.New("job panicked")
)
