package job

import "errors"

var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidState = errors.New("invalid job state")
	ErrBusy         = errors.New("a refresh is already running")
)
