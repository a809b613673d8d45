package server

import "errors"

var (
	ErrTrackNotFound  = errors.New("track not found")
	ErrInvalidQuery   = errors.New("invalid query")
	ErrCorpusNotReady = errors.New("record corpus unavailable")
)
