package server

import (
	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/timeline"
)

// TrackSummary is one entry of the track listing.
type TrackSummary struct {
	Name    string         `json:"name"`
	Records int            `json:"records"`
	Current *domain.Record `json:"current,omitempty"`
}

// TracksResponse lists every track in index order.
type TracksResponse struct {
	Tracks []TrackSummary `json:"tracks"`
}

// DaysHeldResponse is a ranked days-held histogram.
type DaysHeldResponse struct {
	By      string           `json:"by"`
	Track   string           `json:"track,omitempty"`
	Until   string           `json:"until"`
	Total   int              `json:"total"`
	Entries []timeline.Entry `json:"entries"`
}

// MessageResponse represents a generic message payload used for success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error payload used for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
