package progress

import (
	"encoding/json"
	"sync"
	"time"
)

// Stage represents the current stage of a corpus load
type Stage string

const (
	StageInitializing  Stage = "initializing"
	StageCheckingCache Stage = "checking_cache"
	StageLoadingCache  Stage = "loading_cache"
	StageFetchingIndex Stage = "fetching_index"
	StageFetching      Stage = "fetching_tracks"
	StageSaving        Stage = "saving"
	StageComplete      Stage = "complete"
	StageError         Stage = "error"
)

// Event represents a progress event
type Event struct {
	Stage        Stage         `json:"stage"`
	Progress     float64       `json:"progress"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	TrackDetails *TrackDetails `json:"trackDetails,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// TrackDetails describes the track fetch that produced an event
type TrackDetails struct {
	CurrentTrack    string `json:"currentTrack"`
	TotalTracks     int    `json:"totalTracks"`
	ProcessedTracks int    `json:"processedTracks"`
}

// Tracker records the latest state of a load and fans events out to
// listeners. Listeners are called synchronously and must not call back into
// the tracker.
type Tracker struct {
	mu           sync.RWMutex
	stage        Stage
	progress     float64
	message      string
	trackDetails *TrackDetails
	err          error
	listeners    []func(Event)
}

// NewTracker creates a new Tracker instance
func NewTracker() *Tracker {
	return &Tracker{
		stage:     StageInitializing,
		listeners: make([]func(Event), 0),
	}
}

// AddListener adds a new progress event listener
func (t *Tracker) AddListener(listener func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

// UpdateProgress moves to a stage and notifies all listeners. It clears any
// previous error and track details.
func (t *Tracker) UpdateProgress(stage Stage, progress float64, message string) {
	t.mu.Lock()
	t.stage = stage
	t.progress = progress
	t.message = message
	t.trackDetails = nil
	t.err = nil
	event := t.eventLocked()
	t.mu.Unlock()

	t.notifyListeners(event)
}

// UpdateTrackProgress records that processed of total tracks are done,
// current being the latest one.
func (t *Tracker) UpdateTrackProgress(processed, total int, current string) {
	t.mu.Lock()
	t.trackDetails = &TrackDetails{
		CurrentTrack:    current,
		TotalTracks:     total,
		ProcessedTracks: processed,
	}
	if total > 0 {
		t.progress = float64(processed) / float64(total) * 100
	}
	event := t.eventLocked()
	t.mu.Unlock()

	t.notifyListeners(event)
}

// SetError sets an error state and notifies all listeners
func (t *Tracker) SetError(err error) {
	t.mu.Lock()
	t.stage = StageError
	t.err = err
	t.message = err.Error()
	event := t.eventLocked()
	t.mu.Unlock()

	t.notifyListeners(event)
}

// GetCurrentState returns the current progress state
func (t *Tracker) GetCurrentState() Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.eventLocked()
}

func (t *Tracker) eventLocked() Event {
	event := Event{
		Stage:     t.stage,
		Progress:  t.progress,
		Message:   t.message,
		Timestamp: time.Now(),
	}
	if t.trackDetails != nil {
		details := *t.trackDetails
		event.TrackDetails = &details
	}
	if t.err != nil {
		event.Error = t.err.Error()
	}
	return event
}

func (t *Tracker) notifyListeners(event Event) {
	t.mu.RLock()
	listeners := make([]func(Event), len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// MarshalJSON implements json.Marshaler for Event
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Alias:     (*Alias)(&e),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, aux.Timestamp)
	if err != nil {
		return err
	}
	e.Timestamp = t
	return nil
}
