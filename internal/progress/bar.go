package progress

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar renders track fetches of a rebuild as a terminal progress bar.
type Bar struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar
}

func NewBar(w io.Writer) *Bar {
	return &Bar{w: w}
}

// Listen is a Tracker listener.
func (b *Bar) Listen(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case event.Stage == StageFetching && event.TrackDetails != nil:
		if b.bar == nil {
			b.bar = progressbar.NewOptions(
				event.TrackDetails.TotalTracks,
				progressbar.OptionSetWriter(b.w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetTheme(progressbar.ThemeASCII),
				progressbar.OptionFullWidth(),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan][1/1][reset] Fetching tracks..."),
			)
		}
		_ = b.bar.Set(event.TrackDetails.ProcessedTracks)
	case event.Stage == StageComplete || event.Stage == StageError:
		if b.bar != nil {
			_ = b.bar.Finish()
			b.bar = nil
		}
	}
}

// Current is the number of tracks the bar shows as done, or -1 without a bar.
func (b *Bar) Current() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		return -1
	}
	return int(b.bar.State().CurrentNum)
}
