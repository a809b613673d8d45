package server

import (
	"fmt"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/jaki95/mkw-records/internal/timeline"
)

// health godoc
// @Summary Health check
// @Tags Utility
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// status godoc
// @Summary Corpus load progress
// @Tags Utility
// @Produce json
// @Success 200 {object} progress.Event
// @Router /api/status [get]
func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.GetCurrentState())
}

// listTracks godoc
// @Summary List tracks
// @Tags Tracks
// @Produce json
// @Success 200 {object} TracksResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/tracks [get]
func (s *Server) listTracks(c *gin.Context) {
	corpus := s.loadCorpus(c)
	if corpus == nil {
		return
	}

	response := TracksResponse{Tracks: make([]TrackSummary, 0, len(corpus.Tracks))}
	for _, track := range corpus.Tracks {
		summary := TrackSummary{Name: track.Name, Records: len(track.Records)}
		if latest, ok := track.Latest(); ok {
			summary.Current = &latest
		}
		response.Tracks = append(response.Tracks, summary)
	}
	c.JSON(http.StatusOK, response)
}

// getTrack godoc
// @Summary Record history of a track
// @Tags Tracks
// @Produce json
// @Param name path string true "Track name"
// @Success 200 {object} domain.Track
// @Failure 404 {object} ErrorResponse
// @Router /api/tracks/{name} [get]
func (s *Server) getTrack(c *gin.Context) {
	corpus := s.loadCorpus(c)
	if corpus == nil {
		return
	}
	track := s.lookupTrack(c, corpus)
	if track == nil {
		return
	}
	c.JSON(http.StatusOK, track)
}

// trackSeries godoc
// @Summary Progression chart series of a track
// @Tags Tracks
// @Produce json
// @Param name path string true "Track name"
// @Success 200 {object} timeline.Series
// @Failure 404 {object} ErrorResponse
// @Router /api/tracks/{name}/series [get]
func (s *Server) trackSeries(c *gin.Context) {
	corpus := s.loadCorpus(c)
	if corpus == nil {
		return
	}
	track := s.lookupTrack(c, corpus)
	if track == nil {
		return
	}
	c.JSON(http.StatusOK, timeline.TrackSeries(track, s.corpus.Today()))
}

// combined godoc
// @Summary Combined all-tracks series
// @Description Both days must fall between the release date and today.
// @Tags Aggregates
// @Produce json
// @Param from query string false "First day (YYYY-MM-DD), defaults to the release date"
// @Param to query string false "Last day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} timeline.Series
// @Failure 400 {object} ErrorResponse
// @Router /api/combined [get]
func (s *Server) combined(c *gin.Context) {
	from, err := dateQuery(c, "from", s.release)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	today := s.corpus.Today()
	to, err := dateQuery(c, "to", today)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := timeline.CheckRange(from, to, s.release, today); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%v: %v", ErrInvalidQuery, err)})
		return
	}

	corpus := s.loadCorpus(c)
	if corpus == nil {
		return
	}
	c.JSON(http.StatusOK, timeline.CombinedSeries(timeline.Combined(corpus, from, to)))
}

// daysHeld godoc
// @Summary Days each player or country held records
// @Tags Aggregates
// @Produce json
// @Param by query string false "player (default) or country"
// @Param track query string false "Restrict to one track"
// @Param top query int false "Only the top N entries"
// @Success 200 {object} DaysHeldResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/days-held [get]
func (s *Server) daysHeld(c *gin.Context) {
	by := c.DefaultQuery("by", "player")
	key, err := timeline.KeySelectorFor(by)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%v: %v", ErrInvalidQuery, err)})
		return
	}

	top := 0
	if t := c.Query("top"); t != "" {
		top, err = strconv.Atoi(t)
		if err != nil || top < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%v: top must be a non-negative integer", ErrInvalidQuery)})
			return
		}
	}

	corpus := s.loadCorpus(c)
	if corpus == nil {
		return
	}

	until := s.corpus.Today()
	response := DaysHeldResponse{By: by, Until: until.String()}

	var histogram timeline.Histogram
	if name := c.Query("track"); name != "" {
		track, ok := corpus.Lookup(name)
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%v: %s", ErrTrackNotFound, name)})
			return
		}
		response.Track = name
		histogram = timeline.DaysHeld(track, key, until)
	} else {
		histogram = timeline.DaysHeldAll(corpus, key, until)
	}

	response.Total = histogram.Total()
	response.Entries = histogram.Ranked()
	if top > 0 && top < len(response.Entries) {
		response.Entries = response.Entries[:top]
	}
	c.JSON(http.StatusOK, response)
}

func dateQuery(c *gin.Context, name string, fallback civil.Date) (civil.Date, error) {
	v := c.Query(name)
	if v == "" {
		return fallback, nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidQuery, name)
	}
	return d, nil
}
