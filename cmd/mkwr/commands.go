package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/jaki95/mkw-records/config"
	"github.com/jaki95/mkw-records/internal/domain"
	"github.com/jaki95/mkw-records/internal/progress"
	"github.com/jaki95/mkw-records/internal/server"
	"github.com/jaki95/mkw-records/internal/timeline"
	"github.com/k0kubun/go-ansi"
	"github.com/spf13/cobra"
)

// loadCorpus wires the app and loads the corpus, drawing a progress bar on
// stderr during a rebuild unless quiet.
func (c *cli) loadCorpus(cmd *cobra.Command, force bool) (*app, *domain.Corpus, error) {
	a, err := newApp(cmd.Context(), c.cfg)
	if err != nil {
		return nil, nil, err
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		a.tracker.AddListener(progress.NewBar(ansi.NewAnsiStderr()).Listen)
	}

	corpus, err := a.load(cmd.Context(), force)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, corpus, nil
}

func newRefreshCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Load the record corpus, rebuilding the cache if it is stale",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, corpus, err := c.loadCorpus(cmd, force)
			if err != nil {
				return err
			}
			defer a.Close()

			records := 0
			for _, track := range corpus.Tracks {
				records += len(track.Records)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tracks, %d records, as of %s\n", len(corpus.Tracks), records, a.corpus.Today())
			return a.persistErr
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "rebuild even when the cache is current")
	cmd.Flags().BoolP("quiet", "q", false, "do not draw a progress bar")
	return cmd
}

func newCombinedCmd(c *cli) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "combined",
		Short: "Print the combined all-tracks time for every day",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, corpus, err := c.loadCorpus(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			start, err := dateFlag(from, c.cfg.Release)
			if err != nil {
				return err
			}
			today := a.corpus.Today()
			end, err := dateFlag(to, func() (civil.Date, error) { return today, nil })
			if err != nil {
				return err
			}
			release, err := c.cfg.Release()
			if err != nil {
				return err
			}
			if err := timeline.CheckRange(start, end, release, today); err != nil {
				return err
			}

			combined := timeline.Combined(corpus, start, end)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tSECONDS\tTIME")
			for _, record := range combined.Records {
				fmt.Fprintf(w, "%s\t%.3f\t%s\n", record.DateSet, record.TimeSeconds, formatTime(record.TimeSeconds))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD), defaults to the release date")
	cmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD), defaults to today")
	cmd.Flags().BoolP("quiet", "q", false, "do not draw a progress bar")
	return cmd
}

func newDaysHeldCmd(c *cli) *cobra.Command {
	var (
		by    string
		track string
		top   int
	)

	cmd := &cobra.Command{
		Use:   "days-held",
		Short: "Rank players or countries by days holding world records",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := timeline.KeySelectorFor(by)
			if err != nil {
				return err
			}

			a, corpus, err := c.loadCorpus(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			until := a.corpus.Today()
			var histogram timeline.Histogram
			if track != "" {
				t, ok := corpus.Lookup(track)
				if !ok {
					return fmt.Errorf("%w: %s", server.ErrTrackNotFound, track)
				}
				histogram = timeline.DaysHeld(t, key, until)
			} else {
				histogram = timeline.DaysHeldAll(corpus, key, until)
			}

			return writeRanking(cmd.OutOrStdout(), histogram.Ranked(), by, top)
		},
	}
	cmd.Flags().StringVar(&by, "by", "player", "group by player or country")
	cmd.Flags().StringVar(&track, "track", "", "restrict to one track")
	cmd.Flags().IntVar(&top, "top", 10, "number of entries to print, 0 for all")
	cmd.Flags().BoolP("quiet", "q", false, "do not draw a progress bar")
	return cmd
}

func writeRanking(out io.Writer, entries []timeline.Entry, by string, top int) error {
	if top > 0 && top < len(entries) {
		entries = entries[:top]
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tNAME\tDAYS")
	for i, entry := range entries {
		name := entry.Key
		if by == "player" {
			name = domain.Record{Player: entry.Key}.PlayerName()
		}
		fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, name, entry.Days)
	}
	return w.Flush()
}

func newSeriesCmd(c *cli) *cobra.Command {
	var combined bool

	cmd := &cobra.Command{
		Use:   "series [track]",
		Short: "Print a progression chart series as JSON",
		Args: func(cmd *cobra.Command, args []string) error {
			if combined && len(args) > 0 {
				return errors.New("--combined takes no track argument")
			}
			if !combined && len(args) != 1 {
				return errors.New("expected exactly one track name, or --combined")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, corpus, err := c.loadCorpus(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			today := a.corpus.Today()
			var series timeline.Series
			if combined {
				release, err := c.cfg.Release()
				if err != nil {
					return err
				}
				series = timeline.CombinedSeries(timeline.Combined(corpus, release, today))
			} else {
				track, ok := corpus.Lookup(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", server.ErrTrackNotFound, args[0])
				}
				series = timeline.TrackSeries(track, today)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(series)
		},
	}
	cmd.Flags().BoolVar(&combined, "combined", false, "the combined all-tracks series")
	cmd.Flags().BoolP("quiet", "q", false, "do not draw a progress bar")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the record API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				c.cfg.Server.Port = port
			}

			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := server.New(c.cfg, a.corpus, a.tracker, a.metrics)
			if err != nil {
				return err
			}

			go func() {
				if _, err := a.load(cmd.Context(), false); err != nil {
					slog.Error("Initial corpus load failed", "error", err)
				}
			}()

			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on, overrides server.port")
	return cmd
}

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Dump(c.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func dateFlag(value string, fallback func() (civil.Date, error)) (civil.Date, error) {
	if value == "" {
		return fallback()
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// formatTime renders seconds as m:ss.mmm.
func formatTime(seconds float64) string {
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms%60000/1000, ms%1000)
}
