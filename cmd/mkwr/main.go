package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaki95/mkw-records/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config/config.yaml"

// cli carries state shared by every command.
type cli struct {
	configPath string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "mkwr",
		Short: "Mario Kart World world record history",
		Long: `mkwr scrapes the world record history of every Mario Kart World track,
keeps it in a daily cache and derives the combined all-tracks progression
and days-held rankings from it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfigPath, "path to the YAML config file")

	root.AddCommand(
		newRefreshCmd(c),
		newCombinedCmd(c),
		newDaysHeldCmd(c),
		newSeriesCmd(c),
		newServeCmd(c),
		newConfigCmd(c),
	)
	return root
}

// loadConfig reads the config file and sets up logging. A missing default
// config file is not an error; an explicitly requested one is.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	path := c.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c.cfg = cfg

	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)
	return nil
}
