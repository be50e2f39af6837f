package main

import (
	"fmt"
	"time"

	"github.com/davesmith10/imgopt/internal/batch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Run as a daemon converting images as they appear in watched directories",
	Long: `watch converts everything already present in the watched directories, then
converts new or modified images as they arrive until interrupted. Directories
come from the arguments or, when none are given, from [watch] dirs in the
config file. Deleting a source removes its output.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringP("output", "o", "", "Output directory (default: [watch] output, or next to inputs with suffix)")
	watchCmd.Flags().IntP("workers", "j", 0, "Parallel conversions (0 = number of CPUs)")
	watchCmd.Flags().Int("poll", 0, "Polling interval in seconds for filesystems without change events (0 disables; default from config)")
	addPipelineFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	popts := pipelineOptions(cmd, cfg)
	if err := validateQuality(popts.Quality); err != nil {
		return err
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = cfg.Watch.Dirs
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no directories to watch: pass them as arguments or set [watch] dirs in the config")
	}

	output := cfg.Watch.Output
	if cmd.Flags().Changed("output") {
		output, _ = cmd.Flags().GetString("output")
	}
	workers := cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	poll := cfg.Watch.PollDuration()
	if cmd.Flags().Changed("poll") {
		secs, _ := cmd.Flags().GetInt("poll")
		if secs < 0 {
			return fmt.Errorf("poll interval must not be negative")
		}
		poll = time.Duration(secs) * time.Second
	}

	return batch.Watch(cmd.Context(), batch.WatchOptions{
		Options: batch.Options{
			Pipeline: popts,
			Output:   output,
			Suffix:   cfg.Batch.Suffix,
			Workers:  workers,
			Logger:   newLogger(cmd),
		},
		Dirs:         dirs,
		Debounce:     cfg.Watch.Debounce(),
		PollInterval: poll,
	})
}
