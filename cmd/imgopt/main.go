package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/davesmith10/imgopt/internal/config"
	"github.com/davesmith10/imgopt/internal/pipeline"
	"github.com/davesmith10/imgopt/internal/source"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imgopt",
	Short: "Shrink images to palette-optimized PNG or lossy WebP",
	Long: `imgopt decodes PNG, JPEG, GIF, BMP, TIFF or WebP input (from a file or an
http(s) URL), optionally downscales it, and writes either an indexed-color PNG
(at most 256 colors, losslessly re-optimized) or a lossy WebP.

Quality (0-100) has two meanings: for PNG it sets how closely the palette must
match the source (lower means fewer colors); for WebP it is the encoder's lossy
quality.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "imgopt.toml", "Config file (TOML, or YAML by .yaml/.yml extension)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// addPipelineFlags registers the flags shared by the converting commands.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("width", 0, "Maximum output width (0 = unconstrained)")
	cmd.Flags().Int("height", 0, "Maximum output height (0 = unconstrained)")
	cmd.Flags().IntP("quality", "q", config.DefaultQuality, "Quality 0-100 (PNG palette fidelity, or WebP lossy quality)")
	cmd.Flags().String("format", "", "Output format: png or webp (overrides config and the --output extension)")
	cmd.Flags().Bool("no-dither", false, "Map PNG pixels to the nearest palette color without error diffusion")
}

// pipelineOptions merges config values with the flags the user set.
func pipelineOptions(cmd *cobra.Command, cfg *config.Config) pipeline.Options {
	opts := pipeline.Options{
		MaxWidth:  cfg.MaxWidth,
		MaxHeight: cfg.MaxHeight,
		Quality:   cfg.Quality,
		Format:    pipeline.ParseFormat(cfg.Format),
		Dither:    cfg.Dither,
	}
	flags := cmd.Flags()
	if flags.Changed("width") {
		opts.MaxWidth, _ = flags.GetInt("width")
	}
	if flags.Changed("height") {
		opts.MaxHeight, _ = flags.GetInt("height")
	}
	if flags.Changed("quality") {
		opts.Quality, _ = flags.GetInt("quality")
	}
	if flags.Changed("format") {
		f, _ := flags.GetString("format")
		opts.Format = pipeline.ParseFormat(f)
	}
	if flags.Changed("no-dither") {
		noDither, _ := flags.GetBool("no-dither")
		opts.Dither = !noDither
	}
	return opts
}

func fetchOptions(cfg *config.Config) source.FetchOptions {
	return source.FetchOptions{
		Timeout:   cfg.Fetch.TimeoutDuration(),
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	}
}

func validateQuality(q int) error {
	if q < 0 || q > 100 {
		return fmt.Errorf("quality %d out of range 0-100", q)
	}
	return nil
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
