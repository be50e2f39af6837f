package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/davesmith10/imgopt/internal/config"
	"github.com/davesmith10/imgopt/internal/pipeline"
	"github.com/davesmith10/imgopt/internal/source"
	"github.com/spf13/cobra"
)

var quantizeCmd = &cobra.Command{
	Use:   "quantize [file or URL]",
	Short: "Quantize to an unoptimized indexed PNG (PNG output + JSON palette sidecar)",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuantize,
}

func init() {
	quantizeCmd.Flags().StringP("output", "o", "", "Output PNG file (default: <input>_optimized.png)")
	quantizeCmd.Flags().Int("width", 0, "Maximum output width (0 = unconstrained)")
	quantizeCmd.Flags().Int("height", 0, "Maximum output height (0 = unconstrained)")
	quantizeCmd.Flags().IntP("quality", "q", config.DefaultQuality, "Palette quality 0-100")
	quantizeCmd.Flags().Bool("no-dither", false, "Nearest-color remap without error diffusion")
	rootCmd.AddCommand(quantizeCmd)
}

type paletteEntry struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

type quantizeMeta struct {
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Colors      int            `json:"colors"`
	Transparent bool           `json:"transparent"`
	Palette     []paletteEntry `json:"palette"`
}

func runQuantize(cmd *cobra.Command, args []string) error {
	input := args[0]
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := pipelineOptions(cmd, cfg)
	opts.Format = pipeline.FormatPNG
	opts.SkipOptimize = true
	if err := validateQuality(opts.Quality); err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = source.OutputPath(input, pipeline.FormatPNG)
	}
	ext := filepath.Ext(outputPath)
	if !strings.EqualFold(ext, pipeline.FormatPNG.Extension()) {
		return fmt.Errorf("quantize writes PNG, output %s must end in .png", outputPath)
	}

	inputData, err := source.Load(cmd.Context(), input, fetchOptions(cfg))
	if err != nil {
		return err
	}

	result, err := pipeline.Run(inputData, opts)
	if err != nil {
		return fmt.Errorf("quantization: %w", err)
	}

	if err := source.WriteFile(outputPath, result.Data); err != nil {
		return err
	}

	// Write JSON sidecar
	meta := quantizeMeta{
		Width:       result.Width,
		Height:      result.Height,
		Colors:      result.Colors,
		Transparent: result.Transparent,
	}
	for _, c := range result.Palette {
		meta.Palette = append(meta.Palette, paletteEntry{R: c.R, G: c.G, B: c.B, A: c.A})
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	metaPath := strings.TrimSuffix(outputPath, ext) + ".json"
	if err := source.WriteFile(metaPath, metaJSON); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}

	fmt.Printf("Quantized %dx%d → %d colors\n", result.Width, result.Height, result.Colors)
	fmt.Printf("Output:  %s (%d bytes)\n", outputPath, len(result.Data))
	fmt.Printf("Sidecar: %s\n", metaPath)

	return nil
}
