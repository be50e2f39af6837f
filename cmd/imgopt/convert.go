package main

import (
	"fmt"

	"github.com/davesmith10/imgopt/internal/pipeline"
	"github.com/davesmith10/imgopt/internal/source"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file or URL]",
	Short: "Convert an image to an optimized indexed PNG or lossy WebP",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "Output file (default: <input>_optimized.<format>)")
	addPipelineFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := pipelineOptions(cmd, cfg)
	if err := validateQuality(opts.Quality); err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath != "" && !cmd.Flags().Changed("format") {
		opts.Format = pipeline.FormatFromPath(outputPath)
	}
	if outputPath == "" {
		outputPath = source.OutputPath(input, opts.Format)
	}

	inputData, err := source.Load(cmd.Context(), input, fetchOptions(cfg))
	if err != nil {
		return err
	}

	result, err := pipeline.Run(inputData, opts)
	if err != nil {
		return fmt.Errorf("conversion: %w", err)
	}

	if err := source.WriteFile(outputPath, result.Data); err != nil {
		return err
	}

	fmt.Printf("Converted %dx%d → %dx%d %s\n", result.SrcWidth, result.SrcHeight, result.Width, result.Height, result.Format)
	if result.Format == pipeline.FormatPNG {
		fmt.Printf("Palette: %d colors, transparency: %v\n", result.Colors, result.Transparent)
		fmt.Printf("Optimizer: %d → %d bytes\n", result.UnoptimizedSize, len(result.Data))
	}
	fmt.Printf("Input:  %s (%d bytes)\n", input, len(inputData))
	fmt.Printf("Output: %s (%d bytes, %.1f%%)\n", outputPath, len(result.Data), percent(len(result.Data), len(inputData)))

	return nil
}
