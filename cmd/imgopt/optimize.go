package main

import (
	"fmt"
	"os"

	"github.com/davesmith10/imgopt/internal/png"
	"github.com/davesmith10/imgopt/internal/source"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [file.png]",
	Short: "Losslessly re-optimize an existing PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().StringP("output", "o", "", "Output PNG file (default: overwrite the input)")
	optimizeCmd.Flags().Int("level", png.DefaultLevel, fmt.Sprintf("Optimization level 0-%d", png.MaxLevel))
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	level, _ := cmd.Flags().GetInt("level")
	if level < 0 || level > png.MaxLevel {
		return fmt.Errorf("level %d out of range 0-%d", level, png.MaxLevel)
	}
	if outputPath == "" {
		outputPath = inputPath
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	preset := png.PresetForLevel(level)
	optimized, err := png.Optimize(data, preset)
	if err != nil {
		return fmt.Errorf("optimizing %s: %w", inputPath, err)
	}

	if outputPath == inputPath && len(optimized) == len(data) {
		fmt.Printf("%s: already optimal (%d bytes)\n", inputPath, len(data))
		return nil
	}
	if err := source.WriteFile(outputPath, optimized); err != nil {
		return err
	}

	fmt.Printf("Optimized at level %d (filters %v)\n", level, preset.Strategies)
	fmt.Printf("Input:  %s (%d bytes)\n", inputPath, len(data))
	fmt.Printf("Output: %s (%d bytes, %.1f%%)\n", outputPath, len(optimized), percent(len(optimized), len(data)))

	return nil
}
