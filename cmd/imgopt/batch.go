package main

import (
	"fmt"

	"github.com/davesmith10/imgopt/internal/batch"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Convert every image under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringP("output", "o", "", "Output directory mirroring the input tree (default: next to inputs with suffix)")
	batchCmd.Flags().IntP("workers", "j", 0, "Parallel conversions (0 = number of CPUs)")
	batchCmd.Flags().Bool("force", false, "Convert even when outputs are up to date")
	addPipelineFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	popts := pipelineOptions(cmd, cfg)
	if err := validateQuality(popts.Quality); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	workers := cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	force, _ := cmd.Flags().GetBool("force")

	sum, err := batch.Run(cmd.Context(), dir, batch.Options{
		Pipeline: popts,
		Output:   output,
		Suffix:   cfg.Batch.Suffix,
		Workers:  workers,
		Force:    force,
		Logger:   newLogger(cmd),
	})
	if err != nil && sum == nil {
		return err
	}

	fmt.Printf("Converted: %d, skipped: %d, failed: %d (%.1fs)\n",
		sum.Converted, sum.Skipped, sum.Failed, sum.Elapsed.Seconds())
	if sum.InputBytes > 0 {
		fmt.Printf("Bytes: %d → %d (%.1f%%)\n", sum.InputBytes, sum.OutputBytes,
			percent(int(sum.OutputBytes), int(sum.InputBytes)))
	}
	for _, fe := range sum.Errors {
		fmt.Printf("  %v\n", fe)
	}
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", sum.Failed, sum.Failed+sum.Converted)
	}
	return nil
}
