package main

import (
	"fmt"
	"strings"

	"github.com/davesmith10/imgopt/internal/png"
	"github.com/davesmith10/imgopt/internal/raster"
	"github.com/davesmith10/imgopt/internal/source"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify [file or URL]",
	Short: "Inspect image format, dimensions and PNG chunk layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := source.Load(cmd.Context(), path, fetchOptions(cfg))
	if err != nil {
		return err
	}

	info, err := raster.GetInfo(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	fmt.Printf("File:        %s\n", path)
	fmt.Printf("Format:      %s\n", info.Format)
	fmt.Printf("Dimensions:  %d x %d\n", info.Width, info.Height)
	fmt.Printf("Color model: %s\n", info.ColorModel)
	fmt.Printf("File size:   %d bytes (%.1f KB)\n", len(data), float64(len(data))/1024)

	if !png.IsPNG(data) {
		return nil
	}
	pi, err := png.Inspect(data)
	if err != nil {
		fmt.Printf("PNG chunks:  invalid: %v\n", err)
		return nil
	}
	fmt.Printf("Bit depth:   %d\n", pi.BitDepth)
	fmt.Printf("Color type:  %s\n", png.ColorTypeName(pi.ColorType))
	fmt.Printf("Interlaced:  %v\n", pi.Interlace != 0)
	if pi.PaletteSize > 0 {
		fmt.Printf("Palette:     %d entries\n", pi.PaletteSize)
	}
	if pi.Transparency {
		fmt.Printf("tRNS:        %d bytes\n", pi.TRNSLength)
	} else {
		fmt.Println("tRNS:        none")
	}
	fmt.Printf("IDAT:        %d bytes\n", pi.IDATBytes)
	fmt.Printf("Chunks:      %s\n", strings.Join(pi.Chunks, " "))

	return nil
}
