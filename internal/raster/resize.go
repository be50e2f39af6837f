package raster

import (
	"math"

	"github.com/davesmith10/imgopt/internal/ir"
	"github.com/disintegration/imaging"
)

// Fit computes the aspect-preserving size of a w x h image inside the box
// given by maxWidth x maxHeight. A zero bound leaves that axis
// unconstrained. ok is false when the image already fits, in which case
// the returned size equals the input size.
func Fit(w, h, maxWidth, maxHeight int) (int, int, bool) {
	if maxWidth <= 0 && maxHeight <= 0 {
		return w, h, false
	}
	boxW, boxH := w, h
	if maxWidth > 0 {
		boxW = maxWidth
	}
	if maxHeight > 0 {
		boxH = maxHeight
	}

	scale := math.Min(float64(boxW)/float64(w), float64(boxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	// Only ever shrink.
	if nw >= w && nh >= h {
		return w, h, false
	}
	return nw, nh, true
}

// Resize downscales img to fit within maxWidth x maxHeight using a
// Lanczos-3 filter. Bounds of zero are treated as absent. The input is
// returned as-is when no bound is set or the image already fits.
func Resize(img *ir.RawImage, maxWidth, maxHeight int) *ir.RawImage {
	nw, nh, ok := Fit(img.Width, img.Height, maxWidth, maxHeight)
	if !ok {
		return img
	}
	return ir.FromNRGBA(imaging.Resize(img.NRGBA(), nw, nh, imaging.Lanczos))
}
