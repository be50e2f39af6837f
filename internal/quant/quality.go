package quant

// DefaultQuality is the quality used when none is configured.
const DefaultQuality = 80

// minColors is the palette size at quality 0. Below this, photos lose
// their shape rather than their detail.
const minColors = 16

// paletteSize maps a quality (0-100) to the number of clusters to build.
// Quality 50 and above use the full limit; below that the palette shrinks
// linearly to minColors. 100 still allows an exact palette, which the
// caller handles before clustering.
func paletteSize(quality, maxColors int) int {
	if maxColors <= minColors || quality >= 50 {
		return maxColors
	}
	return minColors + (maxColors-minColors)*quality/50
}

// kmeansIterations returns the k-means pass limit. Clustering stops
// earlier once the error stops falling.
func kmeansIterations(quality int) int {
	return 1 + quality/10
}
