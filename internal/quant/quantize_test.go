package quant

import (
	"errors"
	"image/color"
	"testing"

	"github.com/davesmith10/imgopt/internal/ir"
)

func solid(w, h int, c ir.Color) *ir.RawImage {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	return &ir.RawImage{Width: w, Height: h, Pixels: pix}
}

// photo returns an image with many thousands of distinct colors.
func photo(w, h int, alpha bool) *ir.RawImage {
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			pix[i] = uint8(x * 255 / w)
			pix[i+1] = uint8(y * 255 / h)
			pix[i+2] = uint8((x*y)>>3 ^ x)
			pix[i+3] = 255
			if alpha && x < w/4 {
				pix[i+3] = uint8(y * 255 / h)
			}
		}
	}
	return &ir.RawImage{Width: w, Height: h, Pixels: pix}
}

// verifyQuantized checks the structural invariants every result must hold.
func verifyQuantized(t *testing.T, name string, img *ir.RawImage, q *ir.Quantized) {
	t.Helper()
	if len(q.Palette) == 0 || len(q.Palette) > ir.MaxPaletteSize {
		t.Fatalf("[%s] palette size %d out of range", name, len(q.Palette))
	}
	if len(q.Indices) != img.Width*img.Height {
		t.Fatalf("[%s] %d indices for %d pixels", name, len(q.Indices), img.Width*img.Height)
	}
	for i, idx := range q.Indices {
		if int(idx) >= len(q.Palette) {
			t.Fatalf("[%s] index %d at pixel %d >= palette size %d", name, idx, i, len(q.Palette))
		}
	}
	seen := make(map[ir.Color]bool)
	for _, c := range q.Palette {
		if seen[c] {
			t.Errorf("[%s] duplicate palette entry %+v", name, c)
		}
		seen[c] = true
	}
	if !img.HasAlpha() && q.Palette.HasAlpha() {
		t.Errorf("[%s] opaque source produced a translucent palette entry", name)
	}
}

func TestQuantizeSolidRed(t *testing.T) {
	img := solid(100, 100, ir.Color{R: 255, A: 255})

	q, err := Quantize(img, Options{Quality: 80, Dither: true})
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	verifyQuantized(t, "solid-red", img, q)

	if len(q.Palette) != 1 || q.Palette[0] != (ir.Color{R: 255, A: 255}) {
		t.Fatalf("palette = %+v, want [{255 0 0 255}]", q.Palette)
	}
	if len(q.Indices) != 10000 {
		t.Fatalf("got %d indices, want 10000", len(q.Indices))
	}
	for i, idx := range q.Indices {
		if idx != 0 {
			t.Fatalf("index %d = %d, want 0", i, idx)
		}
	}
	if q.Palette.HasAlpha() {
		t.Error("opaque image must not produce transparency")
	}
}

func TestQuantizeExactPaletteOrder(t *testing.T) {
	colors := []ir.Color{
		{R: 0, G: 0, B: 255, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 10, G: 20, B: 30, A: 128},
		{R: 99, G: 1, B: 1, A: 0},
		{R: 7, G: 7, B: 7, A: 0}, // collapses with the previous transparent pixel
	}
	img := &ir.RawImage{Width: len(colors), Height: 1}
	for _, c := range colors {
		img.Pixels = append(img.Pixels, c.R, c.G, c.B, c.A)
	}

	q, err := Quantize(img, DefaultOptions())
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	verifyQuantized(t, "exact", img, q)

	want := ir.Palette{colors[0], colors[1], colors[2], {}}
	if len(q.Palette) != len(want) {
		t.Fatalf("palette = %+v, want %+v", q.Palette, want)
	}
	for i := range want {
		if q.Palette[i] != want[i] {
			t.Errorf("palette[%d] = %+v, want %+v", i, q.Palette[i], want[i])
		}
	}
	if got := q.Indices; got[3] != 3 || got[4] != 3 {
		t.Errorf("transparent pixels mapped to %d and %d, want 3", got[3], got[4])
	}
	if !q.Palette.HasAlpha() {
		t.Error("translucent source must keep alpha in the palette")
	}
}

func TestQuantizeManyColors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		img     *ir.RawImage
		quality int
		dither  bool
	}{
		{"photo-q80-dither", photo(128, 96, false), 80, true},
		{"photo-q80-nodither", photo(128, 96, false), 80, false},
		{"photo-q100", photo(96, 64, false), 100, true},
		{"photo-q30", photo(96, 64, false), 30, false},
		{"photo-alpha", photo(96, 64, true), 80, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Quantize(tc.img, Options{Quality: tc.quality, Dither: tc.dither})
			if err != nil {
				t.Fatalf("Quantize: %v", err)
			}
			verifyQuantized(t, tc.name, tc.img, q)
			t.Logf("[%s] %d colors", tc.name, len(q.Palette))
		})
	}
}

func TestQuantizeLowerQualityUsesFewerColors(t *testing.T) {
	img := photo(128, 128, false)

	low, err := Quantize(img, Options{Quality: 0})
	if err != nil {
		t.Fatal(err)
	}
	high, err := Quantize(img, Options{Quality: 100})
	if err != nil {
		t.Fatal(err)
	}
	verifyQuantized(t, "q0", img, low)
	if len(low.Palette) >= len(high.Palette) {
		t.Errorf("quality 0 gave %d colors, quality 100 gave %d", len(low.Palette), len(high.Palette))
	}
	if len(low.Palette) < minColors/2 || len(low.Palette) > minColors {
		t.Errorf("quality 0 gave %d colors, want about %d", len(low.Palette), minColors)
	}
	if len(high.Palette) < ir.MaxPaletteSize/2 {
		t.Errorf("quality 100 on a photo should use most of the palette, got %d", len(high.Palette))
	}
}

func TestQuantizeMaxColors(t *testing.T) {
	img := photo(64, 64, false)
	q, err := Quantize(img, Options{Quality: 100, MaxColors: 16})
	if err != nil {
		t.Fatal(err)
	}
	verifyQuantized(t, "max16", img, q)
	if len(q.Palette) > 16 {
		t.Errorf("palette has %d entries, limit 16", len(q.Palette))
	}
}

func TestQuantizeErrors(t *testing.T) {
	good := solid(2, 2, ir.Color{A: 255})
	for _, tc := range []struct {
		name string
		img  *ir.RawImage
		opts Options
	}{
		{"quality above range", good, Options{Quality: 101}},
		{"quality below range", good, Options{Quality: -5}},
		{"one color limit", good, Options{Quality: 80, MaxColors: 1}},
		{"too many colors", good, Options{Quality: 80, MaxColors: 300}},
		{"zero size", &ir.RawImage{}, Options{Quality: 80}},
		{"short buffer", &ir.RawImage{Width: 4, Height: 4, Pixels: make([]byte, 8)}, Options{Quality: 80}},
		{"nil image", nil, Options{Quality: 80}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Quantize(tc.img, tc.opts); !errors.Is(err, ErrQuantize) {
				t.Errorf("got %v, want ErrQuantize", err)
			}
		})
	}
}

func TestPaletteSize(t *testing.T) {
	for _, tc := range []struct {
		quality, maxColors, want int
	}{
		{0, 256, minColors},
		{25, 256, 136},
		{50, 256, 256},
		{100, 256, 256},
		{0, 8, 8},
		{0, 16, 16},
		{10, 64, 25},
	} {
		if got := paletteSize(tc.quality, tc.maxColors); got != tc.want {
			t.Errorf("paletteSize(%d, %d) = %d, want %d", tc.quality, tc.maxColors, got, tc.want)
		}
	}
	prev := paletteSize(0, DefaultMaxColors)
	for q := 1; q <= 100; q++ {
		cur := paletteSize(q, DefaultMaxColors)
		if cur < prev {
			t.Fatalf("paletteSize not monotonic: q=%d %d < q=%d %d", q, cur, q-1, prev)
		}
		prev = cur
	}
}

func TestToColor(t *testing.T) {
	for _, tc := range []struct {
		in   color.Color
		want ir.Color
	}{
		{color.RGBA{R: 255, A: 255}, ir.Color{R: 255, A: 255}},
		{color.RGBA{R: 1, G: 2, B: 3, A: 255}, ir.Color{R: 1, G: 2, B: 3, A: 255}},
		{color.RGBA{R: 64, G: 32, B: 16, A: 128}, ir.Color{R: 127, G: 63, B: 31, A: 128}},
		{color.RGBA{R: 200, A: 100}, ir.Color{R: 255, A: 100}},
		{color.RGBA{R: 9, G: 9, B: 9}, ir.Color{}},
	} {
		if got := toColor(tc.in); got != tc.want {
			t.Errorf("toColor(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestCompactDropsPadding(t *testing.T) {
	p := color.Palette{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 250},
		color.RGBA{R: 255, A: 255},
		color.RGBA{R: 255, A: 255},
	}
	palette, remap := compact(p, true)
	want := ir.Palette{{R: 255, A: 255}, {G: 255, A: 255}}
	if len(palette) != len(want) || palette[0] != want[0] || palette[1] != want[1] {
		t.Fatalf("palette = %+v, want %+v", palette, want)
	}
	for i, w := range []uint8{0, 1, 0, 0} {
		if remap[i] != w {
			t.Errorf("remap[%d] = %d, want %d", i, remap[i], w)
		}
	}
}
