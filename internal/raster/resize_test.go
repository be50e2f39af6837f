package raster

import (
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

func TestFit(t *testing.T) {
	for _, tc := range []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
		wantOK       bool
	}{
		{"no bounds", 100, 100, 0, 0, 100, 100, false},
		{"width only square", 100, 100, 50, 0, 50, 50, true},
		{"height only", 800, 600, 0, 300, 400, 300, true},
		{"both bounds width limited", 800, 600, 400, 400, 400, 300, true},
		{"both bounds height limited", 600, 800, 400, 400, 300, 400, true},
		{"larger bound never upscales", 100, 50, 400, 0, 100, 50, false},
		{"exact fit", 100, 50, 100, 50, 100, 50, false},
		{"tiny result clamps to one", 1000, 2, 10, 0, 10, 1, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w, h, ok := Fit(tc.w, tc.h, tc.maxW, tc.maxH)
			if w != tc.wantW || h != tc.wantH || ok != tc.wantOK {
				t.Errorf("Fit(%d, %d, %d, %d) = %d, %d, %v; want %d, %d, %v",
					tc.w, tc.h, tc.maxW, tc.maxH, w, h, ok, tc.wantW, tc.wantH, tc.wantOK)
			}
		})
	}
}

func TestResizeSquareWidthOnly(t *testing.T) {
	red := solid(100, 100, ir.Color{R: 255, A: 255})
	out := Resize(red, 50, 0)
	if out.Width != 50 || out.Height != 50 {
		t.Fatalf("got %dx%d, want 50x50", out.Width, out.Height)
	}
	if err := out.Validate(); err != nil {
		t.Fatal(err)
	}
	if c := out.At(25, 25); c != (ir.Color{R: 255, A: 255}) {
		t.Errorf("solid color not preserved: %+v", c)
	}
}

func TestResizeBoundsAndIdempotence(t *testing.T) {
	src := solid(640, 480, ir.Color{R: 10, G: 200, B: 30, A: 255})
	bounds := [][2]int{{320, 0}, {0, 100}, {200, 200}, {1000, 1000}, {639, 479}, {1, 1}}

	for _, b := range bounds {
		once := Resize(src, b[0], b[1])
		if b[0] > 0 && once.Width > b[0] {
			t.Errorf("bounds %v: width %d exceeds bound", b, once.Width)
		}
		if b[1] > 0 && once.Height > b[1] {
			t.Errorf("bounds %v: height %d exceeds bound", b, once.Height)
		}
		twice := Resize(once, b[0], b[1])
		if twice != once {
			t.Errorf("bounds %v: second resize returned a new image (%dx%d -> %dx%d)",
				b, once.Width, once.Height, twice.Width, twice.Height)
		}
	}
}

func TestResizePassThrough(t *testing.T) {
	src := solid(10, 10, ir.Color{A: 255})
	if got := Resize(src, 0, 0); got != src {
		t.Error("no bounds should return the input unchanged")
	}
	if got := Resize(src, 20, 20); got != src {
		t.Error("bounds larger than the image should return the input unchanged")
	}
}
