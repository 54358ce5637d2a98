package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/geosim/geo2wps/internal/landuse"
)

// gridSource is an in-memory Source for render tests.
type gridSource struct {
	w, h int
	data []float64
}

func (g *gridSource) Size() (int, int) { return g.w, g.h }

func (g *gridSource) ReadScaled(x, y, w, h int) ([]float64, error) {
	out := make([]float64, w*h)
	for row := 0; row < h; row++ {
		copy(out[row*w:(row+1)*w], g.data[(y+row)*g.w+x:(y+row)*g.w+x+w])
	}
	return out, nil
}

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		format  string
		wantFmt string
		wantExt string
		wantErr bool
	}{
		{"jpeg", "jpeg", ".jpg", false},
		{"jpg", "jpeg", ".jpg", false},
		{"png", "png", ".png", false},
		{"webp", "webp", ".webp", false},
		{"bmp", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := NewEncoder(tt.format, 85)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if enc.Format() != tt.wantFmt {
				t.Errorf("Format() = %q, want %q", enc.Format(), tt.wantFmt)
			}
			if enc.FileExtension() != tt.wantExt {
				t.Errorf("FileExtension() = %q, want %q", enc.FileExtension(), tt.wantExt)
			}
		})
	}
}

func TestEncoderForPath(t *testing.T) {
	enc, err := EncoderForPath("/tmp/out/preview.PNG", 0)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Format() != "png" {
		t.Errorf("Format() = %q, want png", enc.Format())
	}
	if _, err := EncoderForPath("noext", 0); err == nil {
		t.Error("expected error for path without extension")
	}
}

func TestRenderGrayscale(t *testing.T) {
	src := &gridSource{w: 2, h: 2, data: []float64{0, 50, 100, math.NaN()}}

	img, err := Render(src, nil, 16)
	if err != nil {
		t.Fatal(err)
	}
	rgba := img.(*image.RGBA)

	if got := rgba.RGBAAt(0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("min pixel = %v, want black", got)
	}
	if got := rgba.RGBAAt(0, 1); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("max pixel = %v, want white", got)
	}
	if got := rgba.RGBAAt(1, 0); got != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("mid pixel = %v, want mid gray", got)
	}
	if got := rgba.RGBAAt(1, 1); got.A != 0 {
		t.Errorf("missing pixel alpha = %d, want 0", got.A)
	}
}

func TestRenderPalette(t *testing.T) {
	pal := landuse.BuildPalette(landuse.Schemes(landuse.SchemeUSGS), 1, 24)
	src := &gridSource{w: 2, h: 1, data: []float64{16, math.NaN()}}

	img, err := Render(src, pal, 16)
	if err != nil {
		t.Fatal(err)
	}
	rgba := img.(*image.RGBA)

	water, ok := pal.Lookup(16)
	if !ok {
		t.Fatal("palette missing code 16")
	}
	if got := rgba.RGBAAt(0, 0); got != water.Color {
		t.Errorf("water pixel = %v, want %v", got, water.Color)
	}
	if got := rgba.RGBAAt(1, 0); got.A != 0 {
		t.Errorf("missing pixel alpha = %d, want 0", got.A)
	}
}

func TestRenderSubsamples(t *testing.T) {
	const size = 64
	data := make([]float64, size*size)
	for i := range data {
		data[i] = float64(i % size)
	}
	src := &gridSource{w: size, h: size, data: data}

	img, err := Render(src, nil, 16)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() > 16 || b.Dy() > 16 {
		t.Errorf("preview %dx%d exceeds max dimension 16", b.Dx(), b.Dy())
	}
}

func TestPNGEncoderRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 32), uint8(y * 32), 0, 255})
		}
	}

	enc := &PNGEncoder{}
	data, err := enc.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
}

func TestJPEGEncoderDefaults(t *testing.T) {
	enc := &JPEGEncoder{}
	data, err := enc.Encode(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Encode produced empty data")
	}
}
