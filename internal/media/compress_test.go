package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"strings"
	"testing"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func noise(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	cases := []struct {
		w, h, edge   int
		wantW, wantH int
	}{
		{800, 600, 1920, 800, 600},
		{4000, 1000, 1920, 1920, 480},
		{1000, 4000, 1920, 480, 1920},
		{1920, 1920, 1920, 1920, 1920},
		{10000, 1, 100, 100, 1},
	}
	for _, c := range cases {
		gw, gh := Fit(c.w, c.h, c.edge)
		if gw != c.wantW || gh != c.wantH {
			t.Fatalf("Fit(%d,%d,%d) = %d,%d; want %d,%d", c.w, c.h, c.edge, gw, gh, c.wantW, c.wantH)
		}
	}
}

func TestCompress_DownscalesToMaxEdge(t *testing.T) {
	in := encodePNG(t, gradient(400, 100))
	res, err := Compress(bytes.NewReader(in), Options{MaxEdge: 200})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if res.Width != 200 || res.Height != 50 {
		t.Fatalf("size = %dx%d; want 200x50", res.Width, res.Height)
	}
	if res.SourceFormat != "png" || res.ContentType() != "image/jpeg" || res.Ext() != "jpg" {
		t.Fatalf("unexpected metadata: %+v", res)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 50 {
		t.Fatalf("encoded size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestCompress_SmallImageKeepsSize(t *testing.T) {
	in := encodePNG(t, gradient(64, 32))
	res, err := Compress(bytes.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if res.Width != 64 || res.Height != 32 || res.Quality != 85 {
		t.Fatalf("unexpected result: %dx%d q=%d", res.Width, res.Height, res.Quality)
	}
}

func TestCompress_LowersQualityOverCap(t *testing.T) {
	img := noise(256, 256)
	var first bytes.Buffer
	if err := jpeg.Encode(&first, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	res, err := Compress(bytes.NewReader(encodePNG(t, img)), Options{MaxBytes: first.Len() - 1})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if res.Quality >= 85 {
		t.Fatalf("quality should have been lowered, got %d", res.Quality)
	}
	if len(res.Data) >= first.Len() {
		t.Fatalf("output %d bytes not smaller than %d", len(res.Data), first.Len())
	}
}

func TestCompress_StopsAtQualityFloor(t *testing.T) {
	res, err := Compress(bytes.NewReader(encodePNG(t, noise(128, 128))), Options{MaxBytes: 1, MinQuality: 50})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if res.Quality != 55 {
		t.Fatalf("expected last quality above floor (55), got %d", res.Quality)
	}
	if len(res.Data) == 0 {
		t.Fatalf("expected best-effort output")
	}
}

func TestCompress_Rejects(t *testing.T) {
	if _, err := Compress(strings.NewReader("definitely not an image"), Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	in := encodePNG(t, gradient(100, 100))
	if _, err := Compress(bytes.NewReader(in), Options{MaxPixels: 99 * 100}); !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("expected ErrTooManyPixels, got %v", err)
	}
}
