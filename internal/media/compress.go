// Package media implements the photo pipeline: decoding guest uploads,
// downscaling and re-encoding them as size-capped JPEGs, and storing the
// result in a blob store that hands out public URLs.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat is returned for input that is not a decodable image.
	ErrUnsupportedFormat = errors.New("media: unsupported image format")
	// ErrTooManyPixels guards against decompression bombs.
	ErrTooManyPixels = errors.New("media: image dimensions too large")
)

// Options controls Compress. Zero fields take the defaults below.
type Options struct {
	MaxEdge      int // longest edge after scaling (1920)
	MaxBytes     int // target encoded size (1 MiB)
	StartQuality int // first JPEG quality tried (85)
	MinQuality   int // quality floor (40)
	QualityStep  int // decrement per attempt (10)
	MaxPixels    int // decode limit, width*height (64M)
}

func (o Options) withDefaults() Options {
	if o.MaxEdge <= 0 {
		o.MaxEdge = 1920
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 1 << 20
	}
	if o.StartQuality <= 0 || o.StartQuality > 100 {
		o.StartQuality = 85
	}
	if o.MinQuality <= 0 {
		o.MinQuality = 40
	}
	if o.MinQuality > o.StartQuality {
		o.MinQuality = o.StartQuality
	}
	if o.QualityStep <= 0 {
		o.QualityStep = 10
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = 64 << 20
	}
	return o
}

// Result is an encoded JPEG ready for upload.
type Result struct {
	Data    []byte
	Width   int
	Height  int
	Quality int
	// SourceFormat is the decoder name ("jpeg", "png", "gif", "webp").
	SourceFormat string
}

// ContentType is always image/jpeg.
func (Result) ContentType() string { return "image/jpeg" }

// Ext is the file extension for the encoded data, without a dot.
func (Result) Ext() string { return "jpg" }

// Compress decodes r, scales it so neither edge exceeds MaxEdge and encodes
// it as JPEG, lowering quality until the output fits MaxBytes. When even the
// quality floor is over the cap the floor encoding is returned.
func Compress(r io.Reader, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > opts.MaxPixels {
		return nil, ErrTooManyPixels
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	img := fit(src, opts.MaxEdge)

	var buf bytes.Buffer
	q := opts.StartQuality
	for {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
		if buf.Len() <= opts.MaxBytes || q-opts.QualityStep < opts.MinQuality {
			break
		}
		q -= opts.QualityStep
	}

	b := img.Bounds()
	return &Result{
		Data:         append([]byte(nil), buf.Bytes()...),
		Width:        b.Dx(),
		Height:       b.Dy(),
		Quality:      q,
		SourceFormat: format,
	}, nil
}

// Fit returns the dimensions of a w x h image scaled down so that its
// longest edge is at most maxEdge. Smaller images are unchanged.
func Fit(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}

// fit renders src onto an opaque white RGBA canvas, scaling with
// Catmull-Rom when it exceeds maxEdge. JPEG has no alpha channel.
func fit(src image.Image, maxEdge int) *image.RGBA {
	sb := src.Bounds()
	w, h := Fit(sb.Dx(), sb.Dy(), maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}
