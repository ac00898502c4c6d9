// Package thumbnail derives bounded preview images from uploaded files.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when the source cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("thumbnail: unsupported image")

// Generator builds thumbnails with disintegration/imaging.
type Generator struct {
	filter imaging.ResampleFilter
}

// New returns a Generator using Lanczos resampling.
func New() *Generator {
	return &Generator{filter: imaging.Lanczos}
}

// MakeThumbnail scales src into a maxW x maxH box.
// With preserveAspect the ratio is kept and the image fits inside the box;
// with noUpscale a source already inside the box keeps its size.
// The result uses the source encoding when it is jpeg, png, gif, bmp or tiff, png otherwise.
func (g *Generator) MakeThumbnail(src []byte, maxW, maxH int, preserveAspect, noUpscale bool) ([]byte, error) {
	if maxW <= 0 || maxH <= 0 {
		return nil, fmt.Errorf("thumbnail: invalid bounds %dx%d", maxW, maxH)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	out := g.resize(img, maxW, maxH, preserveAspect, noUpscale)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, outputFormat(format)); err != nil {
		return nil, fmt.Errorf("thumbnail: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) resize(img image.Image, maxW, maxH int, preserveAspect, noUpscale bool) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	fits := w <= maxW && h <= maxH

	if !preserveAspect {
		tw, th := maxW, maxH
		if noUpscale {
			tw, th = min(w, maxW), min(h, maxH)
		}
		if tw == w && th == h {
			return img
		}
		return imaging.Resize(img, tw, th, g.filter)
	}

	if fits && noUpscale {
		return img
	}
	// Fit never upscales, so handle the enlarge case with Resize.
	if !fits {
		return imaging.Fit(img, maxW, maxH, g.filter)
	}
	if w*maxH >= h*maxW {
		return imaging.Resize(img, maxW, 0, g.filter)
	}
	return imaging.Resize(img, 0, maxH, g.filter)
}

func outputFormat(decoded string) imaging.Format {
	switch decoded {
	case "jpeg":
		return imaging.JPEG
	case "gif":
		return imaging.GIF
	case "bmp":
		return imaging.BMP
	case "tiff":
		return imaging.TIFF
	default:
		return imaging.PNG
	}
}
