// Package thumbnail shrinks suggestion images before delivery.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	// MaxDimension bounds the longer side of a thumbnail.
	MaxDimension = 1200
	// Quality is the JPEG quality of generated thumbnails.
	Quality = 85
)

// Make decodes data and re-encodes it as a JPEG that fits in maxDim x maxDim.
// Images that already fit are only re-encoded.
func Make(data []byte, maxDim int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := src
	b := src.Bounds()
	if w, h := fit(b.Dx(), b.Dy(), maxDim); w != b.Dx() || h != b.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// OrOriginal returns a thumbnail, or data unchanged when it cannot be made.
func OrOriginal(data []byte) []byte {
	thumb, err := Make(data, MaxDimension)
	if err != nil {
		return data
	}
	return thumb
}

// fit scales w x h down, preserving aspect ratio, so both sides are <= maxDim.
func fit(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
