package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

var ErrBadDataURL = errors.New("image must be a base64 data URL")

// Image is a decoded drawing attachment.
type Image struct {
	Data     []byte
	MIMEType string
}

// ParseDataURL decodes "data:<mime>;base64,<payload>". An empty string yields nil without error.
func ParseDataURL(s string) (*Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, ErrBadDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrBadDataURL
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "image/png"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrBadDataURL
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &Image{Data: data, MIMEType: mime}, nil
}

// blankTolerance is the per-channel spread, in 8-bit units, a canvas may show and still count as empty.
const blankTolerance = 12

// IsBlank reports whether a drawing is empty: fully transparent or a single near-uniform color once
// flattened onto white. Every source pixel is inspected so a single thin stroke is enough to count
// as a drawing. Undecodable images are not considered blank.
func (img *Image) IsBlank() bool {
	if img == nil || len(img.Data) == 0 {
		return true
	}
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return false
	}
	b := src.Bounds()
	if b.Empty() {
		return true
	}

	var lo, hi [3]uint32
	first := true
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := flatten(src.At(x, y))
			if first {
				lo, hi, first = px, px, false
				continue
			}
			for c := 0; c < 3; c++ {
				lo[c] = min(lo[c], px[c])
				hi[c] = max(hi[c], px[c])
				if hi[c]-lo[c] > blankTolerance {
					return false
				}
			}
		}
	}
	return true
}

// flatten composites a color over white and returns 8-bit RGB.
func flatten(c color.Color) [3]uint32 {
	r, g, b, a := c.RGBA()
	bg := 0xffff - a
	return [3]uint32{(r + bg) >> 8, (g + bg) >> 8, (b + bg) >> 8}
}
