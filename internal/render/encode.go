package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// ErrUnsupportedFormat marks an output format the encoder cannot produce
var ErrUnsupportedFormat = errors.New("unsupported image format")

// jpegQuality matches the quality the interactive map tiles ship with
const jpegQuality = 90

// Encode serializes a rendered image. Returns the encoded bytes and
// the corresponding content type. Formats: "png", "jpeg" (alias "jpg").
func Encode(img *image.NRGBA, format string) ([]byte, string, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("png encoding: %w", err)
		}
		return buf.Bytes(), "image/png", nil

	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("jpeg encoding: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil

	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ValidFormat reports whether Encode accepts the format name
func ValidFormat(format string) bool {
	switch format {
	case "png", "jpeg", "jpg":
		return true
	}
	return false
}
