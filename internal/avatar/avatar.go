// Package avatar validates uploaded profile pictures and normalizes them to a
// fixed-size PNG.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"regexp"

	"golang.org/x/image/draw"
)

const (
	// MaxBytes is the largest accepted upload.
	MaxBytes = 1_000_000
	// Size is the edge length of the normalized square image.
	Size = 250
	// ContentType is the type normalized avatars are served with.
	ContentType = "image/png"
)

var extPattern = regexp.MustCompile(`\.(png|jpg|jpeg)$`)

var (
	ErrTooLarge    = errors.New("file too large")
	ErrNotAnImage  = errors.New("please upload an image")
	ErrUndecodable = errors.New("unable to read image")
)

// Check validates the upload's filename and size before decoding.
func Check(filename string, size int64) error {
	if size > MaxBytes {
		return ErrTooLarge
	}
	if !extPattern.MatchString(filename) {
		return ErrNotAnImage
	}
	return nil
}

// Normalize decodes a PNG or JPEG, scales it to Size×Size and re-encodes it as PNG.
func Normalize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
