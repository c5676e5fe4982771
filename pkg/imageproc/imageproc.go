// Package imageproc resizes uploaded pictures and keeps them on disk.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Target dimensions of stored images.
const (
	CoverWidth   = 1084
	CoverHeight  = 610
	AvatarWidth  = 500
	AvatarHeight = 500
)

// ErrUnsupported wraps decode failures: the upload is not an image we can read.
var ErrUnsupported = errors.New("unsupported image")

// Fill decodes r and crops/scales it to exactly w×h, centred.
func Fill(r io.Reader, w, h int) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos), nil
}

// EncodePNG fits r to w×h and returns the PNG bytes.
func EncodePNG(r io.Reader, w, h int) ([]byte, error) {
	img, err := Fill(r, w, h)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG fits r to w×h and writes it to base/rel, creating directories as
// needed. The file is written to a temp name first and renamed into place.
func SavePNG(base, rel string, r io.Reader, w, h int) error {
	data, err := EncodePNG(r, w, h)
	if err != nil {
		return err
	}
	dst := filepath.Join(base, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Remove deletes base/rel; a missing file is not an error.
func Remove(base, rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(base, rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
