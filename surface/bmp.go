// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"fmt"
	"image"
	"io"
	"os"

	"golang.org/x/image/bmp"
)

// WriteBMP encodes img to w in BMP format.
func WriteBMP(w io.Writer, img image.Image) error {
	if err := bmp.Encode(w, img); err != nil {
		return fmt.Errorf("surface: encode bmp: %w", err)
	}
	return nil
}

// SaveBMP writes img to the named file in BMP format.
func SaveBMP(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("surface: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("surface: close %s: %w", path, cerr)
		}
	}()
	return WriteBMP(f, img)
}

// ReadBMP decodes a BMP image from r.
func ReadBMP(r io.Reader) (image.Image, error) {
	img, err := bmp.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("surface: decode bmp: %w", err)
	}
	return img, nil
}
