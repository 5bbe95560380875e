// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface_test

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/tiler/surface"
)

func TestBMPRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 60), B: 7, A: 0xff})
		}
	}

	var buf bytes.Buffer
	if err := surface.WriteBMP(&buf, img); err != nil {
		t.Fatalf("WriteBMP: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("BM")) {
		t.Fatal("missing BMP signature")
	}

	got, err := surface.ReadBMP(&buf)
	if err != nil {
		t.Fatalf("ReadBMP: %v", err)
	}
	if got.Bounds() != img.Bounds() {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), img.Bounds())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			want := img.RGBAAt(x, y)
			if c := color.RGBAModel.Convert(got.At(x, y)).(color.RGBA); c != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, c, want)
			}
		}
	}
}

func TestSaveBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.bmp")
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := surface.SaveBMP(path, img); err != nil {
		t.Fatalf("SaveBMP: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("file is empty")
	}

	if err := surface.SaveBMP(filepath.Join(t.TempDir(), "missing", "x.bmp"), img); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestReadBMPInvalid(t *testing.T) {
	if _, err := surface.ReadBMP(bytes.NewReader([]byte("not a bitmap"))); err == nil {
		t.Error("expected decode error")
	}
}
