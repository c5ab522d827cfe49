package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: 200, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeUndecodableReturnsOriginal(t *testing.T) {
	n := NewNormalizer(800, 1200, nil)

	data := []byte("definitely not an image")
	got := n.Normalize(data)
	if !bytes.Equal(got, data) {
		t.Fatalf("undecodable input must pass through unchanged")
	}
}

func TestNormalizeUpscalesSmallScans(t *testing.T) {
	n := NewNormalizer(100, 200, nil)

	out := n.Normalize(encodePNG(t, 40, 40))
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := img.Bounds().Dx(); got != 200 {
		t.Fatalf("width = %d, want 200", got)
	}
}

func TestNormalizeKeepsLargeScanSize(t *testing.T) {
	n := NewNormalizer(100, 200, nil)

	out := n.Normalize(encodePNG(t, 150, 60))
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := img.Bounds().Dx(); got != 150 {
		t.Fatalf("width = %d, want 150", got)
	}
}

func TestNormalizeProducesGrayscale(t *testing.T) {
	n := NewNormalizer(10, 20, nil)

	out := n.Normalize(encodePNG(t, 50, 50))
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, g, b, _ := img.At(25, 25).RGBA()
	if r != g || g != b {
		t.Fatalf("pixel not gray: r=%d g=%d b=%d", r, g, b)
	}
}
