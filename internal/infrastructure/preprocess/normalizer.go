package preprocess

import (
	"bytes"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
)

const (
	defaultMinWidth    = 800
	defaultTargetWidth = 1200
	contrastBoost      = 20
)

// Normalizer prepares scanned documents for OCR: grayscale, contrast
// normalization, and upscaling of small sources. It never fails:
// anything it cannot decode or re-encode comes back unchanged, so the
// engine still gets a shot at the original bytes.
type Normalizer struct {
	minWidth    int
	targetWidth int
	logger      *slog.Logger
}

func NewNormalizer(minWidth, targetWidth int, logger *slog.Logger) *Normalizer {
	if minWidth <= 0 {
		minWidth = defaultMinWidth
	}
	if targetWidth <= 0 {
		targetWidth = defaultTargetWidth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{minWidth: minWidth, targetWidth: targetWidth, logger: logger}
}

func (n *Normalizer) Normalize(data []byte) []byte {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		n.logger.Warn("preprocess_decode_failed", "error", err)
		return data
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, contrastBoost)
	img = n.upscale(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		n.logger.Warn("preprocess_encode_failed", "error", err)
		return data
	}
	return buf.Bytes()
}

// upscale widens small scans proportionally; tesseract reads ~1200px
// sources far better than thumbnail-sized ones.
func (n *Normalizer) upscale(img *image.NRGBA) *image.NRGBA {
	if img.Bounds().Dx() >= n.minWidth {
		return img
	}
	return imaging.Resize(img, n.targetWidth, 0, imaging.Lanczos)
}
