package imaging

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// JPEGQuality is used when a downscaled JPEG is re-encoded.
const JPEGQuality = 92

// Normalizer keeps page images under a pixel-area budget before inference.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Extension returns the file extension Normalize will write for src:
// JPEG sources stay JPEG, everything else becomes PNG.
func Extension(src string) string {
	if constants.IsJPEGExt(filepath.Ext(src)) {
		return ".jpg"
	}
	return ".png"
}

// Normalize writes src to dst, scaled down uniformly when its area exceeds
// maxArea. An image already within budget is copied byte for byte; dst must
// then carry the same format as src (see Extension). Returns dst.
func (n *Normalizer) Normalize(src, dst string, maxArea int) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", &common.TransformError{Path: src, Err: err}
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return "", &common.TransformError{Path: src, Err: fmt.Errorf("decode header: %w", err)}
	}

	area := cfg.Width * cfg.Height
	if maxArea <= 0 || area <= maxArea {
		// within budget, but non-PNG/JPEG sources still need re-encoding so the
		// OCR engine gets a format it reads
		if format == "png" || format == "jpeg" {
			if err := copyFile(f, dst); err != nil {
				return "", &common.TransformError{Path: src, Err: err}
			}
			n.logger.Debug("image.normalize.copied", "src", src, "width", cfg.Width, "height", cfg.Height)
			return dst, nil
		}
		img, err := decode(f)
		if err != nil {
			return "", &common.TransformError{Path: src, Err: err}
		}
		if err := encode(dst, img, format); err != nil {
			return "", &common.TransformError{Path: src, Err: err}
		}
		return dst, nil
	}

	w, h, err := ScaledSize(cfg.Width, cfg.Height, maxArea)
	if err != nil {
		return "", &common.TransformError{Path: src, Err: err}
	}
	img, err := decode(f)
	if err != nil {
		return "", &common.TransformError{Path: src, Err: err}
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)

	if err := encode(dst, out, format); err != nil {
		return "", &common.TransformError{Path: src, Err: err}
	}
	n.logger.Debug("image.normalize.resized",
		"src", src,
		"from", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"to", fmt.Sprintf("%dx%d", w, h),
		"max_area", maxArea,
	)
	return dst, nil
}

// ErrDegenerateScale means an image is so elongated that fitting it into the
// area budget would round one side down to zero pixels.
var ErrDegenerateScale = errors.New("image cannot be scaled into area budget")

// ScaledSize multiplies both sides by sqrt(maxArea/area) and rounds down, so
// the result never exceeds maxArea.
func ScaledSize(width, height, maxArea int) (int, int, error) {
	area := width * height
	if area <= maxArea {
		return width, height, nil
	}
	scale := math.Sqrt(float64(maxArea) / float64(area))
	w := int(math.Floor(float64(width) * scale))
	h := int(math.Floor(float64(height) * scale))
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("%dx%d into %d pixels: %w", width, height, maxArea, ErrDegenerateScale)
	}
	return w, h, nil
}

func decode(f *os.File) (image.Image, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func encode(dst string, img image.Image, format string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(out)
	if format == "jpeg" {
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	} else {
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	return w.Flush()
}

func copyFile(src *os.File, dst string) (err error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, src)
	return err
}
