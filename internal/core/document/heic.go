package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/invoice-extractor/internal/core/ocr"
)

// convertHEICtoPNG converts a HEIC/HEIF file to out (a PNG inside the run
// workspace) using the chosen converter.
// converter: "heif-convert" | "magick" | "sips"
func convertHEICtoPNG(ctx context.Context, r ocr.Runner, logger *slog.Logger, converter, in, out string) error {
	var args []string
	switch converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}

	if _, errb, err := r.Run(ctx, converter, logger, args...); err != nil {
		return fmt.Errorf("%s convert failed: %w: %s", converter, err, truncate(string(errb), 512))
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	logger.Debug("heic converted", "src", in, "out", out, "converter", converter)
	return nil
}
