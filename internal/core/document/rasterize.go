package document

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gen2brain/go-fitz"

	"github.com/joseph-ayodele/invoice-extractor/internal/core/ocr"
)

// Rasterizer renders every page of a PDF into outDir and returns the image
// paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string, maxPages int) ([]string, error)
}

// FitzRasterizer renders pages in-process with MuPDF.
type FitzRasterizer struct {
	DPI    int
	logger *slog.Logger
}

func NewFitzRasterizer(dpi int, logger *slog.Logger) *FitzRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if dpi <= 0 {
		dpi = 200
	}
	return &FitzRasterizer{DPI: dpi, logger: logger}
}

func (r *FitzRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string, maxPages int) ([]string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			r.logger.Warn("pdf.close_failed", "path", pdfPath, "error", err)
		}
	}()

	pageCount := doc.NumPage()
	if maxPages > 0 && pageCount > maxPages {
		r.logger.Warn("pdf.pages_truncated", "pages", pageCount, "max_pages", maxPages)
		pageCount = maxPages
	}

	paths := make([]string, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(n, float64(r.DPI))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", n+1, err)
		}
		out := filepath.Join(outDir, fmt.Sprintf("page-%03d.png", n+1))
		if err := writePNG(out, img); err != nil {
			return nil, fmt.Errorf("write page %d: %w", n+1, err)
		}
		paths = append(paths, out)
	}
	r.logger.Debug("pdf.rasterized", "path", pdfPath, "pages", len(paths), "dpi", r.DPI, "backend", "fitz")
	return paths, nil
}

// PopplerRasterizer shells out to pdftoppm.
type PopplerRasterizer struct {
	Binary string
	DPI    int
	runner ocr.Runner
	logger *slog.Logger
}

func NewPopplerRasterizer(binary string, dpi int, runner ocr.Runner, logger *slog.Logger) *PopplerRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	if runner == nil {
		runner = ocr.NewExecRunner()
	}
	return &PopplerRasterizer{Binary: binary, DPI: dpi, runner: runner, logger: logger}
}

func (r *PopplerRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string, maxPages int) ([]string, error) {
	prefix := filepath.Join(outDir, "page")
	args := []string{"-r", fmt.Sprintf("%d", r.DPI), "-png"}
	if maxPages > 0 {
		args = append(args, "-l", fmt.Sprintf("%d", maxPages))
	}
	args = append(args, pdfPath, prefix)

	// pdftoppm -r 200 -png [-l N] <in.pdf> <ws/pages/page>
	_, errb, err := r.runner.Run(ctx, r.Binary, r.logger, args...)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// pdftoppm zero-pads page numbers to the page count width, so a lexical
	// sort is page order (page-01.png ... page-12.png)
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	r.logger.Debug("pdf.rasterized", "path", pdfPath, "pages", len(matches), "dpi", r.DPI, "backend", "pdftoppm")
	return matches, nil
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		return err
	}
	return w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
