package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/workspace"
)

type Config struct {
	MaxPages      int    // 0 = no limit
	HeicConverter string // "magick" | "heif-convert" | "sips"
}

// Decomposer turns an input document into ordered page units.
type Decomposer struct {
	cfg        Config
	rasterizer Rasterizer
	runner     ocr.Runner
	logger     *slog.Logger
}

func NewDecomposer(cfg Config, rasterizer Rasterizer, runner ocr.Runner, logger *slog.Logger) *Decomposer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.NewExecRunner()
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	return &Decomposer{cfg: cfg, rasterizer: rasterizer, runner: runner, logger: logger}
}

// Format resolves the input type of path from its extension.
func Format(path string) (string, error) {
	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		return "", common.DecompositionError(
			fmt.Sprintf("unsupported input type %q", filepath.Ext(path)), common.ErrUnsupported)
	}
	return format, nil
}

// Decompose picks a strategy based on file extension. Every failure here is
// a decomposition error and aborts the run before any page is processed.
func (d *Decomposer) Decompose(ctx context.Context, inputPath string, ws *workspace.Workspace) ([]entity.PageUnit, error) {
	format, err := Format(inputPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, common.DecompositionError("cannot read input", err)
	}
	if info.IsDir() {
		return nil, common.DecompositionError("input is a directory: "+inputPath, common.ErrUnsupported)
	}

	d.logger.Debug("decompose.start", "path", inputPath, "format", format)
	switch format {
	case constants.PDF:
		return d.decomposePDF(ctx, inputPath, ws)
	default:
		return d.decomposeImage(ctx, inputPath, ws)
	}
}

func (d *Decomposer) decomposePDF(ctx context.Context, path string, ws *workspace.Workspace) ([]entity.PageUnit, error) {
	if d.rasterizer == nil {
		return nil, common.DecompositionError("no pdf rasterizer configured", common.ErrUnsupported)
	}
	outDir, err := ws.Subdir("pages")
	if err != nil {
		return nil, common.DecompositionError("prepare page directory", err)
	}

	paths, err := d.rasterizer.Rasterize(ctx, path, outDir, d.cfg.MaxPages)
	if err != nil {
		return nil, common.DecompositionError("rasterize pdf", err)
	}
	if len(paths) == 0 {
		return nil, common.DecompositionError("rasterize pdf", common.ErrNoPages)
	}

	pages := make([]entity.PageUnit, len(paths))
	for i, p := range paths {
		pages[i] = entity.PageUnit{Index: i + 1, ImagePath: p}
	}
	d.logger.Info("decompose.pdf.ok", "path", path, "pages", len(pages))
	return pages, nil
}

// decomposeImage returns the input itself as the single page; HEIC inputs
// are converted to PNG inside the workspace first.
func (d *Decomposer) decomposeImage(ctx context.Context, path string, ws *workspace.Workspace) ([]entity.PageUnit, error) {
	if !constants.IsHEICExt(filepath.Ext(path)) {
		return []entity.PageUnit{{Index: 1, ImagePath: path}}, nil
	}

	out := ws.Path("input.png")
	if err := convertHEICtoPNG(ctx, d.runner, d.logger, d.cfg.HeicConverter, path, out); err != nil {
		return nil, common.DecompositionError("convert heic input", err)
	}
	return []entity.PageUnit{{Index: 1, ImagePath: out}}, nil
}
