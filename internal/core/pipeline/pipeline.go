package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/imaging"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/workspace"
)

// ImageNormalizer keeps a page image within the pixel budget.
type ImageNormalizer interface {
	Normalize(src, dst string, maxArea int) (string, error)
}

// TextExtractor turns a page image into markdown.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// ProgressFunc is told when page n of total starts.
type ProgressFunc func(page, total int)

type Option func(*Pipeline)

func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// Pipeline drives each page through normalize -> OCR -> structured
// extraction, one page at a time.
type Pipeline struct {
	logger     *slog.Logger
	normalizer ImageNormalizer
	text       TextExtractor
	fields     llm.FieldExtractor
	maxArea    int
	progress   ProgressFunc
}

func New(logger *slog.Logger, normalizer ImageNormalizer, text TextExtractor, fields llm.FieldExtractor, maxArea int, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		logger:     logger,
		normalizer: normalizer,
		text:       text,
		fields:     fields,
		maxArea:    maxArea,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SellerHeader is the fixed two-line header prepended to every page's
// markdown.
func SellerHeader(seller entity.SellerMetadata) string {
	return fmt.Sprintf("Seller address: %s\nSeller tax number: %s\n\n", seller.Address, seller.TaxNumber)
}

// ProcessPages runs every page and returns one result per page in input
// order. A failing page becomes a failure result; the only error returned
// is the rejection of an empty page list.
func (p *Pipeline) ProcessPages(ctx context.Context, ws *workspace.Workspace, pages []entity.PageUnit, seller entity.SellerMetadata) (entity.RunResult, error) {
	if len(pages) == 0 {
		return nil, common.DecompositionError("no pages to process", common.ErrNoPages)
	}

	start := time.Now()
	results := make(entity.RunResult, 0, len(pages))
	for i, page := range pages {
		if p.progress != nil {
			p.progress(i+1, len(pages))
		}
		results = append(results, p.processPage(ctx, ws, page, seller, len(pages)))
	}

	ok, failed := results.Counts()
	p.logger.Info("pipeline.done",
		"pages", len(results),
		"succeeded", ok,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results, nil
}

func (p *Pipeline) processPage(ctx context.Context, ws *workspace.Workspace, page entity.PageUnit, seller entity.SellerMetadata, total int) entity.PageResult {
	ctx = common.WithPage(ctx, page.Index)
	logger := common.LoggerFrom(ctx, p.logger)
	start := time.Now()
	logger.Info("pipeline.page.start", "of", total, "image", page.ImagePath)

	fail := func(stage string, err error) entity.PageResult {
		logger.Warn("pipeline.page.failed",
			"stage", stage,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.NewPageFailure(page.Index, err)
	}

	dir, err := ws.Subdir("normalized")
	if err != nil {
		return fail("normalize", &common.TransformError{Path: page.ImagePath, Err: err})
	}
	dst := filepath.Join(dir, fmt.Sprintf("page-%03d%s", page.Index, imaging.Extension(page.ImagePath)))
	normalized, err := p.normalizer.Normalize(page.ImagePath, dst, p.maxArea)
	if err != nil {
		return fail("normalize", err)
	}

	text, err := p.text.ExtractText(ctx, normalized)
	if err != nil {
		return fail("ocr", err)
	}
	markdown := SellerHeader(seller) + text

	out, err := p.fields.ExtractStructured(ctx, llm.ExtractRequest{
		Page:     page.Index,
		Markdown: markdown,
		Seller:   seller,
	})
	if err != nil {
		return fail("extract", err)
	}

	logger.Info("pipeline.page.ok",
		"markdown_len", len(markdown),
		"output_len", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.NewPageSuccess(page.Index, markdown, out)
}
