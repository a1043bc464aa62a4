package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/document"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/workspace"
)

// EngineChecker reports whether the OCR engine binary can be started.
type EngineChecker interface {
	Available() error
}

// ModelProvisioner makes models ready on the inference host.
type ModelProvisioner interface {
	EnsureReady(ctx context.Context, models ...string) error
}

type PageDecomposer interface {
	Decompose(ctx context.Context, inputPath string, ws *workspace.Workspace) ([]entity.PageUnit, error)
}

type PageProcessor interface {
	ProcessPages(ctx context.Context, ws *workspace.Workspace, pages []entity.PageUnit, seller entity.SellerMetadata) (entity.RunResult, error)
}

// RunRecorder appends a finished run to the ledger.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *entity.Run, rr entity.RunResult) error
}

type Config struct {
	ScratchDir string   // parent of the per-run workspace; "" = OS temp dir
	Models     []string // models that must be present before any page runs
}

type RunRequest struct {
	InputPath string
	Seller    entity.SellerMetadata
}

// Processor is the run driver: setup check, scratch workspace,
// decomposition and page orchestration.
type Processor struct {
	logger     *slog.Logger
	cfg        Config
	engine     EngineChecker
	models     ModelProvisioner
	decomposer PageDecomposer
	pipeline   PageProcessor
	recorder   RunRecorder
}

func NewProcessor(
	logger *slog.Logger,
	cfg Config,
	engine EngineChecker,
	models ModelProvisioner,
	decomposer PageDecomposer,
	pipeline PageProcessor,
	recorder RunRecorder,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		cfg:        cfg,
		engine:     engine,
		models:     models,
		decomposer: decomposer,
		pipeline:   pipeline,
		recorder:   recorder,
	}
}

// Run processes one input document end to end. Setup and decomposition
// failures abort the run; page failures are part of the returned result.
// The scratch workspace is removed on every path.
func (p *Processor) Run(ctx context.Context, req RunRequest) (*entity.Run, entity.RunResult, error) {
	run := &entity.Run{
		ID:        uuid.New(),
		InputPath: req.InputPath,
		Seller:    req.Seller,
		StartedAt: time.Now().UTC(),
	}
	ctx = common.WithRunID(ctx, run.ID.String())
	logger := common.LoggerFrom(ctx, p.logger)
	logger.Info("run.start", "input", req.InputPath)

	format, err := document.Format(req.InputPath)
	if err != nil {
		logger.Error("run.unsupported_input", "error", err)
		return run, nil, err
	}
	run.Format = format

	if err := p.checkSetup(ctx); err != nil {
		logger.Error("run.setup_failed", "error", err)
		return run, nil, err
	}

	ws, err := workspace.New(p.cfg.ScratchDir, run.ID, logger)
	if err != nil {
		return run, nil, common.IOError("create scratch workspace", err)
	}
	defer func() {
		// cleanup failures are logged inside Close and never change the outcome
		_ = ws.Close()
	}()

	pages, err := p.decomposer.Decompose(ctx, req.InputPath, ws)
	if err != nil {
		logger.Error("run.decompose_failed", "error", err)
		return run, nil, err
	}
	logger.Info("run.decomposed", "pages", len(pages), "format", format)

	rr, err := p.pipeline.ProcessPages(ctx, ws, pages, req.Seller)
	if err != nil {
		return run, nil, err
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	ok, failed := rr.Counts()
	logger.Info("run.done",
		"status", run.Status(rr),
		"pages", len(rr),
		"succeeded", ok,
		"failed", failed,
		"elapsed_ms", finished.Sub(run.StartedAt).Milliseconds(),
	)

	if p.recorder != nil {
		if err := p.recorder.RecordRun(ctx, run, rr); err != nil {
			logger.Warn("run.ledger_failed", "error", err)
		}
	}
	return run, rr, nil
}

func (p *Processor) checkSetup(ctx context.Context) error {
	if p.engine != nil {
		if err := p.engine.Available(); err != nil {
			return common.SetupError("ocr engine unavailable", err)
		}
	}
	if p.models == nil || len(p.cfg.Models) == 0 {
		return nil
	}
	if err := p.models.EnsureReady(ctx, p.cfg.Models...); err != nil {
		if common.IsCode(err, common.CodeSetup) {
			return err
		}
		return common.SetupError("models not ready", err)
	}
	return nil
}
