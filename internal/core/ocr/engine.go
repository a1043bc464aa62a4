package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// OpRun names the OCR call in page failures ("Ollama run failed: 1").
const OpRun = "Ollama run"

type Config struct {
	Binary string // binary name or absolute path; if empty -> "ollama"
	Host   string // exported to the child as OLLAMA_HOST
	Model  string
	Prompt string
}

// Engine is the text extraction adapter: one page image in, markdown out.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = "ollama"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = common.DefaultOCRPrompt
	}
	var env []string
	if cfg.Host != "" {
		env = append(env, "OLLAMA_HOST="+cfg.Host)
	}
	return NewEngineWithRunner(cfg, NewExecRunner(env...), logger)
}

// NewEngineWithRunner is NewEngine with an injected Runner.
func NewEngineWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "ollama"
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// Available reports whether the OCR binary can be started at all.
func (e *Engine) Available() error {
	if _, err := exec.LookPath(e.cfg.Binary); err != nil {
		return fmt.Errorf("ocr engine %q not found: %w", e.cfg.Binary, err)
	}
	return nil
}

// ExtractText runs the OCR model over one image and blocks until it exits.
// The ollama CLI picks up image paths embedded in the prompt.
func (e *Engine) ExtractText(ctx context.Context, imagePath string) (string, error) {
	logger := common.LoggerFrom(ctx, e.logger)
	start := time.Now()

	// ollama run <model> "<prompt> <image>"
	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, logger, "run", e.cfg.Model, e.cfg.Prompt+" "+imagePath)
	if err != nil {
		engineErr := &common.EngineError{Op: OpRun, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			engineErr.Status = exitErr.ExitCode()
		}
		logger.Warn("ocr.run.failed",
			"model", e.cfg.Model,
			"status", engineErr.Status,
			"stderr", truncate(string(errb), 1<<10),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", engineErr
	}

	text := Normalize(string(out))
	logger.Info("ocr.run.ok",
		"model", e.cfg.Model,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
