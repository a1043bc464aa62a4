package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// stderrLogCap bounds how much child stderr ends up in a single log line.
const stderrLogCap = 8 << 10

// Runner starts an external tool and waits for it. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs tools through os/exec. Env entries are added on top of the
// parent environment, so OLLAMA_HOST can be pinned per engine.
type ExecRunner struct {
	Env []string
}

func NewExecRunner(env ...string) ExecRunner {
	return ExecRunner{Env: env}
}

func (r ExecRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Debug("exec.start", "cmd", name, "args", args)

	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	switch {
	case err == nil:
		logger.Debug("exec.ok",
			"cmd", name,
			"stdout_bytes", stdout.Len(),
			"elapsed_ms", elapsed,
		)
	case ctx.Err() != nil:
		logger.Warn("exec.cancelled", "cmd", name, "elapsed_ms", elapsed)
	default:
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		logger.Error("exec.failed",
			"cmd", name,
			"exit_code", exitCode,
			"error", err,
			"stderr", truncate(stderr.String(), stderrLogCap),
			"elapsed_ms", elapsed,
		)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
