package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace is a run-private scratch directory for intermediate page images.
// The run driver creates it before decomposition and must Close it on every
// exit path; stages only read and write paths inside it.
type Workspace struct {
	dir    string
	logger *slog.Logger

	once     sync.Once
	closeErr error
}

// New creates a uniquely named directory under parent (os.TempDir() when empty).
func New(parent string, runID uuid.UUID, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("create scratch parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "invoice-"+runID.String()+"-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch workspace: %w", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("restrict scratch workspace: %w", err)
	}
	logger.Debug("workspace.created", "dir", dir)
	return &Workspace{dir: dir, logger: logger}, nil
}

// Dir is the workspace root.
func (w *Workspace) Dir() string { return w.dir }

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// Subdir returns (and creates) a directory inside the workspace.
func (w *Workspace) Subdir(name string) (string, error) {
	p := w.Path(name)
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return p, nil
}

// Close removes the workspace and everything written to it. Safe to call
// more than once; failures are logged and returned but are never fatal.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.dir); err != nil {
			w.logger.Warn("workspace.cleanup_failed", "dir", w.dir, "error", err)
			w.closeErr = err
			return
		}
		w.logger.Debug("workspace.removed", "dir", w.dir)
	})
	return w.closeErr
}
