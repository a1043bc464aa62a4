package ollama

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Config for the Ollama generate client.
type Config struct {
	Host        string        // default http://localhost:11434
	Model       string        // extraction model, e.g. "qwen2.5:7b"
	NumCtx      int           // context window passed as options.num_ctx
	Timeout     time.Duration // http client timeout per generate request
	PullModels  bool          // pull missing models during setup
	PullTimeout time.Duration // bound on one model pull; 0 = ctx only
}

type Client struct {
	cfg    Config
	http   *http.Client
	pull   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg.Host = common.NormalizeHost(cfg.Host)
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.NumCtx <= 0 {
		cfg.NumCtx = 16384
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		pull:   &http.Client{Timeout: cfg.PullTimeout},
		logger: logger,
	}
}
