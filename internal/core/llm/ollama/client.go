package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
)

const OpGenerate = "Ollama generate"

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumCtx int `json:"num_ctx"`
}

type generateResponse struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// ExtractStructured implements llm.FieldExtractor over POST /api/generate.
// The returned string is the envelope's response field, untouched.
func (c *Client) ExtractStructured(ctx context.Context, req llm.ExtractRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	logger := common.LoggerFrom(ctx, c.logger)

	prompt := llm.BuildInvoicePrompt(req)
	logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"num_ctx", c.cfg.NumCtx,
		"markdown_len", len(req.Markdown),
		"prompt_len", len(prompt),
	)

	body := generateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{NumCtx: c.cfg.NumCtx},
	}

	raw, status, err := llm.SendJSON(ctx, c.http, c.cfg.Host+"/api/generate", body, nil, logger)
	if err != nil {
		logger.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &common.EngineError{Op: OpGenerate, Status: status, Err: err}
	}

	var env generateResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &common.EngineError{Op: OpGenerate, Err: fmt.Errorf("malformed response envelope: %w", err)}
	}
	if env.Response == nil {
		logger.Error("llm.extract.no_response",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &common.EngineError{Op: OpGenerate, Err: errors.New("malformed response envelope: missing response")}
	}

	logger.Info("llm.extract.ok",
		"req_id", rid,
		"response_len", len(*env.Response),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return *env.Response, nil
}
