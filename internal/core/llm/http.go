package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SendJSON posts body as JSON to a full URL and returns the raw response body
// and status. A non-2xx status returns the body together with an error.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		if logger != nil {
			logger.Error("llm.http.encode_error", "error", err)
		}
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}
	return do(ctx, client, http.MethodPost, url, bs, headers, logger)
}

// GetJSON issues a GET and returns the raw response body and status.
func GetJSON(ctx context.Context, client *http.Client, url string, logger *slog.Logger) ([]byte, int, error) {
	return do(ctx, client, http.MethodGet, url, nil, nil, logger)
}

func do(ctx context.Context, client *http.Client, method, url string, bs []byte, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	reqID := uuid.New().String()
	start := time.Now()

	var payload io.Reader
	if bs != nil {
		payload = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	if bs != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("llm.http.request",
		"req_id", reqID,
		"method", method,
		"url", url,
		"content_length", len(bs),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "error", err)
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	logger.Debug("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}
