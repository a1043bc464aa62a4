package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
)

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type pullResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// ListModels returns the model names installed on the host.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	raw, status, err := llm.GetJSON(ctx, c.http, c.cfg.Host+"/api/tags", c.logger)
	if err != nil {
		return nil, &common.EngineError{Op: "Ollama tags", Status: status, Err: err}
	}
	var tags tagsResponse
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		n := m.Name
		if n == "" {
			n = m.Model
		}
		names = append(names, n)
	}
	return names, nil
}

// EnsureModel makes sure model is installed, pulling it when allowed.
func (c *Client) EnsureModel(ctx context.Context, model string) error {
	start := time.Now()
	names, err := c.ListModels(ctx)
	if err != nil {
		return common.SetupError("inference host unreachable at "+c.cfg.Host, err)
	}
	if hasModel(names, model) {
		c.logger.Debug("llm.setup.model_present", "model", model)
		return nil
	}
	if !c.cfg.PullModels {
		return common.SetupError(fmt.Sprintf("model %q is not installed and pulling is disabled", model), nil)
	}

	c.logger.Info("llm.setup.pull.start", "model", model)
	raw, status, err := llm.SendJSON(ctx, c.pull, c.cfg.Host+"/api/pull", pullRequest{Name: model, Stream: false}, nil, c.logger)
	if err != nil {
		return common.SetupError(fmt.Sprintf("pull model %q", model), &common.EngineError{Op: "Ollama pull", Status: status, Err: err})
	}
	var pr pullResponse
	if err := json.Unmarshal(raw, &pr); err == nil && pr.Error != "" {
		return common.SetupError(fmt.Sprintf("pull model %q: %s", model, pr.Error), nil)
	}
	c.logger.Info("llm.setup.pull.ok", "model", model, "status", pr.Status, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// EnsureReady makes every listed model available, stopping at the first
// failure.
func (c *Client) EnsureReady(ctx context.Context, models ...string) error {
	for _, m := range models {
		if err := c.EnsureModel(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// hasModel matches "name" against installed "name:tag" entries; a bare name
// means the latest tag.
func hasModel(installed []string, model string) bool {
	want := withTag(model)
	for _, n := range installed {
		if withTag(n) == want {
			return true
		}
	}
	return false
}

func withTag(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, ":"); i > strings.LastIndex(name, "/") {
		return name
	}
	return name + ":latest"
}
