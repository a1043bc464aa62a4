package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// StripCodeFences removes a surrounding ``` / ```json fence that models like
// to add despite being told not to.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = strings.TrimPrefix(t, "```")
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// CanonicalizeUnits rewrites recognizable unit spellings on invoice lines to
// the allowed codes. It returns doc unchanged when nothing was rewritten,
// plus the list of "from->to" rewrites.
func CanonicalizeUnits(doc []byte) ([]byte, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	lines, ok := m["lines"].([]any)
	if !ok {
		return doc, nil, nil
	}

	var changed []string
	for _, l := range lines {
		line, ok := l.(map[string]any)
		if !ok {
			continue
		}
		raw, ok := line["unit_code"].(string)
		if !ok {
			continue
		}
		u, ok := constants.CanonicalizeUnit(raw)
		if !ok || string(u) == raw {
			continue
		}
		line["unit_code"] = string(u)
		changed = append(changed, raw+"->"+string(u))
	}
	if len(changed) == 0 {
		return doc, nil, nil
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, changed, nil
}
