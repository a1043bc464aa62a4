package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// WriteJSON writes the run result as an indented JSON array of strings, one
// entry per page in page order.
func WriteJSON(w io.Writer, rr entity.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rr.Values()); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

// WriteJSONFile writes the JSON array to path, replacing any existing file.
func WriteJSONFile(path string, rr entity.RunResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return common.IOError("create output file", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = common.IOError("close output file", cerr)
		}
	}()
	if err := WriteJSON(f, rr); err != nil {
		return common.IOError("write output file", err)
	}
	return nil
}
