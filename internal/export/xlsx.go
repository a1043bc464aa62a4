package export

import (
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const sheet = "Pages"

var headers = []string{
	"Page",
	"Status",
	"Invoice Number",
	"Issue Date",
	"Seller",
	"Buyer",
	"Currency",
	"Payable",
	"Lines",
	"Error",
}

// Service produces XLSX summaries of a run.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportRunXLSX returns a workbook (as bytes) with one row per page. Outputs
// that do not parse as an invoice still get a row with the invoice columns
// left empty.
func (s *Service) ExportRunXLSX(run *entity.Run, rr entity.RunResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	unparsed := 0
	for i, r := range rr {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.Page())
		if !r.Succeeded() {
			write(2, string(constants.PageStatusFailed))
			write(10, truncate(r.Failure().Error(), 500))
			continue
		}
		write(2, string(constants.PageStatusOK))

		inv, err := entity.ParseInvoice(llm.StripCodeFences(r.Output()))
		if err != nil {
			unparsed++
			write(10, "output is not invoice JSON")
			continue
		}
		write(3, inv.Invoice.Number)
		write(4, inv.Invoice.IssueDate)
		write(5, inv.Seller.Name)
		write(6, inv.Buyer.Name)
		write(7, inv.Invoice.CurrencyCode)
		write(8, inv.Totals.Payable.String())
		write(9, len(inv.Lines))
	}

	_ = f.SetColWidth(sheet, "A", "B", 8)
	_ = f.SetColWidth(sheet, "C", "D", 16)
	_ = f.SetColWidth(sheet, "E", "F", 32)
	_ = f.SetColWidth(sheet, "G", "I", 12)
	_ = f.SetColWidth(sheet, "J", "J", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	attrs := []any{
		"rows", len(rr),
		"unparsed", unparsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if run != nil {
		attrs = append(attrs, "run_id", run.ID.String())
	}
	s.logger.Info("export.xlsx.ok", attrs...)
	return buf.Bytes(), nil
}

// WriteXLSXFile writes the workbook for rr to path.
func (s *Service) WriteXLSXFile(path string, run *entity.Run, rr entity.RunResult) error {
	b, err := s.ExportRunXLSX(run, rr)
	if err != nil {
		return common.IOError("build xlsx", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return common.IOError("write xlsx", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	// cut on a rune boundary so the cell stays valid UTF-8
	cut := n - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
