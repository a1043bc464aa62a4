package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/core"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/document"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/imaging"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/llm/ollama"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/core/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

const (
	maxSellerAddressLen = 512
	maxSellerTaxNoLen   = 64
)

type extractOptions struct {
	input         string
	output        string
	sellerAddress string
	sellerTaxNo   string
	xlsx          string
	strict        bool
	verbose       bool
}

func newRootCmd() *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "invoice-extract --input <file>",
		Short: "Extract structured invoice data from a PDF or image",
		Long: `invoice-extract splits a PDF or image into pages, runs a local OCR model
over every page and asks a local LLM to turn each page's markdown into invoice
JSON. The result is a JSON array with one entry per page: the model output on
success or the error message on failure.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// flag errors above print usage; runtime errors below do not
			cmd.SilenceUsage = true
			return runExtract(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "path to the PDF or image to process (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON array here instead of stdout")
	cmd.Flags().StringVar(&opts.sellerAddress, "seller-address", "", "seller address injected into every page")
	cmd.Flags().StringVar(&opts.sellerTaxNo, "seller-tax-no", "", "seller tax number injected into every page")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "also write a per-page XLSX summary to this path")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail pages whose output is not schema-valid invoice JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("input")

	cmd.AddCommand(newHistoryCmd(&opts.verbose), newSetupCmd(&opts.verbose))
	return cmd
}

func runExtract(cmd *cobra.Command, opts *extractOptions) error {
	logger := newLogger(opts.verbose)
	slog.SetDefault(logger)
	ctx := cmd.Context()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	seller := entity.SellerMetadata{Address: opts.sellerAddress, TaxNumber: opts.sellerTaxNo}
	if err := common.NewValidator().
		Field("seller-address", seller.Address, common.MaxLength(maxSellerAddressLen)).
		Field("seller-tax-no", seller.TaxNumber, common.MaxLength(maxSellerTaxNoLen)).
		Err(); err != nil {
		return err
	}

	runner := ocr.NewExecRunner()
	ocrEngine := ocr.NewEngine(ocr.Config{
		Binary: cfg.Ollama.Binary,
		Host:   cfg.Ollama.Host,
		Model:  cfg.Ollama.OCRModel,
		Prompt: cfg.Ollama.OCRPrompt,
	}, logger)

	client := ollama.NewClient(ollama.Config{
		Host:        cfg.Ollama.Host,
		Model:       cfg.Ollama.ExtractModel,
		NumCtx:      cfg.Ollama.NumCtx,
		Timeout:     cfg.Ollama.Timeout,
		PullModels:  cfg.Ollama.PullModels,
		PullTimeout: cfg.Ollama.PullTimeout,
	}, logger)

	var fields llm.FieldExtractor = client
	if opts.strict {
		strict, err := llm.NewValidatingExtractor(client, logger)
		if err != nil {
			return fmt.Errorf("strict mode: %w", err)
		}
		fields = strict
		logger.Info("strict mode enabled")
	}

	decomposer := document.NewDecomposer(document.Config{
		MaxPages:      cfg.OCR.MaxPages,
		HeicConverter: cfg.OCR.HeicConverter,
	}, newRasterizer(cfg, runner, logger), runner, logger)

	stderr := cmd.ErrOrStderr()
	pipe := pipeline.New(logger, imaging.NewNormalizer(logger), ocrEngine, fields, cfg.Image.MaxArea,
		pipeline.WithProgress(func(page, total int) {
			fmt.Fprintf(stderr, "page %d of %d\n", page, total)
		}))

	var recorder core.RunRecorder
	if cfg.Ledger.DSN != "" {
		db, ledger, err := openLedger(cmd, cfg, logger)
		if err != nil {
			logger.Warn("ledger unavailable; run will not be recorded", "error", err)
		} else {
			defer db.Close(logger)
			recorder = ledger
		}
	}

	proc := core.NewProcessor(logger, core.Config{
		ScratchDir: cfg.Run.ScratchDir,
		Models:     []string{cfg.Ollama.OCRModel, cfg.Ollama.ExtractModel},
	}, ocrEngine, client, decomposer, pipe, recorder)

	run, rr, err := proc.Run(ctx, core.RunRequest{InputPath: opts.input, Seller: seller})
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := export.WriteJSONFile(opts.output, rr); err != nil {
			return err
		}
		logger.Info("results written", "path", opts.output, "pages", len(rr))
	} else if err := export.WriteJSON(cmd.OutOrStdout(), rr); err != nil {
		return common.IOError("write results", err)
	}

	if opts.xlsx != "" {
		if err := export.NewService(logger).WriteXLSXFile(opts.xlsx, run, rr); err != nil {
			return err
		}
		logger.Info("xlsx written", "path", opts.xlsx)
	}
	return nil
}

func newRasterizer(cfg *common.Config, runner ocr.Runner, logger *slog.Logger) document.Rasterizer {
	if cfg.OCR.Rasterizer == "pdftoppm" {
		return document.NewPopplerRasterizer(cfg.OCR.Pdftoppm, cfg.OCR.DPI, runner, logger)
	}
	return document.NewFitzRasterizer(cfg.OCR.DPI, logger)
}

func openLedger(cmd *cobra.Command, cfg *common.Config, logger *slog.Logger) (*repository.DB, repository.RunLedger, error) {
	db, err := repository.Open(cmd.Context(), repository.Config{DSN: cfg.Ledger.DSN, MaxConns: 4}, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.HealthCheck(cmd.Context(), 3*time.Second); err != nil {
		db.Close(logger)
		return nil, nil, err
	}
	ledger := repository.NewRunLedger(db.Driver(), logger)
	if err := ledger.Migrate(cmd.Context()); err != nil {
		db.Close(logger)
		return nil, nil, err
	}
	return db, ledger, nil
}
