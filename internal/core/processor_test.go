package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/workspace"
)

type fakeEngine struct{ err error }

func (f fakeEngine) Available() error { return f.err }

type fakeModels struct {
	err    error
	models []string
}

func (f *fakeModels) EnsureReady(_ context.Context, models ...string) error {
	f.models = models
	return f.err
}

// fakeDecomposer writes an artifact into the workspace so cleanup is observable.
type fakeDecomposer struct {
	pages  []entity.PageUnit
	err    error
	wsDir  string
	called bool
}

func (f *fakeDecomposer) Decompose(_ context.Context, _ string, ws *workspace.Workspace) ([]entity.PageUnit, error) {
	f.called = true
	f.wsDir = ws.Dir()
	if err := os.WriteFile(ws.Path("artifact.png"), []byte("x"), 0o600); err != nil {
		return nil, err
	}
	return f.pages, f.err
}

type fakePipeline struct {
	called bool
	seller entity.SellerMetadata
}

func (f *fakePipeline) ProcessPages(_ context.Context, _ *workspace.Workspace, pages []entity.PageUnit, seller entity.SellerMetadata) (entity.RunResult, error) {
	f.called = true
	f.seller = seller
	if len(pages) == 0 {
		return nil, common.DecompositionError("no pages to process", common.ErrNoPages)
	}
	rr := make(entity.RunResult, 0, len(pages))
	for _, p := range pages {
		rr = append(rr, entity.NewPageSuccess(p.Index, "md", `{}`))
	}
	return rr, nil
}

type fakeRecorder struct {
	err  error
	runs int
}

func (f *fakeRecorder) RecordRun(context.Context, *entity.Run, entity.RunResult) error {
	f.runs++
	return f.err
}

func inputFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("data"), 0o600))
	return p
}

func assertScratchEmpty(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch workspace left behind")
}

func TestRunSingleImage(t *testing.T) {
	scratch := t.TempDir()
	input := inputFile(t, "invoice.png")
	dec := &fakeDecomposer{pages: []entity.PageUnit{{Index: 1, ImagePath: input}}}
	pipe := &fakePipeline{}
	models := &fakeModels{}
	rec := &fakeRecorder{}
	seller := entity.SellerMetadata{Address: "A", TaxNumber: "T"}

	p := NewProcessor(nil, Config{ScratchDir: scratch, Models: []string{"ocr", "extract"}}, fakeEngine{}, models, dec, pipe, rec)
	run, rr, err := p.Run(context.Background(), RunRequest{InputPath: input, Seller: seller})
	require.NoError(t, err)
	require.Len(t, rr, 1)
	assert.Equal(t, constants.IMAGE, run.Format)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, constants.RunStatusCompleted, run.Status(rr))
	assert.Equal(t, []string{"ocr", "extract"}, models.models)
	assert.Equal(t, seller, pipe.seller)
	assert.Equal(t, 1, rec.runs)

	assert.NoDirExists(t, dec.wsDir)
	assertScratchEmpty(t, scratch)
}

func TestRunSetupFailureAbortsBeforeWorkspace(t *testing.T) {
	tests := []struct {
		name   string
		engine fakeEngine
		models *fakeModels
	}{
		{name: "ocr binary missing", engine: fakeEngine{err: errors.New("not found")}, models: &fakeModels{}},
		{name: "model not ready", models: &fakeModels{err: errors.New("pull refused")}},
		{name: "model setup error kept", models: &fakeModels{err: common.SetupError("model missing", nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scratch := t.TempDir()
			dec := &fakeDecomposer{}
			pipe := &fakePipeline{}
			p := NewProcessor(nil, Config{ScratchDir: scratch, Models: []string{"m"}}, tt.engine, tt.models, dec, pipe, nil)

			_, rr, err := p.Run(context.Background(), RunRequest{InputPath: inputFile(t, "a.pdf")})
			require.Error(t, err)
			assert.Nil(t, rr)
			assert.True(t, common.IsCode(err, common.CodeSetup))
			assert.False(t, dec.called)
			assert.False(t, pipe.called)
			assertScratchEmpty(t, scratch)
		})
	}
}

func TestRunUnsupportedInput(t *testing.T) {
	dec := &fakeDecomposer{}
	p := NewProcessor(nil, Config{ScratchDir: t.TempDir()}, fakeEngine{}, nil, dec, &fakePipeline{}, nil)

	_, _, err := p.Run(context.Background(), RunRequest{InputPath: inputFile(t, "notes.txt")})
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeDecomposition))
	assert.False(t, dec.called)
}

func TestRunDecompositionFailureCleansUp(t *testing.T) {
	scratch := t.TempDir()
	dec := &fakeDecomposer{err: common.DecompositionError("rasterize pdf", errors.New("corrupt"))}
	pipe := &fakePipeline{}
	p := NewProcessor(nil, Config{ScratchDir: scratch}, fakeEngine{}, nil, dec, pipe, nil)

	_, rr, err := p.Run(context.Background(), RunRequest{InputPath: inputFile(t, "broken.pdf")})
	require.Error(t, err)
	assert.Nil(t, rr)
	assert.True(t, common.IsCode(err, common.CodeDecomposition))
	assert.False(t, pipe.called)
	assert.NoDirExists(t, dec.wsDir)
	assertScratchEmpty(t, scratch)
}

func TestRunZeroPagesCleansUp(t *testing.T) {
	scratch := t.TempDir()
	dec := &fakeDecomposer{pages: nil}
	p := NewProcessor(nil, Config{ScratchDir: scratch}, fakeEngine{}, nil, dec, &fakePipeline{}, nil)

	_, _, err := p.Run(context.Background(), RunRequest{InputPath: inputFile(t, "empty.pdf")})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoPages)
	assertScratchEmpty(t, scratch)
}

func TestRunLedgerFailureIsNotFatal(t *testing.T) {
	input := inputFile(t, "invoice.jpg")
	dec := &fakeDecomposer{pages: []entity.PageUnit{{Index: 1, ImagePath: input}}}
	rec := &fakeRecorder{err: errors.New("disk full")}
	p := NewProcessor(nil, Config{ScratchDir: t.TempDir()}, fakeEngine{}, nil, dec, &fakePipeline{}, rec)

	_, rr, err := p.Run(context.Background(), RunRequest{InputPath: input})
	require.NoError(t, err)
	assert.Len(t, rr, 1)
	assert.Equal(t, 1, rec.runs)
}
