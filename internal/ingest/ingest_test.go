package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync-ai/cli/internal/api"
	"github.com/healthsync-ai/cli/internal/errs"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/testutil"
)

func newPipeline(t *testing.T) (*Pipeline, *testutil.Backend) {
	t.Helper()
	b := testutil.NewBackend(t)
	client := api.NewClient(api.Options{BaseURL: b.URL()})
	return New(client, zerolog.Nop()), b
}

func TestAnalyzeTextRejectsBlank(t *testing.T) {
	p, b := newPipeline(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := p.AnalyzeText(context.Background(), text)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrValidation))
		assert.Equal(t, MsgEmptyText, FailureMessage(SourceText, err))
	}
	assert.Equal(t, 0, b.Hits(api.PathUpload))
}

func TestAnalyzeTextSuccess(t *testing.T) {
	p, b := newPipeline(t)
	b.SetAnalysis(health.AnalysisResult{
		Medications: []health.Medication{
			{Name: "Lisinopril", Dosage: "10mg", Frequency: "once daily"},
			{Name: "Metformin", Dosage: "500mg", Frequency: "twice daily"},
		},
	})

	res, err := p.AnalyzeText(context.Background(), "Rx: Lisinopril, Metformin")
	require.NoError(t, err)
	assert.Equal(t, 2, res.MedicationCount())
	assert.Equal(t, health.Scalar("1"), res.DocumentID)
	assert.NotNil(t, res.Analysis.Appointments)
	assert.Equal(t, "Document analyzed successfully! Found 2 medications.", SuccessMessage(res))
}

func TestAnalyzeFile(t *testing.T) {
	p, b := newPipeline(t)

	res, err := p.AnalyzeFile(context.Background(), "labs.txt", strings.NewReader("A1C 6.1"))
	require.NoError(t, err)
	assert.Equal(t, SourceFile, res.Source)
	assert.Equal(t, "File analyzed successfully! Found 0 medications.", SuccessMessage(res))
	assert.Equal(t, []string{"A1C 6.1"}, b.Uploads())
}

func TestAnalyzeFilePath(t *testing.T) {
	p, b := newPipeline(t)
	path := filepath.Join(t.TempDir(), "discharge.txt")
	require.NoError(t, os.WriteFile(path, []byte("follow up in 2 weeks"), 0644))

	res, err := p.AnalyzeFilePath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "discharge.txt", res.Name)
	assert.Equal(t, 1, b.Hits(api.PathImportFile))

	_, err = p.AnalyzeFilePath(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestTransportFailureIsHardExtraction(t *testing.T) {
	p, b := newPipeline(t)
	b.Fail(api.PathUpload, testutil.Failure{Status: 500, Body: `{"error":"model unavailable"}`})

	res, err := p.AnalyzeText(context.Background(), "some text")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrExtraction))
	assert.True(t, errors.Is(err, errs.ErrHTTP))
	assert.False(t, IsSoft(err))
	assert.Equal(t, "Error analyzing document: model unavailable", FailureMessage(SourceText, err))
}

func TestMissingAnalysisIsSoft(t *testing.T) {
	p, b := newPipeline(t)
	b.OmitAnalysis()

	res, err := p.AnalyzeFile(context.Background(), "scan.png", strings.NewReader("img"))
	require.Error(t, err)
	assert.True(t, IsSoft(err))
	require.NotNil(t, res)
	assert.Equal(t, 0, res.MedicationCount())
	assert.Equal(t, "File analyzed successfully! Found 0 medications.", SuccessMessage(res))
}

func TestNilResult(t *testing.T) {
	var r *Result
	assert.Equal(t, 0, r.MedicationCount())
	assert.Equal(t, "Document analyzed successfully! Found 0 medications.", SuccessMessage(r))
}
