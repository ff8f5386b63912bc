// Package ingest submits medical documents to the backend for analysis.
//
// It never touches the local aggregate. Callers refresh after a successful
// submission so the server's view of the new document is picked up whole.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/internal/api"
	"github.com/healthsync-ai/cli/internal/errs"
	"github.com/healthsync-ai/cli/internal/health"
)

// AcceptHint lists the file kinds the backend knows how to read. It is a hint
// for pickers only; files are not checked before upload.
const AcceptHint = ".pdf,image/*,text/plain"

// MsgEmptyText is shown when pasted text is blank
const MsgEmptyText = "Please enter document text for analysis."

// Source says how a document reached the backend
type Source int

const (
	SourceText Source = iota
	SourceFile
)

func (s Source) noun() string {
	if s == SourceFile {
		return "File"
	}
	return "Document"
}

func (s Source) lower() string {
	return strings.ToLower(s.noun())
}

// Analyzer is the slice of the backend client used here
type Analyzer interface {
	UploadText(ctx context.Context, text string) (*api.AnalyzeResponse, error)
	ImportFile(ctx context.Context, filename string, r io.Reader) (*api.AnalyzeResponse, error)
}

// Result is a normalized analysis for one submitted document
type Result struct {
	Analysis   health.AnalysisResult
	DocumentID health.Scalar
	Source     Source
	Name       string
}

// MedicationCount tolerates a nil result
func (r *Result) MedicationCount() int {
	if r == nil {
		return 0
	}
	return r.Analysis.MedicationCount()
}

// Pipeline turns text or files into analysis results
type Pipeline struct {
	client Analyzer
	log    zerolog.Logger
}

// New creates a pipeline over the given backend
func New(client Analyzer, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		client: client,
		log:    logger.With().Str("component", "ingest").Logger(),
	}
}

// AnalyzeText submits pasted text. Blank text fails validation without a request.
func (p *Pipeline) AnalyzeText(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Validation("text", MsgEmptyText)
	}

	resp, err := p.client.UploadText(ctx, text)
	return p.finish(SourceText, "", resp, err)
}

// AnalyzeFile uploads r under name
func (p *Pipeline) AnalyzeFile(ctx context.Context, name string, r io.Reader) (*Result, error) {
	resp, err := p.client.ImportFile(ctx, name, r)
	return p.finish(SourceFile, name, resp, err)
}

// AnalyzeFilePath opens path and uploads it
func (p *Pipeline) AnalyzeFilePath(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Validation("file", fmt.Sprintf("cannot open %s: %v", path, err))
	}
	defer f.Close()

	return p.AnalyzeFile(ctx, filepath.Base(path), f)
}

func (p *Pipeline) finish(src Source, name string, resp *api.AnalyzeResponse, err error) (*Result, error) {
	if err != nil {
		p.log.Warn().Err(err).Str("source", src.lower()).Msg("analysis request failed")
		return nil, errs.Extraction(err)
	}

	result := &Result{Source: src, Name: name, DocumentID: resp.DocumentID}
	if resp.Analysis == nil {
		p.log.Warn().Str("source", src.lower()).Msg("response carried no analysis")
		result.Analysis.Normalize()
		return result, errs.Extraction(nil)
	}

	result.Analysis = *resp.Analysis
	result.Analysis.Normalize()
	p.log.Info().
		Str("source", src.lower()).
		Str("document_id", result.DocumentID.String()).
		Int("medications", result.MedicationCount()).
		Msg("document analyzed")
	return result, nil
}

// SuccessMessage is the status line after an analysis came back
func SuccessMessage(r *Result) string {
	src := SourceText
	if r != nil {
		src = r.Source
	}
	return fmt.Sprintf("%s analyzed successfully! Found %d medications.", src.noun(), r.MedicationCount())
}

// FailureMessage is the status line after a failed submission
func FailureMessage(src Source, err error) string {
	var valErr *errs.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}
	return fmt.Sprintf("Error analyzing %s: %s", src.lower(), errs.UserMessage(err))
}

// IsSoft reports whether err only means "nothing extracted"
func IsSoft(err error) bool {
	var extErr *errs.ExtractionError
	return errors.As(err, &extErr) && extErr.Soft()
}
