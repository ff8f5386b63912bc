package documents

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/healthsync-ai/cli/internal/errs"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/ingest"
)

// Submitter is the ingestion pipeline
type Submitter interface {
	AnalyzeText(ctx context.Context, text string) (*ingest.Result, error)
	AnalyzeFilePath(ctx context.Context, path string) (*ingest.Result, error)
}

// Ledger remembers which file contents were already submitted
type Ledger interface {
	Submitted(hash string) (health.Scalar, bool, error)
	MarkSubmitted(hash string, id health.Scalar) error
}

// DuplicateError is returned when identical file contents were already submitted
type DuplicateError struct {
	Path       string
	DocumentID health.Scalar
}

func (e *DuplicateError) Error() string {
	if e.DocumentID != "" {
		return fmt.Sprintf("%s was already submitted as document %s", e.Path, e.DocumentID)
	}
	return fmt.Sprintf("%s was already submitted", e.Path)
}

// Options controls how a file is submitted
type Options struct {
	// ExtractLocally sends extracted text through the text path instead of uploading the file.
	ExtractLocally bool
	// Force resubmits files the ledger has already seen.
	Force bool
}

// Processor handles document submission with duplicate detection
type Processor struct {
	submitter Submitter
	ledger    Ledger
	log       zerolog.Logger
}

// NewProcessor creates a new document processor. ledger may be nil.
func NewProcessor(submitter Submitter, ledger Ledger, logger zerolog.Logger) *Processor {
	return &Processor{
		submitter: submitter,
		ledger:    ledger,
		log:       logger.With().Str("component", "documents").Logger(),
	}
}

// ProcessDocument submits filePath unless its contents were submitted before
func (p *Processor) ProcessDocument(ctx context.Context, filePath string, opts Options) (*ingest.Result, error) {
	hash, err := computeFileHash(filePath)
	if err != nil {
		return nil, errs.Validation("file", fmt.Sprintf("cannot read %s: %v", filePath, err))
	}

	if p.ledger != nil && !opts.Force {
		id, seen, err := p.ledger.Submitted(hash)
		if err != nil {
			p.log.Warn().Err(err).Msg("failed to check submission ledger")
		} else if seen {
			return nil, &DuplicateError{Path: filePath, DocumentID: id}
		}
	}

	var result *ingest.Result
	if opts.ExtractLocally {
		text, extractErr := ExtractText(filePath)
		if extractErr != nil {
			return nil, errs.Validation("file", extractErr.Error())
		}
		p.log.Debug().Str("path", filePath).Int("chars", len(text)).Msg("extracted text locally")
		result, err = p.submitter.AnalyzeText(ctx, text)
	} else {
		result, err = p.submitter.AnalyzeFilePath(ctx, filePath)
	}
	if result != nil {
		result.Source = ingest.SourceFile
		result.Name = filepath.Base(filePath)
	}

	// A soft failure extracted nothing, so the file stays eligible for retry.
	if err == nil && p.ledger != nil && result != nil {
		if markErr := p.ledger.MarkSubmitted(hash, result.DocumentID); markErr != nil {
			p.log.Warn().Err(markErr).Msg("failed to record submission")
		}
	}
	return result, err
}

// computeFileHash computes SHA256 hash of a file
func computeFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
