// Package pipeline orchestrates image extraction, drug lookup and normalization.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/snapmed/internal/apperr"
	"github.com/ppiankov/snapmed/internal/drug"
	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/metrics"
	"github.com/ppiankov/snapmed/internal/model"
	"github.com/ppiankov/snapmed/internal/normalize"
)

// Caller-facing failures of Enrich
var (
	ErrNoImage          = apperr.InvalidInput("No base64 image provided.")
	ErrExtractionFailed = apperr.InvalidInput("Unable to extract medicine data.")
)

// Analysis outcomes recorded in metrics
const (
	OutcomeEnriched         = "enriched"
	OutcomeNoDrugInfo       = "no_drug_info"
	OutcomeExtractionFailed = "extraction_failed"
	OutcomeInvalidInput     = "invalid_input"
)

// Extractor produces identification lines from an encoded image
type Extractor interface {
	Extract(ctx context.Context, imageBase64 string) ([]string, bool)
}

// Lookup fetches provider metadata by name
type Lookup interface {
	Lookup(ctx context.Context, name string) drug.Result
}

// Pipeline runs one enrichment at a time per call; it holds no per-request state
type Pipeline struct {
	extractor Extractor
	lookup    Lookup
	loader    *ImageLoader
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLoader sets the loader used by EnrichFile
func WithLoader(l *ImageLoader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithMetrics records outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline
func New(extractor Extractor, lookup Lookup, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		lookup:    lookup,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loader == nil {
		p.loader = NewImageLoader(0, "", DefaultMaxImageBytes)
	}
	p.logger = logging.OrDefault(p.logger)
	return p
}

// Enrich runs the steps strictly in order. Lookup failures of any kind yield a result
// with nil DrugInfo rather than an error.
func (p *Pipeline) Enrich(ctx context.Context, imageBase64 string) (*model.EnrichmentResult, error) {
	start := time.Now()

	// 1. Reject empty payloads
	if strings.TrimSpace(imageBase64) == "" {
		p.metrics.RecordAnalysis(OutcomeInvalidInput, time.Since(start))
		return nil, ErrNoImage
	}

	// 2. Extract identification lines
	lines, ok := p.extractor.Extract(ctx, imageBase64)
	if !ok || len(lines) == 0 {
		p.metrics.RecordAnalysis(OutcomeExtractionFailed, time.Since(start))
		return nil, ErrExtractionFailed
	}

	// 3. Look up the subject name
	subject := lines[0]
	result := p.lookup.Lookup(ctx, subject)
	p.metrics.RecordLookup(result.Outcome.String())

	log := p.logger.WithFields(logrus.Fields{
		"subject": subject,
		"lookup":  result.Outcome.String(),
		"cached":  result.Cached,
	})

	// 4. Normalize, or mark absence
	enrichment := &model.EnrichmentResult{Lines: lines}
	if result.Outcome == drug.Found {
		md := normalize.NormalizeBytes(result.Raw)
		enrichment.DrugInfo = &md
		p.metrics.RecordAnalysis(OutcomeEnriched, time.Since(start))
	} else {
		p.metrics.RecordAnalysis(OutcomeNoDrugInfo, time.Since(start))
	}

	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("analysis complete")
	return enrichment, nil
}

// EnrichFile loads an image from a path or URL and runs Enrich on it
func (p *Pipeline) EnrichFile(ctx context.Context, ref string) (*model.EnrichmentResult, error) {
	image, err := p.loader.Load(ctx, ref)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "Unable to read image.", err)
	}
	return p.Enrich(ctx, image)
}
