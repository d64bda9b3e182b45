// Package extract turns a medication photo into identification lines using a vision LLM.
package extract

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/snapmed/internal/extract/parsers"
	"github.com/ppiankov/snapmed/internal/llm"
	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/worker"
)

// Extractor asks the oracle to name the medication in an image
type Extractor struct {
	provider  llm.Provider
	parser    parsers.Parser
	prompt    string
	maxTokens int
	limiter   *worker.Limiter
	endpoint  string
	logger    *logrus.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithParser replaces the default line parser
func WithParser(p parsers.Parser) Option {
	return func(e *Extractor) { e.parser = p }
}

// WithPrompt replaces llm.DefaultPrompt
func WithPrompt(prompt string) Option {
	return func(e *Extractor) { e.prompt = prompt }
}

// WithMaxTokens caps the oracle reply length
func WithMaxTokens(n int) Option {
	return func(e *Extractor) { e.maxTokens = n }
}

// WithLimiter throttles oracle calls against the host of endpoint
func WithLimiter(l *worker.Limiter, endpoint string) Option {
	return func(e *Extractor) {
		e.limiter = l
		e.endpoint = endpoint
	}
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor backed by provider
func NewExtractor(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider: provider,
		parser:   parsers.NewLineParser(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrDefault(e.logger)
	return e
}

// Extract sends the image to the oracle once and parses the reply.
// ok is false when the oracle fails or replies with nothing usable.
func (e *Extractor) Extract(ctx context.Context, imageBase64 string) ([]string, bool) {
	payload, mimeType := SplitDataURL(imageBase64)
	if strings.TrimSpace(payload) == "" {
		return nil, false
	}
	if mimeType == "" {
		mimeType = DetectMimeType(payload)
	}

	if e.limiter != nil && e.endpoint != "" {
		if err := e.limiter.Wait(ctx, e.endpoint); err != nil {
			e.logger.WithError(err).WithField("provider", e.provider.Name()).Warn("oracle call throttled")
			return nil, false
		}
	}

	resp, err := e.provider.Describe(ctx, llm.DescribeRequest{
		ImageBase64: payload,
		MimeType:    mimeType,
		Prompt:      e.prompt,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		e.logger.WithError(err).WithField("provider", e.provider.Name()).Warn("extraction failed")
		return nil, false
	}
	if resp == nil {
		return nil, false
	}

	lines, ok := e.parser.Parse(resp.Text)
	if !ok {
		e.logger.WithField("provider", e.provider.Name()).Warn("oracle reply had no usable lines")
		return nil, false
	}

	e.logger.WithFields(logrus.Fields{
		"provider": e.provider.Name(),
		"model":    resp.Model,
		"tokens":   resp.TokensUsed,
		"subject":  lines[0],
	}).Debug("extracted identification")

	return lines, true
}
