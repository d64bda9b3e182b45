package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/snapmed/internal/util"
)

// DefaultPrompt asks for the medicine name alone on the first line and its uses after it
const DefaultPrompt = "Provide just the name of the medicine in the first line without using extra words, and some of its uses in the next lines."

// Provider defines the interface for vision-capable LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Describe sends one image with an instruction and returns the reply text
	Describe(ctx context.Context, req DescribeRequest) (*DescribeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// DescribeRequest contains one image and the instruction for it
type DescribeRequest struct {
	// ImageBase64 is the raw base64 payload without any data URL prefix
	ImageBase64 string

	// MimeType of the decoded image, e.g. image/jpeg
	MimeType string

	// Prompt is an optional custom instruction (if empty, DefaultPrompt)
	Prompt string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// DescribeResponse contains the provider's reply
type DescribeResponse struct {
	// Text is the raw reply text, untrimmed line structure preserved
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "gemini", "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests in seconds. 0 means no client-side timeout.
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "gemini",
		Model:     "gemini-2.0-flash",
		MaxTokens: 512,
	}
}

// promptOrDefault returns the request prompt or DefaultPrompt
func promptOrDefault(req DescribeRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return DefaultPrompt
}

// mimeOrDefault returns the request MIME type, image/jpeg when unset
func mimeOrDefault(req DescribeRequest) string {
	if req.MimeType != "" {
		return req.MimeType
	}
	return "image/jpeg"
}

// dataURL renders an inline image as a data URL
func dataURL(mimeType, payload string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, payload)
}

// newHTTPClient builds the client shared by the raw HTTP providers
func newHTTPClient(config Config) *http.Client {
	return &http.Client{
		Timeout:   time.Duration(config.Timeout) * time.Second,
		Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}
}
