package assist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/dshills/querystorm/internal/engine/patch"
	"github.com/dshills/querystorm/internal/logging"
)

// DefaultLLMTimeout bounds a single model call.
const DefaultLLMTimeout = 30 * time.Second

const llmInstructions = `You are an assistant editing the SQL in a database console.
Reply with a single JSON object and nothing else:
{"type": "replace" | "append" | "insert", "content": "<text>", "position": {"line": <1-based>, "column": <1-based>}}
Use "replace" to rewrite the whole console, "append" to add statements after it,
and "insert" with a position to add text at a specific place. Omit "position"
to insert at the very beginning.`

// LLM asks a language model for a modification.
type LLM struct {
	name    string
	model   llms.Model
	timeout time.Duration
	opts    []llms.CallOption
	logger  *logging.Logger
}

// LLMOption configures an LLM producer.
type LLMOption func(*LLM)

// WithName overrides the producer name (default "llm").
func WithName(name string) LLMOption {
	return func(p *LLM) {
		if name != "" {
			p.name = name
		}
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) LLMOption {
	return func(p *LLM) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithCallOptions adds langchaingo call options to every request.
func WithCallOptions(opts ...llms.CallOption) LLMOption {
	return func(p *LLM) {
		p.opts = append(p.opts, opts...)
	}
}

// WithLLMLogger sets the logger.
func WithLLMLogger(l *logging.Logger) LLMOption {
	return func(p *LLM) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewLLM wraps a langchaingo model.
func NewLLM(model llms.Model, opts ...LLMOption) *LLM {
	p := &LLM{
		name:    "llm",
		model:   model,
		timeout: DefaultLLMTimeout,
		opts:    []llms.CallOption{llms.WithTemperature(0)},
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewOpenAI creates an LLM producer backed by OpenAI. The API key is read
// from OPENAI_API_KEY by the client.
func NewOpenAI(model string, opts ...LLMOption) (*LLM, error) {
	var clientOpts []openai.Option
	if model != "" {
		clientOpts = append(clientOpts, openai.WithModel(model))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	return NewLLM(client, append([]LLMOption{WithName("openai")}, opts...)...), nil
}

// Name implements Producer.
func (p *LLM) Name() string {
	return p.name
}

// Suggest implements Producer.
func (p *LLM) Suggest(ctx context.Context, req Request) (patch.Modification, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return patch.Modification{}, ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	reply, err := llms.GenerateFromSinglePrompt(ctx, p.model, BuildPrompt(req), p.opts...)
	if err != nil {
		return patch.Modification{}, fmt.Errorf("generate: %w", err)
	}
	p.logger.WithField("console", req.ConsoleID).
		Debug("%s replied with %d bytes in %s", p.name, len(reply), time.Since(start))

	return ParseModification(reply)
}

// BuildPrompt renders the model prompt for req.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(llmInstructions)
	b.WriteString("\n\nCurrent console content (line numbers for reference only):\n")
	if req.Content == "" {
		b.WriteString("(empty)\n")
	} else {
		for i, line := range strings.Split(req.Content, "\n") {
			fmt.Fprintf(&b, "%4d | %s\n", i+1, line)
		}
	}
	b.WriteString("\nRequest: ")
	b.WriteString(strings.TrimSpace(req.Prompt))
	b.WriteString("\n")
	return b.String()
}
