package assist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/dshills/querystorm/internal/engine/patch"
)

// stubModel is an llms.Model that returns a canned reply.
type stubModel struct {
	reply   string
	err     error
	prompts []string
	block   bool
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLLMSuggest(t *testing.T) {
	model := &stubModel{reply: "```json\n{\"type\":\"append\",\"content\":\"LIMIT 10\"}\n```"}
	p := NewLLM(model)

	mod, err := p.Suggest(context.Background(), Request{ConsoleID: "c1", Content: "select *\nfrom t", Prompt: "limit rows"})
	if err != nil {
		t.Fatalf("Suggest error = %v", err)
	}
	if mod.Kind != patch.KindAppend || mod.Content != "LIMIT 10" {
		t.Errorf("Suggest = %v", mod)
	}

	if len(model.prompts) != 1 {
		t.Fatalf("model called with %d prompts, want 1", len(model.prompts))
	}
	prompt := model.prompts[0]
	for _, want := range []string{"   1 | select *", "   2 | from t", "Request: limit rows"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestLLMName(t *testing.T) {
	if got := NewLLM(&stubModel{}).Name(); got != "llm" {
		t.Errorf("Name() = %q, want llm", got)
	}
	if got := NewLLM(&stubModel{}, WithName("local")).Name(); got != "local" {
		t.Errorf("Name() = %q, want local", got)
	}
}

func TestLLMEmptyPrompt(t *testing.T) {
	model := &stubModel{reply: "select 1"}
	_, err := NewLLM(model).Suggest(context.Background(), Request{Content: "x", Prompt: "  "})
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("Suggest error = %v, want ErrEmptyPrompt", err)
	}
	if len(model.prompts) != 0 {
		t.Error("model should not be called for an empty prompt")
	}
}

func TestLLMModelError(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := NewLLM(&stubModel{err: boom}).Suggest(context.Background(), Request{Prompt: "p"})
	if !errors.Is(err, boom) {
		t.Errorf("Suggest error = %v, want %v", err, boom)
	}
}

func TestLLMTimeout(t *testing.T) {
	p := NewLLM(&stubModel{block: true}, WithTimeout(10*time.Millisecond))
	_, err := p.Suggest(context.Background(), Request{Prompt: "p"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Suggest error = %v, want DeadlineExceeded", err)
	}
}

func TestBuildPromptEmptyContent(t *testing.T) {
	prompt := BuildPrompt(Request{Prompt: "write a query"})
	if !strings.Contains(prompt, "(empty)") {
		t.Errorf("prompt should mark empty content:\n%s", prompt)
	}
}
