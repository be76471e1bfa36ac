package extraction

import (
	"context"
	"sync"

	"github.com/jonathan/contract-auditor/internal/llm"
)

// fakeClient returns scripted responses in order; the last one repeats.
type fakeClient struct {
	mu        sync.Mutex
	responses []fakeResponse
	prompts   []string
	block     bool // wait for ctx.Done before answering
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	idx := min(len(f.prompts)-1, len(f.responses)-1)
	resp := f.responses[idx]
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return resp.text, resp.err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake" }
func (f *fakeClient) Close() error                  { return nil }

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
