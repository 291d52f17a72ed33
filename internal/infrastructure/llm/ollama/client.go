// Package ollama adapts a local Ollama server into the LLM-backed
// normalizer, merger, and predictor ports. Every response is treated as
// untrusted input: it is bracket-extracted and coerced before use, and every
// caller owns a deterministic fallback.
package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/academica/gradeflow/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

// generateJSON asks for a strict JSON object response.
func (c *Client) generateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.generate(ctx, generateRequest{
		Model:  c.model,
		System: systemPrompt,
		Prompt: userPrompt,
		Stream: false,
		Format: "json",
	})
}

func (c *Client) generate(ctx context.Context, reqBody generateRequest) (string, error) {
	var response struct {
		Response string `json:"response"`
	}

	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}
