// Package llm is a thin demo handler standing in for the out-of-scope
// agents/LLM subsystem the control protocol was designed to supervise
// (original_source's araliya-bot wires a real agent loop here; this
// repository only needs something that behaves like one on the bus).
// It proxies "llm/generate" requests to an Ollama-compatible HTTP
// endpoint and reports its reachability through a health reporter.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/araliya/araliyad/internal/kernel"
)

// Config controls which upstream the handler calls.
type Config struct {
	BaseURL string
	Model   string
}

// Handler implements kernel.Handler.
type Handler struct {
	cfg       Config
	client    *http.Client
	health    *kernel.HealthReporter
	startedAt time.Time
}

// New creates an llm handler. health may be nil if no health reporting
// is desired.
func New(cfg Config, health *kernel.HealthReporter) *Handler {
	return &Handler{
		cfg:       cfg,
		client:    &http.Client{Timeout: 30 * time.Second},
		health:    health,
		startedAt: time.Now(),
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type upstreamRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type upstreamResponse struct {
	Response string `json:"response"`
}

// HandleRequest answers "llm/generate".
func (h *Handler) HandleRequest(ctx context.Context, method string, payload kernel.Payload, reply *kernel.ReplyHandle) {
	if method != "llm/generate" {
		reply.Fail(kernel.PayloadMismatchError(method, "no such llm method"))
		return
	}

	req, ok := payload.(generateRequest)
	if !ok {
		if m, isMap := payload.(map[string]any); isMap {
			if p, isStr := m["prompt"].(string); isStr {
				req = generateRequest{Prompt: p}
				ok = true
			}
		}
	}
	if !ok {
		reply.Fail(kernel.PayloadMismatchError(method, "generateRequest"))
		return
	}

	text, err := h.generate(ctx, req.Prompt)
	if err != nil {
		if h.health != nil {
			h.health.SetUnhealthy(err.Error())
		}
		// Upstream transport/HTTP failures are not a payload-shape problem
		// (the sender's request was fine), so this isn't PayloadMismatch —
		// report it the same way a handler that drops its reply handle
		// would, since no fulfilled reply is coming either way.
		reply.Fail(&kernel.BusError{
			Kind:    kernel.HandlerDropped,
			Message: fmt.Sprintf("llm upstream request failed: %v", err),
		})
		return
	}
	if h.health != nil {
		h.health.SetHealthy()
	}
	reply.Fulfill(generateResponse{Text: text})
}

// HandleNotification is a no-op: the llm subsystem has no fire-and-forget entry point.
func (h *Handler) HandleNotification(_ string, _ kernel.Payload) {}

func (h *Handler) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(upstreamRequest{Model: h.cfg.Model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upstream returned %d: %s", resp.StatusCode, string(data))
	}

	var out upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// ComponentInfo reports current reachability based on the last health write.
func (h *Handler) ComponentInfo() kernel.ComponentInfo {
	uptime := uint64(time.Since(h.startedAt).Milliseconds())
	if h.health != nil {
		if current, ok := h.health.Current(); ok && !current.Healthy {
			return kernel.ErrorComponent("llm", "llm", current.Message)
		}
	}
	return kernel.RunningComponent("llm", "llm", uptime)
}
