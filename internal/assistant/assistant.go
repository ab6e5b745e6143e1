// Package assistant implements the fallback delegate: when no local intent
// matches a query, the question plus a transcript of the owner's ledger is
// sent to an external chat-completions endpoint. Every failure mode is
// reported to the caller as a displayable string, never an error.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultServiceURL = "https://api.asi1.ai/v1/chat/completions"
	defaultModel      = "asi1-mini"
	defaultTimeout    = 20 * time.Second

	systemPrompt = "You are a helpful financial assistant. Analyze the user's query and the provided transaction data to give a clear and concise answer. Do not end with follow-up questions."

	// MsgNotConfigured is returned without any network call when no API key
	// is configured.
	MsgNotConfigured = "AI service is not configured. Please set the AI_API_KEY in your environment."

	// MsgMalformed is returned when the endpoint answers with an unexpected
	// response shape.
	MsgMalformed = "Received an unexpected or malformed response from the AI service."
)

// Failure kinds, distinguishable by tests and call sites without
// string-sniffing the displayable result.
type Kind int

const (
	KindNotConfigured Kind = iota
	KindUnreachable
	KindMalformed
)

// Error carries the failure kind and underlying cause. Display returns the
// user-facing string for the failure; the external contract is string-only.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assistant: %v", e.Err)
	}
	return "assistant: failure"
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Display() string {
	switch e.Kind {
	case KindNotConfigured:
		return MsgNotConfigured
	case KindUnreachable:
		return fmt.Sprintf("Error connecting to the AI service: %v", e.Err)
	default:
		return MsgMalformed
	}
}

type Config struct {
	APIKey     string
	ServiceURL string
	Model      string
	Timeout    time.Duration
}

// Delegate is a single-attempt, timeout-bounded client for the external
// model endpoint. It holds no per-request state and is safe for concurrent
// use.
type Delegate struct {
	apiKey     string
	serviceURL string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg Config) *Delegate {
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = defaultServiceURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Delegate{
		apiKey:     cfg.APIKey,
		serviceURL: cfg.ServiceURL,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

// Ask sends the query and transcript to the model and returns a displayable
// answer. Configuration, network, and response-shape failures all come back
// as strings; no error ever escapes this boundary.
func (d *Delegate) Ask(ctx context.Context, queryText, transcript string) string {
	answer, aerr := d.ask(ctx, queryText, transcript)
	if aerr != nil {
		if aerr.Kind != KindNotConfigured {
			slog.WarnContext(ctx, "Assistant call failed", "kind", int(aerr.Kind), "error", aerr.Err)
		}
		return aerr.Display()
	}
	return answer
}

func (d *Delegate) ask(ctx context.Context, queryText, transcript string) (string, *Error) {
	if d.apiKey == "" {
		return "", &Error{Kind: KindNotConfigured}
	}

	userPrompt := fmt.Sprintf("User Query: %q\n\nHere is my transaction history:\n%s", queryText, transcript)
	payload := chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("marshal request: %w", err)}
	}

	// Tie the external call to both the caller's context and the delegate
	// timeout; a single attempt, no retries.
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, d.serviceURL, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindUnreachable, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: KindUnreachable, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == nil {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("missing choices[0].message.content")}
	}
	return *decoded.Choices[0].Message.Content, nil
}
