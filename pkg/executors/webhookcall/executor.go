// Package webhookcall provides the webhook_call action executor.
package webhookcall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/protocol"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 64 * 1024
)

var ErrURLRequired = errors.New("webhook url is required")

func NewExecutorFactory() protocol.ExecutorFactory {
	return &ExecutorFactory{}
}

type ExecutorFactory struct{}

func (*ExecutorFactory) Kind() models.ActionKind {
	return models.ActionKindWebhookCall
}

func (f *ExecutorFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrURLRequired
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)
	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if strVal, ok := v.(string); ok {
				headers[k] = strVal
			}
		}
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Executor{
		method:  strings.ToUpper(method),
		url:     url,
		headers: headers,
		body:    body,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Executor performs an HTTP request to the configured webhook endpoint. It
// applies its own timeout; a non-2xx status is a failed action.
type Executor struct {
	method  string
	url     string
	headers map[string]string
	body    string
	client  *http.Client
}

func (e *Executor) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*protocol.Outcome, error) {
	logger = logger.With("action_kind", "webhook_call", "method", e.method, "url", e.url)

	var body io.Reader
	if e.body != "" {
		body = strings.NewReader(e.body)
	}

	req, err := http.NewRequestWithContext(ctx, e.method, e.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	if req.Header.Get("Content-Type") == "" && e.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.InfoContext(ctx, "Calling webhook")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.WarnContext(ctx, "Failed to close response body", "error", err)
		}
	}()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return &protocol.Outcome{
		Message: fmt.Sprintf("webhook returned status %d", resp.StatusCode),
		Details: map[string]any{
			"status_code": resp.StatusCode,
			"body":        string(responseBody),
		},
	}, nil
}
