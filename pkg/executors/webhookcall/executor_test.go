package webhookcall

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmateus/mordomo/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCreateRequiresURL(t *testing.T) {
	_, err := NewExecutorFactory().Create(map[string]any{})
	assert.ErrorIs(t, err, ErrURLRequired)
}

func TestExecutePostsBodyAndHeaders(t *testing.T) {
	var (
		gotMethod      string
		gotBody        string
		gotAuth        string
		gotContentType string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")

		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	executor, err := NewExecutorFactory().Create(map[string]any{
		"url":  server.URL,
		"body": `{"ping":"pong"}`,
		"headers": map[string]any{
			"Authorization": "Bearer token",
		},
	})
	require.NoError(t, err)

	outcome, err := executor.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, `{"ping":"pong"}`, gotBody)
	assert.Equal(t, "Bearer token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)

	assert.Equal(t, http.StatusOK, outcome.Details["status_code"])
	assert.Equal(t, `{"ok":true}`, outcome.Details["body"])
}

func TestExecuteCustomMethod(t *testing.T) {
	var gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	executor, err := NewExecutorFactory().Create(map[string]any{
		"url":    server.URL,
		"method": "get",
	})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, gotMethod)
}

func TestExecuteNon2xxIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	executor, err := NewExecutorFactory().Create(map[string]any{"url": server.URL})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestExecuteUnreachableEndpoint(t *testing.T) {
	executor, err := NewExecutorFactory().Create(map[string]any{
		"url":             "http://127.0.0.1:1",
		"timeout_seconds": float64(1),
	})
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.Error(t, err)
}
