package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandroruanova/automl-service/internal/pkg/config"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/alejandroruanova/automl-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestClient(url string) *Client {
	return NewClient(&config.LLMConfig{APIKey: "test-key", BaseURL: url, Model: "test-model"}, logger.Discard())
}

func TestClient_Chat(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{
		"id": "c1", "object": "chat.completion", "created": 1, "model": "test-model",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "drop the id column"}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
	}`)
	defer srv.Close()

	answer, err := newTestClient(srv.URL).Chat(context.Background(), "be brief", "what now?")
	require.NoError(t, err)
	assert.Equal(t, "drop the id column", answer)
}

func TestClient_NoChoices(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{"id": "c1", "object": "chat.completion", "created": 1, "model": "test-model", "choices": []}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), "x", "y")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMInvalidResponse))
}

func TestClient_RequestFailure(t *testing.T) {
	srv := completionServer(t, http.StatusBadRequest, `{"error": {"message": "bad model", "type": "invalid_request_error"}}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), "x", "y")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMRequestFailed))
}
