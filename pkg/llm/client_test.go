package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"math-tutor-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectWriter 收集流式写入的分块，实现 MessageWriter 接口。
type collectWriter struct {
	chunks []string
}

func (w *collectWriter) WriteMessage(_ int, data []byte) error {
	w.chunks = append(w.chunks, string(data))
	return nil
}

func TestChatCompletion(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Final Answer: 4  "}}]}`))
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "qwen2.5-3b-instruct",
		Generation: config.LLMGenerationConfig{
			Temperature: 0.5,
			MaxTokens:   1500,
		},
	})

	messages := []Message{
		{Role: "system", Content: "You are a math tutor."},
		{Role: "user", Content: "What is 2+2?"},
	}
	answer, err := client.ChatCompletion(context.Background(), messages, nil)
	require.NoError(t, err)
	assert.Equal(t, "Final Answer: 4", answer)

	// 请求体携带模型名、消息与全局配置的生成参数
	assert.Equal(t, "qwen2.5-3b-instruct", gotReq.Model)
	assert.Equal(t, messages, gotReq.Messages)
	assert.False(t, gotReq.Stream)
	require.NotNil(t, gotReq.Temperature)
	assert.Equal(t, 0.5, *gotReq.Temperature)
	require.NotNil(t, gotReq.MaxTokens)
	assert.Equal(t, 1500, *gotReq.MaxTokens)
}

func TestChatCompletionGenerationParamsOverrideConfig(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{
		BaseURL: srv.URL,
		Model:   "m",
		Generation: config.LLMGenerationConfig{
			Temperature: 0.5,
			MaxTokens:   1500,
		},
	})

	temp := 0.9
	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "q"}}, &GenerationParams{Temperature: &temp})
	require.NoError(t, err)

	require.NotNil(t, gotReq.Temperature)
	assert.Equal(t, 0.9, *gotReq.Temperature)
	// 显式传参后不再回落到全局配置
	assert.Nil(t, gotReq.MaxTokens)
}

func TestChatCompletionErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m"})
		_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "q"}}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-200")
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m"})
		_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "q"}}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty response")
	})

	t.Run("server unreachable", func(t *testing.T) {
		client := NewClient(config.LLMConfig{BaseURL: "http://127.0.0.1:1", Model: "m"})
		_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "q"}}, nil)
		require.Error(t, err)
	})
}

func TestStreamChatMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Final \"}}]}\n"))
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Answer: \"}}]}\n"))
		_, _ = w.Write([]byte(": keep-alive comment\n"))
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"4\"}}]}\n"))
		_, _ = w.Write([]byte("data: [DONE]\n"))
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m"})

	writer := &collectWriter{}
	full, err := client.StreamChatMessages(context.Background(), []Message{{Role: "user", Content: "q"}}, nil, writer)
	require.NoError(t, err)
	assert.Equal(t, "Final Answer: 4", full)
	assert.Equal(t, []string{"Final ", "Answer: ", "4"}, writer.chunks)
}
