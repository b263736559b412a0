// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testgen-service/internal/model/inference"
	pkgerrors "testgen-service/pkg/errors"
)

func TestHuggingFaceClient_Generate(t *testing.T) {
	prompt := "Captions: a login form\n  Context: No additional context."
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/openai-community/gpt2", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, prompt, body["inputs"])
		_, hasParams := body["parameters"]
		assert.False(t, hasParams, "parameters must be omitted when not configured")
		_, _ = w.Write([]byte(`[{"generated_text":"  Test Case 1: log in  "}]`))
	}))
	defer srv.Close()

	c, err := NewHuggingFaceClient("openai-community/gpt2", "hf_test", Options{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	got, err := c.Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "  Test Case 1: log in  ", got, "generated text is returned unmodified")
	assert.Equal(t, "openai-community/gpt2", c.Model())
	assert.Equal(t, "huggingface", c.Provider())
}

func TestHuggingFaceClient_Generate_Parameters(t *testing.T) {
	full := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Parameters map[string]interface{} `json:"parameters"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(200), body.Parameters["max_new_tokens"])
		assert.Equal(t, false, body.Parameters["return_full_text"])
		_, hasTemp := body.Parameters["temperature"]
		assert.False(t, hasTemp)
		_, _ = w.Write([]byte(`{"generated_text":"ok"}`))
	}))
	defer srv.Close()

	c, err := NewHuggingFaceClient("gpt2", "k", Options{BaseURL: srv.URL, MaxTokens: 200, ReturnFullText: &full})
	require.NoError(t, err)
	got, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestHuggingFaceClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"Invalid credentials"}`, wantErr: pkgerrors.ErrUpstream},
		{name: "error object", status: http.StatusOK, body: `{"error":"Model is loading"}`, wantErr: pkgerrors.ErrUpstream},
		{name: "empty array", status: http.StatusOK, body: `[]`, wantErr: pkgerrors.ErrMalformedResponse},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: pkgerrors.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewHuggingFaceClient("gpt2", "k", Options{BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = c.Generate(context.Background(), "p")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestHuggingFaceClient_Generate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`[{"generated_text":"late"}]`))
	}))
	defer srv.Close()

	c, err := NewHuggingFaceClient("gpt2", "k", Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	start := time.Now()
	_, err = c.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	var netErr net.Error
	require.True(t, errors.As(err, &netErr), "got %v", err)
	assert.True(t, netErr.Timeout())
}

func TestOpenAIClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "prompt", body.Messages[0].Content)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Test Case 1"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("", "sk-test", Options{BaseURL: srv.URL})
	require.NoError(t, err)
	got, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Test Case 1", got)
	assert.Equal(t, "openai", c.Provider())
}

func TestOpenAIClient_Generate_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("m", "k", Options{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p")
	assert.True(t, errors.Is(err, pkgerrors.ErrMalformedResponse), "got %v", err)
}

func TestClaudeClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(1024), body["max_tokens"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Test Case 1"},{"type":"text","text":" done"}]}`))
	}))
	defer srv.Close()

	c, err := NewClaudeClient("claude-test", "ak-test", Options{BaseURL: srv.URL})
	require.NoError(t, err)
	got, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Test Case 1 done", got)
}

func TestClaudeClient_Generate_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c, err := NewClaudeClient("claude-test", "k", Options{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p")
	assert.True(t, errors.Is(err, pkgerrors.ErrUpstream), "got %v", err)
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{provider: "", want: "huggingface"},
		{provider: "huggingface", want: "huggingface"},
		{provider: "openai", want: "openai"},
		{provider: "claude", want: "claude"},
		{provider: "gemini", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := NewClient(tt.provider, "m", "k", Options{BaseURL: "http://127.0.0.1:1"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Provider())
		})
	}
}

type stubClient struct{ text string }

func (s *stubClient) Generate(ctx context.Context, prompt string) (string, error) { return s.text, nil }
func (s *stubClient) Model() string                                              { return "stub" }
func (s *stubClient) Provider() string                                           { return "stub" }

func TestRateLimitedClient(t *testing.T) {
	inner := &stubClient{text: "ok"}
	assert.Same(t, Client(inner), NewRateLimitedClient(inner, nil))

	c := NewRateLimitedClient(inner, inference.NewLimiter("generation", inference.LimitConfig{MaxConcurrent: 1}))
	got, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, "stub", c.Model())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Generate(ctx, "p")
	assert.Error(t, err)
}
