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

package vision

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testgen-service/internal/storage/cache"
	pkgerrors "testgen-service/pkg/errors"
)

func TestHuggingFaceClient_Caption(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/Salesforce/blip-image-captioning-large", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, image, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"generated_text":"a screenshot of a bus booking app"}]`))
	}))
	defer srv.Close()

	c, err := NewHuggingFaceClient("Salesforce/blip-image-captioning-large", "hf_test", srv.URL+"/", time.Second)
	require.NoError(t, err)
	got, err := c.Caption(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, "a screenshot of a bus booking app", got)
	assert.Equal(t, "Salesforce/blip-image-captioning-large", c.Name())
}

func TestHuggingFaceClient_Caption_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusServiceUnavailable, body: `{"error":"loading"}`, wantErr: pkgerrors.ErrUpstream},
		{name: "empty array", status: http.StatusOK, body: `[]`, wantErr: pkgerrors.ErrMalformedResponse},
		{name: "wrong shape", status: http.StatusOK, body: `[{"label":"x"}]`, wantErr: pkgerrors.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewHuggingFaceClient("m", "k", srv.URL, time.Second)
			require.NoError(t, err)
			_, err = c.Caption(context.Background(), []byte("img"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestHuggingFaceClient_Caption_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`[{"generated_text":"late"}]`))
	}))
	defer srv.Close()

	c, err := NewHuggingFaceClient("m", "k", srv.URL, 50*time.Millisecond)
	require.NoError(t, err)
	_, err = c.Caption(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "调用 caption 模型 m 失败")
}

func TestNewHuggingFaceClient_RequiresModel(t *testing.T) {
	_, err := NewHuggingFaceClient("", "k", "", 0)
	assert.Error(t, err)
}

type countingClient struct {
	calls   int32
	caption string
	err     error
}

func (c *countingClient) Caption(ctx context.Context, image []byte) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.caption, c.err
}

func (c *countingClient) Name() string { return "counting" }

func TestCachedClient(t *testing.T) {
	ctx := context.Background()
	inner := &countingClient{caption: "seat selection screen"}
	c := NewCachedClient(inner, cache.NewMemoryStore(), time.Hour, nil)

	for i := 0; i < 3; i++ {
		got, err := c.Caption(ctx, []byte("same image"))
		require.NoError(t, err)
		assert.Equal(t, "seat selection screen", got)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	_, err := c.Caption(ctx, []byte("other image"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestCachedClient_DoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := &countingClient{err: errors.New("boom")}
	c := NewCachedClient(inner, cache.NewMemoryStore(), time.Hour, nil)

	_, err := c.Caption(ctx, []byte("img"))
	assert.Error(t, err)
	_, err = c.Caption(ctx, []byte("img"))
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestNewCachedClient_NilStore(t *testing.T) {
	inner := &countingClient{}
	assert.Same(t, inner, NewCachedClient(inner, nil, 0, nil))
}
