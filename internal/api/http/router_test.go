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

package http

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testgen-service/internal/api/http/middleware"
	"testgen-service/internal/storage/audit"
	"testgen-service/internal/testgen"
)

func buildRouterForTest(t *testing.T, options Options, setup func(r *Router)) *server.Hertz {
	t.Helper()
	handler := newTestHandler(&fakeCaptioner{}, &fakeGenerator{text: "generated"}, nil, defaultUploadConfig())
	r := NewRouter(handler, middleware.NewMiddleware(), options)
	if setup != nil {
		setup(r)
	}
	return r.Build(":0")
}

func postImages(t *testing.T, s *server.Hertz, headers ...ut.Header) int {
	t.Helper()
	body, contentType := multipartBody(t, []upload{{name: "a.png", data: png("a")}}, "")
	headers = append(headers, ut.Header{Key: "Content-Type", Value: contentType})
	w := ut.PerformRequest(s.Engine, "POST", "/api/generate-test-instructions", &ut.Body{Body: body, Len: body.Len()}, headers...)
	return w.Result().StatusCode()
}

func TestRouter_Routes(t *testing.T) {
	s := buildRouterForTest(t, Options{MetricsPath: "/metrics"}, nil)

	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.NotEmpty(t, w.Result().Header.Get(middleware.RequestIDHeader))

	assert.Equal(t, 200, postImages(t, s))

	w = ut.PerformRequest(s.Engine, "GET", "/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "testgen_requests_total")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	s := buildRouterForTest(t, Options{}, nil)
	w := ut.PerformRequest(s.Engine, "GET", "/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 404, w.Result().StatusCode())
}

func TestRouter_RequestIDPassthrough(t *testing.T) {
	s := buildRouterForTest(t, Options{}, nil)
	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0},
		ut.Header{Key: middleware.RequestIDHeader, Value: "req-123"})
	assert.Equal(t, "req-123", w.Result().Header.Get(middleware.RequestIDHeader))
}

func TestRouter_CORS(t *testing.T) {
	s := buildRouterForTest(t, Options{CORSEnable: true, CORSOrigins: []string{"*"}}, nil)

	w := ut.PerformRequest(s.Engine, "OPTIONS", "/api/generate-test-instructions", &ut.Body{Body: bytes.NewReader(nil), Len: 0},
		ut.Header{Key: "Origin", Value: "http://localhost:3000"})
	assert.Equal(t, 204, w.Result().StatusCode())
	assert.Equal(t, "*", w.Result().Header.Get("Access-Control-Allow-Origin"))

	w = ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, "*", w.Result().Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORSAllowList(t *testing.T) {
	s := buildRouterForTest(t, Options{CORSEnable: true, CORSOrigins: []string{"https://ui.example.com"}}, nil)

	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0},
		ut.Header{Key: "Origin", Value: "https://ui.example.com"})
	assert.Equal(t, "https://ui.example.com", w.Result().Header.Get("Access-Control-Allow-Origin"))

	w = ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0},
		ut.Header{Key: "Origin", Value: "https://evil.example.com"})
	assert.Empty(t, w.Result().Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimit(t *testing.T) {
	s := buildRouterForTest(t, Options{RateLimitRPS: 1}, nil)
	assert.Equal(t, 200, postImages(t, s))
	assert.Equal(t, 429, postImages(t, s))
}

func TestRouter_JWT(t *testing.T) {
	jwtAuth, err := middleware.NewJWTAuth([]byte("test-secret"), time.Hour, time.Hour)
	require.NoError(t, err)
	s := buildRouterForTest(t, Options{}, func(r *Router) { r.SetJWT(jwtAuth) })

	assert.Equal(t, 401, postImages(t, s))

	token, _, err := jwtAuth.TokenGenerator("qa-bot")
	require.NoError(t, err)
	assert.Equal(t, 200, postImages(t, s, ut.Header{Key: "Authorization", Value: "Bearer " + token}))

	w := ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode(), "health stays public")
}

func TestRouter_Audit(t *testing.T) {
	store := audit.NewMemoryStore(10)
	s := buildRouterForTest(t, Options{}, func(r *Router) {
		r.SetAudit(middleware.NewAuditMiddleware(store, nil))
	})

	require.Equal(t, 200, postImages(t, s, ut.Header{Key: middleware.RequestIDHeader, Value: "audit-1"}))

	var records []audit.Record
	require.Eventually(t, func() bool {
		records, _ = store.Recent(context.Background(), 10)
		return len(records) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "audit-1", records[0].RequestID)
	assert.Equal(t, 1, records[0].ImageCount)
	assert.Equal(t, 200, records[0].StatusCode)
	assert.Equal(t, "/api/generate-test-instructions", records[0].Path)
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(ctx context.Context, req testgen.Request) (*testgen.Result, error) {
	panic("nil caption slice")
}

func TestRouter_RecoversPanicWithGenericError(t *testing.T) {
	handler := NewHandler(panickingGenerator{}, nil, defaultUploadConfig(), nil)
	s := NewRouter(handler, middleware.NewMiddleware(), Options{}).Build(":0")

	body, contentType := multipartBody(t, []upload{{name: "a.png", data: png("a")}}, "")
	w := ut.PerformRequest(s.Engine, "POST", "/api/generate-test-instructions", &ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType})
	assert.Equal(t, 500, w.Result().StatusCode())
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(w.Result().Body()))

	// 服务在 panic 后仍可继续处理请求
	w = ut.PerformRequest(s.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())
}
