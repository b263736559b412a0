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

package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestContext 中的键
const (
	RequestIDKey  = "request_id"
	ImageCountKey = "image_count"
)

// RequestIDHeader 请求 ID 头，客户端可自带
const RequestIDHeader = "X-Request-ID"

// InternalErrorMessage 未预期错误时返回给调用方的信息，不含内部细节
const InternalErrorMessage = "Internal server error"

// Middleware 中间件
type Middleware struct{}

// NewMiddleware 创建新的中间件
func NewMiddleware() *Middleware {
	return &Middleware{}
}

// RequestID 为每个请求分配 ID 并写回响应头
func (m *Middleware) RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next(ctx)
	}
}

// CORS CORS 中间件；origins 含 "*" 时允许任意来源
func (m *Middleware) CORS(origins []string) app.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.GetHeader("Origin"))
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, "+RequestIDHeader)
		c.Header("Access-Control-Expose-Headers", RequestIDHeader)
		c.Header("Access-Control-Max-Age", "86400")

		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// RateLimit 令牌桶限流，rps <= 0 时不限流
func (m *Middleware) RateLimit(rps int) app.HandlerFunc {
	if rps <= 0 {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	limiter := rate.NewLimiter(rate.Limit(rps), rps)

	return func(ctx context.Context, c *app.RequestContext) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, map[string]string{
				"error": "Too many requests",
			})
			return
		}
		c.Next(ctx)
	}
}

// AccessLog 访问日志，经 hlog 输出
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		path := string(c.Path())
		if strings.HasPrefix(path, "/metrics") {
			return
		}
		hlog.CtxInfof(ctx, "%s %s %d %s ip=%s request_id=%s",
			c.Method(), path, c.Response.StatusCode(), time.Since(start), c.ClientIP(), c.GetString(RequestIDKey))
	}
}

// Recovery 捕获 panic，记录堆栈并按通用 500 JSON 应答
func (m *Middleware) Recovery() app.HandlerFunc {
	return recovery.Recovery(recovery.WithRecoveryHandler(
		func(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte) {
			hlog.CtxErrorf(ctx, "panic recovered: err=%v request_id=%s\n%s", err, c.GetString(RequestIDKey), stack)
			c.AbortWithStatusJSON(consts.StatusInternalServerError, map[string]string{"error": InternalErrorMessage})
		}))
}
