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
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/jwt"

	"testgen-service/internal/api/http/middleware"
)

// Options 路由可选项
type Options struct {
	CORSEnable         bool
	CORSOrigins        []string
	RateLimitRPS       int    // 0 表示不限流
	MetricsPath        string // 空表示不暴露指标
	MaxRequestBodySize int
}

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	jwt        *jwt.HertzJWTMiddleware
	audit      *middleware.AuditMiddleware
	global     []app.HandlerFunc
	options    Options
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware, options Options) *Router {
	return &Router{
		handler:    handler,
		middleware: mw,
		options:    options,
	}
}

// SetJWT 启用生成接口的 JWT 认证
func (r *Router) SetJWT(jwtAuth *jwt.HertzJWTMiddleware) {
	r.jwt = jwtAuth
}

// SetAudit 启用生成接口的请求审计
func (r *Router) SetAudit(audit *middleware.AuditMiddleware) {
	r.audit = audit
}

// Use 追加全局中间件，须在 Build 之前调用
func (r *Router) Use(handlers ...app.HandlerFunc) {
	r.global = append(r.global, handlers...)
}

// Build 创建 Hertz 实例并注册路由，addr 如 ":5000"
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	serverOpts := []config.Option{server.WithHostPorts(addr)}
	if r.options.MaxRequestBodySize > 0 {
		serverOpts = append(serverOpts, server.WithMaxRequestBodySize(r.options.MaxRequestBodySize))
	}
	h := server.New(append(serverOpts, opts...)...)

	h.Use(r.middleware.Recovery())
	if len(r.global) > 0 {
		h.Use(r.global...)
	}
	h.Use(r.middleware.RequestID(), r.middleware.AccessLog())
	if r.options.CORSEnable {
		h.Use(r.middleware.CORS(r.options.CORSOrigins))
	}

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)

	chain := []app.HandlerFunc{}
	if r.options.RateLimitRPS > 0 {
		chain = append(chain, r.middleware.RateLimit(r.options.RateLimitRPS))
	}
	if r.audit != nil {
		chain = append(chain, r.audit.AuditAccess())
	}
	if r.jwt != nil {
		chain = append(chain, r.jwt.MiddlewareFunc())
	}
	chain = append(chain, r.handler.GenerateTestInstructions)
	api.POST("/generate-test-instructions", chain...)
	// 预检请求由 CORS 中间件直接应答
	api.OPTIONS("/generate-test-instructions", func(ctx context.Context, c *app.RequestContext) {})

	if r.options.MetricsPath != "" {
		h.GET(r.options.MetricsPath, r.handler.Metrics)
	}
	return h
}
