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
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"testgen-service/internal/storage/audit"
	"testgen-service/pkg/log"
)

// AuditMiddleware 请求审计中间件
type AuditMiddleware struct {
	auditStore audit.Store
	logger     *log.Logger
}

// NewAuditMiddleware 创建审计中间件
func NewAuditMiddleware(auditStore audit.Store, logger *log.Logger) *AuditMiddleware {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuditMiddleware{auditStore: auditStore, logger: logger}
}

// AuditAccess 记录 API 访问
func (a *AuditMiddleware) AuditAccess() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		c.Next(ctx)

		// RequestContext 会被复用，异步写入前先取出所需字段
		record := audit.Record{
			RequestID:  c.GetString(RequestIDKey),
			Method:     string(c.Method()),
			Path:       string(c.Path()),
			ClientIP:   c.ClientIP(),
			ImageCount: c.GetInt(ImageCountKey),
			StatusCode: c.Response.StatusCode(),
			DurationMS: time.Since(start).Milliseconds(),
			CreatedAt:  time.Now().UTC(),
		}
		go func() {
			writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.auditStore.Log(writeCtx, record); err != nil {
				a.logger.Warn("写入审计日志失败", "request_id", record.RequestID, "error", err)
			}
		}()
	}
}
