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

package inference

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"testgen-service/pkg/metrics"
)

// LimitConfig 单个推理后端的出站限流配置
type LimitConfig struct {
	RequestsPerMinute float64 // 每分钟请求数，<=0 不限制
	MaxConcurrent     int     // 最大并发请求数，<=0 不限制
}

// Limiter 推理后端维度的限流器：RPS + 并发控制
type Limiter struct {
	backend        string
	requestLimiter *rate.Limiter
	semaphore      chan struct{}
}

// NewLimiter 创建限流器；两项均未配置时返回 nil，调用方按不限流处理
func NewLimiter(backend string, config LimitConfig) *Limiter {
	if config.RequestsPerMinute <= 0 && config.MaxConcurrent <= 0 {
		return nil
	}
	l := &Limiter{backend: backend}
	if config.RequestsPerMinute > 0 {
		rps := config.RequestsPerMinute / 60.0
		burst := int(config.RequestsPerMinute / 60 * 2) // burst = 2 秒的配额
		if burst < 1 {
			burst = 1
		}
		l.requestLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	if config.MaxConcurrent > 0 {
		l.semaphore = make(chan struct{}, config.MaxConcurrent)
	}
	return l
}

// Acquire 阻塞直到可以发起调用，返回的 release 必须在调用结束后执行。
// l 为 nil 时立即返回。
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	noop := func() {}
	if l == nil {
		return noop, nil
	}
	if err := ctx.Err(); err != nil {
		return noop, err
	}
	start := time.Now()
	defer func() {
		if waited := time.Since(start); waited > 100*time.Millisecond {
			metrics.RateLimitWaitSeconds.WithLabelValues(l.backend).Observe(waited.Seconds())
		}
	}()

	if l.requestLimiter != nil {
		if err := l.requestLimiter.Wait(ctx); err != nil {
			return noop, fmt.Errorf("%s rate limit wait failed: %w", l.backend, err)
		}
	}
	if l.semaphore == nil {
		return noop, nil
	}
	select {
	case l.semaphore <- struct{}{}:
		return func() { <-l.semaphore }, nil
	case <-ctx.Done():
		return noop, ctx.Err()
	}
}

// Observe 记录一次推理后端调用的耗时与结果
func Observe(backend string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.UpstreamDuration.WithLabelValues(backend, outcome).Observe(time.Since(start).Seconds())
}
