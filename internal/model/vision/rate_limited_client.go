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

	"testgen-service/internal/model/inference"
)

// RateLimitedClient 包装任意 caption Client，在真实调用前后执行限流控制
type RateLimitedClient struct {
	inner   Client
	limiter *inference.Limiter
}

// NewRateLimitedClient limiter 为 nil 时直接返回 inner
func NewRateLimitedClient(inner Client, limiter *inference.Limiter) Client {
	if limiter == nil {
		return inner
	}
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// Caption 实现 Client.Caption
func (c *RateLimitedClient) Caption(ctx context.Context, image []byte) (string, error) {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return c.inner.Caption(ctx, image)
}

// Name 返回模型名称
func (c *RateLimitedClient) Name() string {
	return c.inner.Name()
}
