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
	"crypto/sha256"
	"encoding/hex"
	"time"

	"testgen-service/internal/storage/cache"
	"testgen-service/pkg/log"
	"testgen-service/pkg/metrics"
)

// CachedClient 按图片内容哈希缓存 caption；缓存读写失败只记录日志，不影响调用结果
type CachedClient struct {
	inner  Client
	store  cache.Store
	ttl    time.Duration
	logger *log.Logger
}

// NewCachedClient store 为 nil 时直接返回 inner
func NewCachedClient(inner Client, store cache.Store, ttl time.Duration, logger *log.Logger) Client {
	if store == nil {
		return inner
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &CachedClient{inner: inner, store: store, ttl: ttl, logger: logger}
}

// Caption 先查缓存，未命中时调用 inner 并回写
func (c *CachedClient) Caption(ctx context.Context, image []byte) (string, error) {
	key := c.key(image)
	if caption, ok, err := c.store.Get(ctx, key); err != nil {
		metrics.CaptionCacheTotal.WithLabelValues("error").Inc()
		c.logger.Warn("读取 caption 缓存失败", "error", err)
	} else if ok {
		metrics.CaptionCacheTotal.WithLabelValues("hit").Inc()
		return caption, nil
	} else {
		metrics.CaptionCacheTotal.WithLabelValues("miss").Inc()
	}

	caption, err := c.inner.Caption(ctx, image)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, key, caption, c.ttl); err != nil {
		c.logger.Warn("写入 caption 缓存失败", "error", err)
	}
	return caption, nil
}

// Name 返回模型名称
func (c *CachedClient) Name() string {
	return c.inner.Name()
}

// key 缓存键包含模型名，切换模型后不会命中旧结果
func (c *CachedClient) key(image []byte) string {
	sum := sha256.Sum256(image)
	return "testgen:caption:" + c.inner.Name() + ":" + hex.EncodeToString(sum[:])
}
