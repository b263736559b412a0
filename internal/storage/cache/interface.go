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

package cache

import (
	"context"
	"time"
)

// Store caption 缓存接口，值为字符串
type Store interface {
	// Get 获取缓存；未命中或已过期时 ok=false 且 err=nil
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set 设置缓存，ttl<=0 表示不过期
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Close 关闭缓存连接
	Close() error
}
