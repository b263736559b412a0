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

package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// Store 上传文件的临时对象存储
type Store interface {
	// Put 写入对象，返回写入的字节数
	Put(ctx context.Context, path string, data io.Reader, metadata map[string]string) (int64, error)
	// Get 读取对象
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete 删除对象，不存在时返回 ErrNotFound
	Delete(ctx context.Context, path string) error
	// DeletePrefix 删除前缀下的全部对象，返回删除数量
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// List 列出对象
	List(ctx context.Context, prefix string) ([]*ObjectInfo, error)
	// Close 关闭存储
	Close() error
}

// ObjectInfo 对象信息
type ObjectInfo struct {
	Path      string            `json:"path"`
	Size      int64             `json:"size"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt int64             `json:"created_at"`
}
