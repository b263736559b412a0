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
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// MemoryStore 内存对象存储实现
type MemoryStore struct {
	objects map[string]*object
	mu      sync.RWMutex
}

// object 内存对象实现
type object struct {
	data      []byte
	metadata  map[string]string
	createdAt int64
}

// NewMemoryStore 创建新的内存对象存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*object),
	}
}

// Put 上传对象
func (s *MemoryStore) Put(ctx context.Context, path string, data io.Reader, metadata map[string]string) (int64, error) {
	if err := validatePath(path); err != nil {
		return 0, err
	}
	// 读取在锁外完成
	buffer := &bytes.Buffer{}
	n, err := io.Copy(buffer, data)
	if err != nil {
		return n, fmt.Errorf("failed to read object data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = &object{
		data:      buffer.Bytes(),
		metadata:  metadata,
		createdAt: time.Now().Unix(),
	}
	return n, nil
}

// Get 下载对象
func (s *MemoryStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[path]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete 删除对象
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[path]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	delete(s.objects, path)
	return nil
}

// DeletePrefix 删除前缀下的全部对象
func (s *MemoryStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("prefix must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for path := range s.objects {
		if strings.HasPrefix(path, prefix) {
			delete(s.objects, path)
			deleted++
		}
	}
	return deleted, nil
}

// List 列出对象
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*ObjectInfo
	for path, obj := range s.objects {
		if strings.HasPrefix(path, prefix) {
			results = append(results, &ObjectInfo{
				Path:      path,
				Size:      int64(len(obj.data)),
				Metadata:  obj.metadata,
				CreatedAt: obj.createdAt,
			})
		}
	}
	return results, nil
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}
