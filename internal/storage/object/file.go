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
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	pkgerrors "testgen-service/pkg/errors"
)

// NewRequestPrefix 为一次请求生成唯一的对象前缀，形如 "<uuid>/"
func NewRequestPrefix() string {
	return uuid.NewString() + "/"
}

func validatePath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return fmt.Errorf("%w: object path %q", pkgerrors.ErrInvalidArg, p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return fmt.Errorf("%w: object path %q", pkgerrors.ErrInvalidArg, p)
		}
	}
	return nil
}

// FileStore 本地目录对象存储，对象路径映射为 root 下的相对路径
type FileStore struct {
	root string
}

// NewFileStore 创建本地目录存储，目录不存在时自动创建
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) fullPath(p string) (string, error) {
	if err := validatePath(p); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(path.Clean(p))), nil
}

// Put 写入文件
func (s *FileStore) Put(ctx context.Context, p string, data io.Reader, metadata map[string]string) (int64, error) {
	full, err := s.fullPath(p)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create object dir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to create object: %w", err)
	}
	n, err := io.Copy(f, data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return n, fmt.Errorf("failed to write object: %w", err)
	}
	return n, nil
}

// Get 打开文件
func (s *FileStore) Get(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := s.fullPath(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, err
	}
	return f, nil
}

// Delete 删除文件
func (s *FileStore) Delete(ctx context.Context, p string) error {
	full, err := s.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return err
	}
	return nil
}

// DeletePrefix 删除前缀下的文件；前缀以 "/" 结尾时直接删除整个目录
func (s *FileStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := validatePath(prefix); err != nil {
		return 0, err
	}
	if strings.HasSuffix(prefix, "/") {
		dir, err := s.fullPath(prefix)
		if err != nil {
			return 0, err
		}
		deleted := 0
		_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() {
				deleted++
			}
			return nil
		})
		if err := os.RemoveAll(dir); err != nil {
			return 0, fmt.Errorf("failed to delete objects: %w", err)
		}
		return deleted, nil
	}

	infos, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, info := range infos {
		if err := s.Delete(ctx, info.Path); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// List 列出前缀下的文件
func (s *FileStore) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	var results []*ObjectInfo
	err := filepath.WalkDir(s.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			// 并发请求可能已删除其目录
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		results = append(results, &ObjectInfo{
			Path:      rel,
			Size:      info.Size(),
			CreatedAt: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return results, nil
}

// Close 关闭存储
func (s *FileStore) Close() error {
	return nil
}
