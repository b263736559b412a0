// Copyright 2026 fanjia1024
// Kubernetes mounted secret store

package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// K8sConfig 挂载 secret 的目录（每个 key 一个文件）
type K8sConfig struct {
	SecretsPath string
}

type k8sStore struct {
	secretsPath string
}

// NewK8sStore 创建读取挂载目录的 secret store，默认 /etc/secrets
func NewK8sStore(config K8sConfig) Store {
	path := config.SecretsPath
	if path == "" {
		path = "/etc/secrets"
	}
	return &k8sStore{secretsPath: path}
}

func (k *k8sStore) Get(ctx context.Context, key string) (string, error) {
	if strings.Contains(key, "..") || strings.ContainsRune(key, filepath.Separator) {
		return "", fmt.Errorf("invalid secret key: %s", key)
	}
	data, err := os.ReadFile(filepath.Join(k.secretsPath, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to read mounted secret: %w", err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, key)
	}
	return value, nil
}
