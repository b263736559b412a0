// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound secret 不存在
var ErrNotFound = errors.New("secret not found")

// Store 只读 Secret 来源（推理后端 bearer 凭证等）
type Store interface {
	// Get 获取 secret 值；不存在时返回包装 ErrNotFound 的错误
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string      // env | memory | vault | k8s
	Vault    VaultConfig // provider=vault 时使用
	K8s      K8sConfig   // provider=k8s 时使用
	Values   map[string]string
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(config.Values), nil
	case "vault":
		return NewVaultStore(config.Vault)
	case "k8s":
		return NewK8sStore(config.K8s), nil
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}
