// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string // Vault server address (e.g., http://vault:8200)
	Token      string // Vault token
	PathPrefix string // Secret mount (e.g., "secret")
}

type vaultStore struct {
	logical    *vault.Logical
	pathPrefix string
}

// NewVaultStore 创建 Vault secret store
func NewVaultStore(config VaultConfig) (Store, error) {
	if config.Address == "" {
		config.Address = "http://localhost:8200"
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}

	prefix := "secret"
	if config.PathPrefix != "" {
		prefix = strings.Trim(config.PathPrefix, "/")
	}

	return &vaultStore{
		logical:    client.Logical(),
		pathPrefix: prefix,
	}, nil
}

// Get 先按 KV v2 路径（<mount>/data/<key>）读取，未命中再按 v1 路径读取
func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	for _, path := range []string{
		fmt.Sprintf("%s/data/%s", v.pathPrefix, key),
		fmt.Sprintf("%s/%s", v.pathPrefix, key),
	} {
		secret, err := v.logical.ReadWithContext(ctx, path)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from vault: %w", err)
		}
		if secret == nil || secret.Data == nil {
			continue
		}
		data := secret.Data
		// KV v2 把实际数据放在 data 字段
		if inner, ok := data["data"].(map[string]interface{}); ok {
			data = inner
		}
		if val := pickValue(data); val != "" {
			return val, nil
		}
	}
	return "", fmt.Errorf("%w: vault %s/%s", ErrNotFound, v.pathPrefix, key)
}

// pickValue 优先取 value 字段，否则取任意字符串字段
func pickValue(data map[string]interface{}) string {
	if s, ok := data["value"].(string); ok {
		return s
	}
	for _, val := range data {
		if s, ok := val.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
