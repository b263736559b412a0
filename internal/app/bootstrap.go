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

package app

import (
	"context"
	"errors"
	"fmt"

	"testgen-service/internal/storage/audit"
	"testgen-service/internal/storage/cache"
	"testgen-service/internal/storage/object"
	"testgen-service/pkg/config"
	"testgen-service/pkg/log"
	"testgen-service/pkg/secrets"
)

// Bootstrap 统一初始化：配置、日志、凭证与各类存储，供 api 与 cli 复用
type Bootstrap struct {
	Config  *config.Config
	Logger  *log.Logger
	Secrets secrets.Store
	Uploads object.Store
	Cache   cache.Store // 可能为 nil（未启用 caption 缓存）
	Audit   audit.Store // 可能为 nil（未启用审计）
}

// NewBootstrap 根据配置创建 Bootstrap
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
		K8s: secrets.K8sConfig{SecretsPath: cfg.Secrets.SecretsPath},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化凭证存储失败: %w", err)
	}

	uploads, err := object.NewStore(cfg.Storage.Upload)
	if err != nil {
		return nil, fmt.Errorf("初始化上传存储失败: %w", err)
	}

	captionCache, err := cache.NewCache(ctx, cfg.Storage.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化 caption 缓存失败: %w", err)
	}

	auditStore, err := audit.NewStore(ctx, cfg.Storage.Audit)
	if err != nil {
		if captionCache != nil {
			_ = captionCache.Close()
		}
		return nil, fmt.Errorf("初始化审计存储失败: %w", err)
	}

	return &Bootstrap{
		Config:  cfg,
		Logger:  logger,
		Secrets: secretStore,
		Uploads: uploads,
		Cache:   captionCache,
		Audit:   auditStore,
	}, nil
}

// ResolveAPIKey 返回端点的 bearer 凭证：配置优先，其次从凭证存储读取 secrets.key。
// 两者都没有时返回错误，服务不应在缺少凭证时启动。
func (b *Bootstrap) ResolveAPIKey(ctx context.Context, ep config.EndpointConfig) (string, error) {
	if key := b.Config.APIKeyFor(ep); key != "" {
		return key, nil
	}
	name := b.Config.Secrets.Key
	if name == "" {
		return "", fmt.Errorf("推理服务凭证未配置: 请设置 model.api_key 或 secrets.key")
	}
	key, err := b.Secrets.Get(ctx, name)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return "", fmt.Errorf("推理服务凭证 %s 未找到 (provider=%s)", name, b.Config.Secrets.Provider)
		}
		return "", fmt.Errorf("读取推理服务凭证 %s 失败: %w", name, err)
	}
	return key, nil
}

// Close 释放存储连接
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Cache != nil {
		errs = append(errs, b.Cache.Close())
	}
	if b.Audit != nil {
		errs = append(errs, b.Audit.Close())
	}
	if b.Uploads != nil {
		errs = append(errs, b.Uploads.Close())
	}
	return errors.Join(errs...)
}
