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
	"fmt"
	"time"

	"testgen-service/internal/model/inference"
	"testgen-service/internal/model/llm"
	"testgen-service/internal/model/vision"
	"testgen-service/internal/testgen"
	"testgen-service/pkg/config"
)

const (
	defaultCaptionTimeout    = 30 * time.Second
	defaultGenerationTimeout = 60 * time.Second
	defaultCacheTTL          = 24 * time.Hour
)

// NewCaptionClient 根据 model.caption 创建图片描述客户端（限流 + 可选缓存）
func NewCaptionClient(ctx context.Context, b *Bootstrap) (vision.Client, error) {
	ep := b.Config.Model.Caption
	apiKey, err := b.ResolveAPIKey(ctx, ep)
	if err != nil {
		return nil, err
	}
	client, err := vision.NewHuggingFaceClient(ep.Model, apiKey, ep.BaseURL, config.ParseDuration(ep.Timeout, defaultCaptionTimeout))
	if err != nil {
		return nil, fmt.Errorf("创建 caption 客户端失败: %w", err)
	}

	limited := vision.NewRateLimitedClient(client, inference.NewLimiter("caption", limitConfig(b.Config.RateLimits.Caption)))
	// 缓存在限流之外：命中时不占用配额
	ttl := config.ParseDuration(b.Config.Storage.Cache.TTL, defaultCacheTTL)
	return vision.NewCachedClient(limited, b.Cache, ttl, b.Logger), nil
}

// NewGenerationClient 根据 model.generation 创建文本生成客户端（带限流）
func NewGenerationClient(ctx context.Context, b *Bootstrap) (llm.Client, error) {
	ep := b.Config.Model.Generation
	apiKey, err := b.ResolveAPIKey(ctx, ep)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(ep.Provider, ep.Model, apiKey, llm.Options{
		BaseURL:        ep.BaseURL,
		Timeout:        config.ParseDuration(ep.Timeout, defaultGenerationTimeout),
		MaxTokens:      ep.Parameters.MaxNewTokens,
		Temperature:    ep.Parameters.Temperature,
		ReturnFullText: ep.Parameters.ReturnFullText,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 generation 客户端失败: %w", err)
	}
	return llm.NewRateLimitedClient(client, inference.NewLimiter("generation", limitConfig(b.Config.RateLimits.Generation))), nil
}

// NewTestGenService 组装完整的生成流程
func NewTestGenService(ctx context.Context, b *Bootstrap) (*testgen.Service, error) {
	captioner, err := NewCaptionClient(ctx, b)
	if err != nil {
		return nil, err
	}
	generator, err := NewGenerationClient(ctx, b)
	if err != nil {
		return nil, err
	}
	b.Logger.Info("推理后端已配置",
		"caption_model", captioner.Name(),
		"generation_provider", generator.Provider(),
		"generation_model", generator.Model())

	return testgen.NewService(captioner, generator, testgen.Config{
		CaptionTimeout:    config.ParseDuration(b.Config.Model.Caption.Timeout, defaultCaptionTimeout),
		GenerationTimeout: config.ParseDuration(b.Config.Model.Generation.Timeout, defaultGenerationTimeout),
		MaxCaptionLength:  b.Config.Prompt.MaxCaptionLength,
		MaxContextLength:  b.Config.Prompt.MaxContextLength,
	}, b.Logger), nil
}

func limitConfig(c config.LimitConfig) inference.LimitConfig {
	return inference.LimitConfig{
		RequestsPerMinute: c.RequestsPerMinute,
		MaxConcurrent:     c.MaxConcurrent,
	}
}
