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

package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"testgen-service/internal/model/inference"
	"testgen-service/pkg/errors"
	"testgen-service/pkg/tracing"
)

// ClaudeClient Anthropic Messages API 客户端
type ClaudeClient struct {
	model       string
	apiKey      string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *resty.Client
}

// NewClaudeClient 创建新的 Claude 客户端；BaseURL 为空时用默认或 ANTHROPIC_BASE_URL
func NewClaudeClient(model, apiKey string, opts Options) (*ClaudeClient, error) {
	if model == "" {
		return nil, fmt.Errorf("claude model 未配置")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
		if envURL := os.Getenv("ANTHROPIC_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		// Messages API 要求 max_tokens
		maxTokens = 1024
	}

	client := resty.New()
	client.SetTimeout(opts.timeout())

	return &ClaudeClient{
		model:       model,
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		client:      client,
	}, nil
}

// Generate 生成文本，多个 text block 按顺序拼接
func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (text string, err error) {
	ctx, span := tracing.StartUpstreamSpan(ctx, backendName, c.model)
	start := time.Now()
	defer func() {
		inference.Observe(backendName, start, err)
		tracing.End(span, err)
	}()

	request := map[string]interface{}{
		"model":      c.model,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens": c.maxTokens,
	}
	if c.temperature > 0 {
		request["temperature"] = c.temperature
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetBody(request).
		SetResult(&result).
		Post(c.baseURL + "/messages")
	if err != nil {
		return "", fmt.Errorf("调用 Claude API 失败: %w", err)
	}
	if response.IsError() {
		return "", errors.Upstreamf("Claude API status %d: %s", response.StatusCode(), response.String())
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if len(result.Content) == 0 {
		return "", errors.Malformedf("Claude API 没有返回结果")
	}
	return sb.String(), nil
}

// Model 返回模型名称
func (c *ClaudeClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *ClaudeClient) Provider() string {
	return "claude"
}
