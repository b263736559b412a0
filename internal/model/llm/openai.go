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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"testgen-service/internal/model/inference"
	"testgen-service/pkg/errors"
	"testgen-service/pkg/tracing"
)

// OpenAIClient OpenAI 兼容（chat/completions）客户端，prompt 作为单条 user 消息发送
type OpenAIClient struct {
	model       string
	apiKey      string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *resty.Client
}

// NewOpenAIClient 创建 OpenAI 兼容客户端；BaseURL 为空时用默认或 OPENAI_BASE_URL
func NewOpenAIClient(model, apiKey string, opts Options) (*OpenAIClient, error) {
	if model == "" {
		model = "gpt-4o-mini"
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}

	client := resty.New()
	client.SetTimeout(opts.timeout())

	return &OpenAIClient{
		model:       model,
		apiKey:      apiKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		client:      client,
	}, nil
}

// Generate 生成文本
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (text string, err error) {
	ctx, span := tracing.StartUpstreamSpan(ctx, backendName, c.model)
	start := time.Now()
	defer func() {
		inference.Observe(backendName, start, err)
		tracing.End(span, err)
	}()

	request := map[string]interface{}{
		"model":    c.model,
		"messages": []map[string]string{{"role": "user", "content": prompt}},
	}
	if c.maxTokens > 0 {
		request["max_tokens"] = c.maxTokens
	}
	if c.temperature > 0 {
		request["temperature"] = c.temperature
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(request).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("调用 OpenAI API 失败: %w", err)
	}
	if response.IsError() {
		return "", errors.Upstreamf("OpenAI API status %d: %s", response.StatusCode(), response.String())
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return "", errors.Malformedf("解析 OpenAI 响应: %v", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.Malformedf("OpenAI API 没有返回结果")
	}
	return result.Choices[0].Message.Content, nil
}

// Model 返回模型名称
func (c *OpenAIClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *OpenAIClient) Provider() string {
	return "openai"
}
