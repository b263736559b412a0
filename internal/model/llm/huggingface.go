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
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"testgen-service/internal/model/inference"
	"testgen-service/pkg/tracing"
)

// HuggingFaceClient Hugging Face Inference API 的 text-generation 客户端
type HuggingFaceClient struct {
	model   string
	apiKey  string
	baseURL string
	params  *hfParameters
	client  *resty.Client
}

type hfRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters *hfParameters `json:"parameters,omitempty"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	ReturnFullText *bool   `json:"return_full_text,omitempty"`
}

// NewHuggingFaceClient 创建 text-generation 客户端
func NewHuggingFaceClient(model, apiKey string, opts Options) (*HuggingFaceClient, error) {
	if model == "" {
		return nil, fmt.Errorf("generation model 未配置")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}

	var params *hfParameters
	if opts.MaxTokens > 0 || opts.Temperature > 0 || opts.ReturnFullText != nil {
		params = &hfParameters{
			MaxNewTokens:   opts.MaxTokens,
			Temperature:    opts.Temperature,
			ReturnFullText: opts.ReturnFullText,
		}
	}

	client := resty.New()
	client.SetTimeout(opts.timeout())

	return &HuggingFaceClient{
		model:   model,
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		params:  params,
		client:  client,
	}, nil
}

// Generate 发送 {"inputs": prompt}，返回第一条结果的 generated_text
func (c *HuggingFaceClient) Generate(ctx context.Context, prompt string) (text string, err error) {
	ctx, span := tracing.StartUpstreamSpan(ctx, backendName, c.model)
	start := time.Now()
	defer func() {
		inference.Observe(backendName, start, err)
		tracing.End(span, err)
	}()

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(hfRequest{Inputs: prompt, Parameters: c.params}).
		Post(c.baseURL + "/models/" + c.model)
	if err != nil {
		return "", fmt.Errorf("调用 generation 模型 %s 失败: %w", c.model, err)
	}

	text, err = inference.DecodeGeneratedText(response.StatusCode(), response.Body())
	if err != nil {
		return "", fmt.Errorf("generation 模型 %s: %w", c.model, err)
	}
	return text, nil
}

// Model 返回模型名称
func (c *HuggingFaceClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *HuggingFaceClient) Provider() string {
	return "huggingface"
}
