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

package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"testgen-service/internal/model/inference"
	"testgen-service/pkg/tracing"
)

const backendName = "caption"

// HuggingFaceClient Hugging Face Inference API 的 image-to-text 客户端
type HuggingFaceClient struct {
	model   string
	apiKey  string
	baseURL string
	client  *resty.Client
}

// NewHuggingFaceClient 创建 caption 客户端；timeout 约束单次调用，超时按传输错误处理
func NewHuggingFaceClient(model, apiKey, baseURL string, timeout time.Duration) (*HuggingFaceClient, error) {
	if model == "" {
		return nil, fmt.Errorf("caption model 未配置")
	}
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// 不重试：任一 caption 失败即整体失败
	client := resty.New()
	client.SetTimeout(timeout)

	return &HuggingFaceClient{
		model:   model,
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}, nil
}

// Caption 以原始字节为请求体调用模型，返回第一条结果的 generated_text
func (c *HuggingFaceClient) Caption(ctx context.Context, image []byte) (caption string, err error) {
	ctx, span := tracing.StartUpstreamSpan(ctx, backendName, c.model)
	start := time.Now()
	defer func() {
		inference.Observe(backendName, start, err)
		tracing.End(span, err)
	}()

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(image).
		Post(c.endpoint())
	if err != nil {
		return "", fmt.Errorf("调用 caption 模型 %s 失败: %w", c.model, err)
	}

	caption, err = inference.DecodeGeneratedText(response.StatusCode(), response.Body())
	if err != nil {
		return "", fmt.Errorf("caption 模型 %s: %w", c.model, err)
	}
	return caption, nil
}

// Name 返回模型名称
func (c *HuggingFaceClient) Name() string {
	return c.model
}

func (c *HuggingFaceClient) endpoint() string {
	return c.baseURL + "/models/" + c.model
}
