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
	"time"
)

const backendName = "generation"

// Client 文本生成客户端接口
type Client interface {
	// Generate 发送 prompt，返回模型生成的文本（不做任何后处理）
	Generate(ctx context.Context, prompt string) (string, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// Options 客户端选项，零值字段表示使用后端默认值
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	MaxTokens      int
	Temperature    float64
	ReturnFullText *bool // 仅 huggingface 使用
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 60 * time.Second
	}
	return o.Timeout
}

// NewClient 根据 provider 创建客户端：huggingface（默认）| openai | claude
func NewClient(provider, model, apiKey string, opts Options) (Client, error) {
	switch provider {
	case "", "huggingface":
		return NewHuggingFaceClient(model, apiKey, opts)
	case "openai":
		return NewOpenAIClient(model, apiKey, opts)
	case "claude":
		return NewClaudeClient(model, apiKey, opts)
	default:
		return nil, fmt.Errorf("不支持的 generation provider: %s", provider)
	}
}
