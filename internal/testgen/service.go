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

package testgen

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"testgen-service/pkg/log"
	"testgen-service/pkg/tracing"
	"testgen-service/pkg/utils"
)

// Config 服务配置，零值表示不限制
type Config struct {
	CaptionTimeout    time.Duration
	GenerationTimeout time.Duration
	MaxCaptionLength  int // 单条 caption 的最大字符数
	MaxContextLength  int
}

// Service 截图 -> 测试用例的生成流程
type Service struct {
	captioner Captioner
	generator Generator
	config    Config
	logger    *log.Logger
}

// NewService 创建服务；logger 为 nil 时丢弃日志
func NewService(captioner Captioner, generator Generator, config Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		captioner: captioner,
		generator: generator,
		config:    config,
		logger:    logger,
	}
}

// Generate 并发获取所有图片的描述，全部成功后拼接 prompt 并调用生成模型。
// 任一图片失败即取消其余调用并返回 *CaptionError，不返回部分结果。
func (s *Service) Generate(ctx context.Context, req Request) (result *Result, err error) {
	if len(req.Images) == 0 {
		return nil, NewValidationError("images", "No images uploaded")
	}

	ctx, span := tracing.StartPipelineSpan(ctx, len(req.Images))
	defer func() { tracing.End(span, err) }()

	captions, err := s.captionAll(ctx, req.Images)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("captions", "count", len(captions), "captions", captions)

	prompt := BuildPrompt(captions, s.boundContext(req.Context))

	genCtx, cancel := withTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()
	text, err := s.generator.Generate(genCtx, prompt)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	return &Result{
		TestInstructions: text,
		Captions:         captions,
		Prompt:           prompt,
	}, nil
}

func (s *Service) captionAll(ctx context.Context, images []Image) ([]string, error) {
	captions := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			callCtx, cancel := withTimeout(gctx, s.config.CaptionTimeout)
			defer cancel()
			caption, err := s.captioner.Caption(callCtx, img.Data)
			if err != nil {
				return &CaptionError{Index: i, Name: img.Name, Err: err}
			}
			captions[i] = s.truncate(caption, s.config.MaxCaptionLength, "caption")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return captions, nil
}

func (s *Service) boundContext(text string) string {
	return s.truncate(text, s.config.MaxContextLength, "context")
}

func (s *Service) truncate(text string, max int, field string) string {
	out, truncated := utils.TruncateRunes(text, max)
	if truncated {
		s.logger.Warn("输入过长，已截断", "field", field, "max", max)
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
