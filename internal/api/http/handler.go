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

package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gabriel-vasile/mimetype"

	"testgen-service/internal/api/http/middleware"
	"testgen-service/internal/storage/object"
	"testgen-service/internal/testgen"
	"testgen-service/pkg/config"
	"testgen-service/pkg/log"
	"testgen-service/pkg/metrics"
)

const (
	imagesField  = "images"
	contextField = "context"

	msgNoImages      = "No images uploaded"
	msgInternalError = middleware.InternalErrorMessage
)

// Generator 生成测试用例的流程
type Generator interface {
	Generate(ctx context.Context, req testgen.Request) (*testgen.Result, error)
}

// Handler HTTP 处理器
type Handler struct {
	generator Generator
	uploads   object.Store
	upload    config.UploadConfig
	timeout   time.Duration
	logger    *log.Logger
	version   string
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(generator Generator, uploads object.Store, upload config.UploadConfig, logger *log.Logger) *Handler {
	if uploads == nil {
		uploads = object.NewMemoryStore()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Handler{
		generator: generator,
		uploads:   uploads,
		upload:    upload,
		logger:    logger,
		version:   "dev",
	}
}

// SetTimeout 单个生成请求的处理上限，0 表示不限制
func (h *Handler) SetTimeout(d time.Duration) {
	h.timeout = d
}

// SetVersion 设置健康检查返回的版本号
func (h *Handler) SetVersion(v string) {
	h.version = v
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "testgen-api",
		"version":   h.version,
	})
}

// Metrics Prometheus 文本格式指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		hlog.CtxErrorf(ctx, "failed to gather metrics: %v", err)
		c.String(consts.StatusInternalServerError, err.Error())
		return
	}
	c.Data(consts.StatusOK, metrics.ContentType, buf.Bytes())
}

// GenerateTestInstructions 上传截图与上下文，返回生成的测试用例
func (h *Handler) GenerateTestInstructions(ctx context.Context, c *app.RequestContext) {
	start := time.Now()
	requestID := c.GetString(middleware.RequestIDKey)
	logger := h.logger.With("request_id", requestID)
	outcome := "failed"
	defer func() {
		metrics.RequestTotal.WithLabelValues(outcome).Inc()
		metrics.RequestDuration.Observe(time.Since(start).Seconds())
	}()

	files, contextText := h.parseForm(c, logger)
	c.Set(middleware.ImageCountKey, len(files))
	if len(files) == 0 {
		outcome = "invalid"
		c.JSON(consts.StatusBadRequest, map[string]string{"error": msgNoImages})
		return
	}
	metrics.ImagesPerRequest.Observe(float64(len(files)))

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	prefix := object.NewRequestPrefix()
	if !h.upload.KeepFiles {
		defer func() {
			// 请求 ctx 可能已取消，清理使用独立 ctx
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := h.uploads.DeletePrefix(cleanupCtx, prefix); err != nil {
				logger.Warn("清理临时上传文件失败", "prefix", prefix, "error", err)
			}
		}()
	}

	images, err := h.stageUploads(ctx, prefix, files)
	if err == nil {
		var result *testgen.Result
		result, err = h.generator.Generate(ctx, testgen.Request{Images: images, Context: contextText})
		if err == nil {
			outcome = "ok"
			logger.Info("测试用例生成完成", "images", len(images), "captions", result.Captions, "duration", time.Since(start))
			c.JSON(consts.StatusOK, map[string]string{"testInstructions": result.TestInstructions})
			return
		}
	}

	if ve, ok := testgen.GetValidationError(err); ok {
		outcome = "invalid"
		logger.Info("请求参数不合法", "field", ve.Field, "message", ve.Message)
		c.JSON(consts.StatusBadRequest, map[string]string{"error": ve.Message})
		return
	}
	logger.Error("Error processing request", "images", len(files), "error", err)
	c.JSON(consts.StatusInternalServerError, map[string]string{"error": msgInternalError})
}

// parseForm 取出 images 文件与 context 文本；非 multipart 请求视为没有图片
func (h *Handler) parseForm(c *app.RequestContext, logger *log.Logger) ([]*multipart.FileHeader, string) {
	form, err := c.MultipartForm()
	if err != nil {
		logger.Debug("解析 multipart 表单失败", "error", err)
		return nil, ""
	}
	var contextText string
	if values := form.Value[contextField]; len(values) > 0 {
		contextText = values[0]
	}
	return form.File[imagesField], contextText
}

// stageUploads 按上传顺序写入临时存储并读回，同时执行数量、大小与类型校验
func (h *Handler) stageUploads(ctx context.Context, prefix string, files []*multipart.FileHeader) ([]testgen.Image, error) {
	if h.upload.MaxFiles > 0 && len(files) > h.upload.MaxFiles {
		return nil, testgen.NewValidationError(imagesField, fmt.Sprintf("Too many images uploaded (max %d)", h.upload.MaxFiles))
	}
	images := make([]testgen.Image, 0, len(files))
	for i, fh := range files {
		img, err := h.stageUpload(ctx, prefix+strconv.Itoa(i), fh)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (h *Handler) stageUpload(ctx context.Context, key string, fh *multipart.FileHeader) (testgen.Image, error) {
	maxSize := h.upload.MaxFileSize
	tooLarge := testgen.NewValidationError(imagesField, fmt.Sprintf("File %s exceeds the maximum size of %d bytes", fh.Filename, maxSize))
	if maxSize > 0 && fh.Size > maxSize {
		return testgen.Image{}, tooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return testgen.Image{}, fmt.Errorf("打开上传文件 %s 失败: %w", fh.Filename, err)
	}
	defer f.Close()

	var src io.Reader = f
	if maxSize > 0 {
		src = io.LimitReader(f, maxSize+1)
	}
	n, err := h.uploads.Put(ctx, key, src, map[string]string{"filename": fh.Filename})
	if err != nil {
		return testgen.Image{}, fmt.Errorf("保存上传文件 %s 失败: %w", fh.Filename, err)
	}
	if maxSize > 0 && n > maxSize {
		return testgen.Image{}, tooLarge
	}

	rc, err := h.uploads.Get(ctx, key)
	if err != nil {
		return testgen.Image{}, fmt.Errorf("读取上传文件 %s 失败: %w", fh.Filename, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return testgen.Image{}, fmt.Errorf("读取上传文件 %s 失败: %w", fh.Filename, err)
	}

	if len(h.upload.AllowedTypes) > 0 {
		mt := mimetype.Detect(data)
		if !mimetype.EqualsAny(mt.String(), h.upload.AllowedTypes...) {
			return testgen.Image{}, testgen.NewValidationError(imagesField, fmt.Sprintf("Unsupported file type %s for %s", mt.String(), fh.Filename))
		}
	}

	return testgen.Image{Name: fh.Filename, Size: int64(len(data)), Data: data}, nil
}
