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
	"errors"
	"fmt"
)

// ValidationError 请求参数不合法，对应 400
type ValidationError struct {
	Field   string
	Message string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("验证错误: %s: %s", e.Field, e.Message)
}

// NewValidationError 创建新的验证错误
func NewValidationError(field string, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// GetValidationError 获取验证错误
func GetValidationError(err error) (*ValidationError, bool) {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr, true
	}
	return nil, false
}

// CaptionError 某张图片的描述失败，整个请求随之失败
type CaptionError struct {
	Index int
	Name  string
	Err   error
}

// Error 实现 error 接口
func (e *CaptionError) Error() string {
	return fmt.Sprintf("[testgen] 图片 #%d (%s) caption 失败: %v", e.Index, e.Name, e.Err)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *CaptionError) Unwrap() error {
	return e.Err
}

// IsCaptionError 检查是否为 caption 错误
func IsCaptionError(err error) bool {
	var capErr *CaptionError
	return errors.As(err, &capErr)
}

// GenerationError 文本生成失败
type GenerationError struct {
	Err error
}

// Error 实现 error 接口
func (e *GenerationError) Error() string {
	return fmt.Sprintf("[testgen] 生成测试用例失败: %v", e.Err)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError 检查是否为生成错误
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
