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

// Package inference 推理后端（Hugging Face Inference API 等）共用的响应解析与出站限流
package inference

import (
	"bytes"
	"encoding/json"

	"testgen-service/pkg/errors"
)

// maxErrorBody 错误信息中保留的响应体长度
const maxErrorBody = 512

// generatedText 推理接口单条结果
type generatedText struct {
	GeneratedText *string `json:"generated_text"`
}

// errorBody 推理接口错误响应，如 {"error":"Model is currently loading","estimated_time":20}
type errorBody struct {
	Error string `json:"error"`
}

// DecodeGeneratedText 解析 [{"generated_text": "..."}] 并返回第一条结果。
// 非 2xx 状态视为 ErrUpstream；结构不符（空数组、缺字段、非 JSON）视为 ErrMalformedResponse。
func DecodeGeneratedText(status int, body []byte) (string, error) {
	if status < 200 || status > 299 {
		return "", errors.Upstreamf("status %d: %s", status, errorMessage(body))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", errors.Malformedf("empty response body")
	}

	switch trimmed[0] {
	case '[':
		var results []generatedText
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return "", errors.Malformedf("decode result array: %v", err)
		}
		if len(results) == 0 {
			return "", errors.Malformedf("empty result array")
		}
		if results[0].GeneratedText == nil {
			return "", errors.Malformedf("first result has no generated_text")
		}
		return *results[0].GeneratedText, nil
	case '{':
		// 部分后端对单条输入直接返回对象
		var single struct {
			generatedText
			errorBody
		}
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return "", errors.Malformedf("decode result object: %v", err)
		}
		if single.Error != "" {
			return "", errors.Upstreamf("%s", single.Error)
		}
		if single.GeneratedText == nil {
			return "", errors.Malformedf("result has no generated_text")
		}
		return *single.GeneratedText, nil
	default:
		return "", errors.Malformedf("unexpected response: %s", truncate(string(trimmed)))
	}
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	return truncate(string(bytes.TrimSpace(body)))
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
