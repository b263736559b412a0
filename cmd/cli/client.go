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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("TESTGEN_API_URL"); u != "" {
		return u
	}
	return "http://localhost:5000"
}

func newClient(baseURL string) *resty.Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(3 * time.Minute)
	if token := os.Getenv("TESTGEN_API_TOKEN"); token != "" {
		c.SetAuthToken(token)
	}
	return c
}

type apiError struct {
	Error string `json:"error"`
}

func getHealth(baseURL string) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient(baseURL).R().
		SetResult(&out).
		Get("/api/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return out, nil
}

// generateTestInstructions 以 multipart 上传截图，按参数顺序提交
func generateTestInstructions(baseURL string, imagePaths []string, contextText string) (string, error) {
	req := newClient(baseURL).R()
	for _, p := range imagePaths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("打开图片失败: %w", err)
		}
		defer f.Close()
		req.SetMultipartFields(&resty.MultipartField{
			Param:    "images",
			FileName: filepath.Base(p),
			Reader:   f,
		})
	}
	if contextText != "" {
		req.SetMultipartFormData(map[string]string{"context": contextText})
	}

	var out struct {
		TestInstructions string `json:"testInstructions"`
	}
	var failure apiError
	resp, err := req.
		SetResult(&out).
		SetError(&failure).
		Post("/api/generate-test-instructions")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		if failure.Error != "" {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode(), failure.Error)
		}
		return "", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.TestInstructions, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
