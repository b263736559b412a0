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

import "context"

// Image 一张已从临时存储读出的上传图片
type Image struct {
	Name string
	Size int64
	Data []byte
}

// Request 一次生成请求
type Request struct {
	Images  []Image
	Context string
}

// Result 生成结果；Captions 与输入图片顺序一致
type Result struct {
	TestInstructions string
	Captions         []string
	Prompt           string
}

// Captioner 图片描述后端
type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// Generator 文本生成后端
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
