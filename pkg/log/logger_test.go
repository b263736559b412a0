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

package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)
	l.Debug("hidden")
	l.Info("captions fetched", "count", 2)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"captions fetched"`)
	assert.Contains(t, out, `"count":2`)
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	l, err := NewLogger(&Config{Level: "debug", Format: "text", File: path})
	require.NoError(t, err)
	l.Debug("to file")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Equal(t, slog.LevelDebug, l.LevelVar().Level())
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)
	child := l.With("request_id", "req-1")
	child.Info("staged")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Same(t, l.LevelVar(), child.LevelVar())

	l.LevelVar().Set(slog.LevelError)
	child.Info("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}
