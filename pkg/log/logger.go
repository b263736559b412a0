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
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger 简单封装，供 internal 使用
type Logger struct {
	*slog.Logger
	out   io.Writer
	level *slog.LevelVar
}

// Config 日志配置（可与 config 包对接）
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ParseLevel 将 debug/info/warn/error 映射为 slog.Level，未知值按 info 处理
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger 根据配置创建 Logger，cfg 可为 nil 使用默认
func NewLogger(cfg *Config) (*Logger, error) {
	var out io.Writer = os.Stdout
	levelVar := &slog.LevelVar{}
	if cfg != nil {
		levelVar.Set(ParseLevel(cfg.Level))
		if cfg.File != "" {
			f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				return nil, fmt.Errorf("打开日志文件失败: %w", err)
			}
			out = f
		}
	}
	return newLogger(out, levelVar, cfg != nil && cfg.Format == "text"), nil
}

// NewWithWriter 输出到指定 writer，测试中用于断言日志内容
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	levelVar := &slog.LevelVar{}
	levelVar.Set(level)
	return newLogger(w, levelVar, false)
}

// Discard 丢弃全部输出
func Discard() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError)
}

func newLogger(out io.Writer, levelVar *slog.LevelVar, text bool) *Logger {
	opts := &slog.HandlerOptions{Level: levelVar}
	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if text {
		h = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h), out: out, level: levelVar}
}

// Writer 日志输出目标，供 Hertz hlog 复用
func (l *Logger) Writer() io.Writer {
	return l.out
}

// LevelVar 日志级别，供 Hertz hlog 复用
func (l *Logger) LevelVar() *slog.LevelVar {
	return l.level
}

// With 附加固定字段，返回的 Logger 共享输出与级别
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), out: l.out, level: l.level}
}
