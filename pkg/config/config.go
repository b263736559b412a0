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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigPath 默认配置文件路径，可被 TESTGEN_CONFIG 覆盖
const DefaultConfigPath = "configs/api.yaml"

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Model      ModelConfig      `mapstructure:"model"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	// Timeout 单个请求的整体处理上限，如 "2m"
	Timeout            string           `mapstructure:"timeout"`
	MaxRequestBodySize int              `mapstructure:"max_request_body_size"`
	CORS               CORSConfig       `mapstructure:"cors"`
	Middleware         MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool   `mapstructure:"auth"`
	JWTKey        string `mapstructure:"jwt_key"`
	JWTTimeout    string `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string `mapstructure:"jwt_max_refresh"` // 如 "1h"
	RateLimit     bool   `mapstructure:"rate_limit"`
	RateLimitRPS  int    `mapstructure:"rate_limit_rps"`
}

// ModelConfig 推理后端配置
type ModelConfig struct {
	// APIKey 两个后端共用的 bearer 凭证；端点级 api_key 优先
	APIKey     string         `mapstructure:"api_key"`
	Caption    EndpointConfig `mapstructure:"caption"`
	Generation EndpointConfig `mapstructure:"generation"`
}

// EndpointConfig 单个推理端点配置
type EndpointConfig struct {
	Provider   string               `mapstructure:"provider"` // huggingface | openai | claude
	BaseURL    string               `mapstructure:"base_url"`
	Model      string               `mapstructure:"model"`
	APIKey     string               `mapstructure:"api_key"`
	Timeout    string               `mapstructure:"timeout"`
	Parameters GenerationParameters `mapstructure:"parameters"`
}

// GenerationParameters 文本生成参数，零值表示不下发
type GenerationParameters struct {
	MaxNewTokens   int     `mapstructure:"max_new_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	ReturnFullText *bool   `mapstructure:"return_full_text"`
}

// UploadConfig 上传文件约束
type UploadConfig struct {
	MaxFiles     int      `mapstructure:"max_files"`
	MaxFileSize  int64    `mapstructure:"max_file_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
	// KeepFiles 为 true 时请求结束后不删除临时文件（仅调试用）
	KeepFiles bool `mapstructure:"keep_files"`
}

// PromptConfig Prompt 组装约束，0 表示不限制
type PromptConfig struct {
	MaxCaptionLength int `mapstructure:"max_caption_length"`
	MaxContextLength int `mapstructure:"max_context_length"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Upload UploadStoreConfig `mapstructure:"upload"`
	Cache  CacheConfig       `mapstructure:"cache"`
	Audit  AuditConfig       `mapstructure:"audit"`
}

// UploadStoreConfig 临时上传存储配置
type UploadStoreConfig struct {
	Type string `mapstructure:"type"` // file | memory
	Dir  string `mapstructure:"dir"`
}

// CacheConfig caption 缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // none | memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"`
}

// AuditConfig 请求审计存储配置
type AuditConfig struct {
	Type string `mapstructure:"type"` // none | memory | postgres
	DSN  string `mapstructure:"dsn"`
}

// SecretsConfig 凭证来源配置
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | vault
	Key      string      `mapstructure:"key"`      // 凭证名，如 HUGGINGFACE_API_KEY
	Vault    VaultConfig `mapstructure:"vault"`
	// SecretsPath provider=k8s 时挂载 secret 的目录
	SecretsPath string `mapstructure:"secrets_path"`
}

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
	// Protocol OTLP 导出协议：grpc（默认）| http
	Protocol string `mapstructure:"protocol"`
}

// RateLimitsConfig 推理后端出站限流
type RateLimitsConfig struct {
	Caption    LimitConfig `mapstructure:"caption"`
	Generation LimitConfig `mapstructure:"generation"`
}

// LimitConfig 单个后端的限流配置，0 表示不限制
type LimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.timeout", "2m")
	v.SetDefault("api.max_request_body_size", 0)
	v.SetDefault("api.cors.enable", true)
	v.SetDefault("api.cors.allow_origins", []string{"*"})
	v.SetDefault("api.middleware.rate_limit_rps", 10)
	v.SetDefault("api.middleware.jwt_timeout", "1h")
	v.SetDefault("api.middleware.jwt_max_refresh", "1h")

	v.SetDefault("model.api_key", "${HUGGINGFACE_API_KEY}")
	v.SetDefault("model.caption.provider", "huggingface")
	v.SetDefault("model.caption.base_url", "https://api-inference.huggingface.co")
	v.SetDefault("model.caption.model", "Salesforce/blip-image-captioning-large")
	v.SetDefault("model.caption.timeout", "30s")
	v.SetDefault("model.generation.provider", "huggingface")
	v.SetDefault("model.generation.base_url", "https://api-inference.huggingface.co")
	v.SetDefault("model.generation.model", "openai-community/gpt2")
	v.SetDefault("model.generation.timeout", "60s")

	v.SetDefault("upload.max_files", 10)
	v.SetDefault("upload.max_file_size", 10<<20)
	v.SetDefault("upload.allowed_types", []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp"})

	v.SetDefault("storage.upload.type", "file")
	v.SetDefault("storage.upload.dir", "uploads")
	v.SetDefault("storage.cache.type", "none")
	v.SetDefault("storage.cache.ttl", "24h")
	v.SetDefault("storage.audit.type", "none")

	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.key", "HUGGINGFACE_API_KEY")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("monitoring.prometheus.enable", true)
	v.SetDefault("monitoring.prometheus.path", "/metrics")
	v.SetDefault("monitoring.tracing.service_name", "testgen-api")
	v.SetDefault("monitoring.tracing.protocol", "grpc")
}

// LoadConfig 加载配置文件；configPath 为空时只使用默认值与环境变量
func LoadConfig(configPath string) (*Config, error) {
	// 与 dotenv 行为一致：.env 不存在不算错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[config] 读取 .env 失败: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadAPIConfig 加载 API 配置（TESTGEN_CONFIG 或 configs/api.yaml；默认路径缺失时退化为默认值）
func LoadAPIConfig() (*Config, error) {
	path := os.Getenv("TESTGEN_CONFIG")
	if path == "" {
		path = DefaultConfigPath
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			log.Printf("[config] 未找到 %s，使用默认配置", path)
			path = ""
		}
	}
	return LoadConfig(path)
}

// replaceEnvVars 展开 ${VAR} 形式的占位符
func replaceEnvVars(config *Config) {
	config.Model.APIKey = expandEnv(config.Model.APIKey)
	config.Model.Caption.APIKey = expandEnv(config.Model.Caption.APIKey)
	config.Model.Generation.APIKey = expandEnv(config.Model.Generation.APIKey)
	config.API.Middleware.JWTKey = expandEnv(config.API.Middleware.JWTKey)
	config.Storage.Cache.Password = expandEnv(config.Storage.Cache.Password)
	config.Storage.Audit.DSN = expandEnv(config.Storage.Audit.DSN)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
}

func expandEnv(s string) string {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(s, "}"), "${")
	envVar = strings.TrimPrefix(envVar, "$")
	return os.Getenv(envVar)
}

// Validate 校验启动所需的配置项
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port 无效: %d", c.API.Port)
	}
	for name, ep := range map[string]EndpointConfig{"caption": c.Model.Caption, "generation": c.Model.Generation} {
		if ep.BaseURL == "" {
			return fmt.Errorf("model.%s.base_url 未配置", name)
		}
		if ep.Model == "" {
			return fmt.Errorf("model.%s.model 未配置", name)
		}
	}
	if c.Model.Caption.Provider != "" && c.Model.Caption.Provider != "huggingface" {
		return fmt.Errorf("不支持的 caption provider: %s", c.Model.Caption.Provider)
	}
	switch c.Model.Generation.Provider {
	case "", "huggingface", "openai", "claude":
	default:
		return fmt.Errorf("不支持的 generation provider: %s", c.Model.Generation.Provider)
	}
	if c.Upload.MaxFiles < 0 || c.Upload.MaxFileSize < 0 {
		return fmt.Errorf("upload 限制不能为负数")
	}
	if c.Prompt.MaxCaptionLength < 0 || c.Prompt.MaxContextLength < 0 {
		return fmt.Errorf("prompt 长度限制不能为负数")
	}
	return nil
}

// multipart 编码与 context 字段的余量
const requestBodyHeadroom = 1 << 20

// fallbackRequestBodySize 上传不限大小时的请求体上限
const fallbackRequestBodySize = 64 << 20

// RequestBodyLimit 请求体上限：不低于 max_files*max_file_size 加余量，
// 保证符合上传策略的请求能到达 handler，超限由 handler 返回 400
func (c *Config) RequestBodyLimit() int {
	configured := c.API.MaxRequestBodySize
	if c.Upload.MaxFiles <= 0 || c.Upload.MaxFileSize <= 0 {
		if configured > 0 {
			return configured
		}
		return fallbackRequestBodySize
	}
	derived := int64(c.Upload.MaxFiles)*c.Upload.MaxFileSize + requestBodyHeadroom
	if int64(configured) > derived {
		return configured
	}
	return int(derived)
}

// APIKeyFor 返回端点使用的凭证：端点级优先，否则共用 model.api_key
func (c *Config) APIKeyFor(ep EndpointConfig) string {
	if ep.APIKey != "" {
		return ep.APIKey
	}
	return c.Model.APIKey
}

// ParseDuration 解析时长字符串，无效或空时返回 defaultVal
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
