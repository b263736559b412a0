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

package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"testgen-service/internal/api/http"
	"testgen-service/internal/api/http/middleware"
	"testgen-service/internal/app"
	pkgconfig "testgen-service/pkg/config"
	"testgen-service/pkg/tracing"
	"testgen-service/pkg/utils"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用
type App struct {
	bootstrap    *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
	tracerCfg    *hertztracing.Config
}

// NewApp 组装生成服务、处理器与路由
func NewApp(ctx context.Context, bootstrap *app.Bootstrap, version string) (*App, error) {
	cfg := bootstrap.Config

	service, err := app.NewTestGenService(ctx, bootstrap)
	if err != nil {
		return nil, err
	}

	handler := http.NewHandler(service, bootstrap.Uploads, cfg.Upload, bootstrap.Logger)
	handler.SetTimeout(pkgconfig.ParseDuration(cfg.API.Timeout, 2*time.Minute))
	handler.SetVersion(version)

	options := http.Options{
		CORSEnable:         cfg.API.CORS.Enable,
		CORSOrigins:        cfg.API.CORS.AllowOrigins,
		MaxRequestBodySize: cfg.RequestBodyLimit(),
	}
	if cfg.API.Middleware.RateLimit {
		options.RateLimitRPS = cfg.API.Middleware.RateLimitRPS
	}
	if cfg.Monitoring.Prometheus.Enable {
		options.MetricsPath = cfg.Monitoring.Prometheus.Path
		if options.MetricsPath == "" {
			options.MetricsPath = "/metrics"
		}
	}
	router := http.NewRouter(handler, middleware.NewMiddleware(), options)

	if cfg.API.Middleware.Auth {
		timeout := pkgconfig.ParseDuration(cfg.API.Middleware.JWTTimeout, time.Hour)
		maxRefresh := pkgconfig.ParseDuration(cfg.API.Middleware.JWTMaxRefresh, time.Hour)
		jwtAuth, err := middleware.NewJWTAuth([]byte(cfg.API.Middleware.JWTKey), timeout, maxRefresh)
		if err != nil {
			return nil, fmt.Errorf("JWT 初始化失败: %w", err)
		}
		router.SetJWT(jwtAuth)
		bootstrap.Logger.Info("JWT 认证已启用")
	}
	if bootstrap.Audit != nil {
		router.SetAudit(middleware.NewAuditMiddleware(bootstrap.Audit, bootstrap.Logger))
		bootstrap.Logger.Info("请求审计已启用", "type", cfg.Storage.Audit.Type)
	}

	return &App{
		bootstrap: bootstrap,
		router:    router,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":5000"
func (a *App) Run(addr string) error {
	logger := a.bootstrap.Logger
	logger.Info("API 服务启动", "addr", addr)

	// Hertz 框架日志与业务日志共用输出与级别
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(logger.Writer()),
		hertzslog.WithLevel(logger.LevelVar()),
	))

	opts, err := a.setupTracing()
	if err != nil {
		return err
	}
	if a.tracerCfg != nil {
		a.router.Use(hertztracing.ServerMiddleware(a.tracerCfg))
	}
	a.hertz = a.router.Build(addr, opts...)
	return a.hertz.Run()
}

// setupTracing 可选：启用链路追踪（OpenTelemetry），返回 Hertz server 选项
func (a *App) setupTracing() ([]config.Option, error) {
	tc := a.bootstrap.Config.Monitoring.Tracing
	if !tc.Enable {
		return nil, nil
	}
	serviceName := utils.CoalesceString(tc.ServiceName, "testgen-api")
	endpoint := utils.CoalesceString(tc.ExportEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		a.bootstrap.Logger.Warn("链路追踪已启用但未配置 export_endpoint，跳过")
		return nil, nil
	}

	switch tc.Protocol {
	case "http":
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    serviceName,
			ExportEndpoint: endpoint,
			Insecure:       tc.Insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化链路追踪失败: %w", err)
		}
		a.otelProvider = tp
	case "", "grpc":
		opts := []provider.Option{
			provider.WithServiceName(serviceName),
			provider.WithExportEndpoint(endpoint),
		}
		if tc.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
	default:
		return nil, fmt.Errorf("不支持的 tracing protocol: %s", tc.Protocol)
	}

	tracerOpt, tracerCfg := hertztracing.NewServerTracer()
	a.tracerCfg = tracerCfg
	a.bootstrap.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", endpoint, "protocol", tc.Protocol)
	return []config.Option{tracerOpt}, nil
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.hertz != nil {
		errs = append(errs, a.hertz.Shutdown(ctx))
	}
	if a.otelProvider != nil {
		errs = append(errs, a.otelProvider.Shutdown(ctx))
	}
	errs = append(errs, a.bootstrap.Close())
	return errors.Join(errs...)
}
