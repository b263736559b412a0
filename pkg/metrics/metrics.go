package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		RequestTotal, RequestDuration, ImagesPerRequest,
		UpstreamDuration, CaptionCacheTotal, RateLimitWaitSeconds,
	)
}

// RequestTotal 生成请求总数（按结果）
var RequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_requests_total",
		Help: "生成请求总数（按结果）",
	},
	[]string{"status"}, // ok | invalid | failed
)

// RequestDuration 生成请求端到端耗时（秒）
var RequestDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "testgen_request_duration_seconds",
		Help:    "生成请求端到端耗时（秒）",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	},
)

// ImagesPerRequest 单次请求上传的图片数
var ImagesPerRequest = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "testgen_images_per_request",
		Help:    "单次请求上传的图片数",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 20},
	},
)

// UpstreamDuration 推理后端调用耗时（秒）
var UpstreamDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "testgen_upstream_duration_seconds",
		Help:    "推理后端调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"backend", "outcome"}, // backend: caption | generation; outcome: ok | error
)

// CaptionCacheTotal caption 缓存命中情况
var CaptionCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_caption_cache_total",
		Help: "caption 缓存命中情况",
	},
	[]string{"result"}, // hit | miss | error
)

// RateLimitWaitSeconds 出站限流等待时间（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "testgen_rate_limit_wait_seconds",
		Help:    "出站限流等待时间（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"backend"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// ContentType Prometheus 文本格式的 Content-Type
const ContentType = "text/plain; version=0.0.4; charset=utf-8"
