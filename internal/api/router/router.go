package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"resume-intel-go/internal/api/handler"
	"resume-intel-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// APIKeyHeader 携带API Key的请求头
const APIKeyHeader = "X-API-Key"

const healthPath = "/api/v1/health"

// NewServer 创建带 OpenTelemetry 埋点的 hertz 服务
func NewServer(cfg *config.Config, extra ...hconfig.Option) *server.Hertz {
	tracer, tracerCfg := hertztracing.NewServerTracer()

	maxBody := (cfg.Server.MaxUploadSizeMB + 1) << 20
	if maxBody <= 1<<20 {
		maxBody = 11 << 20
	}
	opts := []hconfig.Option{
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(maxBody),
		server.WithExitWaitTime(5 * time.Second),
		tracer,
	}
	opts = append(opts, extra...)

	h := server.New(opts...)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	return h
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, cfg *config.Config, logger zerolog.Logger) {
	h.Use(AccessLog(logger))

	api := h.Group("/api/v1")
	if cfg.Auth.Enabled {
		api.Use(APIKeyAuth(cfg.Auth.APIKeys))
	}

	var limited []app.HandlerFunc
	if cfg.RateLimit.Enabled {
		limited = append(limited, RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	api.POST("/resume/analyze", append(limited, resumeHandler.HandleAnalyze)...)
	api.POST("/resume/upload", append(limited, resumeHandler.HandleUpload)...)
	api.GET("/resume/:submission_uuid", resumeHandler.HandleGetAnalysis)
	api.POST("/resume/:submission_uuid/score", resumeHandler.HandleScore)

	api.POST("/jobs", resumeHandler.HandleCreateJob)
	api.GET("/jobs/:job_id", resumeHandler.HandleGetJob)
	api.GET("/jobs/:job_id/scores", resumeHandler.HandleListJobScores)

	api.GET("/health", resumeHandler.HandleHealth)
}

// APIKeyAuth 校验 X-API-Key 请求头，健康检查不需要鉴权
func APIKeyAuth(keys []string) app.HandlerFunc {
	valid := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, []byte(k))
		}
	}

	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+APIKeyHeader, ""),
		keyauth.WithFilter(func(ctx context.Context, c *app.RequestContext) bool {
			return string(c.Path()) == healthPath
		}),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			for _, k := range valid {
				if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, errors.New("invalid api key")
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, handler.ErrorResponse{Error: "未授权访问"})
		}),
	)
}

// RateLimit 令牌桶限流，超过速率返回429
func RateLimit(rps float64, burst int) app.HandlerFunc {
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(ctx context.Context, c *app.RequestContext) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, utils.H{"error": "请求过于频繁，请稍后重试"})
			return
		}
		c.Next(ctx)
	}
}

// AccessLog 记录每个请求的方法、路径、状态码与耗时
func AccessLog(logger zerolog.Logger) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		status := c.Response.StatusCode()

		event := logger.Info()
		if status >= consts.StatusInternalServerError {
			event = logger.Error()
		} else if status >= consts.StatusBadRequest {
			event = logger.Warn()
		}
		event.
			Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
