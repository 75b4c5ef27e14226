package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxRenderedImageBytes 渲染结果大小上限
const maxRenderedImageBytes = 64 << 20

// HTTPPageRenderer 调用外部渲染服务将PDF页面栅格化为PNG
// 请求: POST {ServerURL}/render?page=N&scale=S，请求体为PDF字节
type HTTPPageRenderer struct {
	ServerURL string
	Client    *http.Client
	logger    *zerolog.Logger
}

// RendererOption 渲染器配置选项
type RendererOption func(*HTTPPageRenderer)

// WithRendererTimeout 配置HTTP客户端超时
func WithRendererTimeout(timeout time.Duration) RendererOption {
	return func(r *HTTPPageRenderer) {
		r.Client.Timeout = timeout
	}
}

// WithRendererLogger 配置日志记录器
func WithRendererLogger(logger *zerolog.Logger) RendererOption {
	return func(r *HTTPPageRenderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

var _ PageRenderer = (*HTTPPageRenderer)(nil)

// NewHTTPPageRenderer 创建渲染服务客户端
func NewHTTPPageRenderer(serverURL string, options ...RendererOption) *HTTPPageRenderer {
	nop := zerolog.Nop()
	r := &HTTPPageRenderer{
		ServerURL: strings.TrimRight(serverURL, "/"),
		Client:    &http.Client{Timeout: 30 * time.Second},
		logger:    &nop,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// RenderPage 渲染指定页（从0开始）
func (r *HTTPPageRenderer) RenderPage(ctx context.Context, pdf []byte, pageIndex int, scale float64) ([]byte, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("invalid page index %d", pageIndex)
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(pageIndex))
	q.Set("scale", strconv.FormatFloat(scale, 'f', -1, 64))
	endpoint := fmt.Sprintf("%s/render?%s", r.ServerURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(pdf))
	if err != nil {
		return nil, fmt.Errorf("创建渲染请求失败: %w", err)
	}
	req.Header.Set("Content-Type", MimePDF)
	req.Header.Set("Accept", "image/png")

	startTime := time.Now()
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到渲染服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("渲染服务返回错误状态码: %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	img, err := io.ReadAll(io.LimitReader(resp.Body, maxRenderedImageBytes))
	if err != nil {
		return nil, fmt.Errorf("读取渲染结果失败: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("渲染服务返回空图像")
	}
	r.logger.Debug().
		Int("page", pageIndex).
		Float64("scale", scale).
		Int("image_bytes", len(img)).
		Dur("duration", time.Since(startTime)).
		Msg("PDF页面渲染完成")
	return img, nil
}
