package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"resume-intel-go/internal/config"
	"resume-intel-go/internal/processor"
	"resume-intel-go/internal/storage"
	"resume-intel-go/internal/tracing"
	"resume-intel-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ResumeService 处理器依赖的业务能力，由 processor.ResumeService 实现
type ResumeService interface {
	AnalyzeUpload(ctx context.Context, data []byte, mimeType string, jobID string) (*processor.AnalyzeResponse, error)
	SubmitResume(ctx context.Context, req processor.SubmitRequest) (*processor.SubmitResult, error)
	ProcessAnalysisMessage(ctx context.Context, msg storage.ResumeUploadMessage) error
	GetAnalysis(ctx context.Context, submissionUUID string) (*processor.StoredAnalysis, error)
	ScoreSubmission(ctx context.Context, submissionUUID, jobID string) (types.ATSScoreResult, error)
	SaveJob(ctx context.Context, jobID string, job types.JobRequirement) (string, error)
	GetJob(ctx context.Context, jobID string) (types.JobRequirement, error)
	ListJobScores(ctx context.Context, jobID string, cursor, size int) (*processor.JobScorePage, error)
}

var _ ResumeService = (*processor.ResumeService)(nil)

// HealthChecker 返回各组件的健康状态，值为 "ok" 或错误信息
type HealthChecker interface {
	Ping(ctx context.Context) map[string]string
}

// MessageConsumer 队列消费能力，由 storage.RabbitMQ 实现
type MessageConsumer interface {
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler func([]byte) bool) (<-chan struct{}, error)
}

var _ MessageConsumer = (*storage.RabbitMQ)(nil)

// ResumeHandler 简历相关HTTP接口与分析队列消费者
type ResumeHandler struct {
	cfg            *config.Config
	service        ResumeService
	health         HealthChecker
	consumer       MessageConsumer
	validate       *validator.Validate
	logger         zerolog.Logger
	maxUploadBytes int64
	requestTimeout time.Duration
}

// HandlerOption ResumeHandler 的可选依赖
type HandlerOption func(*ResumeHandler)

// WithHealthChecker 设置健康检查依赖
func WithHealthChecker(hc HealthChecker) HandlerOption {
	return func(h *ResumeHandler) { h.health = hc }
}

// WithMessageConsumer 设置分析队列的消费者
func WithMessageConsumer(mc MessageConsumer) HandlerOption {
	return func(h *ResumeHandler) { h.consumer = mc }
}

// WithHandlerLogger 设置日志记录器
func WithHandlerLogger(logger zerolog.Logger) HandlerOption {
	return func(h *ResumeHandler) { h.logger = logger }
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(cfg *config.Config, service ResumeService, opts ...HandlerOption) *ResumeHandler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h := &ResumeHandler{
		cfg:            cfg,
		service:        service,
		validate:       validator.New(),
		logger:         zerolog.Nop(),
		maxUploadBytes: int64(cfg.Server.MaxUploadSizeMB) << 20,
		requestTimeout: config.GetDuration(cfg.Server.RequestTimeout, 60*time.Second),
	}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = 10 << 20
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleAnalyze 同步分析上传的文件，表单带 job_id 时同时评分
func (h *ResumeHandler) HandleAnalyze(ctx context.Context, c *app.RequestContext) {
	data, mimeType, _, ok := h.readUpload(ctx, c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.requestTimeout)
	defer cancel()

	resp, err := h.service.AnalyzeUpload(ctx, data, mimeType, strings.TrimSpace(c.PostForm("job_id")))
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}

// HandleUpload 异步上传：文件入库后投递分析消息，立即返回提交UUID
func (h *ResumeHandler) HandleUpload(ctx context.Context, c *app.RequestContext) {
	data, mimeType, filename, ok := h.readUpload(ctx, c)
	if !ok {
		return
	}

	sourceChannel := c.PostForm("source_channel")
	if sourceChannel == "" {
		sourceChannel = "web_upload"
	}

	res, err := h.service.SubmitResume(ctx, processor.SubmitRequest{
		Data:             data,
		OriginalFilename: filename,
		MimeType:         mimeType,
		TargetJobID:      strings.TrimSpace(c.PostForm("target_job_id")),
		SourceChannel:    sourceChannel,
	})
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusAccepted, UploadResponse{SubmissionUUID: res.SubmissionUUID, Status: res.Status})
}

// HandleGetAnalysis 查询提交的处理状态与分析结果
func (h *ResumeHandler) HandleGetAnalysis(ctx context.Context, c *app.RequestContext) {
	submissionUUID := c.Param("submission_uuid")
	result, err := h.service.GetAnalysis(ctx, submissionUUID)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, result)
}

// HandleScore 用指定岗位为已分析的简历评分
func (h *ResumeHandler) HandleScore(ctx context.Context, c *app.RequestContext) {
	var req ScoreRequest
	if body := c.Request.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(consts.StatusBadRequest, ErrorResponse{Error: "请求体不是合法的JSON"})
			return
		}
	}
	if req.JobID == "" {
		req.JobID = c.Query("job_id")
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(consts.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("参数校验失败: %v", err)})
		return
	}

	submissionUUID := c.Param("submission_uuid")
	result, err := h.service.ScoreSubmission(ctx, submissionUUID, req.JobID)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, ScoreResponse{SubmissionUUID: submissionUUID, JobID: req.JobID, ATSScoreResult: result})
}

// HandleHealth 健康检查，任一组件异常时返回503
func (h *ResumeHandler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	if h.health == nil {
		c.JSON(consts.StatusOK, utils.H{"status": "ok"})
		return
	}
	components := h.health.Ping(ctx)
	for _, state := range components {
		if state != "ok" {
			c.JSON(consts.StatusServiceUnavailable, utils.H{"status": "degraded", "components": components})
			return
		}
	}
	c.JSON(consts.StatusOK, utils.H{"status": "ok", "components": components})
}

// readUpload 读取multipart中的 file 字段，失败时已写入响应
func (h *ResumeHandler) readUpload(ctx context.Context, c *app.RequestContext) ([]byte, string, string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(consts.StatusBadRequest, ErrorResponse{Error: "文件未找到"})
		return nil, "", "", false
	}
	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(consts.StatusRequestEntityTooLarge, ErrorResponse{Error: fmt.Sprintf("文件超过大小限制 %d 字节", h.maxUploadBytes)})
		return nil, "", "", false
	}

	data, err := readFileHeader(fileHeader)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", tracing.SafeFilename(fileHeader.Filename)).Msg("读取上传文件失败")
		c.JSON(consts.StatusInternalServerError, ErrorResponse{Error: "读取上传文件失败"})
		return nil, "", "", false
	}
	if len(data) == 0 {
		c.JSON(consts.StatusBadRequest, ErrorResponse{Error: "文件内容为空"})
		return nil, "", "", false
	}
	return data, DetectMimeType(fileHeader.Header.Get("Content-Type"), fileHeader.Filename), fileHeader.Filename, true
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// DetectMimeType 优先使用请求声明的类型，缺失或为通用二进制类型时按扩展名推断
func DetectMimeType(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.HasPrefix(strings.ToLower(declared), "application/octet-stream") {
		return declared
	}
	return storage.ContentTypeForExt(filepath.Ext(filename))
}

// writeError 把服务层错误映射为HTTP状态码
func (h *ResumeHandler) writeError(ctx context.Context, c *app.RequestContext, err error) {
	status := StatusForError(err)
	tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)

	resp := ErrorResponse{Error: err.Error()}
	var dup *processor.DuplicateFileError
	if errors.As(err, &dup) {
		resp.ExistingSubmissionUUID = dup.ExistingSubmissionUUID
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", string(c.Path())).Int("status", status).Msg("请求处理失败")
		if status == http.StatusInternalServerError {
			resp.Error = "内部错误"
		}
	} else {
		h.logger.Debug().Err(err).Str("path", string(c.Path())).Int("status", status).Msg("请求被拒绝")
	}
	c.JSON(status, resp)
}

// StatusForError 错误到HTTP状态码的映射
func StatusForError(err error) int {
	switch {
	case errors.Is(err, processor.ErrInvalidJobRequirement):
		return http.StatusBadRequest
	case errors.Is(err, processor.ErrSubmissionNotFound),
		errors.Is(err, processor.ErrAnalysisNotFound),
		errors.Is(err, processor.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, processor.ErrDuplicateFile):
		return http.StatusConflict
	case errors.Is(err, processor.ErrStorageNotInit):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
