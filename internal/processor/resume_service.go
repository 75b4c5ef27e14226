package processor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"resume-intel-go/internal/config"
	"resume-intel-go/internal/constants"
	"resume-intel-go/internal/logger"
	"resume-intel-go/internal/storage"
	"resume-intel-go/internal/storage/models"
	"resume-intel-go/internal/tracing"
	"resume-intel-go/internal/types"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ServiceDeps 服务层依赖，未配置的组件为nil
type ServiceDeps struct {
	Objects   ObjectStore
	Repo      ResumeRepository
	Cache     ResumeCache
	Publisher EventPublisher
}

// DepsFromStorage 从存储管理器取出可用组件，避免把nil指针装进接口
func DepsFromStorage(s *storage.Storage) ServiceDeps {
	var deps ServiceDeps
	if s == nil {
		return deps
	}
	if s.MinIO != nil {
		deps.Objects = s.MinIO
	}
	if s.MySQL != nil {
		deps.Repo = s.MySQL
	}
	if s.Redis != nil {
		deps.Cache = s.Redis
	}
	if s.RabbitMQ != nil {
		deps.Publisher = s.RabbitMQ
	}
	return deps
}

// ResumeService 围绕分析引擎的业务流程：同步分析、异步上传、队列消费、岗位与评分
type ResumeService struct {
	processor *ResumeProcessor
	deps      ServiceDeps
	cfg       *config.Config
	logger    *zerolog.Logger
	now       func() time.Time
	newUUID   func() (string, error)
}

// NewResumeService 创建服务实例
func NewResumeService(proc *ResumeProcessor, deps ServiceDeps, cfg *config.Config, log *zerolog.Logger) *ResumeService {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &ResumeService{
		processor: proc,
		deps:      deps,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		newUUID:   newUUIDv7,
	}
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// MD5Hex 计算字节的MD5十六进制串
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// AnalyzeResponse 同步分析结果
type AnalyzeResponse struct {
	Parsed     types.ParsedResume    `json:"parsed"`
	Sections   []types.Section       `json:"sections"`
	TextLength int                   `json:"textLength"`
	Score      *types.ATSScoreResult `json:"score,omitempty"`
	JobID      string                `json:"jobId,omitempty"`
	Cached     bool                  `json:"cached"`
}

// AnalyzeUpload 同步分析一份上传文件，命中文件MD5缓存时跳过提取。
// jobID 非空时同时计算评分。
func (rs *ResumeService) AnalyzeUpload(ctx context.Context, data []byte, mimeType string, jobID string) (*AnalyzeResponse, error) {
	ctx, span := tracer.Start(ctx, "service.AnalyzeUpload", trace.WithAttributes(
		attribute.String("mime_type", mimeType),
		attribute.Int("size_bytes", len(data)),
	))
	defer span.End()

	var job *types.JobRequirement
	if jobID != "" {
		j, err := rs.GetJob(ctx, jobID)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
			return nil, err
		}
		job = &j
	}

	fileMD5 := MD5Hex(data)
	resp := &AnalyzeResponse{JobID: jobID}
	var text string

	if cached := rs.lookupCachedAnalysis(ctx, fileMD5); cached != nil {
		if t, ok := rs.cachedText(ctx, cached, job != nil); ok {
			text = t
			resp.Parsed = cached.ParsedResume
			resp.Sections = nonNilSections(cached.Sections)
			resp.TextLength = cached.TextLength
			resp.Cached = true
		}
	}

	if !resp.Cached {
		result := rs.processor.Analyze(ctx, data, mimeType)
		text = result.Text
		resp.Parsed = result.Parsed
		resp.Sections = nonNilSections(result.Sections.Spans)
		resp.TextLength = len(result.Text)
		if rs.deps.Cache != nil && result.Text != "" {
			if err := rs.deps.Cache.CacheAnalysis(ctx, fileMD5, &storage.CachedAnalysis{
				ParsedResume: resp.Parsed,
				Sections:     resp.Sections,
				TextLength:   resp.TextLength,
			}); err != nil {
				rs.logger.Warn().Err(err).Str("file_md5", fileMD5).Msg("缓存分析结果失败")
			}
		}
	}

	if job != nil {
		score, err := rs.processor.Score(ctx, text, job, &resp.Parsed)
		if err != nil {
			return nil, err
		}
		resp.Score = &score
	}

	span.SetAttributes(attribute.Bool("cache.hit", resp.Cached))
	return resp, nil
}

func (rs *ResumeService) lookupCachedAnalysis(ctx context.Context, fileMD5 string) *storage.CachedAnalysis {
	if rs.deps.Cache == nil {
		return nil
	}
	cached, err := rs.deps.Cache.GetCachedAnalysis(ctx, fileMD5)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			rs.logger.Warn().Err(err).Str("file_md5", fileMD5).Msg("读取分析缓存失败")
		}
		return nil
	}
	return cached
}

// cachedText 评分需要原文，只有队列分析过的缓存能从对象存储取回
func (rs *ResumeService) cachedText(ctx context.Context, cached *storage.CachedAnalysis, needText bool) (string, bool) {
	if !needText {
		return "", true
	}
	if rs.deps.Objects == nil || cached.SubmissionUUID == "" {
		return "", false
	}
	text, err := rs.deps.Objects.GetParsedText(ctx, storage.ParsedTextObjectKey(cached.SubmissionUUID))
	if err != nil {
		rs.logger.Warn().Err(err).Str("submission_uuid", cached.SubmissionUUID).Msg("读取缓存对应的提取文本失败，重新分析")
		return "", false
	}
	return text, true
}

func nonNilSections(s []types.Section) []types.Section {
	if s == nil {
		return []types.Section{}
	}
	return s
}

// SubmitRequest 异步上传请求
type SubmitRequest struct {
	Data             []byte
	OriginalFilename string
	MimeType         string
	TargetJobID      string
	SourceChannel    string
}

// SubmitResult 异步上传结果
type SubmitResult struct {
	SubmissionUUID string `json:"submissionUuid"`
	Status         string `json:"status"`
	FileMD5        string `json:"fileMd5"`
}

// SubmitResume 异步上传：文件MD5去重、上传MinIO、写提交记录、投递分析消息。
// 任一步失败时回滚MD5登记与已上传的对象。
func (rs *ResumeService) SubmitResume(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if rs.deps.Objects == nil || rs.deps.Repo == nil || rs.deps.Publisher == nil {
		return nil, ErrStorageNotInit
	}

	ctx, span := tracer.Start(ctx, "service.SubmitResume", trace.WithAttributes(
		attribute.String("file.name", tracing.SafeFilename(req.OriginalFilename)),
		attribute.Int("file.size", len(req.Data)),
		attribute.String("messaging.event", constants.EventResumeUploaded),
	))
	defer span.End()

	submissionUUID, err := rs.newUUID()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	ctx = logger.WithSubmissionUUID(ctx, submissionUUID)
	log := logger.FromContext(ctx)
	fileMD5 := MD5Hex(req.Data)

	registered := false
	if rs.deps.Cache != nil {
		exists, existingUUID, err := rs.deps.Cache.CheckAndSetMD5(ctx, fileMD5, submissionUUID)
		if err != nil {
			// Redis不可用时不阻断上传
			log.Warn().Err(err).Msg("文件MD5去重检查失败，继续处理")
		} else if exists {
			span.SetAttributes(attribute.Bool("duplicate", true))
			return nil, &DuplicateFileError{ExistingSubmissionUUID: existingUUID}
		} else {
			registered = true
		}
	}
	rollbackMD5 := func() {
		if registered {
			if err := rs.deps.Cache.RemoveFileMD5(context.WithoutCancel(ctx), fileMD5); err != nil {
				log.Error().Err(err).Msg("回滚文件MD5失败")
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(req.OriginalFilename))
	objectKey, err := rs.deps.Objects.UploadResumeFile(ctx, submissionUUID, ext, req.Data)
	if err != nil {
		rollbackMD5()
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, NewUploadError(submissionUUID, err.Error())
	}

	now := rs.now()
	submission := &models.ResumeSubmission{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: now,
		SourceChannel:       req.SourceChannel,
		OriginalFilename:    req.OriginalFilename,
		MimeType:            req.MimeType,
		FileSize:            int64(len(req.Data)),
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5,
		ProcessingStatus:    constants.StatusPendingAnalysis,
		ParserVersion:       rs.processor.ParserVersion(),
	}
	if req.TargetJobID != "" {
		jobID := req.TargetJobID
		submission.TargetJobID = &jobID
	}
	if err := rs.deps.Repo.CreateSubmission(ctx, submission); err != nil {
		rollbackMD5()
		if delErr := rs.deps.Objects.DeleteResumeFile(context.WithoutCancel(ctx), objectKey); delErr != nil {
			log.Error().Err(delErr).Str("object", objectKey).Msg("回滚已上传文件失败")
		}
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, NewDatabaseError(submissionUUID, err.Error())
	}

	msg := storage.ResumeUploadMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: now,
		SourceChannel:       req.SourceChannel,
		TargetJobID:         req.TargetJobID,
		OriginalFilename:    req.OriginalFilename,
		MimeType:            req.MimeType,
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5,
	}
	mq := rs.cfg.RabbitMQ
	if err := rs.deps.Publisher.PublishJSON(ctx, mq.ResumeEventsExchange, mq.UploadedRoutingKey, msg, true); err != nil {
		// 记录已落库，标记失败以便人工重投
		if upErr := rs.deps.Repo.UpdateResumeProcessingStatus(context.WithoutCancel(ctx), submissionUUID, constants.StatusUploadProcessingFailed); upErr != nil {
			log.Error().Err(upErr).Msg("更新上传失败状态失败")
		}
		rollbackMD5()
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return nil, NewPublishError(submissionUUID, err.Error())
	}

	log.Info().Str("object", objectKey).Msg("简历已上传并投递分析消息")
	span.SetStatus(codes.Ok, "")
	return &SubmitResult{SubmissionUUID: submissionUUID, Status: constants.StatusPendingAnalysis, FileMD5: fileMD5}, nil
}

// ProcessAnalysisMessage 消费一条上传消息：下载、分析、保存文本与结果、更新状态、写发件箱。
// 状态不允许分析或内容重复时返回nil，基础设施错误时标记 ANALYSIS_FAILED 并返回错误。
func (rs *ResumeService) ProcessAnalysisMessage(ctx context.Context, msg storage.ResumeUploadMessage) error {
	ctx, span := tracer.Start(ctx, "service.ProcessAnalysisMessage", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("submission.uuid", msg.SubmissionUUID))

	if rs.deps.Objects == nil || rs.deps.Repo == nil {
		tracing.RecordError(span, ErrStorageNotInit, tracing.ErrorTypeInternal)
		return ErrStorageNotInit
	}

	ctx = logger.WithSubmissionUUID(ctx, msg.SubmissionUUID)
	log := logger.FromContext(ctx)

	if rs.deps.Cache != nil {
		lockKey := fmt.Sprintf(constants.KeyResumeAnalysisLock, msg.SubmissionUUID)
		lockValue, err := rs.deps.Cache.AcquireLock(ctx, lockKey, constants.AnalysisLockDuration)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("获取分析锁失败，继续处理")
		case lockValue == "":
			log.Info().Msg("该提交正在被其他消费者分析，跳过")
			span.AddEvent("skipped_by_lock")
			return nil
		default:
			defer func() {
				if _, err := rs.deps.Cache.ReleaseLock(context.WithoutCancel(ctx), lockKey, lockValue); err != nil {
					log.Warn().Err(err).Msg("释放分析锁失败")
				}
			}()
		}
	}

	submission, err := rs.deps.Repo.GetSubmission(ctx, msg.SubmissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tracing.RecordError(span, ErrSubmissionNotFound, tracing.ErrorTypeDB)
			return fmt.Errorf("%w: %s", ErrSubmissionNotFound, msg.SubmissionUUID)
		}
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return NewDatabaseError(msg.SubmissionUUID, err.Error())
	}
	if !constants.IsStatusAllowed(submission.ProcessingStatus, constants.AllowedStatusesForAnalysis) {
		log.Info().Str("status", submission.ProcessingStatus).Msg("当前状态不需要分析，跳过重复投递")
		span.AddEvent("skipped_by_status")
		return nil
	}

	if err := rs.deps.Repo.UpdateResumeProcessingStatus(ctx, msg.SubmissionUUID, constants.StatusAnalyzing); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return NewUpdateError(msg.SubmissionUUID, err.Error())
	}

	if err := rs.analyzeSubmission(ctx, msg, submission); err != nil {
		if errors.Is(err, ErrDuplicateContent) {
			return nil
		}
		rs.markFailed(ctx, msg.SubmissionUUID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (rs *ResumeService) analyzeSubmission(ctx context.Context, msg storage.ResumeUploadMessage, submission *models.ResumeSubmission) (err error) {
	log := logger.FromContext(ctx)

	objectKey := msg.OriginalFilePathOSS
	if objectKey == "" {
		objectKey = submission.OriginalFilePathOSS
	}
	data, err := rs.deps.Objects.GetResumeFile(ctx, objectKey)
	if err != nil {
		return NewDownloadError(msg.SubmissionUUID, err.Error())
	}

	mimeType := msg.MimeType
	if mimeType == "" {
		mimeType = submission.MimeType
	}
	result := rs.processor.Analyze(ctx, data, mimeType)

	updates := map[string]interface{}{
		"parser_version": rs.processor.ParserVersion(),
	}
	status := constants.StatusAnalysisEmpty

	if result.Text != "" {
		textMD5 := MD5Hex([]byte(result.Text))
		if rs.deps.Cache != nil {
			dup, checkErr := rs.deps.Cache.CheckAndAddParsedTextMD5(ctx, textMD5)
			if checkErr != nil {
				log.Warn().Err(checkErr).Msg("文本MD5去重检查失败，继续处理")
			} else if dup {
				log.Info().Str("text_md5", textMD5).Msg("文本内容重复，跳过分析")
				if err := rs.deps.Repo.UpdateResumeProcessingStatus(ctx, msg.SubmissionUUID, constants.StatusContentDuplicateSkipped); err != nil {
					return NewUpdateError(msg.SubmissionUUID, err.Error())
				}
				return ErrDuplicateContent
			} else {
				// 结果未落库前失败时撤回登记，否则重试会把自己判为重复
				defer func() {
					if err == nil {
						return
					}
					if rmErr := rs.deps.Cache.RemoveParsedTextMD5(context.WithoutCancel(ctx), textMD5); rmErr != nil {
						log.Error().Err(rmErr).Str("text_md5", textMD5).Msg("回滚文本MD5登记失败")
					}
				}()
			}
		}

		textKey, err := rs.deps.Objects.UploadParsedText(ctx, msg.SubmissionUUID, result.Text)
		if err != nil {
			return NewStoreError(msg.SubmissionUUID, err.Error())
		}
		updates["parsed_text_path_oss"] = textKey
		updates["raw_text_md5"] = textMD5
		status = constants.StatusAnalyzed
	}
	updates["processing_status"] = status

	sections := nonNilSections(result.Sections.Spans)
	row, err := models.NewResumeAnalysis(msg.SubmissionUUID, len(result.Text), sections, result.Parsed, rs.processor.ParserVersion(), constants.SourceQueue)
	if err != nil {
		return NewDatabaseError(msg.SubmissionUUID, err.Error())
	}

	event, err := rs.buildAnalyzedEvent(msg, submission, result, status)
	if err != nil {
		return NewDatabaseError(msg.SubmissionUUID, err.Error())
	}

	if err := rs.deps.Repo.SaveAnalysisWithOutbox(ctx, row, updates, event); err != nil {
		return NewDatabaseError(msg.SubmissionUUID, err.Error())
	}

	fileMD5 := msg.RawFileMD5
	if fileMD5 == "" {
		fileMD5 = submission.RawFileMD5
	}
	if rs.deps.Cache != nil && fileMD5 != "" && status == constants.StatusAnalyzed {
		if err := rs.deps.Cache.CacheAnalysis(ctx, fileMD5, &storage.CachedAnalysis{
			SubmissionUUID: msg.SubmissionUUID,
			ParsedResume:   result.Parsed,
			Sections:       sections,
			TextLength:     len(result.Text),
		}); err != nil {
			log.Warn().Err(err).Msg("缓存分析结果失败")
		}
	}

	log.Info().
		Str("status", status).
		Int("text_length", len(result.Text)).
		Int("skills", len(result.Parsed.ExtractedSkills)).
		Bool("is_fresher", result.Parsed.IsFresher).
		Msg("简历分析完成")
	return nil
}

func (rs *ResumeService) buildAnalyzedEvent(msg storage.ResumeUploadMessage, submission *models.ResumeSubmission, result *AnalysisResult, status string) (*models.OutboxMessage, error) {
	targetJobID := msg.TargetJobID
	if targetJobID == "" && submission.TargetJobID != nil {
		targetJobID = *submission.TargetJobID
	}
	payload, err := json.Marshal(storage.ResumeAnalyzedEvent{
		SubmissionUUID:  msg.SubmissionUUID,
		Status:          status,
		TargetJobID:     targetJobID,
		TextLength:      len(result.Text),
		SectionCount:    result.Sections.Len(),
		SkillsCount:     len(result.Parsed.ExtractedSkills),
		ExperienceYears: result.Parsed.ExtractedExperienceYears,
		IsFresher:       result.Parsed.IsFresher,
		ParserVersion:   rs.processor.ParserVersion(),
		AnalyzedAt:      rs.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("序列化outbox payload失败: %w", err)
	}
	return &models.OutboxMessage{
		AggregateID:      msg.SubmissionUUID,
		EventType:        constants.EventResumeAnalyzed,
		Payload:          string(payload),
		TargetExchange:   rs.cfg.RabbitMQ.ResumeEventsExchange,
		TargetRoutingKey: rs.cfg.RabbitMQ.AnalyzedRoutingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}

func (rs *ResumeService) markFailed(ctx context.Context, submissionUUID string) {
	if err := rs.deps.Repo.UpdateResumeProcessingStatus(context.WithoutCancel(ctx), submissionUUID, constants.StatusAnalysisFailed); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("标记ANALYSIS_FAILED失败")
	}
}

// StoredAnalysis 已持久化的分析结果
type StoredAnalysis struct {
	SubmissionUUID   string             `json:"submissionUuid"`
	Status           string             `json:"status"`
	OriginalFilename string             `json:"originalFilename"`
	ParserVersion    string             `json:"parserVersion"`
	TextLength       int                `json:"textLength"`
	Sections         []types.Section    `json:"sections"`
	Parsed           types.ParsedResume `json:"parsed"`
	AnalyzedAt       time.Time          `json:"analyzedAt"`
}

// GetAnalysis 查询提交的状态与分析结果；尚未分析时 Parsed 为空结果
func (rs *ResumeService) GetAnalysis(ctx context.Context, submissionUUID string) (*StoredAnalysis, error) {
	if rs.deps.Repo == nil {
		return nil, ErrStorageNotInit
	}
	submission, err := rs.deps.Repo.GetSubmission(ctx, submissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, NewDatabaseError(submissionUUID, err.Error())
	}

	out := &StoredAnalysis{
		SubmissionUUID:   submissionUUID,
		Status:           submission.ProcessingStatus,
		OriginalFilename: submission.OriginalFilename,
		ParserVersion:    submission.ParserVersion,
		Sections:         []types.Section{},
		Parsed:           types.NewEmptyParsedResume(),
	}

	row, err := rs.deps.Repo.GetAnalysis(ctx, submissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, nil
		}
		return nil, NewDatabaseError(submissionUUID, err.Error())
	}
	if out.Parsed, err = row.ToParsedResume(); err != nil {
		return nil, NewDatabaseError(submissionUUID, err.Error())
	}
	if out.Sections, err = row.Sections(); err != nil {
		return nil, NewDatabaseError(submissionUUID, err.Error())
	}
	out.TextLength = row.TextLength
	out.ParserVersion = row.ParserVersion
	out.AnalyzedAt = row.UpdatedAt
	return out, nil
}

// SaveJob 校验并保存岗位要求，jobID 为空时生成新ID
func (rs *ResumeService) SaveJob(ctx context.Context, jobID string, job types.JobRequirement) (string, error) {
	if err := rs.processor.ValidateJobRequirement(&job); err != nil {
		return "", err
	}
	if rs.deps.Repo == nil {
		return "", ErrStorageNotInit
	}
	if jobID == "" {
		id, err := rs.newUUID()
		if err != nil {
			return "", fmt.Errorf("生成岗位ID失败: %w", err)
		}
		jobID = id
	}

	record, err := models.NewJobRequirementRecord(jobID, job)
	if err != nil {
		return "", err
	}
	if err := rs.deps.Repo.SaveJobRequirement(ctx, record); err != nil {
		return "", NewDatabaseError("", err.Error())
	}
	if rs.deps.Cache != nil {
		if err := rs.deps.Cache.InvalidateJobRequirement(ctx, jobID); err != nil {
			rs.logger.Warn().Err(err).Str("job_id", jobID).Msg("清除岗位缓存失败")
		}
	}
	return jobID, nil
}

// GetJob 查询岗位要求，优先读缓存
func (rs *ResumeService) GetJob(ctx context.Context, jobID string) (types.JobRequirement, error) {
	if rs.deps.Cache != nil {
		if job, err := rs.deps.Cache.GetCachedJobRequirement(ctx, jobID); err == nil {
			return *job, nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			rs.logger.Warn().Err(err).Str("job_id", jobID).Msg("读取岗位缓存失败")
		}
	}
	if rs.deps.Repo == nil {
		return types.JobRequirement{}, ErrStorageNotInit
	}

	record, err := rs.deps.Repo.GetJobRequirement(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.JobRequirement{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return types.JobRequirement{}, NewDatabaseError("", err.Error())
	}
	job, err := record.ToJobRequirement()
	if err != nil {
		return types.JobRequirement{}, err
	}
	if rs.deps.Cache != nil {
		if err := rs.deps.Cache.CacheJobRequirement(ctx, jobID, &job); err != nil {
			rs.logger.Warn().Err(err).Str("job_id", jobID).Msg("写入岗位缓存失败")
		}
	}
	return job, nil
}

// ScoreSubmission 用已保存的分析结果与提取文本为某岗位评分，并持久化评分
func (rs *ResumeService) ScoreSubmission(ctx context.Context, submissionUUID, jobID string) (types.ATSScoreResult, error) {
	ctx, span := tracer.Start(ctx, "service.ScoreSubmission", trace.WithAttributes(
		attribute.String("submission.uuid", submissionUUID),
		attribute.String("job.id", jobID),
	))
	defer span.End()

	if rs.deps.Repo == nil || rs.deps.Objects == nil {
		return types.NewZeroScoreResult(), ErrStorageNotInit
	}

	job, err := rs.GetJob(ctx, jobID)
	if err != nil {
		return types.NewZeroScoreResult(), err
	}

	submission, err := rs.deps.Repo.GetSubmission(ctx, submissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewZeroScoreResult(), ErrSubmissionNotFound
		}
		return types.NewZeroScoreResult(), NewDatabaseError(submissionUUID, err.Error())
	}
	row, err := rs.deps.Repo.GetAnalysis(ctx, submissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewZeroScoreResult(), ErrAnalysisNotFound
		}
		return types.NewZeroScoreResult(), NewDatabaseError(submissionUUID, err.Error())
	}
	parsed, err := row.ToParsedResume()
	if err != nil {
		return types.NewZeroScoreResult(), NewDatabaseError(submissionUUID, err.Error())
	}

	var text string
	if submission.ParsedTextPathOSS != "" {
		text, err = rs.deps.Objects.GetParsedText(ctx, submission.ParsedTextPathOSS)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeStorage)
			return types.NewZeroScoreResult(), NewScoreError(submissionUUID, err.Error())
		}
	}

	result, err := rs.processor.Score(ctx, text, &job, &parsed)
	if err != nil {
		return result, err
	}

	record, err := models.NewATSScoreRecord(submissionUUID, jobID, result, rs.now())
	if err != nil {
		return result, NewScoreError(submissionUUID, err.Error())
	}
	if err := rs.deps.Repo.SaveATSScore(ctx, record); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return result, NewDatabaseError(submissionUUID, err.Error())
	}
	span.SetAttributes(attribute.Int("ats.score", result.Score))
	return result, nil
}

// JobScoreEntry 岗位排名中的一条评分
type JobScoreEntry struct {
	SubmissionUUID string               `json:"submissionUuid"`
	Result         types.ATSScoreResult `json:"result"`
	ScoredAt       time.Time            `json:"scoredAt"`
}

// JobScorePage 按得分降序的岗位评分分页
type JobScorePage struct {
	JobID      string          `json:"jobId"`
	Cursor     int             `json:"cursor"`
	NextCursor int             `json:"nextCursor"`
	Size       int             `json:"size"`
	TotalCount int64           `json:"totalCount"`
	Scores     []JobScoreEntry `json:"scores"`
}

// ListJobScores 分页列出某岗位下已持久化的评分；最后一页时 NextCursor 等于 Cursor
func (rs *ResumeService) ListJobScores(ctx context.Context, jobID string, cursor, size int) (*JobScorePage, error) {
	if rs.deps.Repo == nil {
		return nil, ErrStorageNotInit
	}
	records, total, err := rs.deps.Repo.ListTopScoresForJob(ctx, jobID, cursor, size)
	if err != nil {
		return nil, NewDatabaseError("", err.Error())
	}

	page := &JobScorePage{
		JobID:      jobID,
		Cursor:     cursor,
		NextCursor: cursor,
		Size:       size,
		TotalCount: total,
		Scores:     make([]JobScoreEntry, 0, len(records)),
	}
	for i := range records {
		result, err := records[i].ToScoreResult()
		if err != nil {
			return nil, NewDatabaseError(records[i].SubmissionUUID, err.Error())
		}
		page.Scores = append(page.Scores, JobScoreEntry{
			SubmissionUUID: records[i].SubmissionUUID,
			Result:         result,
			ScoredAt:       records[i].ScoredAt,
		})
	}
	if next := cursor + size; int64(next) < total {
		page.NextCursor = next
	}
	return page, nil
}
