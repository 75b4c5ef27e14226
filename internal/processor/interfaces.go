package processor

import (
	"context"
	"time"

	"resume-intel-go/internal/storage"
	"resume-intel-go/internal/storage/models"
	"resume-intel-go/internal/types"
)

//
// 分析引擎各阶段
//

// TextExtractor 将原始字节按MIME类型转换为纯文本，失败时返回空串
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) string
}

// SectionSegmenter 章节切分
type SectionSegmenter interface {
	Segment(text string) types.SectionMap
}

// EntityExtractor 从文本与章节中抽取结构化实体
type EntityExtractor interface {
	Extract(text string, sections types.SectionMap) types.ParsedResume
}

// Scorer ATS评分
type Scorer interface {
	Score(text string, job *types.JobRequirement, parsed *types.ParsedResume) types.ATSScoreResult
}

//
// 服务层依赖的存储能力
//

// ObjectStore 原始文件与提取文本的对象存储
type ObjectStore interface {
	UploadResumeFile(ctx context.Context, submissionUUID, fileExt string, data []byte) (string, error)
	DeleteResumeFile(ctx context.Context, objectKey string) error
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)
	UploadParsedText(ctx context.Context, submissionUUID string, text string) (string, error)
	GetParsedText(ctx context.Context, objectKey string) (string, error)
}

// ResumeRepository 提交记录、分析结果、岗位与评分的持久化
type ResumeRepository interface {
	CreateSubmission(ctx context.Context, submission *models.ResumeSubmission) error
	GetSubmission(ctx context.Context, submissionUUID string) (*models.ResumeSubmission, error)
	UpdateResumeProcessingStatus(ctx context.Context, submissionUUID string, status string) error
	SaveAnalysisWithOutbox(ctx context.Context, analysis *models.ResumeAnalysis, submissionUpdates map[string]interface{}, event *models.OutboxMessage) error
	GetAnalysis(ctx context.Context, submissionUUID string) (*models.ResumeAnalysis, error)
	SaveJobRequirement(ctx context.Context, record *models.JobRequirementRecord) error
	GetJobRequirement(ctx context.Context, jobID string) (*models.JobRequirementRecord, error)
	SaveATSScore(ctx context.Context, record *models.ATSScoreRecord) error
	ListTopScoresForJob(ctx context.Context, jobID string, offset, limit int) ([]models.ATSScoreRecord, int64, error)
}

// ResumeCache 去重集合与结果缓存
type ResumeCache interface {
	CheckAndSetMD5(ctx context.Context, md5 string, submissionUUID string) (bool, string, error)
	RemoveFileMD5(ctx context.Context, md5 string) error
	CheckAndAddParsedTextMD5(ctx context.Context, md5Hex string) (bool, error)
	RemoveParsedTextMD5(ctx context.Context, md5Hex string) error
	CacheAnalysis(ctx context.Context, fileMD5 string, analysis *storage.CachedAnalysis) error
	GetCachedAnalysis(ctx context.Context, fileMD5 string) (*storage.CachedAnalysis, error)
	CacheJobRequirement(ctx context.Context, jobID string, job *types.JobRequirement) error
	GetCachedJobRequirement(ctx context.Context, jobID string) (*types.JobRequirement, error)
	InvalidateJobRequirement(ctx context.Context, jobID string) error
	AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error)
	ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error)
}

// EventPublisher 消息发布
type EventPublisher interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
}

var (
	_ ObjectStore      = (*storage.MinIO)(nil)
	_ ResumeRepository = (*storage.MySQL)(nil)
	_ ResumeCache      = (*storage.Redis)(nil)
	_ EventPublisher   = (*storage.RabbitMQ)(nil)
)
