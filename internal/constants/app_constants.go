package constants

import "time"

// 简历提交的处理状态
const (
	StatusPendingAnalysis         = "PENDING_ANALYSIS"          // 已上传，等待分析
	StatusAnalyzing               = "ANALYZING"                 // 分析中
	StatusAnalyzed                = "ANALYZED"                  // 分析完成
	StatusAnalysisEmpty           = "ANALYSIS_EMPTY"            // 未能提取出文本
	StatusAnalysisFailed          = "ANALYSIS_FAILED"           // 基础设施错误导致分析失败
	StatusContentDuplicateSkipped = "CONTENT_DUPLICATE_SKIPPED" // 文件内容重复，跳过
	StatusUploadProcessingFailed  = "UPLOAD_PROCESSING_FAILED"  // 上传阶段失败
)

// AllowedStatusesForAnalysis 允许进入分析流程的状态，其余状态的消息视为重复投递
var AllowedStatusesForAnalysis = []string{
	StatusPendingAnalysis,
	StatusAnalysisFailed,
}

// IsStatusAllowed 判断当前状态是否在允许列表中
func IsStatusAllowed(status string, allowed []string) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// 事件类型，写入 outbox_messages.event_type
const (
	EventResumeUploaded = "resume.uploaded"
	EventResumeAnalyzed = "resume.analyzed"
)

// 分析结果来源
const (
	SourceQueue = "queue" // 队列消费
)

const (
	// DefaultParserVer 默认解析器版本
	DefaultParserVer = "heuristic-v1"

	// MD5 去重集合的默认有效期
	DefaultMD5Expiry = 365 * 24 * time.Hour
	// AnalysisCacheDuration 分析结果缓存的默认有效期
	AnalysisCacheDuration = 24 * time.Hour
	// JobCacheDuration 岗位要求缓存的默认有效期
	JobCacheDuration = 30 * time.Minute
	// AnalysisLockDuration 单个提交分析锁的持有上限
	AnalysisLockDuration = 10 * time.Minute
)
