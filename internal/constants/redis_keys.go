package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"
	// JobModulePrefix 岗位模块
	JobModulePrefix = "job"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityAnalysis 分析结果实体
	EntityAnalysis = "analysis"
	// EntityRequirement 岗位要求实体
	EntityRequirement = "requirement"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityTextDedupSet 文本去重集合实体
	EntityTextDedupSet = "text_dedup_set"
	// EntityMD5ToUUID MD5到UUID的映射实体
	EntityMD5ToUUID = "md5_to_uuid"

	// KeyFileMD5Set 文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyTextMD5Set 提取文本MD5集合 (SET)
	// 格式: app:file:text_dedup_set
	KeyTextMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityTextDedupSet

	// KeyFileMD5ToSubmissionUUID MD5到SubmissionUUID的映射 (STRING)
	// 格式: app:file:md5_to_uuid:{md5}
	KeyFileMD5ToSubmissionUUID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToUUID + ":%s"

	// KeyResumeAnalysis 按文件MD5缓存的分析结果JSON (STRING)
	// 格式: app:resume:analysis:{md5}
	KeyResumeAnalysis = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityAnalysis + ":%s"

	// KeyResumeAnalysisLock 同一提交的分析锁 (STRING)
	// 格式: app:resume:lock:{submissionUUID}
	KeyResumeAnalysisLock = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityLock + ":%s"

	// KeyJobRequirement 岗位要求缓存 (STRING)
	// 格式: app:job:requirement:{jobID}
	KeyJobRequirement = AppPrefix + ":" + JobModulePrefix + ":" + EntityRequirement + ":%s"
)
