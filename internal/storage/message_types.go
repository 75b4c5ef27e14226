package storage

import "time"

// ResumeUploadMessage 简历上传后投递给分析队列的消息
type ResumeUploadMessage struct {
	SubmissionUUID      string    `json:"submission_uuid"`
	SubmissionTimestamp time.Time `json:"submission_timestamp"`
	SourceChannel       string    `json:"source_channel,omitempty"`
	TargetJobID         string    `json:"target_job_id,omitempty"`
	OriginalFilename    string    `json:"original_filename"`
	MimeType            string    `json:"mime_type"`
	OriginalFilePathOSS string    `json:"original_file_path_oss"`
	RawFileMD5          string    `json:"raw_file_md5,omitempty"` // 失败时用于回滚去重记录
}

// ResumeAnalyzedEvent 分析完成后经发件箱发布的事件
type ResumeAnalyzedEvent struct {
	SubmissionUUID  string    `json:"submission_uuid"`
	Status          string    `json:"status"`
	TargetJobID     string    `json:"target_job_id,omitempty"`
	TextLength      int       `json:"text_length"`
	SectionCount    int       `json:"section_count"`
	SkillsCount     int       `json:"skills_count"`
	ExperienceYears float64   `json:"experience_years"`
	IsFresher       bool      `json:"is_fresher"`
	ParserVersion   string    `json:"parser_version"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}
