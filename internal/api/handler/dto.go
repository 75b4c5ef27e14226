package handler

import "resume-intel-go/internal/types"

// UploadResponse 异步上传的响应
type UploadResponse struct {
	SubmissionUUID string `json:"submissionUuid"`
	Status         string `json:"status"`
}

// ErrorResponse 统一的错误响应
type ErrorResponse struct {
	Error                  string `json:"error"`
	ExistingSubmissionUUID string `json:"existingSubmissionUuid,omitempty"`
}

// CreateJobRequest 创建或更新岗位要求，JobID 为空时由服务端生成
type CreateJobRequest struct {
	JobID                   string   `json:"jobId" validate:"omitempty,max=36"`
	Title                   string   `json:"title" validate:"required,max=255"`
	RequiredSkills          []string `json:"requiredSkills" validate:"max=200,dive,required,max=100"`
	ExperienceRequiredYears float64  `json:"experienceRequiredYears" validate:"gte=0,lte=60"`
}

// ToJobRequirement 转换为引擎使用的岗位要求
func (r CreateJobRequest) ToJobRequirement() types.JobRequirement {
	skills := r.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	return types.JobRequirement{
		Title:                   r.Title,
		RequiredSkills:          skills,
		ExperienceRequiredYears: r.ExperienceRequiredYears,
	}
}

// JobResponse 岗位要求响应
type JobResponse struct {
	JobID string `json:"jobId"`
	types.JobRequirement
}

// ScoreRequest 对已分析的简历评分
type ScoreRequest struct {
	JobID string `json:"jobId" validate:"required,max=36"`
}

// ScoreResponse 评分响应
type ScoreResponse struct {
	SubmissionUUID string `json:"submissionUuid"`
	JobID          string `json:"jobId"`
	types.ATSScoreResult
}
