package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrResumeDownloadFailed = errors.New("下载简历失败")
	ErrStoreTextFailed      = errors.New("上传提取文本失败")
	ErrStoreFileFailed      = errors.New("上传简历文件失败")
	ErrPublishMessageFailed = errors.New("发布分析消息失败")
	ErrUpdateStatusFailed   = errors.New("更新简历状态失败")
	ErrDatabaseFailed       = errors.New("数据库操作失败")
	ErrScoreFailed          = errors.New("评分失败")

	ErrInvalidJobRequirement = errors.New("岗位要求不合法")
	ErrSubmissionNotFound    = errors.New("简历提交记录不存在")
	ErrAnalysisNotFound      = errors.New("简历分析结果不存在")
	ErrJobNotFound           = errors.New("岗位不存在")
	ErrDuplicateFile         = errors.New("重复的简历文件")
	ErrDuplicateContent      = errors.New("duplicate content detected")
	ErrStorageNotInit        = errors.New("storage is not initialized")
)

// ResumeProcessError 包含详细错误信息的自定义错误
type ResumeProcessError struct {
	SubmissionUUID string
	Op             string
	BaseErr        error
	Detail         string
}

func (e *ResumeProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, UUID:%s): %s", e.BaseErr, e.Op, e.SubmissionUUID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, UUID:%s)", e.BaseErr, e.Op, e.SubmissionUUID)
}

func (e *ResumeProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ResumeProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newProcessError(op string, base error, uuid, detail string) error {
	return &ResumeProcessError{SubmissionUUID: uuid, Op: op, BaseErr: base, Detail: detail}
}

// 错误构造函数
func NewDownloadError(uuid, detail string) error {
	return newProcessError("download", ErrResumeDownloadFailed, uuid, detail)
}

func NewStoreError(uuid, detail string) error {
	return newProcessError("store", ErrStoreTextFailed, uuid, detail)
}

func NewUploadError(uuid, detail string) error {
	return newProcessError("upload", ErrStoreFileFailed, uuid, detail)
}

func NewPublishError(uuid, detail string) error {
	return newProcessError("publish", ErrPublishMessageFailed, uuid, detail)
}

func NewUpdateError(uuid, detail string) error {
	return newProcessError("update", ErrUpdateStatusFailed, uuid, detail)
}

func NewDatabaseError(uuid, detail string) error {
	return newProcessError("database", ErrDatabaseFailed, uuid, detail)
}

func NewScoreError(uuid, detail string) error {
	return newProcessError("score", ErrScoreFailed, uuid, detail)
}

// DuplicateFileError 文件MD5已存在时返回，携带首个提交的UUID
type DuplicateFileError struct {
	ExistingSubmissionUUID string
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("%s: 已存在提交 %s", ErrDuplicateFile, e.ExistingSubmissionUUID)
}

func (e *DuplicateFileError) Unwrap() error {
	return ErrDuplicateFile
}
