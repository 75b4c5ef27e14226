package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ResumeSubmission 简历提交表，一次上传对应一行
type ResumeSubmission struct {
	SubmissionUUID      string    `gorm:"type:char(36);primaryKey"`
	SubmissionTimestamp time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_submission_timestamp"`
	SourceChannel       string    `gorm:"type:varchar(100)"`
	TargetJobID         *string   `gorm:"type:char(36);index:idx_rs_target_job_id"`
	OriginalFilename    string    `gorm:"type:varchar(255)"`
	MimeType            string    `gorm:"type:varchar(255)"`
	FileSize            int64     `gorm:"type:bigint"`
	OriginalFilePathOSS string    `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS   string    `gorm:"type:varchar(1024)"`
	RawFileMD5          string    `gorm:"type:char(32);index:idx_rs_raw_file_md5"`
	RawTextMD5          string    `gorm:"type:char(32);index:idx_rs_raw_text_md5"`
	ProcessingStatus    string    `gorm:"type:varchar(50);default:'PENDING_ANALYSIS';index:idx_rs_processing_status"`
	ParserVersion       string    `gorm:"type:varchar(50)"`
	CreatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// ResumeAnalysis 一次简历分析的结构化结果，实体集合以JSON列存储
type ResumeAnalysis struct {
	SubmissionUUID     string         `gorm:"type:char(36);primaryKey"`
	TextLength         int            `gorm:"type:int"`
	SectionsJSON       datatypes.JSON `gorm:"type:json"`
	SkillsJSON         datatypes.JSON `gorm:"type:json"`
	ExperienceYears    float64        `gorm:"type:double;index:idx_ra_experience_years"`
	CompaniesJSON      datatypes.JSON `gorm:"type:json"`
	ProjectsJSON       datatypes.JSON `gorm:"type:json"`
	CertificationsJSON datatypes.JSON `gorm:"type:json"`
	InternshipsJSON    datatypes.JSON `gorm:"type:json"`
	IsFresher          bool           `gorm:"index:idx_ra_is_fresher"`
	ParserVersion      string         `gorm:"type:varchar(50)"`
	Source             string         `gorm:"type:varchar(20)"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	ResumeSubmission *ResumeSubmission `gorm:"foreignKey:SubmissionUUID;references:SubmissionUUID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ResumeAnalysis) TableName() string {
	return "resume_analyses"
}

// JobRequirementRecord 岗位要求表
type JobRequirementRecord struct {
	JobID                   string         `gorm:"type:char(36);primaryKey"`
	Title                   string         `gorm:"type:varchar(255);not null"`
	RequiredSkillsJSON      datatypes.JSON `gorm:"type:json"`
	ExperienceRequiredYears float64        `gorm:"type:double"`
	Status                  string         `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jr_status"`
	CreatedAt               time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt               time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (JobRequirementRecord) TableName() string {
	return "job_requirements"
}

// ATSScoreRecord 简历-岗位的ATS评分，同一对只保留最近一次
type ATSScoreRecord struct {
	ScoreID             uint64         `gorm:"primaryKey;autoIncrement"`
	SubmissionUUID      string         `gorm:"type:char(36);not null;uniqueIndex:idx_ats_submission_job,priority:1"`
	JobID               string         `gorm:"type:char(36);not null;uniqueIndex:idx_ats_submission_job,priority:2;index:idx_ats_job_score,priority:1"`
	Score               int            `gorm:"type:int;index:idx_ats_job_score,priority:2"`
	SkillsMatch         int            `gorm:"type:int"`
	ExperienceRelevance int            `gorm:"type:int"`
	DomainMatch         int            `gorm:"type:int"`
	ProjectScore        int            `gorm:"type:int"`
	CertificationScore  int            `gorm:"type:int"`
	MatchedSkillsJSON   datatypes.JSON `gorm:"type:json"`
	MissingSkillsJSON   datatypes.JSON `gorm:"type:json"`
	ScoredAt            time.Time      `gorm:"type:datetime(6)"`
	CreatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	ResumeSubmission *ResumeSubmission     `gorm:"foreignKey:SubmissionUUID;references:SubmissionUUID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Job              *JobRequirementRecord `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ATSScoreRecord) TableName() string {
	return "ats_scores"
}

// ToJSON 将任意值序列化为 datatypes.JSON
func ToJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

