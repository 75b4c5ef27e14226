package models

import (
	"encoding/json"
	"fmt"
	"time"

	"resume-intel-go/internal/types"

	"gorm.io/datatypes"
)

// NewResumeAnalysis 由分析结果构造数据库行
func NewResumeAnalysis(submissionUUID string, textLength int, sections []types.Section, parsed types.ParsedResume, parserVersion, source string) (*ResumeAnalysis, error) {
	row := &ResumeAnalysis{
		SubmissionUUID:  submissionUUID,
		TextLength:      textLength,
		ExperienceYears: parsed.ExtractedExperienceYears,
		IsFresher:       parsed.IsFresher,
		ParserVersion:   parserVersion,
		Source:          source,
	}
	if sections == nil {
		sections = []types.Section{}
	}

	fields := []struct {
		dst *datatypes.JSON
		v   interface{}
		n   string
	}{
		{&row.SectionsJSON, sections, "sections"},
		{&row.SkillsJSON, nonNil(parsed.ExtractedSkills), "skills"},
		{&row.CompaniesJSON, parsed.Companies, "companies"},
		{&row.ProjectsJSON, parsed.Projects, "projects"},
		{&row.CertificationsJSON, parsed.Certifications, "certifications"},
		{&row.InternshipsJSON, parsed.Internships, "internships"},
	}
	for _, f := range fields {
		b, err := ToJSON(f.v)
		if err != nil {
			return nil, fmt.Errorf("序列化%s失败: %w", f.n, err)
		}
		*f.dst = b
	}
	return row, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func decodeJSON(data datatypes.JSON, dst interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// ToParsedResume 还原为 ParsedResume，集合字段保证非nil
func (a *ResumeAnalysis) ToParsedResume() (types.ParsedResume, error) {
	parsed := types.NewEmptyParsedResume()
	parsed.ExtractedExperienceYears = a.ExperienceYears
	parsed.IsFresher = a.IsFresher

	for _, f := range []struct {
		src datatypes.JSON
		dst interface{}
	}{
		{a.SkillsJSON, &parsed.ExtractedSkills},
		{a.CompaniesJSON, &parsed.Companies},
		{a.ProjectsJSON, &parsed.Projects},
		{a.CertificationsJSON, &parsed.Certifications},
		{a.InternshipsJSON, &parsed.Internships},
	} {
		if err := decodeJSON(f.src, f.dst); err != nil {
			return types.NewEmptyParsedResume(), fmt.Errorf("解析分析记录 %s 失败: %w", a.SubmissionUUID, err)
		}
	}

	// JSON null 会把切片置为nil
	empty := types.NewEmptyParsedResume()
	if parsed.ExtractedSkills == nil {
		parsed.ExtractedSkills = empty.ExtractedSkills
	}
	if parsed.Companies == nil {
		parsed.Companies = empty.Companies
	}
	if parsed.Projects == nil {
		parsed.Projects = empty.Projects
	}
	if parsed.Certifications == nil {
		parsed.Certifications = empty.Certifications
	}
	if parsed.Internships == nil {
		parsed.Internships = empty.Internships
	}
	return parsed, nil
}

// Sections 还原章节列表
func (a *ResumeAnalysis) Sections() ([]types.Section, error) {
	sections := []types.Section{}
	if err := decodeJSON(a.SectionsJSON, &sections); err != nil {
		return nil, err
	}
	if sections == nil {
		sections = []types.Section{}
	}
	return sections, nil
}

// NewJobRequirementRecord 由岗位要求构造数据库行
func NewJobRequirementRecord(jobID string, job types.JobRequirement) (*JobRequirementRecord, error) {
	skills, err := ToJSON(nonNil(job.RequiredSkills))
	if err != nil {
		return nil, err
	}
	return &JobRequirementRecord{
		JobID:                   jobID,
		Title:                   job.Title,
		RequiredSkillsJSON:      skills,
		ExperienceRequiredYears: job.ExperienceRequiredYears,
		Status:                  "ACTIVE",
	}, nil
}

// ToJobRequirement 还原为 JobRequirement
func (r *JobRequirementRecord) ToJobRequirement() (types.JobRequirement, error) {
	job := types.JobRequirement{
		Title:                   r.Title,
		RequiredSkills:          []string{},
		ExperienceRequiredYears: r.ExperienceRequiredYears,
	}
	if err := decodeJSON(r.RequiredSkillsJSON, &job.RequiredSkills); err != nil {
		return job, fmt.Errorf("解析岗位 %s 的技能列表失败: %w", r.JobID, err)
	}
	if job.RequiredSkills == nil {
		job.RequiredSkills = []string{}
	}
	return job, nil
}

// NewATSScoreRecord 由评分结果构造数据库行
func NewATSScoreRecord(submissionUUID, jobID string, result types.ATSScoreResult, scoredAt time.Time) (*ATSScoreRecord, error) {
	matched, err := ToJSON(nonNil(result.MatchedSkills))
	if err != nil {
		return nil, err
	}
	missing, err := ToJSON(nonNil(result.MissingSkills))
	if err != nil {
		return nil, err
	}
	return &ATSScoreRecord{
		SubmissionUUID:      submissionUUID,
		JobID:               jobID,
		Score:               result.Score,
		SkillsMatch:         result.Breakdown.SkillsMatch,
		ExperienceRelevance: result.Breakdown.ExperienceRelevance,
		DomainMatch:         result.Breakdown.DomainMatch,
		ProjectScore:        result.Breakdown.ProjectScore,
		CertificationScore:  result.Breakdown.CertificationScore,
		MatchedSkillsJSON:   matched,
		MissingSkillsJSON:   missing,
		ScoredAt:            scoredAt,
	}, nil
}

// ToScoreResult 还原为 ATSScoreResult
func (s *ATSScoreRecord) ToScoreResult() (types.ATSScoreResult, error) {
	result := types.NewZeroScoreResult()
	result.Score = s.Score
	result.Breakdown = types.ScoreBreakdown{
		SkillsMatch:         s.SkillsMatch,
		ExperienceRelevance: s.ExperienceRelevance,
		DomainMatch:         s.DomainMatch,
		ProjectScore:        s.ProjectScore,
		CertificationScore:  s.CertificationScore,
	}
	if err := decodeJSON(s.MatchedSkillsJSON, &result.MatchedSkills); err != nil {
		return result, err
	}
	if err := decodeJSON(s.MissingSkillsJSON, &result.MissingSkills); err != nil {
		return result, err
	}
	return result, nil
}
