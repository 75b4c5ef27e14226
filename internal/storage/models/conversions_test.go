package models

import (
	"testing"
	"time"

	"resume-intel-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestResumeAnalysis_RoundTrip(t *testing.T) {
	parsed := types.ParsedResume{
		ExtractedSkills:          []string{"Go", "Redis"},
		ExtractedExperienceYears: 4,
		Companies:                []types.Company{{Name: "Acme Pay", Role: "Backend Engineer", Duration: "2019 - 2023", Domain: "fintech"}},
		Projects:                 []types.Project{{Title: "Ledger", Description: "double entry"}},
		Certifications:           []types.Certification{},
		Internships:              []types.Internship{},
		IsFresher:                false,
	}
	sections := []types.Section{{Kind: types.SectionSkills, Header: "Skills", Start: 0, ContentStart: 6, End: 20, Content: "Go, Redis"}}

	row, err := NewResumeAnalysis("uuid-1", 120, sections, parsed, "heuristic-v1", "queue")
	require.NoError(t, err)
	assert.Equal(t, 4.0, row.ExperienceYears)
	assert.JSONEq(t, `["Go","Redis"]`, string(row.SkillsJSON))
	assert.JSONEq(t, `[]`, string(row.CertificationsJSON), "空集合应序列化为[]")

	restored, err := row.ToParsedResume()
	require.NoError(t, err)
	assert.Equal(t, parsed, restored, "还原后的结果应与原始一致")

	restoredSections, err := row.Sections()
	require.NoError(t, err)
	assert.Equal(t, sections, restoredSections)
}

func TestResumeAnalysis_NilCollections(t *testing.T) {
	row, err := NewResumeAnalysis("uuid-2", 0, nil, types.ParsedResume{IsFresher: true}, "", "")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(row.SkillsJSON))
	assert.JSONEq(t, `[]`, string(row.SectionsJSON))

	row.CompaniesJSON = datatypes.JSON("null")
	restored, err := row.ToParsedResume()
	require.NoError(t, err)
	assert.NotNil(t, restored.Companies, "null列应还原为空切片")
	assert.True(t, restored.IsFresher)

	row.ProjectsJSON = datatypes.JSON("{broken")
	_, err = row.ToParsedResume()
	assert.Error(t, err)
}

func TestJobRequirementRecord_RoundTrip(t *testing.T) {
	job := types.JobRequirement{Title: "Backend Engineer", RequiredSkills: []string{"Go", "SQL"}, ExperienceRequiredYears: 3}
	row, err := NewJobRequirementRecord("job-1", job)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", row.Status)

	restored, err := row.ToJobRequirement()
	require.NoError(t, err)
	assert.Equal(t, job, restored)

	empty, err := (&JobRequirementRecord{JobID: "job-2", Title: "x"}).ToJobRequirement()
	require.NoError(t, err)
	assert.Equal(t, []string{}, empty.RequiredSkills)
}

func TestATSScoreRecord_RoundTrip(t *testing.T) {
	result := types.ATSScoreResult{
		Score: 70,
		Breakdown: types.ScoreBreakdown{
			SkillsMatch: 100, ExperienceRelevance: 100, DomainMatch: 0, ProjectScore: 0, CertificationScore: 50,
		},
		MatchedSkills: []string{"Go"},
		MissingSkills: []string{},
	}
	row, err := NewATSScoreRecord("uuid-1", "job-1", result, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 70, row.Score)
	assert.Equal(t, 50, row.CertificationScore)

	restored, err := row.ToScoreResult()
	require.NoError(t, err)
	assert.Equal(t, result, restored)
}
