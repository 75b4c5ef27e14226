package processor

import (
	"context"
	"strings"
	"testing"
	"time"

	"resume-intel-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtractor 返回固定文本，并记录调用时上下文是否带有期限
type stubExtractor struct {
	text        string
	calls       int
	sawDeadline bool
}

func (s *stubExtractor) ExtractText(ctx context.Context, _ []byte, _ string) string {
	s.calls++
	_, s.sawDeadline = ctx.Deadline()
	return s.text
}

const sampleResumeText = `Jane Doe
jane@example.com

Skills
Python, Go, SQL

Experience
Backend Engineer at Acme Corp (2019 - 2023)
Total Experience: 4 years

Projects
Inventory Platform
Built a stock tracking service in Go

Certifications
AWS Certified Solutions Architect
`

func newStubProcessor(text string, opts ...SettingOpt) (*ResumeProcessor, *stubExtractor) {
	stub := &stubExtractor{text: text}
	return NewResumeProcessorWith([]ComponentOpt{WithTextExtractor(stub)}, opts...), stub
}

func TestResumeProcessor_Analyze(t *testing.T) {
	proc, stub := newStubProcessor(sampleResumeText)

	result := proc.Analyze(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	require.NotNil(t, result)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, sampleResumeText, result.Text)
	assert.True(t, result.Sections.Has(types.SectionSkills), "应识别出技能章节")
	assert.True(t, result.Sections.Has(types.SectionExperience), "应识别出经验章节")
	assert.Equal(t, []string{"Python", "Go", "SQL"}, result.Parsed.ExtractedSkills)
	assert.Equal(t, 4.0, result.Parsed.ExtractedExperienceYears)
	assert.False(t, result.Parsed.IsFresher)
}

func TestResumeProcessor_AnalyzeEmptyText(t *testing.T) {
	proc, _ := newStubProcessor("")

	result := proc.Analyze(context.Background(), []byte{0x00, 0x01}, "application/octet-stream")
	assert.Empty(t, result.Text)
	assert.Zero(t, result.Sections.Len())
	assert.NotNil(t, result.Parsed.ExtractedSkills, "空结果中的集合应为空切片而不是nil")
	assert.Empty(t, result.Parsed.ExtractedSkills)
	assert.True(t, result.Parsed.IsFresher, "无文本时视为应届")
}

func TestResumeProcessor_Deterministic(t *testing.T) {
	proc, _ := newStubProcessor(sampleResumeText)

	first := proc.Analyze(context.Background(), nil, "application/pdf")
	second := proc.Analyze(context.Background(), nil, "application/pdf")
	assert.Equal(t, first, second, "相同输入应得到相同结果")
	assert.Equal(t, first.Parsed, proc.AnalyzeResume(context.Background(), nil, "application/pdf"))
}

func TestResumeProcessor_AnalyzeTimeout(t *testing.T) {
	proc, stub := newStubProcessor("x", WithAnalyzeTimeout(time.Second))
	proc.Analyze(context.Background(), nil, "application/pdf")
	assert.True(t, stub.sawDeadline, "配置超时后提取器应收到带期限的上下文")

	noLimit, stub2 := newStubProcessor("x")
	noLimit.Analyze(context.Background(), nil, "application/pdf")
	assert.False(t, stub2.sawDeadline)
}

func TestResumeProcessor_Defaults(t *testing.T) {
	proc := NewResumeProcessor(nil, nil)
	assert.Equal(t, "heuristic-v1", proc.ParserVersion())
	assert.NotNil(t, proc.comp.Extractor)
	assert.NotNil(t, proc.comp.Segmenter)
	assert.NotNil(t, proc.comp.Entities)
	assert.NotNil(t, proc.comp.Scorer)

	custom := NewResumeProcessor(nil, &Settings{ParserVersion: "v9"}, WithParserVersion(""))
	assert.Equal(t, "v9", custom.ParserVersion(), "空版本号不应覆盖已有设置")
}

func TestResumeProcessor_Score(t *testing.T) {
	proc, _ := newStubProcessor(sampleResumeText)
	result := proc.Analyze(context.Background(), nil, "application/pdf")

	job := &types.JobRequirement{
		Title:                   "Backend Engineer",
		RequiredSkills:          []string{"Go", "Rust"},
		ExperienceRequiredYears: 3,
	}
	score, err := proc.Score(context.Background(), result.Text, job, &result.Parsed)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, score.MatchedSkills)
	assert.Equal(t, []string{"Rust"}, score.MissingSkills)
	assert.Equal(t, 50, score.Breakdown.SkillsMatch)
	assert.GreaterOrEqual(t, score.Score, 0)
	assert.LessOrEqual(t, score.Score, 100)
}

func TestResumeProcessor_ScoreNilJob(t *testing.T) {
	proc, _ := newStubProcessor(sampleResumeText)
	parsed := types.NewEmptyParsedResume()

	score, err := proc.Score(context.Background(), sampleResumeText, nil, &parsed)
	require.NoError(t, err, "没有岗位时不是错误")
	assert.Equal(t, types.NewZeroScoreResult(), score)
}

func TestResumeProcessor_ScoreInvalidJob(t *testing.T) {
	proc, _ := newStubProcessor(sampleResumeText)
	parsed := types.NewEmptyParsedResume()

	job := &types.JobRequirement{Title: "Engineer", ExperienceRequiredYears: -1}
	score, err := proc.Score(context.Background(), sampleResumeText, job, &parsed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidJobRequirement)
	assert.Equal(t, 0, score.Score)

	long := &types.JobRequirement{Title: strings.Repeat("t", 300)}
	assert.ErrorIs(t, proc.ValidateJobRequirement(long), ErrInvalidJobRequirement, "标题过长应校验失败")
	assert.NoError(t, proc.ValidateJobRequirement(nil))
}
