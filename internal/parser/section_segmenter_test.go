package parser

import (
	"strings"
	"testing"

	"resume-intel-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `John Doe
john@example.com

Skills
Python, Go, SQL

Experience
Total Experience: 3 years
Acme Corp
Software Engineer
Jan 2020 - Present

Projects
Resume Parser | Go, Redis
- Parsed resumes into structured fields.

Education
B.Tech Computer Science, 2019

Certifications
AWS Certified Developer - Amazon (2021)
`

func TestSectionSegmenter_DefaultTable(t *testing.T) {
	s := MustNewSectionSegmenter(DefaultKeywordTable())
	sections := s.Segment(sampleResume)

	require.Equal(t, 5, sections.Len(), "应识别出5个章节")
	kinds := make([]types.SectionKind, 0, sections.Len())
	for _, span := range sections.Spans {
		kinds = append(kinds, span.Kind)
	}
	assert.Equal(t, []types.SectionKind{
		types.SectionSkills,
		types.SectionExperience,
		types.SectionProjects,
		types.SectionEducation,
		types.SectionCertifications,
	}, kinds)

	assert.Equal(t, "Python, Go, SQL", sections.Content(types.SectionSkills))
	assert.True(t, strings.HasPrefix(sections.Content(types.SectionExperience), "Total Experience: 3 years"))
	assert.Equal(t, "B.Tech Computer Science, 2019", sections.Content(types.SectionEducation))
	assert.False(t, sections.Has(types.SectionInternships))
	assert.Equal(t, "", sections.Content(types.SectionInternships), "缺失章节内容应为空串")
}

func TestSectionSegmenter_SpansDoNotOverlap(t *testing.T) {
	s := MustNewSectionSegmenter(DefaultKeywordTable())
	sections := s.Segment(sampleResume)

	for i, span := range sections.Spans {
		assert.LessOrEqual(t, span.Start, span.ContentStart)
		assert.LessOrEqual(t, span.ContentStart, span.End)
		assert.LessOrEqual(t, span.End, len(sampleResume))
		if i > 0 {
			prev := sections.Spans[i-1]
			assert.Less(t, prev.Start, span.Start, "章节应按起始位置递增")
			assert.LessOrEqual(t, prev.End, span.Start, "章节之间不应重叠")
		}
	}
}

func TestSectionSegmenter_HeaderVariants(t *testing.T) {
	s := MustNewSectionSegmenter(DefaultKeywordTable())

	testCases := []struct {
		name   string
		text   string
		expect bool
	}{
		{"冒号结尾", "SKILLS:\nGo", true},
		{"短横线结尾", "Technical Skills -\nGo", true},
		{"前导空白", "   Skills\nGo", true},
		{"同一行带正文", "Skills used daily\nGo", false},
		{"正文中出现", "I have skills in Go", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sections := s.Segment(tc.text)
			assert.Equal(t, tc.expect, sections.Has(types.SectionSkills))
		})
	}
}

func TestSectionSegmenter_RepeatedKindConcatenated(t *testing.T) {
	s := MustNewSectionSegmenter(DefaultKeywordTable())
	text := "Projects\nAlpha\nExperience\nAcme\nProjects\nBeta"

	sections := s.Segment(text)
	require.Equal(t, 3, sections.Len())
	assert.Equal(t, "Alpha\nBeta", sections.Content(types.SectionProjects))
	assert.Equal(t, "Acme", sections.Content(types.SectionExperience))
}

func TestSectionSegmenter_CustomVocabulary(t *testing.T) {
	table := NewKeywordTable(
		KeywordEntry{Kind: types.SectionSkills, Keywords: []string{"Toolbox"}},
		KeywordEntry{Kind: types.SectionExperience, Keywords: []string{"Career"}},
	)
	s, err := NewSectionSegmenter(table)
	require.NoError(t, err)

	sections := s.Segment("Toolbox\nGo, Rust\nCareer\nAcme\nSkills\nignored")
	require.Equal(t, 2, sections.Len(), "默认关键字不应生效")
	assert.Equal(t, "Go, Rust", sections.Content(types.SectionSkills))
	assert.Equal(t, "Acme\nSkills\nignored", sections.Content(types.SectionExperience))
}

func TestSectionSegmenter_TieKeepsScanOrder(t *testing.T) {
	table := NewKeywordTable(
		KeywordEntry{Kind: types.SectionInternships, Keywords: []string{"Experience"}},
		KeywordEntry{Kind: types.SectionExperience, Keywords: []string{"Experience"}},
	)
	s := MustNewSectionSegmenter(table)

	sections := s.Segment("Experience\nAcme Labs")
	require.Equal(t, 1, sections.Len(), "同一位置的标题只保留一个")
	assert.Equal(t, types.SectionInternships, sections.Spans[0].Kind, "先扫描到的关键字胜出")
}

func TestSectionSegmenter_LongHeaderIgnored(t *testing.T) {
	long := strings.Repeat("experience ", 6) + "summary"
	table := NewKeywordTable(KeywordEntry{Kind: types.SectionExperience, Keywords: []string{long}})
	s := MustNewSectionSegmenter(table)

	sections := s.Segment(long + "\nAcme")
	assert.Equal(t, 0, sections.Len(), "超过长度限制的行不应视为标题")
}

func TestNewSectionSegmenter_RejectsUnknownKind(t *testing.T) {
	_, err := NewSectionSegmenter(NewKeywordTable(KeywordEntry{Kind: "hobbies", Keywords: []string{"Hobbies"}}))
	assert.Error(t, err)
}

func TestKeywordTable_Immutable(t *testing.T) {
	keywords := []string{"Skills"}
	table := NewKeywordTable(KeywordEntry{Kind: types.SectionSkills, Keywords: keywords})
	keywords[0] = "Changed"

	entries := table.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Skills", entries[0].Keywords[0], "构造后修改入参不应影响关键字表")

	entries[0].Keywords[0] = "Mutated"
	assert.Equal(t, "Skills", table.Entries()[0].Keywords[0], "Entries 应返回副本")
}

func TestSectionSegmenter_EmptyText(t *testing.T) {
	s := MustNewSectionSegmenter(DefaultKeywordTable())
	sections := s.Segment("")
	assert.Equal(t, 0, sections.Len())
	assert.Equal(t, "", sections.Content(types.SectionSkills))
}
