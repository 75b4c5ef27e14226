package parser

import (
	"strconv"
	"strings"

	"resume-intel-go/internal/types"

	"github.com/rs/zerolog"
)

const (
	maxSkills         = 20
	maxProjects       = 8
	maxCompanies      = 10
	maxCertifications = 8
	maxInternships    = 5
)

// EntityExtractor 基于章节的启发式实体抽取器，无状态，可并发使用
type EntityExtractor struct {
	logger *zerolog.Logger
}

// EntityOption 实体抽取器的配置选项
type EntityOption func(*EntityExtractor)

// WithEntityLogger 配置日志记录器
func WithEntityLogger(logger *zerolog.Logger) EntityOption {
	return func(e *EntityExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEntityExtractor 创建实体抽取器
func NewEntityExtractor(options ...EntityOption) *EntityExtractor {
	nop := zerolog.Nop()
	e := &EntityExtractor{logger: &nop}
	for _, option := range options {
		option(e)
	}
	return e
}

// Extract 从全文和章节中抽取结构化简历信息
func (e *EntityExtractor) Extract(text string, sections types.SectionMap) types.ParsedResume {
	result := types.NewEmptyParsedResume()
	if strings.TrimSpace(text) == "" {
		return result
	}

	result.ExtractedExperienceYears = ExtractExperienceYears(text)
	result.ExtractedSkills = ExtractSkills(sections.Content(types.SectionSkills))
	result.Projects = ExtractProjects(sections.Content(types.SectionProjects))
	result.Companies = ExtractCompanies(sections.Content(types.SectionExperience))
	result.Internships = ExtractInternships(sections.Content(types.SectionInternships), result.Companies)
	result.Certifications = ExtractCertifications(sections.Content(types.SectionCertifications))
	result.IsFresher = IsFresher(text, result.ExtractedExperienceYears, result.Internships)

	e.logger.Debug().
		Int("sections", sections.Len()).
		Int("skills", len(result.ExtractedSkills)).
		Int("companies", len(result.Companies)).
		Int("projects", len(result.Projects)).
		Int("certifications", len(result.Certifications)).
		Int("internships", len(result.Internships)).
		Float64("experience_years", result.ExtractedExperienceYears).
		Bool("fresher", result.IsFresher).
		Msg("实体抽取完成")
	return result
}

// ExtractExperienceYears 在全文中查找 "Total Experience: N" 或 "N+ years of experience"，取第一个匹配
func ExtractExperienceYears(text string) float64 {
	m := experienceYearsRegex.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	years, err := strconv.ParseFloat(raw, 64)
	if err != nil || years < 0 {
		return 0
	}
	return years
}

// ExtractSkills 从技能章节中切分技能词，去重后最多保留20个
func ExtractSkills(section string) []string {
	skills := []string{}
	if strings.TrimSpace(section) == "" {
		return skills
	}
	cleaned := skillLabelRegex.ReplaceAllString(section, "\n")
	seen := make(map[string]struct{})
	for _, token := range skillSplitRegex.Split(cleaned, -1) {
		token, _ = stripBullet(token)
		token = strings.TrimSpace(token)
		if !isSkillToken(token) {
			continue
		}
		key := strings.ToLower(token)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, token)
		if len(skills) == maxSkills {
			break
		}
	}
	return skills
}

func isSkillToken(token string) bool {
	n := runeLen(token)
	if n < 2 || n > 34 {
		return false
	}
	if digitsOnlyRegex.MatchString(token) {
		return false
	}
	lower := strings.ToLower(token)
	return !strings.Contains(lower, "skill") && !strings.Contains(lower, "experience")
}

// IsFresher 文本中出现 "fresher"，或未识别出经验年限时视为应届
func IsFresher(text string, experienceYears float64, internships []types.Internship) bool {
	if strings.Contains(strings.ToLower(text), "fresher") {
		return true
	}
	if experienceYears == 0 {
		return true
	}
	return len(internships) > 0 && experienceYears == 0
}
