package parser

import (
	"fmt"
	"math"
	"strings"

	"resume-intel-go/internal/types"
)

// ScoreWeights 各评分维度的权重，总和必须为100
type ScoreWeights struct {
	Skills        int `yaml:"skills" json:"skills"`
	Experience    int `yaml:"experience" json:"experience"`
	Domain        int `yaml:"domain" json:"domain"`
	Project       int `yaml:"project" json:"project"`
	Certification int `yaml:"certification" json:"certification"`
}

// DefaultScoreWeights 默认权重 40/25/10/15/10
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Skills: 40, Experience: 25, Domain: 10, Project: 15, Certification: 10}
}

// Validate 检查权重非负且总和为100
func (w ScoreWeights) Validate() error {
	for name, v := range map[string]int{
		"skills": w.Skills, "experience": w.Experience, "domain": w.Domain,
		"project": w.Project, "certification": w.Certification,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %d", name, v)
		}
	}
	if sum := w.Skills + w.Experience + w.Domain + w.Project + w.Certification; sum != 100 {
		return fmt.Errorf("score weights must sum to 100, got %d", sum)
	}
	return nil
}

// ATSScorer 确定性的加权评分器，无状态
type ATSScorer struct {
	weights ScoreWeights
}

// NewATSScorer 使用给定权重创建评分器
func NewATSScorer(weights ScoreWeights) (*ATSScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &ATSScorer{weights: weights}, nil
}

// NewDefaultATSScorer 使用默认权重创建评分器
func NewDefaultATSScorer() *ATSScorer {
	return &ATSScorer{weights: DefaultScoreWeights()}
}

// Weights 返回评分器使用的权重
func (s *ATSScorer) Weights() ScoreWeights {
	return s.weights
}

// Score 计算简历相对岗位要求的得分；文本为空或岗位为空时返回零分结果
func (s *ATSScorer) Score(text string, job *types.JobRequirement, parsed *types.ParsedResume) types.ATSScoreResult {
	if strings.TrimSpace(text) == "" || job == nil {
		return types.NewZeroScoreResult()
	}
	if parsed == nil {
		empty := types.NewEmptyParsedResume()
		parsed = &empty
	}
	lowerText := strings.ToLower(text)

	skillsScore, matched, missing := scoreSkills(lowerText, job.RequiredSkills)
	breakdown := types.ScoreBreakdown{
		SkillsMatch:         skillsScore,
		ExperienceRelevance: scoreExperience(parsed, job.ExperienceRequiredYears),
		DomainMatch:         scoreDomain(lowerText, job.Title),
		ProjectScore:        scoreProjects(parsed),
		CertificationScore:  scoreCertifications(parsed),
	}

	weighted := float64(s.weights.Skills*breakdown.SkillsMatch+
		s.weights.Experience*breakdown.ExperienceRelevance+
		s.weights.Domain*breakdown.DomainMatch+
		s.weights.Project*breakdown.ProjectScore+
		s.weights.Certification*breakdown.CertificationScore) / 100

	return types.ATSScoreResult{
		Score:         clampPercent(math.Round(weighted)),
		Breakdown:     breakdown,
		MatchedSkills: matched,
		MissingSkills: missing,
	}
}

// scoreSkills 必需技能在全文中的大小写不敏感子串匹配比例
func scoreSkills(lowerText string, required []string) (int, []string, []string) {
	matched, missing := []string{}, []string{}
	for _, skill := range required {
		needle := strings.ToLower(strings.TrimSpace(skill))
		if needle == "" {
			continue
		}
		if strings.Contains(lowerText, needle) {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	total := len(matched) + len(missing)
	if total == 0 {
		return 0, matched, missing
	}
	return percent(len(matched), total), matched, missing
}

func scoreExperience(parsed *types.ParsedResume, requiredYears float64) int {
	if parsed.IsFresher {
		if len(parsed.Internships) > 0 {
			return 100
		}
		return 50
	}
	if parsed.ExtractedExperienceYears >= requiredYears {
		return 100
	}
	return clampPercent(math.Round(parsed.ExtractedExperienceYears / math.Max(requiredYears, 1) * 100))
}

// scoreDomain 岗位名称中长度大于3的词在全文出现的比例，无此类词时为0
func scoreDomain(lowerText, title string) int {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(title)) {
		if runeLen(tok) > 3 {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(lowerText, tok) {
			hits++
		}
	}
	return percent(hits, len(tokens))
}

func scoreProjects(parsed *types.ParsedResume) int {
	switch {
	case len(parsed.Projects) > 0:
		return 100
	case parsed.IsFresher:
		return 0
	default:
		return 50
	}
}

func scoreCertifications(parsed *types.ParsedResume) int {
	if len(parsed.Certifications) > 0 {
		return 100
	}
	return 0
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return clampPercent(math.Round(float64(part) / float64(total) * 100))
}

func clampPercent(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
