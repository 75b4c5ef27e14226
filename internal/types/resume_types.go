package types

// SectionKind 表示简历章节类型
type SectionKind string

const (
	// SectionSkills 技能章节
	SectionSkills SectionKind = "skills"
	// SectionExperience 工作经历章节
	SectionExperience SectionKind = "experience"
	// SectionProjects 项目经历章节
	SectionProjects SectionKind = "projects"
	// SectionEducation 教育经历章节
	SectionEducation SectionKind = "education"
	// SectionCertifications 证书章节
	SectionCertifications SectionKind = "certifications"
	// SectionInternships 实习经历章节
	SectionInternships SectionKind = "internships"
)

// AllSectionKinds 章节类型的固定扫描顺序
var AllSectionKinds = []SectionKind{
	SectionSkills,
	SectionExperience,
	SectionProjects,
	SectionEducation,
	SectionCertifications,
	SectionInternships,
}

// IsValid 判断章节类型是否为已知类型
func (k SectionKind) IsValid() bool {
	for _, known := range AllSectionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Section 简历中一个被识别出的章节
// Start 为标题匹配的起始偏移，ContentStart 为标题结束处，End 为下一个标题的起始或文本末尾
type Section struct {
	Kind         SectionKind `json:"key"`
	Header       string      `json:"header"`
	Start        int         `json:"start"`
	ContentStart int         `json:"content_start"`
	End          int         `json:"end"`
	Content      string      `json:"content"`
}

// SectionMap 按起始位置排序、互不重叠的章节集合
type SectionMap struct {
	Spans []Section `json:"spans"`
}

// Content 返回某类章节的内容，同类章节按发现顺序以换行拼接
func (m SectionMap) Content(kind SectionKind) string {
	var content string
	found := false
	for _, span := range m.Spans {
		if span.Kind != kind {
			continue
		}
		if found {
			content += "\n"
		}
		content += span.Content
		found = true
	}
	return content
}

// Has 判断是否识别出了某类章节
func (m SectionMap) Has(kind SectionKind) bool {
	for _, span := range m.Spans {
		if span.Kind == kind {
			return true
		}
	}
	return false
}

// Len 返回章节数量
func (m SectionMap) Len() int {
	return len(m.Spans)
}

// Company 工作经历中的一段雇佣记录
type Company struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Duration string `json:"duration"`
	Domain   string `json:"domain"`
}

// Project 项目经历
type Project struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Certification 证书
type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Year   string `json:"year"`
}

// Internship 实习经历，Domain 记录实习方向或岗位
type Internship struct {
	Company  string `json:"company"`
	Domain   string `json:"domain"`
	Duration string `json:"duration"`
}

// ParsedResume 一次简历分析得到的结构化结果
type ParsedResume struct {
	ExtractedSkills          []string        `json:"extractedSkills"`
	ExtractedExperienceYears float64         `json:"extractedExperienceYears"`
	Companies                []Company       `json:"companies"`
	Projects                 []Project       `json:"projects"`
	Certifications           []Certification `json:"certifications"`
	Internships              []Internship    `json:"internships"`
	IsFresher                bool            `json:"isFresher"`
}

// NewEmptyParsedResume 返回所有集合为空切片的结果，没有任何经验年限
func NewEmptyParsedResume() ParsedResume {
	return ParsedResume{
		ExtractedSkills: []string{},
		Companies:       []Company{},
		Projects:        []Project{},
		Certifications:  []Certification{},
		Internships:     []Internship{},
		IsFresher:       true,
	}
}

// JobRequirement 岗位要求，由调用方解析后传入
type JobRequirement struct {
	Title                   string   `json:"title" yaml:"title" validate:"max=255"`
	RequiredSkills          []string `json:"requiredSkills" yaml:"required_skills" validate:"max=200,dive,required,max=100"`
	ExperienceRequiredYears float64  `json:"experienceRequiredYears" yaml:"experience_required_years" validate:"gte=0,lte=60"`
}

// ScoreBreakdown 各评分维度的得分，均在 [0,100]
type ScoreBreakdown struct {
	SkillsMatch         int `json:"skillsMatch"`
	ExperienceRelevance int `json:"experienceRelevance"`
	DomainMatch         int `json:"domainMatch"`
	ProjectScore        int `json:"projectScore"`
	CertificationScore  int `json:"certificationScore"`
}

// ATSScoreResult ATS评分结果
type ATSScoreResult struct {
	Score         int            `json:"score"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	MatchedSkills []string       `json:"matchedSkills"`
	MissingSkills []string       `json:"missingSkills"`
}

// NewZeroScoreResult 返回零分结果，技能列表为空切片
func NewZeroScoreResult() ATSScoreResult {
	return ATSScoreResult{
		MatchedSkills: []string{},
		MissingSkills: []string{},
	}
}
