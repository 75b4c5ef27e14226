package parser

import (
	"fmt"
	"strings"
	"testing"

	"resume-intel-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractFromText(text string) types.ParsedResume {
	sections := MustNewSectionSegmenter(DefaultKeywordTable()).Segment(text)
	return NewEntityExtractor().Extract(text, sections)
}

func TestEntityExtractor_SkillsAndExperience(t *testing.T) {
	parsed := extractFromText("Skills\nPython, Go, SQL\n\nExperience\nTotal Experience: 3 years")

	assert.Equal(t, []string{"Python", "Go", "SQL"}, parsed.ExtractedSkills)
	assert.Equal(t, 3.0, parsed.ExtractedExperienceYears)
	assert.False(t, parsed.IsFresher, "有3年经验不应视为应届")
}

func TestEntityExtractor_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		parsed := extractFromText(text)

		assert.NotNil(t, parsed.ExtractedSkills)
		assert.Empty(t, parsed.ExtractedSkills)
		assert.Empty(t, parsed.Companies)
		assert.Empty(t, parsed.Projects)
		assert.Empty(t, parsed.Certifications)
		assert.Empty(t, parsed.Internships)
		assert.Zero(t, parsed.ExtractedExperienceYears)
		assert.True(t, parsed.IsFresher, "空文本应视为应届")
	}
}

func TestEntityExtractor_Deterministic(t *testing.T) {
	first := extractFromText(sampleResume)
	second := extractFromText(sampleResume)
	assert.Equal(t, first, second)
}

func TestExtractExperienceYears(t *testing.T) {
	testCases := []struct {
		text   string
		expect float64
	}{
		{"Total Experience: 3 years", 3},
		{"total experience - 2.5 years", 2.5},
		{"Backend engineer with 5+ years of experience in Go", 5},
		{"7 years of professional experience", 7},
		{"Total Experience: 4 years. Overall 10+ years of experience", 4},
		{"Graduated in 2021, looking for a role", 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expect, ExtractExperienceYears(tc.text), tc.text)
	}
}

func TestExtractSkills(t *testing.T) {
	section := "Languages: Go, Python\nTools: Docker | Git\nDatabase: MySQL\n• Kubernetes\n2019\nSoft skills\nC\ngo"

	skills := ExtractSkills(section)
	assert.Equal(t, []string{"Go", "Python", "Docker", "Git", "MySQL", "Kubernetes"}, skills)
}

func TestExtractSkills_Cap(t *testing.T) {
	var tokens []string
	for i := 0; i < 30; i++ {
		tokens = append(tokens, fmt.Sprintf("Tool%02d", i))
	}
	skills := ExtractSkills(strings.Join(tokens, ", "))
	require.Len(t, skills, maxSkills)
	assert.Equal(t, "Tool00", skills[0])
	assert.Equal(t, "Tool19", skills[19])
}

func TestExtractSkills_LengthBounds(t *testing.T) {
	long := strings.Repeat("x", 35)
	edge := strings.Repeat("y", 34)
	skills := ExtractSkills(long + ", " + edge + ", R")
	assert.Equal(t, []string{edge}, skills)
}

func TestExtractProjects(t *testing.T) {
	section := `Resume Parser — Go, Redis (Jan 2022 - Mar 2022)
- Parsed resumes into structured fields.
- Added caching with Redis.
Chat App : WebSocket, React
- Realtime messaging for 500 users.`

	projects := ExtractProjects(section)
	require.Len(t, projects, 2)
	assert.Equal(t, "Resume Parser", projects[0].Title)
	assert.Equal(t, "Parsed resumes into structured fields. Added caching with Redis.", projects[0].Description)
	assert.Equal(t, "Chat App", projects[1].Title)
	assert.Equal(t, "Realtime messaging for 500 users.", projects[1].Description)
}

func TestExtractProjects_BulletedTitles(t *testing.T) {
	section := `• Inventory Tracker : Python, Flask
• Built REST endpoints and reports.
• Weather Bot
• Sends daily forecasts to subscribers.`

	projects := ExtractProjects(section)
	require.Len(t, projects, 2)
	assert.Equal(t, "Inventory Tracker", projects[0].Title)
	assert.Equal(t, "Built REST endpoints and reports.", projects[0].Description)
	assert.Equal(t, "Weather Bot", projects[1].Title)
}

func TestExtractProjects_ColonNeedsSurroundingSpaces(t *testing.T) {
	section := `Ledger: Double Entry Bookkeeping
- Reconciled ledgers nightly.
Payments Gateway : Go, gRPC
- Settled card payments.`

	projects := ExtractProjects(section)
	require.Len(t, projects, 2)
	assert.Equal(t, "Ledger: Double Entry Bookkeeping", projects[0].Title, "冒号前没有空格时不应截断标题")
	assert.Equal(t, "Payments Gateway", projects[1].Title)
}

func TestExtractProjects_ShortTitleBecomesDescription(t *testing.T) {
	projects := ExtractProjects("Search Engine\nAB")
	require.Len(t, projects, 1)
	assert.Equal(t, "Search Engine", projects[0].Title)
	assert.Equal(t, "AB", projects[0].Description, "过短的标题候选应归入描述")
}

func TestExtractProjects_Cap(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, fmt.Sprintf("Project Number %d", i))
	}
	projects := ExtractProjects(strings.Join(lines, "\n"))
	assert.Len(t, projects, maxProjects)
}

func TestParseCompanyBlock(t *testing.T) {
	testCases := []struct {
		name   string
		block  string
		date   string
		expect types.Company
		ok     bool
	}{
		{
			name:   "公司与职位分两行",
			block:  "Acme Corp\nSoftware Engineer\n",
			date:   "Jan 2020 - Present",
			expect: types.Company{Name: "Acme Corp", Role: "Software Engineer", Duration: "Jan 2020 - Present", Domain: "software"},
			ok:     true,
		},
		{
			name:   "单行带分隔符",
			block:  "Backend Developer - Globex Payments\n",
			date:   "2018 - 2020",
			expect: types.Company{Name: "Globex Payments", Role: "Backend Developer", Duration: "2018 - 2020", Domain: "fintech"},
			ok:     true,
		},
		{
			name:   "单行职位",
			block:  "Senior Engineer\n",
			date:   "03/2019 to 05/2021",
			expect: types.Company{Role: "Senior Engineer", Duration: "03/2019 to 05/2021"},
			ok:     true,
		},
		{
			name:   "单行公司",
			block:  "Initech\n",
			date:   "2015 - 2017",
			expect: types.Company{Name: "Initech", Duration: "2015 - 2017"},
			ok:     true,
		},
		{
			name:  "空文本块",
			block: "\n  \n",
			date:  "2015 - 2017",
			ok:    false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			company, ok := ParseCompanyBlock(tc.block, tc.date)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expect, company)
			}
		})
	}
}

func TestParseCompanyBlock_Truncates(t *testing.T) {
	longName := strings.Repeat("N", 80)
	company, ok := ParseCompanyBlock(longName+"\nDeveloper\n", "2019 - 2020")
	require.True(t, ok)
	assert.Equal(t, 60, runeLen(company.Name))
}

func TestExtractCompaniesAndInternships(t *testing.T) {
	experience := `Acme Corp
Software Engineer
Jan 2020 - Present
- Built APIs
Globex
Intern
Jun 2019 - Dec 2019`

	companies := ExtractCompanies(experience)
	require.Len(t, companies, 2)
	assert.Equal(t, "Acme Corp", companies[0].Name)
	assert.Equal(t, "Software Engineer", companies[0].Role)
	assert.Equal(t, "Globex", companies[1].Name)
	assert.Equal(t, "Intern", companies[1].Role)

	internships := ExtractInternships("", companies)
	assert.Equal(t, []types.Internship{{Company: "Globex", Domain: "Intern", Duration: "Jun 2019 - Dec 2019"}}, internships)
}

func TestExtractCompanies_Cap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&sb, "Company %d\nEngineer\n%d - %d\n", i, 2000+i, 2001+i)
	}
	assert.Len(t, ExtractCompanies(sb.String()), maxCompanies)
}

func TestExtractInternships_Section(t *testing.T) {
	section := `Summer Internship Program
Backend Intern at Acme Labs (Jun 2022 - Aug 2022)
Data Science Intern — Globex Corp
Page 2
backend intern at acme labs`

	internships := ExtractInternships(section, nil)
	require.Len(t, internships, 2, "噪声行与重复条目应被过滤")
	assert.Equal(t, types.Internship{Company: "Acme Labs", Domain: "Backend Intern", Duration: "Jun 2022 - Aug 2022"}, internships[0])
	assert.Equal(t, types.Internship{Company: "Globex Corp", Domain: "Data Science Intern"}, internships[1])
}

func TestExtractInternships_Cap(t *testing.T) {
	var lines []string
	for i := 0; i < 9; i++ {
		lines = append(lines, fmt.Sprintf("Intern at Company %d", i))
	}
	assert.Len(t, ExtractInternships(strings.Join(lines, "\n"), nil), maxInternships)
}

func TestExtractCertifications(t *testing.T) {
	section := `AWS Certified Developer - Amazon (2021)
Certified Kubernetes Administrator — CNCF
CKA
Oracle Java SE 11`

	certs := ExtractCertifications(section)
	require.Len(t, certs, 3, "过短的行应被忽略")
	assert.Equal(t, types.Certification{Name: "AWS Certified Developer", Issuer: "Amazon", Year: "2021"}, certs[0])
	assert.Equal(t, types.Certification{Name: "Certified Kubernetes Administrator", Issuer: "CNCF"}, certs[1])
	assert.Equal(t, "Oracle Java SE 11", certs[2].Name)
	assert.Empty(t, certs[2].Issuer)
}

func TestExtractCertifications_Cap(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, fmt.Sprintf("Certificate number %d", i))
	}
	assert.Len(t, ExtractCertifications(strings.Join(lines, "\n")), maxCertifications)
}

func TestIsFresher(t *testing.T) {
	internship := []types.Internship{{Company: "Acme"}}

	assert.True(t, IsFresher("Fresher seeking backend role", 5, nil), "文本包含 fresher")
	assert.True(t, IsFresher("Backend developer", 0, nil), "经验年限为0时必定为应届")
	assert.True(t, IsFresher("Backend developer", 0, internship))
	assert.False(t, IsFresher("Backend developer", 2, internship))
}

func TestEntityExtractor_FullResume(t *testing.T) {
	text := sampleResume + `
Internships
Backend Intern at Acme Labs (Jun 2018 - Aug 2018)
`
	parsed := extractFromText(text)

	assert.Equal(t, []string{"Python", "Go", "SQL"}, parsed.ExtractedSkills)
	require.Len(t, parsed.Companies, 1)
	assert.Equal(t, "Acme Corp", parsed.Companies[0].Name)
	require.Len(t, parsed.Projects, 1)
	assert.Equal(t, "Resume Parser | Go, Redis", parsed.Projects[0].Title)
	require.Len(t, parsed.Certifications, 1)
	assert.Equal(t, "Amazon", parsed.Certifications[0].Issuer)
	require.Len(t, parsed.Internships, 1)
	assert.Equal(t, "Acme Labs", parsed.Internships[0].Company)
	assert.False(t, parsed.IsFresher)
}
