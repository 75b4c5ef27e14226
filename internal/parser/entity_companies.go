package parser

import (
	"strings"

	"resume-intel-go/internal/types"
)

const (
	maxCompanyFieldLength = 60
	shortLineWordLimit    = 10
)

// ExtractCompanies 按日期范围定位工作经历，并从日期前的文本块中解析公司与职位
func ExtractCompanies(section string) []types.Company {
	companies := []types.Company{}
	if strings.TrimSpace(section) == "" {
		return companies
	}
	prevEnd := 0
	for _, loc := range dateRangeRegex.FindAllStringIndex(section, -1) {
		block := section[prevEnd:loc[0]]
		dateMatch := section[loc[0]:loc[1]]
		prevEnd = loc[1]
		company, ok := ParseCompanyBlock(block, dateMatch)
		if !ok {
			continue
		}
		companies = append(companies, company)
		if len(companies) == maxCompanies {
			break
		}
	}
	return companies
}

// ParseCompanyBlock 由日期前的文本块与日期范围解析出一条工作经历
//
// 规则依次为：
//   - 至少两行且倒数第二行少于10个单词：倒数第二行为公司，最后一行为职位
//   - 最后一行含 " — "、" - "、" | " 分隔：前半为职位，后半为公司
//   - 最后一行含职位关键字则为职位，否则为公司
func ParseCompanyBlock(precedingBlock, dateMatch string) (types.Company, bool) {
	var lines []string
	for _, l := range splitLines(precedingBlock) {
		l, _ = stripBullet(l)
		if l = trimSeparators(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return types.Company{}, false
	}

	var name, role string
	last := lines[len(lines)-1]
	switch {
	case len(lines) >= 2 && wordCount(lines[len(lines)-2]) < shortLineWordLimit:
		name = lines[len(lines)-2]
		role = last
	case roleCompanySplitRegex.MatchString(last):
		parts := roleCompanySplitRegex.Split(last, 2)
		role = trimSeparators(parts[0])
		name = trimSeparators(parts[1])
	case titleKeywordRegex.MatchString(last):
		role = last
	default:
		name = last
	}

	name = truncateRunes(name, maxCompanyFieldLength)
	role = truncateRunes(role, maxCompanyFieldLength)
	if name == "" && role == "" {
		return types.Company{}, false
	}
	return types.Company{
		Name:     name,
		Role:     role,
		Duration: strings.TrimSpace(dateMatch),
		Domain:   inferDomain(name, role),
	}, true
}

// ExtractInternships 合并实习章节中的条目与工作经历中类似实习的记录，按公司与方向去重
func ExtractInternships(section string, companies []types.Company) []types.Internship {
	internships := []types.Internship{}
	seen := make(map[string]struct{})
	add := func(in types.Internship) bool {
		key := strings.ToLower(in.Company) + "|" + strings.ToLower(in.Domain)
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		internships = append(internships, in)
		return len(internships) == maxInternships
	}

	for _, line := range splitLines(section) {
		line, _ = stripBullet(line)
		if line == "" || internshipNoiseRegex.MatchString(line) {
			continue
		}
		in, ok := parseInternshipLine(line)
		if !ok {
			continue
		}
		if add(in) {
			return internships
		}
	}

	for _, c := range companies {
		if !internLikeRegex.MatchString(c.Role) && !internLikeRegex.MatchString(c.Name) {
			continue
		}
		if add(types.Internship{Company: c.Name, Domain: c.Role, Duration: c.Duration}) {
			return internships
		}
	}
	return internships
}

// parseInternshipLine 解析实习章节中的一行，如 "Backend Intern — Acme Labs (Jun 2022 - Aug 2022)"
func parseInternshipLine(line string) (types.Internship, bool) {
	var duration string
	if loc := dateRangeRegex.FindStringIndex(line); loc != nil {
		duration = line[loc[0]:loc[1]]
		line = line[:loc[0]] + line[loc[1]:]
	}
	line = trimSeparators(line)
	if line == "" {
		return types.Internship{}, false
	}

	var company, domain string
	switch {
	case atSplitRegex.MatchString(line):
		parts := atSplitRegex.Split(line, 2)
		domain = trimSeparators(parts[0])
		company = trimSeparators(parts[1])
	case roleCompanySplitRegex.MatchString(line):
		parts := roleCompanySplitRegex.Split(line, 2)
		first, second := trimSeparators(parts[0]), trimSeparators(parts[1])
		if titleKeywordRegex.MatchString(second) && !titleKeywordRegex.MatchString(first) {
			company, domain = first, second
		} else {
			domain, company = first, second
		}
	case titleKeywordRegex.MatchString(line):
		domain = line
	default:
		company = line
	}
	return types.Internship{
		Company:  truncateRunes(company, maxCompanyFieldLength),
		Domain:   truncateRunes(domain, maxCompanyFieldLength),
		Duration: strings.TrimSpace(duration),
	}, true
}
