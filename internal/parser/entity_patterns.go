package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const monthPattern = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

const datePointPattern = `(?:` + monthPattern + `\.?,?\s+\d{4}|\d{1,2}/\d{4}|\d{4})`

var (
	// dateRangeRegex 形如 "Jan 2020 - Present"、"03/2019 to 05/2021"、"2018 – 2020"
	dateRangeRegex = regexp.MustCompile(`(?i)\b` + datePointPattern + `\s*(?:to|–|—|-)\s*(?:` + datePointPattern + `|present|current|now)\b`)

	// trailingDateRangeRegex 行尾的月份日期范围，可带括号
	trailingDateRangeRegex = regexp.MustCompile(`(?i)[\s,|]*[(\[]?\s*` + monthPattern + `\.?,?\s+\d{4}\s*(?:to|–|—|-)\s*(?:` + monthPattern + `\.?,?\s+\d{4}|present|current|now)\s*[)\]]?\s*$`)

	experienceYearsRegex = regexp.MustCompile(`(?i)total\s+experience\s*[:\-]?\s*(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)\s*\+?\s*years?\s+of\s+(?:professional\s+|work\s+|industry\s+|relevant\s+)?experience`)

	skillLabelRegex = regexp.MustCompile(`(?i)\b(?:programming\s+languages|languages|tools|frameworks|databases?|web\s+technologies)\s*:`)

	skillSplitRegex = regexp.MustCompile(`[,|\n•●▪◦‣∙·]+`)

	titleKeywordRegex = regexp.MustCompile(`(?i)\b(?:developer|engineer|intern|trainee|manager|lead|consultant)\b`)

	internLikeRegex = regexp.MustCompile(`(?i)\b(?:intern|interns|internship|trainee|fresher|student|apprentice|apprenticeship|fellow|fellowship)\b`)

	internshipNoiseRegex = regexp.MustCompile(`(?i)internship|page|training`)

	roleCompanySplitRegex = regexp.MustCompile(`\s+(?:—|–|-|\|)\s+`)

	atSplitRegex = regexp.MustCompile(`(?i)\s+at\s+`)

	titleSuffixSplitRegex = regexp.MustCompile(`\s+[—–:-]\s+`)

	certSplitRegex = regexp.MustCompile(`\s+[—–-]\s+`)

	yearRegex = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

	digitsOnlyRegex = regexp.MustCompile(`^\d+$`)

	letterRegex = regexp.MustCompile(`\pL`)
)

// bulletRunes 简历中常见的列表符号
const bulletRunes = "•●▪◦‣∙·*-–—>"

// splitLines 按换行切分并去掉空行，每行去掉首尾空白
func splitLines(block string) []string {
	raw := strings.Split(block, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// stripBullet 去掉行首的列表符号，返回去掉后的文本以及是否带有列表符号
func stripBullet(line string) (string, bool) {
	line = strings.TrimSpace(line)
	r, size := utf8.DecodeRuneInString(line)
	if size == 0 || !strings.ContainsRune(bulletRunes, r) {
		return line, false
	}
	rest := strings.TrimLeftFunc(line[size:], func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(bulletRunes, r)
	})
	return rest, true
}

// truncateRunes 按字符截断
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

// runeLen 字符长度
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// trimSeparators 去掉首尾的分隔符与空白
func trimSeparators(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("|,;:()[]—–-@", r)
	})
}

// wordCount 以空白分隔的单词数
func wordCount(s string) int {
	return len(strings.Fields(s))
}

var industryKeywords = []struct {
	domain string
	re     *regexp.Regexp
}{
	{"fintech", regexp.MustCompile(`(?i)\b(?:bank|banking|fintech|payments?|finance|financial|insurance|capital)\b`)},
	{"healthcare", regexp.MustCompile(`(?i)\b(?:health|healthcare|hospital|medical|pharma|clinic)\b`)},
	{"e-commerce", regexp.MustCompile(`(?i)\b(?:e-?commerce|retail|marketplace|shopping)\b`)},
	{"edtech", regexp.MustCompile(`(?i)\b(?:edtech|education|learning|university|school|academy)\b`)},
	{"telecom", regexp.MustCompile(`(?i)\b(?:telecom|telecommunications|networks?)\b`)},
	{"gaming", regexp.MustCompile(`(?i)\b(?:gaming|games?|studios?)\b`)},
	{"consulting", regexp.MustCompile(`(?i)\b(?:consulting|consultancy|advisory)\b`)},
	{"software", regexp.MustCompile(`(?i)\b(?:software|saas|technologies|tech|labs|systems|solutions|infotech)\b`)},
}

// inferDomain 根据公司与职位文本推断行业，未命中时返回空串
func inferDomain(texts ...string) string {
	joined := strings.Join(texts, " ")
	for _, ik := range industryKeywords {
		if ik.re.MatchString(joined) {
			return ik.domain
		}
	}
	return ""
}
