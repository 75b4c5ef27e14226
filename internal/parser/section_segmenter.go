package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"resume-intel-go/internal/types"
)

// maxHeaderLength 标题行（去掉首尾空白后）的最大长度，超过则视为正文
const maxHeaderLength = 60

// KeywordEntry 一类章节及其标题同义词
type KeywordEntry struct {
	Kind     types.SectionKind
	Keywords []string
}

// KeywordTable 章节标题关键字表，构造后不可修改
type KeywordTable struct {
	entries []KeywordEntry
}

// NewKeywordTable 从给定条目构造关键字表，条目与关键字均被复制
func NewKeywordTable(entries ...KeywordEntry) KeywordTable {
	copied := make([]KeywordEntry, 0, len(entries))
	for _, e := range entries {
		kws := make([]string, 0, len(e.Keywords))
		for _, kw := range e.Keywords {
			kw = strings.TrimSpace(kw)
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		copied = append(copied, KeywordEntry{Kind: e.Kind, Keywords: kws})
	}
	return KeywordTable{entries: copied}
}

// Entries 返回关键字表条目的副本
func (t KeywordTable) Entries() []KeywordEntry {
	out := make([]KeywordEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, KeywordEntry{Kind: e.Kind, Keywords: append([]string(nil), e.Keywords...)})
	}
	return out
}

// DefaultKeywordTable 默认的英文简历章节标题表
func DefaultKeywordTable() KeywordTable {
	return NewKeywordTable(
		KeywordEntry{Kind: types.SectionSkills, Keywords: []string{
			"technical skills", "skills", "key skills", "core competencies", "skill set", "skills & tools", "technologies",
		}},
		KeywordEntry{Kind: types.SectionExperience, Keywords: []string{
			"work experience", "professional experience", "experience", "work history", "employment history", "employment",
		}},
		KeywordEntry{Kind: types.SectionProjects, Keywords: []string{
			"projects", "key projects", "academic projects", "personal projects", "project",
		}},
		KeywordEntry{Kind: types.SectionEducation, Keywords: []string{
			"education", "academic background", "educational qualifications", "qualifications",
		}},
		KeywordEntry{Kind: types.SectionCertifications, Keywords: []string{
			"certifications", "certificates", "licenses & certifications", "certification",
		}},
		KeywordEntry{Kind: types.SectionInternships, Keywords: []string{
			"internships", "internship experience", "internship", "trainings & internships",
		}},
	)
}

// headerPattern 一个关键字对应的行锚定正则
type headerPattern struct {
	kind    types.SectionKind
	keyword string
	re      *regexp.Regexp
}

// headerMatch 扫描得到的一个标题匹配
type headerMatch struct {
	kind  types.SectionKind
	index int
	raw   string
}

// SectionSegmenter 基于标题关键字的章节切分器，可并发使用
type SectionSegmenter struct {
	table    KeywordTable
	patterns []headerPattern
}

// NewSectionSegmenter 根据关键字表编译标题匹配规则
func NewSectionSegmenter(table KeywordTable) (*SectionSegmenter, error) {
	s := &SectionSegmenter{table: table}
	for _, entry := range table.entries {
		if !entry.Kind.IsValid() {
			return nil, fmt.Errorf("unknown section kind %q in keyword table", entry.Kind)
		}
		for _, kw := range entry.Keywords {
			re, err := regexp.Compile(`(?im)^\s*` + regexp.QuoteMeta(kw) + `[ \t]*[:\-]?[ \t]*$`)
			if err != nil {
				return nil, fmt.Errorf("compile header pattern for %q: %w", kw, err)
			}
			s.patterns = append(s.patterns, headerPattern{kind: entry.Kind, keyword: kw, re: re})
		}
	}
	return s, nil
}

// MustNewSectionSegmenter 与 NewSectionSegmenter 相同，出错时 panic
func MustNewSectionSegmenter(table KeywordTable) *SectionSegmenter {
	s, err := NewSectionSegmenter(table)
	if err != nil {
		panic(err)
	}
	return s
}

// Table 返回切分器使用的关键字表
func (s *SectionSegmenter) Table() KeywordTable {
	return s.table
}

// Segment 将文本切分为带标签的章节
func (s *SectionSegmenter) Segment(text string) types.SectionMap {
	kept := resolveOverlaps(s.findHeaders(text))
	spans := make([]types.Section, 0, len(kept))
	for i, m := range kept {
		contentStart := m.index + len(m.raw)
		end := len(text)
		if i+1 < len(kept) {
			end = kept[i+1].index
		}
		if end < contentStart {
			end = contentStart
		}
		spans = append(spans, types.Section{
			Kind:         m.kind,
			Header:       strings.TrimSpace(m.raw),
			Start:        m.index,
			ContentStart: contentStart,
			End:          end,
			Content:      strings.TrimSpace(text[contentStart:end]),
		})
	}
	return types.SectionMap{Spans: spans}
}

// findHeaders 找出所有短标题行，按位置排序；同一位置保持扫描顺序
func (s *SectionSegmenter) findHeaders(text string) []headerMatch {
	var matches []headerMatch
	for _, p := range s.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			raw := text[loc[0]:loc[1]]
			if utf8.RuneCountInString(strings.TrimSpace(raw)) >= maxHeaderLength {
				continue
			}
			matches = append(matches, headerMatch{kind: p.kind, index: loc[0], raw: raw})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].index < matches[j].index
	})
	return matches
}

// resolveOverlaps 贪心保留：落在上一个保留标题范围内的匹配被丢弃
func resolveOverlaps(matches []headerMatch) []headerMatch {
	kept := make([]headerMatch, 0, len(matches))
	for _, m := range matches {
		if n := len(kept); n > 0 {
			prev := kept[n-1]
			if m.index < prev.index+len(prev.raw) {
				continue
			}
		}
		kept = append(kept, m)
	}
	return kept
}
