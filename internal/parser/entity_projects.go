package parser

import (
	"strings"

	"resume-intel-go/internal/types"
)

// ExtractProjects 将项目章节逐行归类为标题或描述，最多保留8个项目
func ExtractProjects(section string) []types.Project {
	projects := []types.Project{}
	var current *types.Project
	var description []string

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.Join(description, " ")
		if len(projects) < maxProjects {
			projects = append(projects, *current)
		}
		current = nil
		description = nil
	}

	for _, line := range splitLines(section) {
		text, bulleted := stripBullet(line)
		if text == "" {
			continue
		}
		if isProjectTitleCandidate(text, bulleted) {
			if title, ok := cleanProjectTitle(text); ok {
				flush()
				if len(projects) == maxProjects {
					break
				}
				current = &types.Project{Title: title}
				continue
			}
		}
		if current != nil {
			description = append(description, text)
		}
	}
	flush()
	return projects
}

// isProjectTitleCandidate 按顺序判断一行是否可能是项目标题
func isProjectTitleCandidate(text string, bulleted bool) bool {
	switch {
	case !bulleted && letterRegex.MatchString(text):
		return true
	case bulleted && strings.Contains(text, ":") && runeLen(text) < 100:
		return true
	case bulleted && runeLen(text) < 50 && !strings.Contains(text, "."):
		return true
	default:
		return false
	}
}

// cleanProjectTitle 去掉行尾日期范围与技术栈后缀，长度需在 [3,100)
func cleanProjectTitle(text string) (string, bool) {
	title := trailingDateRangeRegex.ReplaceAllString(text, "")
	if loc := titleSuffixSplitRegex.FindStringIndex(title); loc != nil {
		title = title[:loc[0]]
	}
	title = trimSeparators(title)
	n := runeLen(title)
	if n < 3 || n >= 100 {
		return "", false
	}
	return title, true
}
