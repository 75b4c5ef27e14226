package parser

import (
	"strings"

	"resume-intel-go/internal/types"
)

// ExtractCertifications 保留长度在 [6,100) 的证书行，按 " — " 或 " - " 拆分名称与颁发机构
func ExtractCertifications(section string) []types.Certification {
	certs := []types.Certification{}
	for _, line := range splitLines(section) {
		line, _ = stripBullet(line)
		n := runeLen(line)
		if n < 6 || n >= 100 {
			continue
		}
		certs = append(certs, parseCertificationLine(line))
		if len(certs) == maxCertifications {
			break
		}
	}
	return certs
}

func parseCertificationLine(line string) types.Certification {
	year := yearRegex.FindString(line)
	name, issuer := line, ""
	if parts := certSplitRegex.Split(line, 2); len(parts) == 2 {
		name, issuer = parts[0], parts[1]
	}
	if year != "" {
		name = stripYear(name, year)
		issuer = stripYear(issuer, year)
	}
	name = trimSeparators(name)
	if name == "" {
		name = trimSeparators(line)
	}
	return types.Certification{
		Name:   name,
		Issuer: trimSeparators(issuer),
		Year:   year,
	}
}

// stripYear 去掉文本中的年份及其外围括号
func stripYear(s, year string) string {
	s = strings.Replace(s, "("+year+")", "", 1)
	s = strings.Replace(s, year, "", 1)
	return strings.TrimSpace(s)
}
