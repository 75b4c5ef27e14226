package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength span 属性默认长度上限
	DefaultMaxLength = 200
	// MaxSQLLength db.statement 长度上限
	MaxSQLLength = 500
	// MaxRedisLength Redis 键长度上限
	MaxRedisLength = 100
)

// 属性名包含以下片段时视为候选人信息
var piiFragments = []string{"email", "phone", "name", "邮箱", "电话", "姓名"}

// SafeAttributeValue 候选人信息掩码，其余值按 maxLength 截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lower := strings.ToLower(name)
	for _, frag := range piiFragments {
		if strings.Contains(lower, frag) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 保留首尾少量字符，中间替换为 *
// 不超过4个字符时保留首尾各1个，否则保留首尾各2个
func MaskPII(value string) string {
	runes := []rune(value)
	n := len(runes)
	switch {
	case n == 0:
		return ""
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	case n <= 4:
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	}
	return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
}

// TruncateString 超长时保留首尾，中间以 ... 连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	keep := max((maxLength-3)/2, 1)
	return string(runes[:keep]) + "..." + string(runes[len(runes)-keep:])
}

func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeFilename 上传文件名常带候选人姓名，一律掩码
func SafeFilename(filename string) string {
	return SafeAttributeValue("filename", filename, DefaultMaxLength)
}
