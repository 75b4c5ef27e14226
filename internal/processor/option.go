package processor

import (
	"time"

	"github.com/rs/zerolog"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// WithTextExtractor 设置文本提取器
func WithTextExtractor(extractor TextExtractor) ComponentOpt {
	return func(c *Components) {
		c.Extractor = extractor
	}
}

// WithSegmenter 设置章节切分器
func WithSegmenter(segmenter SectionSegmenter) ComponentOpt {
	return func(c *Components) {
		c.Segmenter = segmenter
	}
}

// WithEntityExtractor 设置实体抽取器
func WithEntityExtractor(entities EntityExtractor) ComponentOpt {
	return func(c *Components) {
		c.Entities = entities
	}
}

// WithScorer 设置评分器
func WithScorer(scorer Scorer) ComponentOpt {
	return func(c *Components) {
		c.Scorer = scorer
	}
}

// WithLogger 设置日志记录器，nil 时使用空日志
func WithLogger(logger *zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		} else {
			nop := zerolog.Nop()
			s.Logger = &nop
		}
	}
}

// WithParserVersion 设置写入分析记录的解析器版本
func WithParserVersion(version string) SettingOpt {
	return func(s *Settings) {
		if version != "" {
			s.ParserVersion = version
		}
	}
}

// WithAnalyzeTimeout 设置单次分析的整体期限，0 表示不限制
func WithAnalyzeTimeout(d time.Duration) SettingOpt {
	return func(s *Settings) {
		s.AnalyzeTimeout = d
	}
}
