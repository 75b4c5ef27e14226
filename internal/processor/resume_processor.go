package processor // 简历分析引擎的入口：提取、切分、抽取、评分

import (
	"context"
	"fmt"
	"time"

	"resume-intel-go/internal/constants"
	"resume-intel-go/internal/parser"
	"resume-intel-go/internal/tracing"
	"resume-intel-go/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("resume-intel-go/processor")

// Components 聚合引擎各阶段组件，便于集中管理和测试替换
type Components struct {
	Extractor TextExtractor
	Segmenter SectionSegmenter
	Entities  EntityExtractor
	Scorer    Scorer
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	Logger         *zerolog.Logger
	ParserVersion  string
	AnalyzeTimeout time.Duration
}

// AnalysisResult 一次分析的完整输出
type AnalysisResult struct {
	Text     string             `json:"-"`
	Sections types.SectionMap   `json:"sections"`
	Parsed   types.ParsedResume `json:"parsed"`
}

// ResumeProcessor 无状态的分析引擎，可并发使用
type ResumeProcessor struct {
	comp      Components
	settings  Settings
	validator *validator.Validate
}

// NewResumeProcessor 创建分析引擎，未提供的组件使用默认实现
func NewResumeProcessor(comp *Components, set *Settings, opts ...SettingOpt) *ResumeProcessor {
	var c Components
	if comp != nil {
		c = *comp
	}
	var s Settings
	if set != nil {
		s = *set
	}
	for _, opt := range opts {
		opt(&s)
	}

	if s.Logger == nil {
		nop := zerolog.Nop()
		s.Logger = &nop
	}
	if s.ParserVersion == "" {
		s.ParserVersion = constants.DefaultParserVer
	}
	if c.Extractor == nil {
		c.Extractor = parser.NewMultiFormatExtractor(
			parser.WithPDFExtractor(parser.NewNativePDFExtractor(s.Logger)),
			parser.WithDOCXExtractor(parser.NewDOCXExtractor()),
			parser.WithExtractorLogger(s.Logger),
		)
	}
	if c.Segmenter == nil {
		c.Segmenter = parser.MustNewSectionSegmenter(parser.DefaultKeywordTable())
	}
	if c.Entities == nil {
		c.Entities = parser.NewEntityExtractor(parser.WithEntityLogger(s.Logger))
	}
	if c.Scorer == nil {
		c.Scorer = parser.NewDefaultATSScorer()
	}

	return &ResumeProcessor{comp: c, settings: s, validator: validator.New()}
}

// NewResumeProcessorWith 以选项方式创建分析引擎
func NewResumeProcessorWith(compOpts []ComponentOpt, setOpts ...SettingOpt) *ResumeProcessor {
	var c Components
	for _, opt := range compOpts {
		opt(&c)
	}
	return NewResumeProcessor(&c, nil, setOpts...)
}

// ParserVersion 当前解析器版本
func (rp *ResumeProcessor) ParserVersion() string {
	return rp.settings.ParserVersion
}

// Analyze 提取文本并完成章节切分与实体抽取。
// 内容问题从不返回错误：无法提取文本时得到空的 ParsedResume。
func (rp *ResumeProcessor) Analyze(ctx context.Context, data []byte, mimeType string) *AnalysisResult {
	ctx, span := tracer.Start(ctx, "processor.Analyze", trace.WithAttributes(
		attribute.String("mime_type", mimeType),
		attribute.Int("size_bytes", len(data)),
	))
	defer span.End()

	if rp.settings.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rp.settings.AnalyzeTimeout)
		defer cancel()
	}

	text := rp.comp.Extractor.ExtractText(ctx, data, mimeType)
	result := rp.AnalyzeText(text)

	span.SetAttributes(
		attribute.Int("text_length", len(text)),
		attribute.Int("section_count", result.Sections.Len()),
		attribute.Int("skills_count", len(result.Parsed.ExtractedSkills)),
		attribute.Bool("is_fresher", result.Parsed.IsFresher),
	)
	if text == "" {
		span.AddEvent("empty_text")
		rp.settings.Logger.Warn().Str("mime_type", mimeType).Int("size_bytes", len(data)).Msg("未能提取到文本，返回空的分析结果")
	}
	return result
}

// AnalyzeText 对已提取的文本执行切分与实体抽取
func (rp *ResumeProcessor) AnalyzeText(text string) *AnalysisResult {
	sections := rp.comp.Segmenter.Segment(text)
	parsed := rp.comp.Entities.Extract(text, sections)
	return &AnalysisResult{Text: text, Sections: sections, Parsed: parsed}
}

// AnalyzeResume 只返回结构化结果
func (rp *ResumeProcessor) AnalyzeResume(ctx context.Context, data []byte, mimeType string) types.ParsedResume {
	return rp.Analyze(ctx, data, mimeType).Parsed
}

// ValidateJobRequirement 校验岗位要求，nil 视为合法（评分时得到零分结果）
func (rp *ResumeProcessor) ValidateJobRequirement(job *types.JobRequirement) error {
	if job == nil {
		return nil
	}
	if err := rp.validator.Struct(job); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJobRequirement, err)
	}
	return nil
}

// Score 计算ATS评分，只有岗位要求不合法时返回错误
func (rp *ResumeProcessor) Score(ctx context.Context, text string, job *types.JobRequirement, parsed *types.ParsedResume) (types.ATSScoreResult, error) {
	_, span := tracer.Start(ctx, "processor.Score")
	defer span.End()

	if err := rp.ValidateJobRequirement(job); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return types.NewZeroScoreResult(), err
	}

	result := rp.comp.Scorer.Score(text, job, parsed)
	span.SetAttributes(
		attribute.Int("ats.score", result.Score),
		attribute.Int("ats.matched_skills", len(result.MatchedSkills)),
		attribute.Int("ats.missing_skills", len(result.MissingSkills)),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}
