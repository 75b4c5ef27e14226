package processor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"resume-intel-go/internal/config"
	"resume-intel-go/internal/parser"
	"resume-intel-go/internal/types"

	"github.com/rs/zerolog"
)

// BuildKeywordTable 以默认关键字表为基础，用配置覆盖指定章节的关键字
func BuildKeywordTable(cfg config.SegmenterConfig) (parser.KeywordTable, error) {
	base := parser.DefaultKeywordTable()
	if len(cfg.Keywords) == 0 {
		return base, nil
	}

	kinds := make([]string, 0, len(cfg.Keywords))
	for k := range cfg.Keywords {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		if !types.SectionKind(k).IsValid() {
			return parser.KeywordTable{}, fmt.Errorf("未知的章节类型: %q", k)
		}
	}

	entries := base.Entries()
	for i, e := range entries {
		if kws, ok := cfg.Keywords[string(e.Kind)]; ok && len(kws) > 0 {
			entries[i].Keywords = kws
		}
	}
	return parser.NewKeywordTable(entries...), nil
}

// BuildSegmenter 根据配置创建章节切分器
func BuildSegmenter(cfg config.SegmenterConfig) (*parser.SectionSegmenter, error) {
	table, err := BuildKeywordTable(cfg)
	if err != nil {
		return nil, err
	}
	return parser.NewSectionSegmenter(table)
}

// BuildScorer 根据配置的权重创建评分器
func BuildScorer(cfg config.ScoringConfig) (*parser.ATSScorer, error) {
	w := cfg.Weights
	return parser.NewATSScorer(parser.ScoreWeights{
		Skills:        w.Skills,
		Experience:    w.Experience,
		Domain:        w.Domain,
		Project:       w.Project,
		Certification: w.Certification,
	})
}

// BuildPDFExtractor 根据 extraction.pdf_backend 选择PDF直接提取后端
func BuildPDFExtractor(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (parser.PDFExtractor, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	switch cfg.Extraction.PDFBackend {
	case config.PDFBackendTika:
		if cfg.Tika.ServerURL == "" {
			return nil, fmt.Errorf("pdf_backend=tika 但未配置 tika.server_url")
		}
		return newTikaExtractor(cfg, logger), nil
	case config.PDFBackendNative:
		return parser.NewNativePDFExtractor(logger), nil
	case config.PDFBackendEino, "":
		return parser.NewEinoPDFTextExtractor(ctx,
			parser.WithEinoLogger(logger),
			parser.WithEinoTimeout(time.Duration(cfg.Tika.Timeout)*time.Second),
		)
	default:
		return nil, fmt.Errorf("未知的PDF后端: %q", cfg.Extraction.PDFBackend)
	}
}

func newTikaExtractor(cfg *config.Config, logger *zerolog.Logger) *parser.TikaExtractor {
	opts := []parser.TikaOption{parser.WithTikaLogger(logger)}
	switch cfg.Tika.MetadataMode {
	case "full":
		opts = append(opts, parser.WithFullMetadata(true))
	case "none":
	default:
		opts = append(opts, parser.WithMinimalMetadata(true))
	}
	if cfg.Tika.Timeout > 0 {
		opts = append(opts, parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
	}
	return parser.NewTikaExtractor(cfg.Tika.ServerURL, opts...)
}

// BuildTextExtractor 组装多格式文本提取器。
// recognizer 由调用方创建（通常为 ocr.TesseractRecognizer），为 nil 时不做OCR；
// 未配置渲染服务时PDF不做OCR降级。
func BuildTextExtractor(ctx context.Context, cfg *config.Config, recognizer parser.Recognizer, logger *zerolog.Logger) (*parser.MultiFormatExtractor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	pdfExtractor, err := BuildPDFExtractor(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ex := cfg.Extraction
	opts := []parser.ExtractorOption{
		parser.WithPDFExtractor(pdfExtractor),
		parser.WithTextThresholds(ex.MinPDFTextLength, ex.MinOCRTextLength),
		parser.WithRenderScale(ex.RenderScale),
		parser.WithOCRLanguages(ex.OCRLanguages...),
		parser.WithOCRTimeout(config.GetDuration(ex.OCRTimeout, 30*time.Second)),
		parser.WithOCRConcurrency(ex.OCRConcurrency),
		parser.WithExtractorLogger(logger),
	}

	if cfg.Tika.ServerURL != "" {
		tika := newTikaExtractor(cfg, logger)
		opts = append(opts, parser.WithLegacyDocExtractor(tika))
		if cfg.Tika.UseForDOCX {
			opts = append(opts, parser.WithDOCXExtractor(tika))
		} else {
			opts = append(opts, parser.WithDOCXExtractor(parser.NewDOCXExtractor()))
		}
	} else {
		opts = append(opts, parser.WithDOCXExtractor(parser.NewDOCXExtractor()))
	}

	if ex.OCREnabled && recognizer == nil {
		logger.Warn().Msg("已启用OCR但未提供识别器，OCR降级不可用")
	}
	if ex.OCREnabled && recognizer != nil {
		opts = append(opts, parser.WithRecognizer(recognizer))

		if cfg.Renderer.ServerURL != "" {
			opts = append(opts, parser.WithPageRenderer(parser.NewHTTPPageRenderer(cfg.Renderer.ServerURL,
				parser.WithRendererTimeout(time.Duration(cfg.Renderer.TimeoutSeconds)*time.Second),
				parser.WithRendererLogger(logger),
			)))
		}
	}

	return parser.NewMultiFormatExtractor(opts...), nil
}

// NewResumeProcessorFromConfig 按配置组装完整的分析引擎
func NewResumeProcessorFromConfig(ctx context.Context, cfg *config.Config, recognizer parser.Recognizer, logger *zerolog.Logger) (*ResumeProcessor, error) {
	extractor, err := BuildTextExtractor(ctx, cfg, recognizer, logger)
	if err != nil {
		return nil, fmt.Errorf("创建文本提取器失败: %w", err)
	}
	segmenter, err := BuildSegmenter(cfg.Segmenter)
	if err != nil {
		return nil, fmt.Errorf("创建章节切分器失败: %w", err)
	}
	scorer, err := BuildScorer(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("创建评分器失败: %w", err)
	}

	return NewResumeProcessorWith(
		[]ComponentOpt{
			WithTextExtractor(extractor),
			WithSegmenter(segmenter),
			WithEntityExtractor(parser.NewEntityExtractor(parser.WithEntityLogger(logger))),
			WithScorer(scorer),
		},
		WithLogger(logger),
		WithParserVersion(cfg.ActiveParserVersion),
		WithAnalyzeTimeout(config.GetDuration(cfg.Server.RequestTimeout, 60*time.Second)),
	), nil
}
