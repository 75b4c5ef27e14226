package parser

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var parserTracer = otel.Tracer("resume-intel-go/parser")

const (
	defaultMinPDFTextLength = 100
	defaultMinOCRTextLength = 50
	defaultRenderScale      = 2.0
	defaultOCRTimeout       = 30 * time.Second
)

// MultiFormatExtractor 按MIME类型分派的文本提取器，PDF文本过短时回退到渲染+OCR
// 提取失败从不返回错误，只记录日志并返回空串
type MultiFormatExtractor struct {
	pdf        PDFExtractor
	docx       DocumentExtractor
	legacy     DocumentExtractor
	renderer   PageRenderer
	recognizer Recognizer

	minPDFTextLength int
	minOCRTextLength int
	renderScale      float64
	ocrLanguages     []string
	ocrTimeout       time.Duration
	ocrSlots         chan struct{}
	logger           *zerolog.Logger
}

// ExtractorOption 文本提取器的配置选项
type ExtractorOption func(*MultiFormatExtractor)

// WithPDFExtractor 设置PDF直接提取器
func WithPDFExtractor(p PDFExtractor) ExtractorOption {
	return func(e *MultiFormatExtractor) { e.pdf = p }
}

// WithDOCXExtractor 设置DOCX提取器
func WithDOCXExtractor(d DocumentExtractor) ExtractorOption {
	return func(e *MultiFormatExtractor) { e.docx = d }
}

// WithLegacyDocExtractor 设置旧版 .doc 提取器（通常为Tika）
func WithLegacyDocExtractor(d DocumentExtractor) ExtractorOption {
	return func(e *MultiFormatExtractor) { e.legacy = d }
}

// WithPageRenderer 设置PDF页面渲染器
func WithPageRenderer(r PageRenderer) ExtractorOption {
	return func(e *MultiFormatExtractor) { e.renderer = r }
}

// WithRecognizer 设置OCR识别器
func WithRecognizer(r Recognizer) ExtractorOption {
	return func(e *MultiFormatExtractor) { e.recognizer = r }
}

// WithOCRTimeout 设置渲染+识别的整体期限
func WithOCRTimeout(d time.Duration) ExtractorOption {
	return func(e *MultiFormatExtractor) {
		if d > 0 {
			e.ocrTimeout = d
		}
	}
}

// WithOCRLanguages 设置OCR语言
func WithOCRLanguages(langs ...string) ExtractorOption {
	return func(e *MultiFormatExtractor) {
		if len(langs) > 0 {
			e.ocrLanguages = append([]string(nil), langs...)
		}
	}
}

// WithRenderScale 设置渲染倍率
func WithRenderScale(scale float64) ExtractorOption {
	return func(e *MultiFormatExtractor) {
		if scale > 0 {
			e.renderScale = scale
		}
	}
}

// WithTextThresholds 设置PDF直接提取与OCR结果的长度阈值
func WithTextThresholds(minPDF, minOCR int) ExtractorOption {
	return func(e *MultiFormatExtractor) {
		if minPDF > 0 {
			e.minPDFTextLength = minPDF
		}
		if minOCR > 0 {
			e.minOCRTextLength = minOCR
		}
	}
}

// WithOCRConcurrency 限制同时进行的OCR任务数，0表示不限制
func WithOCRConcurrency(n int) ExtractorOption {
	return func(e *MultiFormatExtractor) {
		if n > 0 {
			e.ocrSlots = make(chan struct{}, n)
		} else {
			e.ocrSlots = nil
		}
	}
}

// WithExtractorLogger 设置日志记录器
func WithExtractorLogger(logger *zerolog.Logger) ExtractorOption {
	return func(e *MultiFormatExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewMultiFormatExtractor 创建文本提取器
func NewMultiFormatExtractor(options ...ExtractorOption) *MultiFormatExtractor {
	nop := zerolog.Nop()
	e := &MultiFormatExtractor{
		minPDFTextLength: defaultMinPDFTextLength,
		minOCRTextLength: defaultMinOCRTextLength,
		renderScale:      defaultRenderScale,
		ocrLanguages:     []string{"eng"},
		ocrTimeout:       defaultOCRTimeout,
		logger:           &nop,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// ExtractText 将原始字节按MIME类型转换为换行规范化的纯文本，失败时返回空串
func (e *MultiFormatExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) string {
	mt := NormalizeMimeType(mimeType)
	ctx, span := parserTracer.Start(ctx, "parser.ExtractText", trace.WithAttributes(
		attribute.String("mime_type", mt),
		attribute.Int("size_bytes", len(data)),
	))
	defer span.End()

	var text string
	switch {
	case mt == MimePDF:
		text = e.extractPDF(ctx, data)
	case mt == MimeDOCX:
		text = e.extractDocument(ctx, e.docx, data, mt)
	case mt == MimeDOC:
		text = e.extractDocument(ctx, e.legacy, data, mt)
	case strings.HasPrefix(mt, "image/"):
		text = e.extractImage(ctx, data)
	default:
		e.logger.Debug().Str("mime_type", mimeType).Msg("不支持的文件类型，返回空文本")
	}

	text = NormalizeNewlines(text)
	span.SetAttributes(attribute.Int("text_length", len(text)))
	return text
}

func (e *MultiFormatExtractor) extractPDF(ctx context.Context, data []byte) string {
	if len(data) == 0 {
		e.logger.Warn().Msg("PDF内容为空")
		return ""
	}

	var direct string
	if e.pdf != nil {
		text, _, err := e.pdf.ExtractTextFromBytes(ctx, data, "", nil)
		if err != nil {
			e.logger.Warn().Err(err).Int("size_bytes", len(data)).Msg("PDF直接提取失败，尝试OCR")
		} else {
			direct = text
		}
	}
	if runeLen(strings.TrimSpace(direct)) >= e.minPDFTextLength {
		return direct
	}

	e.logger.Info().
		Int("direct_length", runeLen(strings.TrimSpace(direct))).
		Int("threshold", e.minPDFTextLength).
		Msg("PDF文本过短，疑似扫描件，回退到OCR")
	ocrText := e.ocrFallback(ctx, data)
	if runeLen(strings.TrimSpace(ocrText)) > e.minOCRTextLength {
		return ocrText
	}
	return ""
}

// ocrFallback 渲染第一页并识别，整体受期限约束
func (e *MultiFormatExtractor) ocrFallback(ctx context.Context, pdf []byte) string {
	if e.renderer == nil || e.recognizer == nil {
		e.logger.Warn().Msg("未配置渲染器或OCR识别器，跳过OCR")
		return ""
	}
	ctx, span := parserTracer.Start(ctx, "parser.OCRFallback")
	defer span.End()

	text, err := e.withDeadline(ctx, func(ctx context.Context) (string, error) {
		img, err := e.renderer.RenderPage(ctx, pdf, 0, e.renderScale)
		if err != nil {
			return "", fmt.Errorf("render first page: %w", err)
		}
		return e.recognizer.Recognize(ctx, img, e.ocrLanguages...)
	})
	if err != nil {
		span.RecordError(err)
		e.logger.Warn().Err(err).Int("size_bytes", len(pdf)).Msg("OCR回退失败，返回空文本")
		return ""
	}
	return text
}

func (e *MultiFormatExtractor) extractImage(ctx context.Context, data []byte) string {
	if len(data) == 0 || e.recognizer == nil {
		e.logger.Warn().Bool("recognizer", e.recognizer != nil).Msg("图片内容为空或未配置OCR识别器")
		return ""
	}
	prepared := PrepareImageForOCR(data, e.renderScale)
	text, err := e.withDeadline(ctx, func(ctx context.Context) (string, error) {
		return e.recognizer.Recognize(ctx, prepared, e.ocrLanguages...)
	})
	if err != nil {
		e.logger.Warn().Err(err).Int("size_bytes", len(data)).Msg("图片OCR失败，返回空文本")
		return ""
	}
	return text
}

func (e *MultiFormatExtractor) extractDocument(ctx context.Context, d DocumentExtractor, data []byte, mimeType string) string {
	if d == nil {
		e.logger.Warn().Str("mime_type", mimeType).Msg("未配置该类型的文档提取器")
		return ""
	}
	text, err := d.ExtractDocumentText(ctx, data, mimeType)
	if err != nil {
		e.logger.Warn().Err(err).Str("mime_type", mimeType).Int("size_bytes", len(data)).Msg("文档文本提取失败")
		return ""
	}
	return text
}

type ocrOutcome struct {
	text string
	err  error
}

// withDeadline 在OCR期限内执行 fn；超时、错误与panic都以错误返回
func (e *MultiFormatExtractor) withDeadline(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.ocrTimeout)
	defer cancel()

	if e.ocrSlots != nil {
		select {
		case e.ocrSlots <- struct{}{}:
		case <-ctx.Done():
			return "", fmt.Errorf("wait for ocr slot: %w", ctx.Err())
		}
	}

	// 识别器可能不响应 ctx，名额要等 fn 真正返回后才归还
	done := make(chan ocrOutcome, 1)
	go func() {
		defer func() {
			if e.ocrSlots != nil {
				<-e.ocrSlots
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				done <- ocrOutcome{err: fmt.Errorf("ocr panic: %v", r)}
			}
		}()
		text, err := fn(ctx)
		done <- ocrOutcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		return out.text, out.err
	case <-ctx.Done():
		return "", fmt.Errorf("ocr deadline exceeded: %w", ctx.Err())
	}
}

// NormalizeMimeType 小写并去掉参数，如 "Application/PDF; charset=binary" -> "application/pdf"
func NormalizeMimeType(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	return mt
}

// NormalizeNewlines 将 \r\n 与单独的 \r 统一为 \n
func NormalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
