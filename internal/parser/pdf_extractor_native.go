package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// NativePDFExtractor 进程内的PDF文本层提取器，不依赖外部服务
type NativePDFExtractor struct {
	logger *zerolog.Logger
}

// NewNativePDFExtractor 创建进程内PDF提取器
func NewNativePDFExtractor(logger *zerolog.Logger) *NativePDFExtractor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NativePDFExtractor{logger: logger}
}

var _ PDFExtractor = (*NativePDFExtractor)(nil)

// ExtractTextFromBytes 读取PDF全部页面的纯文本
func (e *NativePDFExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (text string, meta map[string]interface{}, err error) {
	meta = metaFromOptions(options)
	if err := ctx.Err(); err != nil {
		return "", meta, err
	}
	startTime := time.Now()

	// 损坏的PDF可能在库内部panic
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", meta, fmt.Errorf("open pdf: %w", err)
	}
	rs, err := r.GetPlainText()
	if err != nil {
		return "", meta, fmt.Errorf("extracting plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rs); err != nil {
		return "", meta, fmt.Errorf("reading text buffer: %w", err)
	}

	text = buf.String()
	meta["page_count"] = r.NumPage()
	meta["text_length"] = len(text)
	meta["processing_duration_ms"] = time.Since(startTime).Milliseconds()
	if uri != "" {
		meta["source_file_path"] = uri
	}
	e.logger.Debug().Str("uri", uri).Int("pages", r.NumPage()).Int("text_length", len(text)).Msg("PDF文本层提取完成")
	return text, meta, nil
}
