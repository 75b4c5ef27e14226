package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TikaExtractor 基于Apache Tika服务器的文档解析器，支持PDF、DOCX与旧版DOC
type TikaExtractor struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// 是否提取完整元数据
	extractFullMetadata bool
	// 是否提取精简元数据
	extractMinimalMetadata bool
	// 是否提取链接注释文本
	extractAnnotations bool
	logger             *zerolog.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaExtractor)

// WithFullMetadata 配置是否提取完整元数据
func WithFullMetadata(extract bool) TikaOption {
	return func(e *TikaExtractor) {
		e.extractFullMetadata = extract
	}
}

// WithMinimalMetadata 配置是否提取精简的关键元数据
func WithMinimalMetadata(extract bool) TikaOption {
	return func(e *TikaExtractor) {
		e.extractMinimalMetadata = extract
	}
}

// WithAnnotations 配置是否提取PDF链接注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaExtractor) {
		e.extractAnnotations = extract
	}
}

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(logger *zerolog.Logger) TikaOption {
	return func(e *TikaExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaExtractor) {
		e.Client.Timeout = timeout
	}
}

var (
	_ PDFExtractor      = (*TikaExtractor)(nil)
	_ DocumentExtractor = (*TikaExtractor)(nil)
)

// NewTikaExtractor 创建一个新的Tika解析器
func NewTikaExtractor(serverURL string, options ...TikaOption) *TikaExtractor {
	nop := zerolog.Nop()
	extractor := &TikaExtractor{
		ServerURL:              strings.TrimRight(serverURL, "/"),
		Client:                 &http.Client{Timeout: 60 * time.Second},
		extractFullMetadata:    false,
		extractMinimalMetadata: false,
		extractAnnotations:     true,
		logger:                 &nop,
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

// ExtractTextFromBytes 提取PDF文本层
func (e *TikaExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error) {
	startTime := time.Now()
	metadata := metaFromOptions(options)
	metadata["extraction_time"] = startTime.Format(time.RFC3339)
	if uri != "" {
		metadata["source_file_path"] = uri
	}

	text, err := e.putText(ctx, data, MimePDF, uri)
	if err != nil {
		return "", metadata, err
	}
	metadata["text_length"] = len(text)
	metadata["processing_duration_ms"] = time.Since(startTime).Milliseconds()

	if e.extractFullMetadata || e.extractMinimalMetadata {
		rawMetadata, err := e.extractMetadata(ctx, data, MimePDF, uri)
		if err != nil {
			e.logger.Warn().Err(err).Str("uri", uri).Msg("元数据提取失败，继续使用基本元数据")
		} else {
			for k, v := range rawMetadata {
				if e.extractFullMetadata || isImportantMetadata(k) {
					metadata[k] = v
				}
			}
		}
	}
	return text, metadata, nil
}

// ExtractDocumentText 按MIME类型提取办公文档纯文本
func (e *TikaExtractor) ExtractDocumentText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return e.putText(ctx, data, mimeType, "")
}

func (e *TikaExtractor) putText(ctx context.Context, data []byte, contentType, uri string) (string, error) {
	url := fmt.Sprintf("%s/tika", e.ServerURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}
	if !e.extractAnnotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}
	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}
	return string(textBytes), nil
}

// 判断元数据字段是否重要
func isImportantMetadata(key string) bool {
	switch key {
	case "pdf:PDFVersion", "xmpTPg:NPages", "dcterms:created", "language",
		"pdf:charsPerPage", "dc:title", "Content-Type", "pdf:docinfo:title",
		"pdf:docinfo:created", "pdf:totalUnmappedUnicodeChars":
		return true
	}
	return false
}

// extractMetadata 提取文档元数据
func (e *TikaExtractor) extractMetadata(ctx context.Context, data []byte, contentType, uri string) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/meta", e.ServerURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	var metadata map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("解析元数据JSON失败: %w", err)
	}
	return metadata, nil
}
