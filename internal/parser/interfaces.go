package parser

import (
	"context"
)

// 支持的MIME类型
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
)

// PDFExtractor PDF直接文本提取接口
type PDFExtractor interface {
	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error)
}

// DocumentExtractor 办公文档文本提取接口
type DocumentExtractor interface {
	// ExtractDocumentText 按声明的MIME类型提取纯文本
	ExtractDocumentText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// PageRenderer 将PDF的某一页渲染为栅格图像（PNG字节）
type PageRenderer interface {
	RenderPage(ctx context.Context, pdf []byte, pageIndex int, scale float64) ([]byte, error)
}

// Recognizer 光学字符识别接口
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, languages ...string) (string, error)
}
