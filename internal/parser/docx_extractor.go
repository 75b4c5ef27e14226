package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoDocumentBody DOCX压缩包中缺少 word/document.xml
var ErrNoDocumentBody = errors.New("no word/document.xml found in docx")

// DOCXExtractor 直接读取 OOXML 的段落文本
type DOCXExtractor struct{}

// NewDOCXExtractor 创建DOCX提取器
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

var _ DocumentExtractor = (*DOCXExtractor)(nil)

// ExtractDocumentText 段落之间以换行分隔，制表符与换行标记保留
func (d *DOCXExtractor) ExtractDocumentText(ctx context.Context, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return docxBodyText(rc)
	}
	return "", ErrNoDocumentBody
}

// docxBodyText 流式解析 document.xml，只收集 w:t 文本
func docxBodyText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
