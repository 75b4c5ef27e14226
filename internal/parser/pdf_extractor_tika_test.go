package parser

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTikaExtractor(t *testing.T) {
	extractor := NewTikaExtractor("http://localhost:9998/")
	require.NotNil(t, extractor, "创建的Tika提取器不应为nil")
	assert.Equal(t, "http://localhost:9998", extractor.ServerURL, "末尾斜杠应被去掉")
	require.NotNil(t, extractor.Client, "HTTP客户端不应为nil")
	assert.Equal(t, 60*time.Second, extractor.Client.Timeout, "HTTP客户端超时应为60秒")
	assert.False(t, extractor.extractFullMetadata, "默认应该不提取完整元数据")
	assert.True(t, extractor.extractAnnotations, "默认应该提取注释文本")

	customLogger := zerolog.Nop()
	custom := NewTikaExtractor(
		"http://localhost:9998",
		WithFullMetadata(true),
		WithMinimalMetadata(false),
		WithAnnotations(false),
		WithTikaLogger(&customLogger),
		WithTimeout(30*time.Second),
	)
	assert.True(t, custom.extractFullMetadata, "应该设置为提取完整元数据")
	assert.False(t, custom.extractAnnotations)
	assert.Equal(t, &customLogger, custom.logger, "应该使用提供的自定义logger")
	assert.Equal(t, 30*time.Second, custom.Client.Timeout, "应该使用自定义超时")
}

// 创建一个模拟的Tika服务器，用于测试
func createMockTikaServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/tika":
			if string(body) == "corrupt" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			switch r.Header.Get("Content-Type") {
			case MimePDF:
				if r.Header.Get("X-Tika-PDFExtractAnnotationText") == "false" {
					w.Write([]byte("Skills\nGo (no annotations)"))
					return
				}
				w.Write([]byte("Skills\nGo, SQL"))
			case MimeDOC:
				w.Write([]byte("Legacy word document"))
			default:
				w.Write([]byte("Generic document"))
			}
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"xmpTPg:NPages":"2","Content-Type":"application/pdf","X-Parsed-By":"org.apache.tika.parser.pdf.PDFParser"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTikaExtractor_ExtractTextFromBytes(t *testing.T) {
	server := createMockTikaServer(t)
	defer server.Close()

	extractor := NewTikaExtractor(server.URL, WithMinimalMetadata(true))
	text, metadata, err := extractor.ExtractTextFromBytes(context.Background(), []byte("%PDF-1.7"), "resume.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "Skills\nGo, SQL", text)
	assert.Equal(t, "resume.pdf", metadata["source_file_path"])
	assert.Equal(t, "2", metadata["xmpTPg:NPages"], "精简元数据应包含页数")
	assert.NotContains(t, metadata, "X-Parsed-By", "精简模式不应包含非关键元数据")

	full := NewTikaExtractor(server.URL, WithFullMetadata(true))
	_, metadata, err = full.ExtractTextFromBytes(context.Background(), []byte("%PDF-1.7"), "", map[string]interface{}{"submission_uuid": "abc"})
	require.NoError(t, err)
	assert.Contains(t, metadata, "X-Parsed-By")
	assert.Equal(t, "abc", metadata["submission_uuid"])
}

func TestTikaExtractor_NoAnnotations(t *testing.T) {
	server := createMockTikaServer(t)
	defer server.Close()

	extractor := NewTikaExtractor(server.URL, WithAnnotations(false))
	text, _, err := extractor.ExtractTextFromBytes(context.Background(), []byte("%PDF"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Skills\nGo (no annotations)", text)
}

func TestTikaExtractor_ExtractDocumentText(t *testing.T) {
	server := createMockTikaServer(t)
	defer server.Close()

	extractor := NewTikaExtractor(server.URL)
	text, err := extractor.ExtractDocumentText(context.Background(), []byte{0xD0, 0xCF}, MimeDOC)
	require.NoError(t, err)
	assert.Equal(t, "Legacy word document", text)
}

func TestTikaExtractor_ErrorStatus(t *testing.T) {
	server := createMockTikaServer(t)
	defer server.Close()

	extractor := NewTikaExtractor(server.URL)
	_, _, err := extractor.ExtractTextFromBytes(context.Background(), []byte("corrupt"), "", nil)
	assert.Error(t, err, "Tika返回非200时应报错")
	assert.Contains(t, err.Error(), "422")
}

func TestTikaExtractor_ServerUnavailable(t *testing.T) {
	server := createMockTikaServer(t)
	url := server.URL
	server.Close()

	extractor := NewTikaExtractor(url, WithTimeout(time.Second))
	_, err := extractor.ExtractDocumentText(context.Background(), []byte("x"), MimeDOCX)
	assert.Error(t, err)
}

func TestTikaExtractor_ContextCancelled(t *testing.T) {
	server := createMockTikaServer(t)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewTikaExtractor(server.URL).ExtractTextFromBytes(ctx, []byte("%PDF"), "", nil)
	assert.Error(t, err)
}
