package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNativePDFExtractor_InvalidInput(t *testing.T) {
	extractor := NewNativePDFExtractor(nil)

	for _, data := range [][]byte{nil, []byte("plain text"), []byte("%PDF-1.4\n%%EOF")} {
		text, meta, err := extractor.ExtractTextFromBytes(context.Background(), data, "bad.pdf", nil)
		assert.Error(t, err)
		assert.Empty(t, text)
		assert.NotNil(t, meta)
	}
}

func TestNativePDFExtractor_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewNativePDFExtractor(nil).ExtractTextFromBytes(ctx, []byte("%PDF"), "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNativePDFExtractor_DegradesInPipeline(t *testing.T) {
	e := NewMultiFormatExtractor(WithPDFExtractor(NewNativePDFExtractor(nil)))
	assert.Equal(t, "", e.ExtractText(context.Background(), []byte("corrupt pdf"), MimePDF))
}
