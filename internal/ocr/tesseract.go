// Package ocr 提供基于 Tesseract 的光学字符识别实现
package ocr

import (
	"context"
	"fmt"
	"strings"

	"resume-intel-go/internal/config"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer 使用 gosseract 客户端识别图片文本
// 每次识别创建独立客户端，可并发使用
type TesseractRecognizer struct {
	clientFactory func() *gosseract.Client
	defaultLangs  []string
	variables     map[string]string
}

// Option 识别器配置选项
type Option func(*TesseractRecognizer)

// WithDefaultLanguages 调用方未指定语言时使用的语言
func WithDefaultLanguages(langs ...string) Option {
	return func(r *TesseractRecognizer) {
		if len(langs) > 0 {
			r.defaultLangs = append([]string(nil), langs...)
		}
	}
}

// WithVariable 设置 Tesseract 变量，如 user_defined_dpi
func WithVariable(key, value string) Option {
	return func(r *TesseractRecognizer) {
		r.variables[key] = value
	}
}

// NewTesseractRecognizer 创建 Tesseract 识别器
func NewTesseractRecognizer(options ...Option) *TesseractRecognizer {
	r := &TesseractRecognizer{
		clientFactory: gosseract.NewClient,
		defaultLangs:  []string{"eng"},
		variables:     make(map[string]string),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Recognize 识别单张图片
func (r *TesseractRecognizer) Recognize(ctx context.Context, image []byte, languages ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	c := r.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(languages) == 0 {
		languages = r.defaultLangs
	}
	if err := c.SetLanguage(languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	for k, v := range r.variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return "", fmt.Errorf("set variable %s: %w", k, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// NewRecognizerFromConfig 按提取配置创建识别器
func NewRecognizerFromConfig(cfg config.ExtractionConfig) *TesseractRecognizer {
	opts := []Option{WithDefaultLanguages(cfg.OCRLanguages...)}
	for k, v := range cfg.TesseractVariables {
		opts = append(opts, WithVariable(k, v))
	}
	return NewTesseractRecognizer(opts...)
}
