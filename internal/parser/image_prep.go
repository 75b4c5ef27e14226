package parser

import (
	"bytes"
	"image"
	"image/png"

	// 注册常见图片解码器
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// minOCRShortSide 短边小于该值的图片在识别前放大
const minOCRShortSide = 1000

// maxOCRLongSide 放大后长边上限
const maxOCRLongSide = 6000

// PrepareImageForOCR 将任意支持的图片解码并在过小时放大，统一编码为PNG
// 无法解码时原样返回，由识别器自行处理
func PrepareImageForOCR(data []byte, scale float64) []byte {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return data
	}

	short, long := w, h
	if h < w {
		short, long = h, w
	}
	if short >= minOCRShortSide || scale <= 1 {
		return encodePNG(src, data)
	}
	if float64(long)*scale > maxOCRLongSide {
		scale = float64(maxOCRLongSide) / float64(long)
	}
	if scale <= 1 {
		return encodePNG(src, data)
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return encodePNG(dst, data)
}

func encodePNG(img image.Image, fallback []byte) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fallback
	}
	return buf.Bytes()
}
