package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Downscale ограничивает кадр рамкой maxWidth x maxHeight перед отправкой,
// чтобы ограничить размер и время загрузки. Кадр в пределах рамки
// возвращается как есть, без перекодирования.
func Downscale(frame *Frame, maxWidth, maxHeight, quality int) ([]byte, error) {
	if frame.Width <= maxWidth && frame.Height <= maxHeight {
		return frame.Data, nil
	}

	src, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	targetW, targetH := fitWithin(frame.Width, frame.Height, maxWidth, maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin подбирает размеры внутри рамки с сохранением пропорций
func fitWithin(w, h, maxW, maxH int) (int, int) {
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	if scale >= 1 {
		return w, h
	}

	targetW := int(float64(w) * scale)
	targetH := int(float64(h) * scale)
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}
	return targetW, targetH
}
