// Package imageprep уменьшает изображения блюд перед загрузкой.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/mmeshcher/food-admin/internal/model"
)

const jpegQuality = 80

// ErrUnsupportedFormat возвращается, если изображение не удалось декодировать как PNG или JPEG.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Normalize уменьшает изображение шире maxWidth до maxWidth с сохранением пропорций
// и перекодирует его в JPEG. Узкие изображения возвращаются без изменений.
func Normalize(p *model.ImagePayload, maxWidth int) (*model.ImagePayload, error) {
	if p == nil || maxWidth <= 0 {
		return p, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(p.Data))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width <= maxWidth {
		return p, nil
	}

	img, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	resized := resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)

	out := &bytes.Buffer{}
	if err := jpeg.Encode(out, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return p, fmt.Errorf("encode jpeg: %w", err)
	}

	return &model.ImagePayload{
		Filename:    uuid.NewString() + ".jpg",
		ContentType: "image/jpeg",
		Data:        out.Bytes(),
	}, nil
}
