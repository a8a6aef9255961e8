// thumbnail.go — генерация миниатюр для загружаемых изображений.
// Растровые изображения (PNG, JPEG) вписываются в рамку 480x360 с
// сохранением пропорций, без увеличения. SVG растеризуется в PNG.
package service

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/bigkaa/roomstore/internal/api/middleware"
	"github.com/bigkaa/roomstore/internal/domain/mediatype"
)

// Рамка миниатюры.
const (
	thumbMaxWidth  = 480
	thumbMaxHeight = 360
)

// Thumbnail — результат генерации миниатюры.
type Thumbnail struct {
	// Data — закодированное изображение миниатюры
	Data []byte
	// Name — имя файла миниатюры: thumb-<оригинальное имя>
	Name string
	// ContentType — MIME-тип миниатюры (image/png или image/jpeg)
	ContentType string
}

// ThumbnailService — сервис генерации миниатюр.
type ThumbnailService struct {
	logger *slog.Logger
}

// NewThumbnailService создаёт сервис генерации миниатюр.
func NewThumbnailService(logger *slog.Logger) *ThumbnailService {
	return &ThumbnailService{
		logger: logger.With(slog.String("component", "thumbnail_service")),
	}
}

// Supported сообщает, умеет ли сервис строить миниатюру для данного MIME-типа.
func (s *ThumbnailService) Supported(contentType string) bool {
	return mediatype.IsImage(contentType)
}

// Generate строит миниатюру для изображения.
// Имя миниатюры — thumb-<оригинальное имя>, расширение не меняется.
// Для SVG содержимое растеризуется в PNG, ContentType становится image/png.
func (s *ThumbnailService) Generate(data []byte, contentType, filename string) (*Thumbnail, error) {
	thumbName := "thumb-" + filename

	switch contentType {
	case "image/svg+xml":
		encoded, err := rasterizeSVG(data)
		if err != nil {
			middleware.ThumbnailsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("растеризация SVG: %w", err)
		}
		middleware.ThumbnailsTotal.WithLabelValues("success").Inc()
		return &Thumbnail{
			Data:        encoded,
			Name:        thumbName,
			ContentType: "image/png",
		}, nil

	case "image/png", "image/jpeg":
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			middleware.ThumbnailsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("декодирование изображения: %w", err)
		}

		// Fit не увеличивает изображения меньше рамки
		fitted := imaging.Fit(img, thumbMaxWidth, thumbMaxHeight, imaging.Lanczos)

		format := imaging.PNG
		if contentType == "image/jpeg" {
			format = imaging.JPEG
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, fitted, format); err != nil {
			middleware.ThumbnailsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("кодирование миниатюры: %w", err)
		}

		middleware.ThumbnailsTotal.WithLabelValues("success").Inc()
		return &Thumbnail{
			Data:        buf.Bytes(),
			Name:        thumbName,
			ContentType: contentType,
		}, nil

	default:
		return nil, fmt.Errorf("миниатюры для типа %s не поддерживаются", contentType)
	}
}

// rasterizeSVG растеризует SVG в PNG, вписывая в рамку миниатюры.
func rasterizeSVG(data []byte) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("разбор SVG: %w", err)
	}

	srcW, srcH := icon.ViewBox.W, icon.ViewBox.H
	if srcW <= 0 || srcH <= 0 {
		return nil, fmt.Errorf("некорректный viewBox SVG: %.0fx%.0f", srcW, srcH)
	}

	// Вписываем в рамку с сохранением пропорций, без увеличения
	scale := 1.0
	if srcW > thumbMaxWidth || srcH > thumbMaxHeight {
		scaleW := thumbMaxWidth / srcW
		scaleH := thumbMaxHeight / srcH
		scale = scaleW
		if scaleH < scaleW {
			scale = scaleH
		}
	}

	width := int(srcW * scale)
	height := int(srcH * scale)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("кодирование PNG: %w", err)
	}
	return buf.Bytes(), nil
}
