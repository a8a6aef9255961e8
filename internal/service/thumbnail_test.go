package service

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// encodeTestImage создаёт изображение заданного размера в формате PNG или JPEG.
func encodeTestImage(t *testing.T, width, height int, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	default:
		t.Fatalf("неизвестный формат %q", format)
	}
	if err != nil {
		t.Fatalf("кодирование тестового изображения: %v", err)
	}
	return buf.Bytes()
}

// TestGenerate_PNGFitsFrame проверяет вписывание большого PNG в рамку 480x360.
func TestGenerate_PNGFitsFrame(t *testing.T) {
	svc := NewThumbnailService(testLogger())
	data := encodeTestImage(t, 1920, 1080, "png")

	thumb, err := svc.Generate(data, "image/png", "photo.png")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if thumb.Name != "thumb-photo.png" {
		t.Errorf("имя миниатюры: получено %q", thumb.Name)
	}
	if thumb.ContentType != "image/png" {
		t.Errorf("тип миниатюры: получено %q", thumb.ContentType)
	}

	img, err := png.Decode(bytes.NewReader(thumb.Data))
	if err != nil {
		t.Fatalf("декодирование миниатюры: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > 480 || bounds.Dy() > 360 {
		t.Errorf("миниатюра %dx%d не вписана в 480x360", bounds.Dx(), bounds.Dy())
	}
	// Пропорции 16:9 сохраняются
	if bounds.Dx() != 480 || bounds.Dy() != 270 {
		t.Errorf("ожидалось 480x270, получено %dx%d", bounds.Dx(), bounds.Dy())
	}
}

// TestGenerate_SmallImageNotUpscaled проверяет, что маленькое изображение
// не увеличивается.
func TestGenerate_SmallImageNotUpscaled(t *testing.T) {
	svc := NewThumbnailService(testLogger())
	data := encodeTestImage(t, 100, 80, "png")

	thumb, err := svc.Generate(data, "image/png", "icon.png")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(thumb.Data))
	if err != nil {
		t.Fatalf("декодирование миниатюры: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Errorf("изображение увеличено: %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

// TestGenerate_JPEGKeepsType проверяет, что миниатюра JPEG остаётся JPEG.
func TestGenerate_JPEGKeepsType(t *testing.T) {
	svc := NewThumbnailService(testLogger())
	data := encodeTestImage(t, 800, 600, "jpeg")

	thumb, err := svc.Generate(data, "image/jpeg", "photo.jpg")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if thumb.ContentType != "image/jpeg" {
		t.Errorf("тип миниатюры: получено %q", thumb.ContentType)
	}
	if thumb.Name != "thumb-photo.jpg" {
		t.Errorf("имя миниатюры: получено %q", thumb.Name)
	}
	if _, err := jpeg.Decode(bytes.NewReader(thumb.Data)); err != nil {
		t.Errorf("миниатюра не декодируется как JPEG: %v", err)
	}
}

// TestGenerate_SVGRasterizedToPNG проверяет растеризацию SVG:
// содержимое становится PNG, но имя файла сохраняет расширение .svg.
func TestGenerate_SVGRasterizedToPNG(t *testing.T) {
	svc := NewThumbnailService(testLogger())
	svgData := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1000 500">` +
		`<rect x="0" y="0" width="1000" height="500" fill="#336699"/></svg>`)

	thumb, err := svc.Generate(svgData, "image/svg+xml", "diagram.svg")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if thumb.Name != "thumb-diagram.svg" {
		t.Errorf("имя миниатюры: получено %q", thumb.Name)
	}
	if thumb.ContentType != "image/png" {
		t.Errorf("тип миниатюры: получено %q", thumb.ContentType)
	}

	img, err := png.Decode(bytes.NewReader(thumb.Data))
	if err != nil {
		t.Fatalf("миниатюра не декодируется как PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > 480 || bounds.Dy() > 360 {
		t.Errorf("миниатюра %dx%d не вписана в 480x360", bounds.Dx(), bounds.Dy())
	}
}

// TestGenerate_CorruptImage проверяет ошибку на битом изображении.
func TestGenerate_CorruptImage(t *testing.T) {
	svc := NewThumbnailService(testLogger())

	if _, err := svc.Generate([]byte("не изображение"), "image/png", "broken.png"); err == nil {
		t.Error("ожидалась ошибка декодирования")
	}
}

// TestGenerate_UnsupportedType проверяет отказ для неподдерживаемого типа.
func TestGenerate_UnsupportedType(t *testing.T) {
	svc := NewThumbnailService(testLogger())

	if _, err := svc.Generate([]byte("%PDF-1.4"), "application/pdf", "doc.pdf"); err == nil {
		t.Error("ожидалась ошибка для application/pdf")
	}
}

// TestSupported проверяет перечень поддерживаемых типов.
func TestSupported(t *testing.T) {
	svc := NewThumbnailService(testLogger())

	for _, ct := range []string{"image/png", "image/jpeg", "image/svg+xml"} {
		if !svc.Supported(ct) {
			t.Errorf("тип %s должен поддерживаться", ct)
		}
	}
	for _, ct := range []string{"application/pdf", "text/plain", "image/gif"} {
		if svc.Supported(ct) {
			t.Errorf("тип %s не должен поддерживаться", ct)
		}
	}
}
