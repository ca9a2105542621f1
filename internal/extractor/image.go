package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var errOCRUnavailable = errors.New("ocr is not configured")

// partitionImage sends the image to the OCR backend and splits the transcript
// into paragraphs. TIFF and BMP are converted to PNG first.
func (e *Extractor) partitionImage(ctx context.Context, path string) ([]string, error) {
	if e.ocr == nil {
		return nil, errOCRUnavailable
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	mimeType, data, err := normalizeImage(data)
	if err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "Running OCR", zap.String("mime_type", mimeType), zap.Int("bytes", len(data)))

	transcript, err := e.ocr.Transcribe(ctx, mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}

	return splitParagraphs(transcript), nil
}

// normalizeImage returns image bytes in a format the OCR model accepts
func normalizeImage(data []byte) (string, []byte, error) {
	mtype := mimetype.Detect(data)

	var decode func([]byte) (image.Image, error)
	switch {
	case mtype.Is("image/png"), mtype.Is("image/jpeg"):
		return mtype.String(), data, nil
	case mtype.Is("image/tiff"):
		decode = func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) }
	case mtype.Is("image/bmp"):
		decode = func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) }
	default:
		return "", nil, fmt.Errorf("unsupported image type %s", mtype.String())
	}

	img, err := decode(data)
	if err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", mtype.String(), err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, fmt.Errorf("encode png: %w", err)
	}
	return "image/png", buf.Bytes(), nil
}
