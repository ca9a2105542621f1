package vertex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const ocrPrompt = "Transcribe all text visible in this image exactly as written. " +
	"Keep the reading order, separate paragraphs with a blank line and output only the transcribed text."

// OCR transcribes images with a Gemini model
type OCR struct {
	models    modelProvider
	projectID string
	location  string
	model     string
	logger    *zap.Logger
}

func NewOCR(httpClient *http.Client, creds *auth.Credentials, projectID, location, model string, logger *zap.Logger) *OCR {
	return newOCR(newGenaiClients(httpClient, creds), projectID, location, model, logger)
}

func newOCR(models modelProvider, projectID, location, model string, logger *zap.Logger) *OCR {
	return &OCR{
		models:    models,
		projectID: projectID,
		location:  location,
		model:     model,
		logger:    logger,
	}
}

func (o *OCR) Transcribe(ctx context.Context, mimeType string, image []byte) (string, error) {
	if o.projectID == "" {
		return "", errors.New("ocr needs a project id")
	}

	models, err := o.models.Models(ctx, o.projectID, o.location)
	if err != nil {
		return "", err
	}

	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(ocrPrompt),
	}, genai.RoleUser)

	resp, err := models.GenerateContent(ctx, o.model, []*genai.Content{content}, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe image: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	ctxzap.Debug(ctx, "Image transcribed",
		zap.String("model", o.model),
		zap.Int("characters", len(text)),
	)
	return text, nil
}
