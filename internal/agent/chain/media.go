package chain

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/startupx/agents/internal/agent/content"
	logx "github.com/startupx/agents/pkg/logger"
)

// MediaResolver rewrites the image parts of a message into references the
// chat model can fetch.
type MediaResolver interface {
	Resolve(ctx context.Context, msg *schema.Message) error
}

// FileUploader stores raw bytes with the model provider and returns the file URI.
type FileUploader interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// NewUploadResolver returns a MediaResolver that uploads inline data URLs
// and points each image part at the uploaded file.
func NewUploadResolver(up FileUploader) MediaResolver {
	return &uploadResolver{up: up}
}

type uploadResolver struct {
	up FileUploader
}

func (r *uploadResolver) Resolve(ctx context.Context, msg *schema.Message) error {
	if msg == nil {
		return nil
	}
	for i := range msg.MultiContent {
		part := &msg.MultiContent[i]
		if part.Type != schema.ChatMessagePartTypeImageURL || part.ImageURL == nil || part.ImageURL.URI != "" {
			continue
		}

		mimeType, data, ok := content.ParseDataURL(part.ImageURL.URL)
		if !ok {
			part.ImageURL.URI = part.ImageURL.URL
			continue
		}
		if part.ImageURL.MIMEType != "" {
			mimeType = part.ImageURL.MIMEType
		}

		uri, err := r.up.Upload(ctx, data, mimeType)
		if err != nil {
			return fmt.Errorf("error uploading image: %w", err)
		}
		part.ImageURL.URI = uri
		part.ImageURL.MIMEType = mimeType
		part.ImageURL.URL = ""
	}
	return nil
}

// genaiUploader pushes bytes through the Gemini Files API.
type genaiUploader struct {
	client *genai.Client
}

func (g genaiUploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	f, err := g.client.Files.Upload(ctx, bytes.NewReader(data), &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		logx.Error().Err(err).Str("mime_type", mimeType).Msg("Error uploading file to Gemini")
		return "", err
	}
	logx.Debug().Str("file", f.Name).Int("bytes", len(data)).Msg("Uploaded file to Gemini")
	return f.URI, nil
}
