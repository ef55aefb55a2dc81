package pagecheck

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Artifact is a screenshot captured alongside a check, typically on failure,
// so the host test suite can attach it to its report.
type Artifact struct {
	Format string
	Data   []byte
	Width  int
	Height int
}

// CaptureArtifact takes a viewport screenshot and decodes its dimensions to
// confirm the capture produced a real image.
func CaptureArtifact(ctx context.Context, page *Page) (*Artifact, error) {
	data, err := page.CaptureScreenshot(ctx, "webp")
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return &Artifact{Format: format, Data: data, Width: cfg.Width, Height: cfg.Height}, nil
}
