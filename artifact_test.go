package pagecheck

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestCaptureArtifactDecodesDimensions(t *testing.T) {
	server, browser := newTestBrowser(t)

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 255, G: 255, B: 255, A: 255}}, image.Point{}, draw.Src)
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buffer.Bytes())
	server.Handle("Page.captureScreenshot", func(gjson.Result) map[string]any {
		return map[string]any{"data": encoded}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	artifact, err := CaptureArtifact(ctx, browser.CurrentPage())
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if artifact.Width != 64 || artifact.Height != 48 {
		t.Fatalf("unexpected dimensions: %dx%d", artifact.Width, artifact.Height)
	}
	if artifact.Format != "png" {
		t.Fatalf("unexpected format: %q", artifact.Format)
	}
	if len(artifact.Data) == 0 {
		t.Fatalf("expected image bytes")
	}
}

func TestCaptureArtifactRejectsGarbage(t *testing.T) {
	server, browser := newTestBrowser(t)
	server.Handle("Page.captureScreenshot", func(gjson.Result) map[string]any {
		return map[string]any{"data": base64.StdEncoding.EncodeToString([]byte("not an image"))}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := CaptureArtifact(ctx, browser.CurrentPage()); err == nil {
		t.Fatalf("expected decode error")
	}
}
