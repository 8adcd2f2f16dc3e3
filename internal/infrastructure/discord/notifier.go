package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"DailyReleases/internal/ports"
)

// Notifier posts digests to a Discord channel through an incoming webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers the webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// PublishDigest sends title as the message and attaches body as "<title>.txt".
func (n *Notifier) PublishDigest(ctx context.Context, title, body string) error {
	if n.webhookURL == "" || n.client == nil {
		return fmt.Errorf("discord notifier misconfigured")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("content", title); err != nil {
		return fmt.Errorf("write content: %w", err)
	}
	part, err := form.CreateFormFile("file", title+".txt")
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	if _, err := io.WriteString(part, body); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, &buf)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord error: %s", resp.Status)
	}

	return nil
}
