package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelforge/internal/config"
)

const userAgent = "reelforge/0.1.0"

// Service defines the notification surface used by the daemon and CLI.
type Service interface {
	NotifySessionComplete(ctx context.Context, title string, finalVersion int) error
	NotifyStageFailed(ctx context.Context, title, stage, message string) error
	NotifyRegenerated(ctx context.Context, title, stage string, version int) error
	NotifyPublished(ctx context.Context, title, url string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifySessionComplete(ctx context.Context, title string, finalVersion int) error {
	title = displayTitle(title)
	message := fmt.Sprintf("✅ Video ready: %s", title)
	if finalVersion > 1 {
		message = fmt.Sprintf("%s (build %d)", message, finalVersion)
	}
	return n.send(ctx, payload{
		title:    "Reelforge - Complete",
		message:  message,
		tags:     []string{"reelforge", "session", "completed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyStageFailed(ctx context.Context, title, stage, message string) error {
	var builder strings.Builder
	builder.WriteString("❌ ")
	builder.WriteString(strings.TrimSpace(stage))
	builder.WriteString(" failed for ")
	builder.WriteString(displayTitle(title))
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString(": ")
		builder.WriteString(message)
	}
	return n.send(ctx, payload{
		title:    "Reelforge - Stage Failed",
		message:  builder.String(),
		tags:     []string{"reelforge", "error", strings.TrimSpace(stage)},
		priority: "high",
	})
}

func (n *ntfyService) NotifyRegenerated(ctx context.Context, title, stage string, version int) error {
	return n.send(ctx, payload{
		title:   "Reelforge - Regenerated",
		message: fmt.Sprintf("🔁 %s regenerated for %s (v%d)", strings.TrimSpace(stage), displayTitle(title), version),
		tags:    []string{"reelforge", "regenerate", strings.TrimSpace(stage)},
	})
}

func (n *ntfyService) NotifyPublished(ctx context.Context, title, url string) error {
	return n.send(ctx, payload{
		title:   "Reelforge - Published",
		message: fmt.Sprintf("📺 %s published: %s", displayTitle(title), strings.TrimSpace(url)),
		tags:    []string{"reelforge", "publish"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Reelforge - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"reelforge", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "untitled session"
	}
	return title
}

type noopService struct{}

func (noopService) NotifySessionComplete(context.Context, string, int) error        { return nil }
func (noopService) NotifyStageFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyRegenerated(context.Context, string, string, int) error    { return nil }
func (noopService) NotifyPublished(context.Context, string, string) error           { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
