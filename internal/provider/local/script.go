package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ScriptWriter drafts a short narration script around a title.
type ScriptWriter struct{}

// Write implements provider.ScriptWriter.
func (ScriptWriter) Write(ctx context.Context, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("title is empty")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome back! Today we're talking about %s.\n\n", title)
	b.WriteString("First, we'll cover why it matters and where most people get stuck.\n\n")
	b.WriteString("Then we'll walk through three practical steps you can start using right away.\n\n")
	b.WriteString("If this helped, like the video and subscribe for more. See you next time!")
	return b.String(), nil
}
