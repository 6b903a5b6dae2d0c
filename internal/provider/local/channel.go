package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"path"
	"sort"
	"strings"

	"reelforge/internal/session"
)

var referenceTopics = []string{
	"How I Made My First $1,000 Online",
	"The Truth Nobody Tells You About Investing",
	"I Tried Saving Every Coin for 30 Days",
	"5 Money Habits That Changed My Life",
	"Budgeting for People Who Hate Budgets",
}

// ChannelAnalyzer derives a stable set of reference videos from the channel
// URL without calling any remote service.
type ChannelAnalyzer struct{}

// Analyze implements provider.ChannelAnalyzer. References are ordered by
// views, highest first.
func (ChannelAnalyzer) Analyze(ctx context.Context, channelURL string, limit int) ([]session.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := channelHandle(channelURL)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(referenceTopics) {
		limit = len(referenceTopics)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(handle))
	seed := h.Sum64()

	refs := make([]session.Reference, 0, len(referenceTopics))
	for i, title := range referenceTopics {
		v := seed>>(uint(i)*7) ^ uint64(i+1)*2654435761
		refs = append(refs, session.Reference{
			ID:              fmt.Sprintf("%s-%d", handle, i+1),
			Title:           title,
			Views:           int64(100_000 + v%4_900_000),
			DurationSeconds: 300 + int(v%900),
			Description:     fmt.Sprintf("Popular upload from %s", handle),
		})
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Views > refs[j].Views })
	return refs[:limit], nil
}

// channelHandle extracts the last path segment of a channel URL, such as
// "@money" from https://youtube.com/@money/videos.
func channelHandle(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid channel url %q", raw)
	}
	p := strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/videos")
	handle := path.Base(p)
	if handle == "." || handle == "/" || handle == "" {
		return "", fmt.Errorf("channel url %q has no channel path", raw)
	}
	return handle, nil
}
