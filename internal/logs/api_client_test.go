package logs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"reelforge/internal/api"
	"reelforge/internal/logs"
)

func TestNewStreamClientEmptyBind(t *testing.T) {
	client, err := logs.NewStreamClient("", "")
	if err != nil {
		t.Fatalf("NewStreamClient error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty bind")
	}
}

func TestStreamClientFetchBuildsQueryAndDecodes(t *testing.T) {
	var (
		gotQuery url.Values
		gotAuth  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []api.LogEvent{{Level: "info", Message: "hello"}},
			Next:   42,
		})
	}))
	defer srv.Close()

	client, err := logs.NewStreamClient(srv.URL, "secret")
	if err != nil {
		t.Fatalf("NewStreamClient error: %v", err)
	}
	resp, err := client.Fetch(context.Background(), logs.StreamQuery{
		Since:     3,
		Limit:     50,
		Follow:    true,
		Component: "orchestrator",
		SessionID: "abc",
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if resp.Next != 42 || len(resp.Events) != 1 || resp.Events[0].Message != "hello" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	want := map[string]string{
		"since":     "3",
		"limit":     "50",
		"follow":    "1",
		"component": "orchestrator",
		"session":   "abc",
	}
	for key, value := range want {
		if got := gotQuery.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}
	if gotQuery.Has("tail") {
		t.Error("tail should be omitted when unset")
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestStreamClientSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	client, _ := logs.NewStreamClient(srv.URL, "")
	_, err := client.Status(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if logs.IsAPIUnavailable(err) {
		t.Fatalf("HTTP error should not count as unavailable: %v", err)
	}
}

func TestIsAPIUnavailable(t *testing.T) {
	var client *logs.StreamClient
	_, err := client.Fetch(context.Background(), logs.StreamQuery{})
	if !errors.Is(err, logs.ErrAPIUnavailable) || !logs.IsAPIUnavailable(err) {
		t.Fatalf("nil client error = %v", err)
	}

	client, _ = logs.NewStreamClient("127.0.0.1:1", "")
	_, err = client.Status(context.Background())
	if !logs.IsAPIUnavailable(err) {
		t.Fatalf("expected dial failure to be unavailable, got %v", err)
	}
}
