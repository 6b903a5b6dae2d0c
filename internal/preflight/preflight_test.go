package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelforge/internal/provider"
	"reelforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if r := CheckCredentials(cfg); !r.Passed {
		t.Fatalf("expected pass with keys set, got %s", r.Detail)
	}

	cfg = testsupport.NewConfig(t, testsupport.WithoutCredentials())
	r := CheckCredentials(cfg)
	if r.Passed || !strings.Contains(r.Detail, "credentials.youtube_key") {
		t.Fatalf("expected missing keys listed, got %+v", r)
	}

	cfg.Workflow.RequireCredentials = false
	if r := CheckCredentials(cfg); !r.Passed {
		t.Fatalf("expected pass when credentials are optional, got %s", r.Detail)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckDatabase(t *testing.T) {
	if r := CheckDatabase(context.Background(), "db", fakePinger{}); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckDatabase(context.Background(), "db", fakePinger{err: errors.New("locked")}); r.Passed {
		t.Fatal("expected failure when ping fails")
	}
}

type fakeHealth []provider.Health

func (f fakeHealth) Health(context.Context) []provider.Health { return f }

func TestCheckProviders(t *testing.T) {
	results := CheckProviders(context.Background(), fakeHealth{
		provider.Healthy("narrator"),
		provider.Unhealthy("images", "quota exhausted"),
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Passed || results[0].Name != "Provider: narrator" {
		t.Fatalf("unexpected narrator result %+v", results[0])
	}
	if results[1].Passed || results[1].Detail != "quota exhausted" {
		t.Fatalf("unexpected images result %+v", results[1])
	}
}

func TestCheckNtfy(t *testing.T) {
	if r := CheckNtfy(context.Background(), ""); !r.Passed || r.Detail != "Disabled" {
		t.Fatalf("expected disabled pass, got %+v", r)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	if r := CheckNtfy(context.Background(), srv.URL+"/reelforge"); !r.Passed {
		t.Fatalf("expected reachable, got %s", r.Detail)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if r := CheckNtfy(context.Background(), broken.URL); r.Passed {
		t.Fatal("expected failure on 5xx")
	}
}

func TestRunAllReportsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	results := RunAll(context.Background(), cfg, Options{
		Database:  fakePinger{},
		Providers: fakeHealth{provider.Healthy("narrator")},
	})
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Credentials" {
		t.Fatalf("expected only credentials to fail, got %+v", failed)
	}
}
