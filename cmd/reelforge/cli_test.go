package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"reelforge/internal/api"
	"reelforge/internal/artifact"
	"reelforge/internal/config"
	"reelforge/internal/session"
	"reelforge/internal/sessionlock"
	"reelforge/internal/store"
	"reelforge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"GOOGLE_STUDIO_API_KEY", "YOUTUBE_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(key, "")
	}
	cfg := testsupport.NewConfig(t, opts...)
	// Nothing listens on the discard port, so API calls fail fast.
	cfg.Paths.APIBind = "127.0.0.1:9"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "reelforge.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
api_bind = %q

[credentials]
google_studio_key = %q
youtube_key = %q
openrouter_key = %q

[generation]
image_count = 3
image_width = 8
image_height = 8
default_duration = 30
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Credentials.GoogleStudioKey,
		cfg.Credentials.YouTubeKey,
		cfg.Credentials.OpenRouterKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("reelforge %s: %v\nstdout:\n%s\nstderr:\n%s", strings.Join(args, " "), err, out, stderr)
	}
	return out
}

func (env *cliTestEnv) newSession(t *testing.T) string {
	t.Helper()
	env.mustRun(t, "session", "new", "--script", "How to save money", "--voice", "voice2")
	out := env.mustRun(t, "session", "list", "--json")
	var list api.SessionListResponse
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(list.Sessions) == 0 {
		t.Fatal("no sessions listed")
	}
	return list.Sessions[len(list.Sessions)-1].ID
}

func (env *cliTestEnv) show(t *testing.T, id string) api.Session {
	t.Helper()
	out := env.mustRun(t, "session", "show", id, "--json")
	var resp api.SessionResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode show: %v\n%s", err, out)
	}
	return resp.Session
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func stageVersion(s api.Session, stage string) int {
	for _, rec := range s.Stages {
		if rec.Stage == stage {
			return rec.Version
		}
	}
	return -1
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "config", "validate")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = env.mustRun(t, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestSessionWorkflowEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t)
	id := env.newSession(t)
	prefix := id[:8]

	out := env.mustRun(t, "advance", prefix)
	requireContains(t, out, "Reviewing Content")

	env.mustRun(t, "regenerate", prefix, "images")
	if v := stageVersion(env.show(t, id), "images"); v != 2 {
		t.Fatalf("images version = %d, want 2", v)
	}

	out = env.mustRun(t, "advance", id)
	requireContains(t, out, "Complete")

	out = env.mustRun(t, "artifact", "list", id)
	requireContains(t, out, "Final Video")

	dir := t.TempDir()
	out = env.mustRun(t, "artifact", "export", id, "final_video", "--dir", dir)
	requireContains(t, out, "Wrote")
	manifest := filepath.Join(dir, fmt.Sprintf("%s-final_video-v1.json", prefix))
	if _, err := os.Stat(manifest); err != nil {
		t.Fatalf("expected exported manifest: %v", err)
	}
	env.mustRun(t, "artifact", "export", id, "images", "--version", "1", "--dir", dir)
	if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("%s-images-v1-1.png", prefix))); err != nil {
		t.Fatalf("expected exported image: %v", err)
	}

	out = env.mustRun(t, "publish", prefix)
	requireContains(t, out, "Published")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.StateDir, "published", id+"-v1.json")); err != nil {
		t.Fatalf("expected published video copy: %v", err)
	}
	if s := env.show(t, id); s.Publication == nil || s.Publication.VideoVersion != 1 {
		t.Fatalf("after publish: %+v", s.Publication)
	}

	env.mustRun(t, "reset", id)
	if s := env.show(t, id); s.Phase != "configuring" || s.Voice != "" || s.Duration != 0 || s.Publication != nil {
		t.Fatalf("after reset: %+v", s)
	}
	if _, _, err := env.run(t, "publish", id); err == nil {
		t.Fatal("expected publish to fail while configuring")
	}

	out = env.mustRun(t, "session", "delete", id)
	requireContains(t, out, "Deleted session")
	if _, _, err := env.run(t, "session", "show", id); err == nil {
		t.Fatal("expected show to fail after delete")
	}
}

func TestSessionNewDraftsScriptFromTitle(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "session", "new", "--title", "Morning routines")
	out := env.mustRun(t, "session", "list")
	requireContains(t, out, "Morning routines")
	requireContains(t, out, "Configuring")

	id := env.newSession(t)
	out = env.mustRun(t, "session", "configure", id, "--duration", "60")
	requireContains(t, out, "1:00")
	if _, _, err := env.run(t, "session", "configure", id, "--duration", "35"); err == nil {
		t.Fatal("expected invalid duration to be rejected")
	}
}

func TestSessionNewAnalysesChannel(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "session", "new", "--script", "How to save money", "--channel", "https://youtube.com/@money")
	requireContains(t, out, "References from https://youtube.com/@money")
	requireContains(t, out, "views")

	if _, _, err := env.run(t, "session", "new", "--script", "x", "--channel", "not a url"); err == nil {
		t.Fatal("expected invalid channel url to be rejected")
	}
}

func TestAdvanceBlockedWithoutCredentials(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutCredentials())
	id := env.newSession(t)
	_, _, err := env.run(t, "advance", id)
	if err == nil {
		t.Fatal("expected advance to fail without credentials")
	}

	out, _, err := env.run(t, "doctor")
	if err == nil {
		t.Fatal("expected doctor to report failure")
	}
	requireContains(t, out, "Credentials")
	requireContains(t, out, "ERROR")
}

func TestDoctorPasses(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "doctor")
	requireContains(t, out, "Database")
	if strings.Contains(out, "ERROR") {
		t.Fatalf("unexpected failure:\n%s", out)
	}
}

func TestVoicesListsCatalog(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "voices")
	requireContains(t, out, "Maria - Feminina Suave")
	requireContains(t, out, "1:00")
}

func TestControlRefusedWhileDaemonRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	id := env.newSession(t)

	fl := flock.New(env.cfg.DaemonLockPath())
	if ok, err := fl.TryLock(); err != nil || !ok {
		t.Fatalf("lock daemon: ok=%v err=%v", ok, err)
	}
	defer fl.Unlock()

	_, _, err := env.run(t, "advance", id)
	if err == nil || !strings.Contains(err.Error(), "reelforged is running") {
		t.Fatalf("expected daemon refusal, got %v", err)
	}
}

func TestControlRefusedWhileSessionLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	id := env.newSession(t)

	lock, err := sessionlock.Acquire(env.cfg.LockDir(), id)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	_, _, err = env.run(t, "advance", id)
	if err == nil || !strings.Contains(err.Error(), "another reelforge process") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestLockedSessionJournalIsNotRewritten(t *testing.T) {
	env := setupCLITestEnv(t)
	id := env.newSession(t)

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	snap, err := st.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	// Another process holds the lock and is running audio.
	snap.Phase = session.PhaseGeneratingContent
	snap.Stages[session.StageAudio].Status = session.StatusRunning
	if err := st.SaveSession(context.Background(), snap); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	_ = st.Close()

	lock, err := sessionlock.Acquire(env.cfg.LockDir(), id)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	for _, args := range [][]string{{"advance", id}, {"reset", id[:8]}, {"session", "delete", id}} {
		if _, _, err := env.run(t, args...); err == nil || !strings.Contains(err.Error(), "another reelforge process") {
			t.Fatalf("%v: expected lock conflict, got %v", args, err)
		}
	}

	st, err = store.Open(env.cfg)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()
	got, err := st.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSession after refused commands: %v", err)
	}
	if got.Phase != session.PhaseGeneratingContent || got.Stage(session.StageAudio).Status != session.StatusRunning {
		t.Fatalf("journal rewritten by a refused command: phase %s, audio %s", got.Phase, got.Stage(session.StageAudio).Status)
	}

	// Reads do not need the lock and do not write either.
	if s := env.show(t, id); s.Phase != string(session.PhaseGeneratingContent) {
		t.Fatalf("show phase = %s", s.Phase)
	}
}

func TestStatusAndLogsWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	env.newSession(t)

	out := env.mustRun(t, "status")
	requireContains(t, out, "not running")
	requireContains(t, out, "Configuring")

	if err := os.WriteFile(env.cfg.LogPath(), []byte("first\nsecond\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out = env.mustRun(t, "logs", "-n", "1")
	if out != "second\n" {
		t.Fatalf("logs output %q", out)
	}

	out = env.mustRun(t, "stop")
	requireContains(t, out, "Daemon is not running")
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"generating_content": "Generating Content",
		"final_video":        "Final Video",
		"failed":             "Failed",
	}
	for in, want := range tests {
		if got := label(in); got != want {
			t.Errorf("label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExportNameUsesTitleToken(t *testing.T) {
	snap := session.Snapshot{ID: "0123456789abcdef", Title: "Morning Routines"}
	if got := exportName(snap, session.StageImages, 2, 0, 3, artifact.ContentTypePNG); got != "morning-routines-images-v2-1.png" {
		t.Fatalf("exportName = %q", got)
	}
	snap.Title = ""
	if got := exportName(snap, session.StageFinalVideo, 1, 0, 1, artifact.ContentTypeJSON); got != "01234567-final_video-v1.json" {
		t.Fatalf("exportName = %q", got)
	}
}
