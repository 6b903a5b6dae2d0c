package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reelforge/internal/config"
	"reelforge/internal/provider"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCredentials reports which provider keys are still missing.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Credentials"
	missing := cfg.Credentials.Missing()
	switch {
	case len(missing) == 0:
		return Result{Name: name, Passed: true, Detail: "all provider keys configured"}
	case !cfg.Workflow.RequireCredentials:
		return Result{Name: name, Passed: true, Detail: "not required (missing: " + strings.Join(missing, ", ") + ")"}
	default:
		return Result{Name: name, Detail: "missing: " + strings.Join(missing, ", ")}
	}
}

// Pinger is satisfied by the session store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDatabase verifies the session database answers.
func CheckDatabase(ctx context.Context, path string, db Pinger) Result {
	const name = "Database"
	if db == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// HealthSource reports provider readiness; provider.Gateway satisfies it.
type HealthSource interface {
	Health(ctx context.Context) []provider.Health
}

// CheckProviders converts provider health reports into results.
func CheckProviders(ctx context.Context, src HealthSource) []Result {
	if src == nil {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reports := src.Health(checkCtx)
	results := make([]Result, 0, len(reports))
	for _, h := range reports {
		detail := h.Detail
		if detail == "" {
			if h.Ready {
				detail = "ready"
			} else {
				detail = "not ready"
			}
		}
		results = append(results, Result{Name: "Provider: " + h.Name, Passed: h.Ready, Detail: detail})
	}
	return results
}

// CheckNtfy verifies the notification topic's server is reachable.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, topic, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (server unreachable)"
	}
	return err.Error()
}
