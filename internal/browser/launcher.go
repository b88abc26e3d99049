// Package browser starts a local Chromium with remote debugging enabled when
// no browser is listening on the CDP port yet.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"
)

// Options describes the browser to start.
type Options struct {
	CDPAddress string
	CDPPort    int
	ProfileDir string
	StartURL   string
	Headless   bool
}

// Process is a browser started by Ensure. A nil *Process means an existing
// browser was reused; Stop is safe on it.
type Process struct {
	cmd *exec.Cmd
}

var (
	lookPath     = exec.LookPath
	readyTimeout = 15 * time.Second
	pollInterval = 250 * time.Millisecond
)

// Ensure returns immediately when the CDP endpoint already answers. Otherwise
// it starts Chromium and waits until the endpoint is ready.
func Ensure(ctx context.Context, opts Options) (*Process, error) {
	versionURL := fmt.Sprintf("http://%s:%d/json/version", opts.CDPAddress, opts.CDPPort)
	if cdpReady(versionURL) {
		slog.Info("browser already listening, not launching", "cdp_url", versionURL)
		return nil, nil
	}

	path, err := findBrowser()
	if err != nil {
		return nil, err
	}
	if opts.ProfileDir != "" {
		if err := os.MkdirAll(opts.ProfileDir, 0o755); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
	}

	cmd := exec.Command(path, launchArgs(opts)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	p := &Process{cmd: cmd}
	slog.Info("browser process started", "path", path, "pid", cmd.Process.Pid)

	if err := waitReady(ctx, versionURL); err != nil {
		p.Stop()
		return nil, fmt.Errorf("waiting for CDP: %w", err)
	}
	slog.Info("CDP endpoint ready", "cdp_url", versionURL)
	return p, nil
}

func findBrowser() (string, error) {
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome"} {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		macPath := "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		if _, err := os.Stat(macPath); err == nil {
			return macPath, nil
		}
	}
	return "", fmt.Errorf("no supported browser found (tried chromium-browser, chromium, google-chrome)")
}

func launchArgs(opts Options) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", opts.CDPPort),
		fmt.Sprintf("--remote-debugging-address=%s", opts.CDPAddress),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-dev-shm-usage",
		"--disable-breakpad",
	}
	if opts.ProfileDir != "" {
		args = append(args, "--user-data-dir="+opts.ProfileDir)
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	if opts.StartURL != "" {
		args = append(args, opts.StartURL)
	}
	return args
}

func cdpReady(versionURL string) bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(versionURL)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func waitReady(ctx context.Context, versionURL string) error {
	deadline := time.After(readyTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("CDP did not become ready within %s at %s", readyTimeout, versionURL)
		case <-ticker.C:
			if cdpReady(versionURL) {
				return nil
			}
		}
	}
}

// Stop sends SIGTERM and falls back to SIGKILL after five seconds.
func (p *Process) Stop() {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return
	}
	slog.Info("stopping browser", "pid", p.cmd.Process.Pid)
	_ = p.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = p.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("browser did not exit, sending SIGKILL")
		_ = p.cmd.Process.Kill()
		<-done
	}
}
