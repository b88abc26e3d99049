package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/diffjam/internal/api"
	"github.com/dgnsrekt/diffjam/internal/browser"
	"github.com/dgnsrekt/diffjam/internal/capture"
	"github.com/dgnsrekt/diffjam/internal/cdp"
	"github.com/dgnsrekt/diffjam/internal/config"
	"github.com/dgnsrekt/diffjam/internal/controller"
	"github.com/dgnsrekt/diffjam/internal/gate"
	"github.com/dgnsrekt/diffjam/internal/netutil"
	"github.com/dgnsrekt/diffjam/internal/normalize"
	"github.com/dgnsrekt/diffjam/internal/notify"
	"github.com/dgnsrekt/diffjam/internal/relay"
	"github.com/dgnsrekt/diffjam/internal/session"
	"github.com/dgnsrekt/diffjam/internal/storage"
	"github.com/dgnsrekt/diffjam/internal/types"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("diffjam config loaded",
		"cdp_url", cfg.GetCDPURL(),
		"connect_browser", cfg.ConnectBrowser,
		"launch_browser", cfg.LaunchBrowser,
		"tab_url_filter", cfg.TabURLFilter,
		"bind_addr", cfg.BindAddr,
		"port_candidates", cfg.PortCandidates,
		"data_dir", cfg.DataDir,
		"journal_reports", cfg.JournalReports,
		"journal_captures", cfg.JournalCaptures,
		"start_enabled", cfg.StartEnabled,
		"lenient_json", cfg.LenientJSON,
		"watch_file", cfg.WatchFile,
		"log_level", cfg.LogLevel,
	)

	if err := run(cfg); err != nil {
		slog.Error("diffjam stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the daemon and serves until a signal arrives. Every failure is
// returned so deferred cleanup, including a launched browser, always runs.
func run(cfg *config.Config) error {
	watch, err := config.LoadWatch(cfg.WatchFile)
	if err != nil {
		return fmt.Errorf("load watch rules from %q: %w", cfg.WatchFile, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := gate.New(cfg.StartEnabled)
	normalizer := normalize.Normalizer{Lenient: cfg.LenientJSON}
	registry := session.NewRegistry(g, normalizer)

	writers := storage.NewWriterRegistry(cfg.DataDir, cfg.BufferSize, cfg.MaxFileSizeMB)
	defer func() {
		if err := writers.Close(); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}()
	journal := storage.NewJournal(writers)
	if cfg.JournalReports {
		registry.Subscribe(func(evt session.Event) {
			rec := types.ReportRecord{Timestamp: evt.At, SessionID: evt.SessionID, Key: evt.Key, Changed: evt.Changed, Report: evt.Report}
			if err := journal.WriteReport(rec); err != nil {
				slog.Debug("report journal write failed", "session_id", evt.SessionID, "error", err)
			}
		})
	}

	broker := relay.NewBroker()
	registry.Subscribe(broker.PublishReport)

	if cfg.NotifyEndpoint != "" {
		registry.Subscribe(notify.New(&http.Client{Timeout: 10 * time.Second}, cfg.NotifyEndpoint).OnReport)
	}

	svc := controller.NewService(registry, g, normalizer)

	if cfg.ConnectBrowser {
		var captureJournal capture.Journal
		if cfg.JournalCaptures {
			captureJournal = journal
		}
		tabs, stopCapture, err := startCapture(ctx, cfg, registry, captureJournal, watch)
		if err != nil {
			slog.Info("start Chromium with --remote-debugging-port, set DIFFJAM_LAUNCH_BROWSER=true, or set DIFFJAM_CONNECT_BROWSER=false")
			return err
		}
		defer stopCapture()
		svc.WithTabs(tabs)
	}

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		return fmt.Errorf("bind API listener (preferred %s): %w", cfg.BindAddr, err)
	}

	srv := &http.Server{Handler: api.NewServer(svc, broker), ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		addr := ln.Addr().String()
		slog.Info("diffjam listening", "addr", addr, "docs", "http://"+addr+"/docs", "gate", g.Label())
		serveErr <- srv.Serve(ln)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutdown signal received", "sessions", registry.Count(), "stream_dropped", broker.Dropped())
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("API shutdown failed", "error", err)
	}
	return nil
}

// ensureBrowser starts or reuses the local browser. Replaced in tests.
var ensureBrowser = func(ctx context.Context, opts browser.Options) (interface{ Stop() }, error) {
	proc, err := browser.Ensure(ctx, opts)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// startCapture optionally launches the browser, then attaches the CDP
// capture. The returned stop undoes everything in reverse order; on error
// whatever was already started has been stopped.
func startCapture(ctx context.Context, cfg *config.Config, registry *session.Registry, journal capture.Journal, watch *config.WatchConfig) (*cdp.TabRegistry, func(), error) {
	var stops []func()
	stop := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	if cfg.LaunchBrowser {
		proc, err := ensureBrowser(ctx, browser.Options{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			ProfileDir: cfg.BrowserProfileDir,
			StartURL:   cfg.BrowserStartURL,
			Headless:   cfg.BrowserHeadless,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("launch browser: %w", err)
		}
		stops = append(stops, proc.Stop)
	}

	tabRegistry := cdp.NewTabRegistry()
	httpCapture := capture.NewHTTPCapture(registry, journal, tabRegistry, watch, cfg.MaxBodyBytes)
	stops = append(stops, httpCapture.Close)

	client := cdp.NewClient(cdp.Options{
		CDPURL:         cfg.GetCDPURL(),
		TabURLFilter:   cfg.TabURLFilter,
		ReloadOnAttach: cfg.ReloadOnAttach,
	}, httpCapture, tabRegistry)
	if err := client.Connect(ctx); err != nil {
		stop()
		return nil, nil, fmt.Errorf("connect to browser at %s: %w", cfg.GetCDPURL(), err)
	}
	stops = append(stops, func() {
		if err := client.Close(); err != nil {
			slog.Warn("CDP close failed", "error", err)
		}
	})

	slog.Info("browser capture running", "tabs", client.GetTabCount())
	return tabRegistry, stop, nil
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
