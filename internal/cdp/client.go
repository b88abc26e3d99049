// Package cdp attaches to Chromium tabs over the DevTools protocol and feeds
// their network events to the HTTP capture.
package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	cdpproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/diffjam/internal/capture"
)

const (
	bodyFetchTimeout = 10 * time.Second
	reloadTimeout    = 30 * time.Second
)

// Options controls which tabs are attached.
type Options struct {
	CDPURL         string
	TabURLFilter   string
	ReloadOnAttach bool
}

// Client attaches to browser tabs and forwards their network events to the
// HTTP capture. Tabs opened after Connect are attached as soon as their URL
// passes the filter; closed tabs are dropped.
type Client struct {
	opts        Options
	httpCapture *capture.HTTPCapture
	tabRegistry *TabRegistry

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	tabsMu sync.RWMutex
	tabs   map[target.ID]*tabContext
	// attaching holds targets with an attach in flight.
	attaching map[target.ID]bool
}

type tabContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(opts Options, httpCapture *capture.HTTPCapture, tabRegistry *TabRegistry) *Client {
	return &Client{
		opts:        opts,
		httpCapture: httpCapture,
		tabRegistry: tabRegistry,
		tabs:        make(map[target.ID]*tabContext),
		attaching:   make(map[target.ID]bool),
	}
}

// Connect attaches to every open page that passes the URL filter and starts
// following target creation. With no matching page yet it waits for one
// instead of failing.
func (c *Client) Connect(ctx context.Context) error {
	slog.Info("Connecting to Chromium", "url", c.opts.CDPURL)

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.opts.CDPURL)
	c.browserCtx, c.browserCancel = chromedp.NewContext(c.allocCtx)

	if err := chromedp.Run(c.browserCtx); err != nil {
		c.shutdownBrowser()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	targets, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		c.shutdownBrowser()
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}
	slog.Info("Found browser targets", "count", len(targets))

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !c.wantTarget(t) {
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("Failed to attach to tab", "target_id", t.TargetID, "url", truncateURL(t.URL), "error", err)
		}
	}

	chromedp.ListenBrowser(c.browserCtx, c.onBrowserEvent)
	if err := chromedp.Run(c.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.SetDiscoverTargets(true).Do(cdpproto.WithExecutor(ctx, chromedp.FromContext(ctx).Browser))
	})); err != nil {
		slog.Warn("Tab discovery unavailable; only tabs open at start are captured", "error", err)
	}

	if n := c.GetTabCount(); n == 0 {
		slog.Warn("No tab matches yet; waiting for one to open", "tab_url_filter", c.opts.TabURLFilter)
	} else {
		slog.Info("Attached to tabs", "count", n, "tab_url_filter", c.opts.TabURLFilter)
	}
	return nil
}

// wantTarget reports whether t is a page passing the filter that is neither
// attached nor being attached.
func (c *Client) wantTarget(t *target.Info) bool {
	if t == nil || t.Type != "page" || !matchesTabURL(c.opts.TabURLFilter, t.URL) {
		return false
	}
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	_, attached := c.tabs[t.TargetID]
	return !attached && !c.attaching[t.TargetID]
}

// onBrowserEvent runs on the chromedp event loop and must not block, so
// attaching happens on its own goroutine.
func (c *Client) onBrowserEvent(ev interface{}) {
	var info *target.Info
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		info = e.TargetInfo
	case *target.EventTargetInfoChanged:
		info = e.TargetInfo
	case *target.EventTargetDestroyed:
		c.detach(e.TargetID)
		return
	default:
		return
	}
	if !c.wantTarget(info) {
		return
	}

	c.tabsMu.Lock()
	c.attaching[info.TargetID] = true
	c.tabsMu.Unlock()

	go func(id target.ID, url string) {
		defer func() {
			c.tabsMu.Lock()
			delete(c.attaching, id)
			c.tabsMu.Unlock()
		}()
		if err := c.attachToTab(id, url); err != nil {
			slog.Warn("Failed to attach to new tab", "target_id", id, "url", truncateURL(url), "error", err)
		}
	}(info.TargetID, info.URL)
}

func (c *Client) attachToTab(targetID target.ID, url string) error {
	tabInfo, err := c.tabRegistry.Register(targetID, url)
	if err != nil {
		return fmt.Errorf("failed to register tab: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))

	// Cached responses never reach the network domain with a body, so the
	// browser cache is disabled for attached tabs.
	if err := chromedp.Run(tabCtx, network.Enable(), network.SetCacheDisabled(true), page.Enable()); err != nil {
		tabCancel()
		c.tabRegistry.Remove(targetID)
		return fmt.Errorf("failed to enable network/page domains: %w", err)
	}

	c.tabsMu.Lock()
	c.tabs[targetID] = &tabContext{ctx: tabCtx, cancel: tabCancel}
	c.tabsMu.Unlock()

	slog.Info("Attached to tab", "target_id", targetID, "path_segment", tabInfo.PathSegment, "browser_id", tabInfo.BrowserID, "url", truncateURL(url))
	chromedp.ListenTarget(tabCtx, c.tabEventHandler(targetID))

	if c.opts.ReloadOnAttach {
		reloadCtx, reloadCancel := context.WithTimeout(tabCtx, reloadTimeout)
		defer reloadCancel()
		if err := chromedp.Run(reloadCtx, chromedp.Reload()); err != nil {
			slog.Warn("Failed to reload tab (continuing)", "target_id", targetID, "error", err)
		}
	}
	return nil
}

func (c *Client) detach(targetID target.ID) {
	c.tabsMu.Lock()
	tab, ok := c.tabs[targetID]
	delete(c.tabs, targetID)
	c.tabsMu.Unlock()
	if !ok {
		return
	}
	tab.cancel()
	c.tabRegistry.Remove(targetID)
	slog.Info("Tab closed", "target_id", targetID)
}

func (c *Client) tabEventHandler(targetID target.ID) func(ev interface{}) {
	tabID := string(targetID)
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				if info, err := c.tabRegistry.Register(targetID, e.Frame.URL); err == nil {
					slog.Debug("Tab navigated", "tab_id", tabID, "path_segment", info.PathSegment, "url", truncateURL(e.Frame.URL))
				}
			}
		case *network.EventRequestWillBeSent:
			c.httpCapture.OnRequestWillBeSent(tabID, e)
		case *network.EventResponseReceived:
			c.httpCapture.OnResponseReceived(tabID, e)
		case *network.EventLoadingFinished:
			c.httpCapture.OnLoadingFinished(tabID, e, c.bodyFetcher(targetID, e.RequestID))
		case *network.EventLoadingFailed:
			c.httpCapture.OnLoadingFailed(tabID, e)
		}
	}
}

// bodyFetcher returns nil when the tab is gone.
func (c *Client) bodyFetcher(targetID target.ID, requestID network.RequestID) func() ([]byte, error) {
	c.tabsMu.RLock()
	tab, ok := c.tabs[targetID]
	c.tabsMu.RUnlock()
	if !ok {
		return nil
	}

	return func() ([]byte, error) {
		ctx, cancel := context.WithTimeout(tab.ctx, bodyFetchTimeout)
		defer cancel()

		var body []byte
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(requestID).Do(ctx)
			return err
		}))
		return body, err
	}
}

// Close detaches every tab and drops the browser connection. The browser
// itself keeps running.
func (c *Client) Close() error {
	c.tabsMu.Lock()
	for id, tab := range c.tabs {
		tab.cancel()
		c.tabRegistry.Remove(id)
	}
	c.tabs = make(map[target.ID]*tabContext)
	c.tabsMu.Unlock()

	c.shutdownBrowser()
	slog.Info("CDP client closed")
	return nil
}

func (c *Client) shutdownBrowser() {
	if c.browserCancel != nil {
		c.browserCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

func (c *Client) GetTabCount() int {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	return len(c.tabs)
}

func matchesTabURL(filter, url string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(filter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
