package types

// TabInfo holds metadata about an attached browser tab.
type TabInfo struct {
	TargetID    string `json:"target_id"`
	URL         string `json:"url"`
	PathSegment string `json:"path_segment"` // e.g. "app.example.com_dashboard"
	BrowserID   string `json:"browser_id"`   // first 8 chars of the target ID
}

// TabInfoProvider looks up tabs by ID. It keeps capture free of the cdp
// package.
type TabInfoProvider interface {
	GetByStringID(tabID string) (*TabInfo, bool)
}
