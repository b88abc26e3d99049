package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WatchRule selects captured exchanges that should feed a diff session.
type WatchRule struct {
	Name       string   `yaml:"name"`
	URLPattern string   `yaml:"url_pattern"`
	Methods    []string `yaml:"methods,omitempty"`
	// PerTab keeps a separate session for each browser tab.
	PerTab bool `yaml:"per_tab,omitempty"`
}

// WatchConfig is the top-level YAML document.
type WatchConfig struct {
	Rules []WatchRule `yaml:"rules"`
}

// LoadWatch reads and validates a watch rule file. An empty path means watch
// everything.
func LoadWatch(path string) (*WatchConfig, error) {
	if path == "" {
		return &WatchConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	return ParseWatch(data)
}

// ParseWatch decodes a watch rule document.
func ParseWatch(data []byte) (*WatchConfig, error) {
	var cfg WatchConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}
	for i, r := range cfg.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("watch config: rule[%d] missing name", i)
		}
		if r.URLPattern == "" {
			return nil, fmt.Errorf("watch config: rule[%d] (%s) missing url_pattern", i, r.Name)
		}
		for j, m := range r.Methods {
			cfg.Rules[i].Methods[j] = strings.ToUpper(strings.TrimSpace(m))
		}
	}
	return &cfg, nil
}

// Match returns the first rule accepting the exchange. With no rules every
// exchange matches a zero rule.
func (w *WatchConfig) Match(method, url string) (WatchRule, bool) {
	if w == nil || len(w.Rules) == 0 {
		return WatchRule{}, true
	}
	for _, r := range w.Rules {
		if !strings.Contains(url, r.URLPattern) {
			continue
		}
		if len(r.Methods) == 0 {
			return r, true
		}
		for _, m := range r.Methods {
			if strings.EqualFold(m, method) {
				return r, true
			}
		}
	}
	return WatchRule{}, false
}
