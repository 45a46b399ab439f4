package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WatchList is the file format for hosts the watcher re-checks:
//
//	hosts:
//	  - example.com
//	  - api.example.com:8443
type WatchList struct {
	Hosts []string `yaml:"hosts"`
}

// LoadWatchList reads a YAML watch list. Blank entries are dropped and
// duplicates collapsed, keeping first-seen order.
func LoadWatchList(path string) (WatchList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WatchList{}, fmt.Errorf("read watch list: %w", err)
	}
	var wl WatchList
	if err := yaml.Unmarshal(raw, &wl); err != nil {
		return WatchList{}, fmt.Errorf("parse watch list %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(wl.Hosts))
	hosts := wl.Hosts[:0]
	for _, h := range wl.Hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hosts = append(hosts, h)
	}
	wl.Hosts = hosts
	return wl, nil
}
