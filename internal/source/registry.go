package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vincentbai/visitwatch/internal/config"
)

// Target is one concrete store to poll this cycle.
type Target struct {
	Name    string // product label, e.g. "Firefox"
	Path    string
	Adapter Adapter
}

type entry struct {
	name    string
	pattern string
	adapter Adapter
}

// Registry maps configured sources to adapters and resolves their paths.
type Registry struct {
	entries []entry
	home    string
}

// NewRegistry validates the configured sources and binds each to its
// schema adapter. home is the directory "~/" expands to.
func NewRegistry(sources []config.SourceConfig, rowCap int, home string) (*Registry, error) {
	r := &Registry{home: home}
	for _, sc := range sources {
		ad, err := ForFamily(sc.Family, sc.Name, rowCap)
		if err != nil {
			return nil, err
		}
		r.entries = append(r.entries, entry{name: sc.Name, pattern: sc.Path, adapter: ad})
	}
	return r, nil
}

// Resolve expands each configured source into zero or more targets. It is
// called fresh every cycle so newly created profiles are picked up. A path
// that matches nothing means the browser is not installed, not an error.
func (r *Registry) Resolve() []Target {
	var targets []Target
	for _, e := range r.entries {
		pattern := expandHome(e.pattern, r.home)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue // malformed pattern resolves to nothing
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			targets = append(targets, Target{Name: e.name, Path: m, Adapter: e.adapter})
		}
	}
	return targets
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
