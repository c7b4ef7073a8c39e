package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// ManifestFile is the manifest name looked up in every plugin directory.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrInvalidManifest wraps manifest validation failures.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// Manager keeps the plugins found in one directory, keyed by manifest name.
type Manager struct {
	dir     string
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager for dir. Nothing is read until Discover.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:     dir,
		plugins: make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory. Each subdirectory holding a
// plugin.json manifest is one plugin; unreadable or invalid manifests are
// logged and skipped. A missing directory yields no plugins.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read plugin dir %s: %w", m.dir, err)
	}

	found := make(map[string]*Plugin, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := load(filepath.Join(m.dir, entry.Name()))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			log.WithError(err).WithField("plugin", entry.Name()).Warn("Skipping plugin")
			continue
		}
		if prev, ok := found[p.Manifest.Name]; ok {
			log.WithFields(log.Fields{"name": p.Manifest.Name, "kept": prev.Path, "skipped": p.Path}).Warn("Duplicate plugin name")
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()

	log.WithFields(log.Fields{"dir": m.dir, "count": len(found)}).Debug("Plugins discovered")
	return nil
}

// load reads and validates the manifest in dir. The plugin is named after
// dir when the manifest has no name.
func load(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if manifest.Name == "" {
		manifest.Name = filepath.Base(dir)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Validate reports every problem with the manifest.
func (m Manifest) Validate() error {
	var errs error
	if m.Executable == "" {
		errs = multierr.Append(errs, errors.New("executable is required"))
	} else if filepath.IsAbs(m.Executable) || strings.HasPrefix(filepath.Clean(m.Executable), "..") {
		errs = multierr.Append(errs, fmt.Errorf("executable %q must be inside the plugin directory", m.Executable))
	}
	for _, a := range m.Actions {
		if strings.TrimSpace(a) == "" {
			errs = multierr.Append(errs, errors.New("empty action name"))
		}
	}
	if len(m.ConfigSchema) > 0 && !json.Valid(m.ConfigSchema) {
		errs = multierr.Append(errs, errors.New("configSchema is not valid JSON"))
	}
	if errs != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidManifest, m.Name, errs)
	}
	return nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		plugins = append(plugins, p)
	}
	m.mu.RUnlock()

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.dir
}
