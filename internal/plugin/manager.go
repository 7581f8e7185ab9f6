package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ayusman/kaiplay/internal/logging"
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrNoExecutable is returned for a manifest that names no executable.
	ErrNoExecutable = errors.New("manifest names no executable")
)

// Manager finds plugins below a directory and looks them up by name or by
// the action they declare.
type Manager struct {
	pluginDir string

	mu      sync.RWMutex
	plugins []*Plugin // sorted by name
}

// NewManager creates a Manager for pluginDir. Nothing is read until Discover.
func NewManager(pluginDir string) *Manager {
	return &Manager{pluginDir: pluginDir}
}

// Discover replaces the known plugins with those found in the immediate
// subdirectories of the plugin directory. A missing directory means no
// plugins. Directories without a usable manifest are skipped.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.pluginDir)
	if errors.Is(err, os.ErrNotExist) {
		entries, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	found := make([]*Plugin, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(m.pluginDir, entry.Name()))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			logging.Warn(logging.Fields{"plugin": entry.Name(), "error": err}, "skipping plugin")
			continue
		}
		found = append(found, p)
	}
	slices.SortFunc(found, func(a, b *Plugin) int { return strings.Compare(a.Manifest.Name, b.Manifest.Name) })
	found = slices.CompactFunc(found, func(a, b *Plugin) bool { return a.Manifest.Name == b.Manifest.Name })

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()

	logging.Debug(logging.Fields{"dir": m.pluginDir, "count": len(found)}, "plugins discovered")
	return nil
}

// loadPlugin reads the manifest in dir. The plugin is named after dir when
// the manifest has no name.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ManifestFile, err)
	}
	if manifest.Executable == "" {
		return nil, ErrNoExecutable
	}
	if manifest.Name == "" {
		manifest.Name = filepath.Base(dir)
	}
	for i, a := range manifest.Actions {
		manifest.Actions[i] = strings.ToLower(strings.TrimSpace(a))
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := slices.BinarySearchFunc(m.plugins, name, func(p *Plugin, name string) int {
		return strings.Compare(p.Manifest.Name, name)
	})
	if !ok {
		return nil, ErrPluginNotFound
	}
	return m.plugins[i], nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.plugins)
}

// ForAction returns the first plugin, by name, that declares action.
func (m *Manager) ForAction(action string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.plugins {
		if p.Manifest.Supports(action) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w for action %q", ErrPluginNotFound, action)
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
