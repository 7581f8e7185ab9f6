package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, dir string, manifest Manifest) string {
	t.Helper()
	pluginDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, "speak", Manifest{
		Name:        "speak",
		Version:     "1.0.0",
		Description: "Reads words aloud",
		Executable:  "speak",
		Actions:     []string{ActionSpeak},
	})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "speak" || plugin.Manifest.Description != "Reads words aloud" {
		t.Errorf("unexpected manifest %+v", plugin.Manifest)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if plugin.Executable != filepath.Join(pluginDir, "speak") {
		t.Errorf("unexpected executable %q", plugin.Executable)
	}
}

func TestManager_Discover_Skips(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "good", Manifest{Name: "good", Executable: "good"})

	bad := filepath.Join(tmpDir, "bad-plugin")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, "plugin.json"), []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "no-manifest"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, tmpDir, "no-exec", Manifest{Name: "no-exec", Actions: []string{ActionSpeak}})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if plugins := manager.List(); len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		t.Fatalf("expected only the good plugin, got %d", len(plugins))
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist")

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}

func TestManager_Discover_NameFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "unnamed", Manifest{Executable: "bin"})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.Get("unnamed"); err != nil {
		t.Errorf("Get(dir name) error = %v", err)
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "my-plugin", Manifest{Name: "my-plugin", Version: "2.0.0", Executable: "bin"})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("my-plugin")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", plugin.Manifest.Version)
	}

	if _, err := manager.Get("nonexistent-plugin"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_ForAction(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "zz-voice", Manifest{Name: "zz-voice", Executable: "bin", Actions: []string{ActionSpeak}})
	writeManifest(t, tmpDir, "aa-voice", Manifest{Name: "aa-voice", Executable: "bin", Actions: []string{"beep", ActionSpeak}})
	writeManifest(t, tmpDir, "mm-other", Manifest{Name: "mm-other", Executable: "bin", Actions: []string{"beep"}})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	p, err := manager.ForAction(ActionSpeak)
	if err != nil {
		t.Fatalf("ForAction() error = %v", err)
	}
	if p.Manifest.Name != "aa-voice" {
		t.Errorf("ForAction() = %q, want the first by name", p.Manifest.Name)
	}
	if _, err := manager.ForAction("juggle"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("ForAction(unknown) error = %v", err)
	}
}

func TestLoadPlugin_NormalisesActions(t *testing.T) {
	dir := writeManifest(t, t.TempDir(), "voice", Manifest{Executable: "run", Actions: []string{" Speak "}})

	p, err := loadPlugin(dir)
	if err != nil {
		t.Fatalf("loadPlugin() error = %v", err)
	}
	if !p.Manifest.Supports(ActionSpeak) || p.Manifest.Name != "voice" {
		t.Errorf("manifest = %+v", p.Manifest)
	}
}

func TestManager_PluginDir(t *testing.T) {
	pluginDir := "/path/to/plugins"
	manager := NewManager(pluginDir)

	if manager.PluginDir() != pluginDir {
		t.Errorf("expected plugin dir %q, got %q", pluginDir, manager.PluginDir())
	}
}
