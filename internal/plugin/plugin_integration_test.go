package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPlugin_Speak_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginDir := findPluginDir("speak")
	if pluginDir == "" {
		t.Skip("speak plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.ForAction(ActionSpeak)
	if err != nil {
		t.Fatalf("ForAction() error = %v", err)
	}

	// Empty text is rejected before any speech engine runs.
	resp, err := NewExecutor(5000).Execute(context.Background(), plug, &Request{Action: ActionSpeak})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for empty text")
	}
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, "plugin.json")); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir
		}
	}
	return ""
}
