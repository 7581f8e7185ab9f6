package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// scriptPlugin writes a shell script plugin into a temp dir.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Actions:    []string{ActionSpeak},
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "ok-plugin", `echo '{"success":true,"data":{"message":"spoken"}}'`+"\n")

	response, err := NewExecutor(5000).Execute(context.Background(), plugin, &Request{Action: ActionSpeak, Text: "பூ"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !response.Success || response.Error != "" {
		t.Errorf("response = %+v, want success", response)
	}

	var data map[string]any
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "spoken" {
		t.Errorf("expected message 'spoken', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := scriptPlugin(t, "echo-plugin", `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	request := &Request{
		Action: ActionSpeak,
		Event:  "matched",
		Text:   "பால்",
		Lang:   "ta",
		Params: []byte(`{"rate":160}`),
	}
	response, err := NewExecutor(5000).Execute(context.Background(), plugin, request)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	got := data.Received
	if got.Action != ActionSpeak || got.Event != "matched" || got.Text != "பால்" || got.Lang != "ta" {
		t.Errorf("plugin received %+v", got)
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
		wantMsg string
	}{
		{
			name:    "error response",
			script:  `echo '{"success":false,"error":"no voice"}'` + "\n",
			wantMsg: "no voice",
		},
		{
			name:    "invalid json",
			script:  "echo 'not valid json'\n",
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			script:  "echo 'Error: espeak missing' >&2\nexit 1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := scriptPlugin(t, "fail-plugin", tt.script)
			response, err := NewExecutor(5000).Execute(context.Background(), plugin, &Request{Action: ActionSpeak})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "fail-plugin") {
				t.Errorf("error %q does not name the plugin", err)
			}
			if err == nil && (response.Success || response.Error != tt.wantMsg) {
				t.Errorf("response = %+v, want error %q", response, tt.wantMsg)
			}
		})
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow-plugin", "sleep 10\necho '{\"success\":true}'\n")

	_, err := NewExecutor(100).Execute(context.Background(), plugin, &Request{Action: ActionSpeak})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	plugin := scriptPlugin(t, "slow-plugin", "sleep 10\necho '{\"success\":true}'\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExecutor(5000).Execute(ctx, plugin, &Request{Action: ActionSpeak}); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestNewExecutor(t *testing.T) {
	if got := NewExecutor(3000).Timeout(); got != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", got)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  espeak missing \n", "espeak missing"},
		{"one\ntwo\n", "one"},
	}
	for _, tt := range tests {
		if got := firstLine([]byte(tt.in)); got != tt.want {
			t.Errorf("firstLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
