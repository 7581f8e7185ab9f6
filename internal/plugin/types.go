// Package plugin discovers and runs external helper executables, such as the
// speech plugin used for narration.
package plugin

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ActionSpeak asks a plugin to read Text aloud.
const ActionSpeak = "speak"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Description  string              `json:"description"`
	Executable   string              `json:"executable"`
	Actions      []string            `json:"actions"`
	ConfigSchema jsoniter.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the plugin declares action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action string `json:"action"`
	// Event is the game event that caused the request, if any.
	Event  string              `json:"event,omitempty"`
	Text   string              `json:"text,omitempty"`
	Lang   string              `json:"lang,omitempty"`
	Config jsoniter.RawMessage `json:"config,omitempty"`
	Params jsoniter.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
