// Package main provides a speech plugin. It reads text aloud with say on
// macOS and espeak-ng or espeak elsewhere.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request represents the input from the plugin executor.
type Request struct {
	Action string              `json:"action"`
	Event  string              `json:"event,omitempty"`
	Text   string              `json:"text"`
	Lang   string              `json:"lang,omitempty"`
	Params jsoniter.RawMessage `json:"params,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// SpeakParams tunes the voice.
type SpeakParams struct {
	// Rate is words per minute.
	Rate int `json:"rate"`
}

// voices maps language codes to macOS voice names.
var voices = map[string]string{
	"ta": "Vani",
	"en": "Samantha",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "speak":
		if err := handleSpeak(req); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

func handleSpeak(req Request) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return errors.New("text is required")
	}

	var p SpeakParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return fmt.Errorf("failed to parse params: %w", err)
		}
	}

	name, args, err := speechCommand(runtime.GOOS, req.Lang, p.Rate)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, append(args, text)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// speechCommand picks the speech binary and its arguments for the platform.
func speechCommand(goos, lang string, rate int) (string, []string, error) {
	if goos == "darwin" {
		var args []string
		if v, ok := voices[lang]; ok {
			args = append(args, "-v", v)
		}
		if rate > 0 {
			args = append(args, "-r", fmt.Sprint(rate))
		}
		return "say", args, nil
	}

	for _, bin := range []string{"espeak-ng", "espeak"} {
		if _, err := exec.LookPath(bin); err != nil {
			continue
		}
		var args []string
		if lang != "" {
			args = append(args, "-v", lang)
		}
		if rate > 0 {
			args = append(args, "-s", fmt.Sprint(rate))
		}
		return bin, args, nil
	}
	return "", nil, errors.New("no speech engine found")
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
