// Package main provides an announcer plugin that speaks rep counts and form
// warnings. It uses `say` on macOS and `espeak` elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action   string          `json:"action"`
	Event    string          `json:"event"`
	Movement string          `json:"movement"`
	Count    int             `json:"count"`
	Config   json.RawMessage `json:"config"`
	Params   json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SayOptions come from the cue config, overridden by request params.
type SayOptions struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// defaultTexts are spoken when neither config nor params set a text.
var defaultTexts = map[string]string{
	"rep":          "{count}",
	"form_broken":  "Check your form",
	"set_finished": "{movement} set done, {count} reps",
}

// actionHandler handles one action.
type actionHandler func(req Request) (string, error)

var actionHandlers = map[string]actionHandler{
	"say":  say,
	"beep": beep,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	spoken, err := handler(req)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse(spoken)
}

func say(req Request) (string, error) {
	opts, err := options(req)
	if err != nil {
		return "", err
	}

	text := render(opts.Text, req)
	if text == "" {
		return "", fmt.Errorf("nothing to say")
	}

	name, args := speechCommand(runtime.GOOS, opts.Voice, text)
	return text, run(name, args...)
}

func beep(Request) (string, error) {
	if runtime.GOOS == "darwin" {
		return "", run("osascript", "-e", "beep")
	}
	// Terminal bell; stdout carries the response.
	_, err := os.Stderr.WriteString("\a")
	return "", err
}

// options merges config and params; params win field by field.
func options(req Request) (SayOptions, error) {
	var opts SayOptions
	for _, raw := range []json.RawMessage{req.Config, req.Params} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var o SayOptions
		if err := json.Unmarshal(raw, &o); err != nil {
			return opts, fmt.Errorf("failed to parse options: %w", err)
		}
		if o.Text != "" {
			opts.Text = o.Text
		}
		if o.Voice != "" {
			opts.Voice = o.Voice
		}
	}
	if opts.Text == "" {
		opts.Text = defaultTexts[req.Event]
	}
	return opts, nil
}

// render substitutes {count}, {movement} and {event}.
func render(text string, req Request) string {
	r := strings.NewReplacer(
		"{count}", strconv.Itoa(req.Count),
		"{movement}", req.Movement,
		"{event}", strings.ReplaceAll(req.Event, "_", " "),
	)
	return strings.TrimSpace(r.Replace(text))
}

// speechCommand returns the text-to-speech command for goos.
func speechCommand(goos, voice, text string) (string, []string) {
	if goos == "darwin" {
		if voice != "" {
			return "say", []string{"-v", voice, text}
		}
		return "say", []string{text}
	}
	if voice != "" {
		return "espeak", []string{"-v", voice, text}
	}
	return "espeak", []string{text}
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

func writeSuccessResponse(spoken string) {
	resp := Response{Success: true}
	if spoken != "" {
		resp.Data, _ = json.Marshal(map[string]string{"spoken": spoken})
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
