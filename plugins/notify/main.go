// Package main provides a desktop notification plugin. It uses AppleScript
// on macOS and notify-send elsewhere.
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

// NotifyParams defines the notification text. Params override config.
type NotifyParams struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

var defaultMessages = map[string]string{
	"rep":          "{movement}: rep {count}",
	"form_broken":  "{movement}: check your form",
	"set_finished": "{movement} set finished with {count} reps",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "send":
		if err := handleSend(req); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

func handleSend(req Request) error {
	p, err := parseParams(req)
	if err != nil {
		return err
	}
	if p.Message == "" {
		return fmt.Errorf("message is required")
	}

	if runtime.GOOS == "darwin" {
		return run("osascript", "-e", buildNotificationScript(p.Title, p.Message))
	}
	return run("notify-send", p.Title, p.Message)
}

func parseParams(req Request) (NotifyParams, error) {
	p := NotifyParams{Title: "formcheck"}
	for _, raw := range []json.RawMessage{req.Config, req.Params} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var o NotifyParams
		if err := json.Unmarshal(raw, &o); err != nil {
			return p, fmt.Errorf("failed to parse params: %w", err)
		}
		if o.Title != "" {
			p.Title = o.Title
		}
		if o.Message != "" {
			p.Message = o.Message
		}
	}
	if p.Message == "" {
		p.Message = defaultMessages[req.Event]
	}

	r := strings.NewReplacer("{count}", strconv.Itoa(req.Count), "{movement}", req.Movement)
	p.Title = r.Replace(p.Title)
	p.Message = r.Replace(p.Message)
	return p, nil
}

// buildNotificationScript generates an AppleScript notification.
func buildNotificationScript(title, message string) string {
	return fmt.Sprintf(`display notification %s with title %s`, quote(message), quote(title))
}

// quote produces an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{
		Success: false,
		Error:   errMsg,
	})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
