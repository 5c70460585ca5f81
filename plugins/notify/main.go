// Package main provides a RepCoach plugin that shows a desktop notification
// when a set or the whole workout is finished.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin runner.
type Request struct {
	Event  string          `json:"event"`
	Data   Event           `json:"data"`
	Config json.RawMessage `json:"config"`
}

// Event carries the workout event fields this plugin reads.
type Event struct {
	Set  int `json:"set"`
	Reps int `json:"reps"`
	Plan struct {
		Sets       int `json:"sets"`
		RepsPerSet int `json:"reps_per_set"`
	} `json:"plan"`
}

// Response represents the output to the plugin runner.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is the manifest's config block.
type Config struct {
	Sound bool `json:"sound"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("invalid config: %w", err))
			return
		}
	}

	title, body, ok := message(req)
	if !ok {
		writeResponse(nil)
		return
	}
	writeResponse(notify(title, body, cfg.Sound))
}

// message returns the notification for an event, or false when the event
// does not warrant one.
func message(req Request) (title, body string, ok bool) {
	switch req.Event {
	case "set_completed":
		return "Set complete", fmt.Sprintf("Set %d done: %d reps. Take a break.", req.Data.Set, req.Data.Reps), true
	case "workout_completed":
		return "Workout complete", "Good job!", true
	}
	return "", "", false
}

func notify(title, body string, sound bool) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title "RepCoach" subtitle %q`, body, title)
		if sound {
			script += ` sound name "Glass"`
		}
		cmd = exec.Command("osascript", "-e", script)
	default:
		cmd = exec.Command("notify-send", "--app-name=RepCoach", title, body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
