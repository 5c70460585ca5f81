// Package main provides a RepCoach plugin that appends every completed set
// to a CSV training log.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Request represents the input from the plugin runner.
type Request struct {
	Event  string          `json:"event"`
	Data   Event           `json:"data"`
	Config json.RawMessage `json:"config"`
}

// Event carries the workout event fields this plugin reads.
type Event struct {
	At        time.Time `json:"at"`
	Set       int       `json:"set"`
	Reps      int       `json:"reps"`
	Threshold float64   `json:"threshold"`
}

// Response represents the output to the plugin runner.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the manifest's config block.
type Config struct {
	Path string `json:"path"`
}

var header = []string{"date", "time", "set", "reps"}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.Event != "set_completed" {
		writeSuccessResponse("")
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}
	path, err := logPath(cfg.Path)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if err := appendRow(path, row(req.Data)); err != nil {
		writeErrorResponse(fmt.Sprintf("append to %s: %v", path, err))
		return
	}
	writeSuccessResponse(path)
}

// logPath expands a leading ~ and defaults to ~/.repcoach/training-log.csv.
func logPath(p string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch {
	case p == "":
		return filepath.Join(home, ".repcoach", "training-log.csv"), nil
	case len(p) > 1 && p[:2] == "~/":
		return filepath.Join(home, p[2:]), nil
	}
	return p, nil
}

func row(ev Event) []string {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.Local()
	return []string{
		at.Format("2006-01-02"),
		at.Format("15:04:05"),
		strconv.Itoa(ev.Set),
		strconv.Itoa(ev.Reps),
	}
}

func appendRow(path string, record []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if os.IsNotExist(statErr) {
		w.Write(header)
	}
	w.Write(record)
	w.Flush()
	return w.Error()
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(path string) {
	resp := Response{Success: true}
	if path != "" {
		resp.Data, _ = json.Marshal(map[string]string{"path": path})
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
