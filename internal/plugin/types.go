// Package plugin runs external executables in response to workout events,
// such as a desktop notification when a set is done or a row appended to a
// training log.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/repcoach/internal/workout"
)

// ManifestFile is the manifest every plugin directory must contain.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Executable  string              `json:"executable"`
	Events      []workout.EventKind `json:"events"`
	Config      json.RawMessage     `json:"config,omitempty"`
}

// Request is written to the plugin's stdin, one per event.
type Request struct {
	Event  workout.EventKind `json:"event"`
	Data   workout.Event     `json:"data"`
	Config json.RawMessage   `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin subscribed to kind. An empty event
// list subscribes to everything.
func (p *Plugin) Handles(kind workout.EventKind) bool {
	if len(p.Manifest.Events) == 0 {
		return true
	}
	for _, k := range p.Manifest.Events {
		if k == kind {
			return true
		}
	}
	return false
}
