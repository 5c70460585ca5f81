// Package mcp exposes the coach's live status and workout history as MCP
// tools.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/store"
)

// StatusSource supplies the live coaching status.
type StatusSource interface {
	Snapshot() app.Snapshot
}

// New creates an MCP server with all tools registered. A nil store
// registers only get_status.
func New(src StatusSource, st *store.Store, version string, log *slog.Logger) *server.MCPServer {
	if log == nil {
		log = slog.Default()
	}

	s := server.NewMCPServer("RepCoach", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("RepCoach squat coach. Read the live session status (state, reps, set, rest countdown, form feedback) and past workouts with their completed sets."),
	)

	h := &handlers{src: src, st: st, log: log}

	s.AddTools(server.ServerTool{Tool: toolGetStatus, Handler: h.getStatus})
	if st != nil {
		s.AddTools(
			server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
			server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		)
	}

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	src StatusSource
	st  *store.Store
	log *slog.Logger
}
