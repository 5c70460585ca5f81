package server

import (
	"fmt"
	"net/http"
	"time"
)

// streamInterval paces MJPEG frames (~15 FPS).
const streamInterval = 66 * time.Millisecond

// FrameSource supplies the latest annotated JPEG frame.
type FrameSource interface {
	LatestFrame() ([]byte, bool)
}

// StreamHandler serves MJPEG frames of the annotated camera view.
type StreamHandler struct {
	source FrameSource
}

// NewStreamHandler creates a new StreamHandler for source.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, ok := h.source.LatestFrame()
		if !ok || sameFrame(frame, last) {
			continue
		}
		last = frame

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// sameFrame reports whether a and b are the same encoded buffer. Frames
// are replaced, never mutated, so identity is enough.
func sameFrame(a, b []byte) bool {
	return len(a) > 0 && len(a) == len(b) && &a[0] == &b[0]
}
