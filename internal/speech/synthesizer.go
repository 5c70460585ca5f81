// Package speech delivers spoken coaching prompts without blocking the frame loop.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Synthesizer turns text into audible speech. Speak returns once the
// utterance has finished playing.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// DefaultTimeout bounds a single utterance.
const DefaultTimeout = 15 * time.Second

// CommandSynthesizer speaks by running an operating system TTS command
// such as say, espeak or spd-say.
type CommandSynthesizer struct {
	command string
	rate    int
	timeout time.Duration
}

// NewCommandSynthesizer creates a synthesizer that runs command at rate
// words per minute. A timeout <= 0 uses DefaultTimeout.
func NewCommandSynthesizer(command string, rate int, timeout time.Duration) *CommandSynthesizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandSynthesizer{
		command: command,
		rate:    rate,
		timeout: timeout,
	}
}

// Command returns the executable this synthesizer runs.
func (s *CommandSynthesizer) Command() string { return s.command }

// Speak runs the TTS command and waits for it to exit.
func (s *CommandSynthesizer) Speak(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.command, Args(s.command, s.rate, text)...)

	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("speech timeout after %s", s.timeout)
	}

	if err != nil {
		if msg := stderr.String(); msg != "" {
			return fmt.Errorf("speech command failed: %w, stderr: %s", err, msg)
		}
		return fmt.Errorf("speech command failed: %w", err)
	}
	return nil
}

// Args builds the argument list for a known TTS engine. Unknown commands
// receive the text as their only argument.
func Args(command string, rate int, text string) []string {
	name := filepath.Base(command)
	var args []string
	switch name {
	case "say":
		if rate > 0 {
			args = append(args, "-r", strconv.Itoa(rate))
		}
	case "espeak", "espeak-ng":
		if rate > 0 {
			args = append(args, "-s", strconv.Itoa(rate))
		}
	case "spd-say":
		// spd-say rate is -100..100 relative to the voice default.
		args = append(args, "--wait")
		if rate > 0 {
			rel := (rate - 175) / 2
			if rel < -100 {
				rel = -100
			}
			if rel > 100 {
				rel = 100
			}
			args = append(args, "-r", strconv.Itoa(rel))
		}
	}
	return append(args, text)
}

// DetectCommand returns the first TTS command found on this system, or ""
// when none is installed.
func DetectCommand() string {
	candidates := []string{"espeak-ng", "espeak", "spd-say"}
	if runtime.GOOS == "darwin" {
		candidates = []string{"say"}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path
		}
	}
	return ""
}

// LogSynthesizer writes prompts to a logger instead of speaking them.
// Used when speech is disabled or no engine is installed.
type LogSynthesizer struct {
	logger *slog.Logger
}

// NewLogSynthesizer returns a synthesizer that logs at info level.
func NewLogSynthesizer(logger *slog.Logger) *LogSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSynthesizer{logger: logger}
}

func (s *LogSynthesizer) Speak(ctx context.Context, text string) error {
	s.logger.Info("coach says", "text", text)
	return nil
}
