package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/capture"
	"github.com/ayusman/repcoach/internal/config"
	"github.com/ayusman/repcoach/internal/emitter"
	"github.com/ayusman/repcoach/internal/mcp"
	"github.com/ayusman/repcoach/internal/plugin"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/server"
	"github.com/ayusman/repcoach/internal/speech"
	"github.com/ayusman/repcoach/internal/store"
	"github.com/ayusman/repcoach/internal/tray"
	"github.com/ayusman/repcoach/internal/tui"
	"github.com/ayusman/repcoach/internal/workout"
)

var version = "dev"

var (
	flagConfig   string
	flagCamera   int
	flagSets     int
	flagReps     int
	flagDemo     bool
	flagUI       string
	flagAddr     string
	flagNoServer bool
	flagNoSpeech bool
	flagLogLevel string
	flagLogJSON  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "repcoach",
		Short: "RepCoach - real-time squat coach with voice feedback",
		Long: `RepCoach watches you through the webcam, counts squats against a
depth you calibrate, corrects your posture out loud and paces your sets
and rest periods.

Pose estimation runs in a MediaPipe Python service (scripts/pose_service.py).
Use --demo to run without a camera or Python.`,
		Version:      version,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().IntVar(&flagCamera, "camera", 0, "Camera device ID")
	rootCmd.Flags().IntVar(&flagSets, "sets", 0, "Number of sets (overrides the saved plan)")
	rootCmd.Flags().IntVar(&flagReps, "reps", 0, "Reps per set (overrides the saved plan)")
	rootCmd.Flags().BoolVar(&flagDemo, "demo", false, "Run with a simulated camera and squatting pose")
	rootCmd.Flags().StringVar(&flagUI, "ui", "", "User interface: tui, tray or headless")
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address (host:port)")
	rootCmd.Flags().BoolVar(&flagNoServer, "no-server", false, "Disable the HTTP API")
	rootCmd.Flags().BoolVar(&flagNoSpeech, "no-speech", false, "Log prompts instead of speaking them")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&flagLogJSON, "log-json", false, "Write logs as JSON")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	log.Info("starting repcoach", "version", version, "ui", cfg.UI.Mode, "demo", flagDemo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	cam, det, err := buildVision(cfg, log)
	if err != nil {
		st.Close()
		return err
	}

	var sinks []app.EventSink
	if cfg.MQTT.Enabled {
		em := emitter.NewMQTTEmitter(emitter.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
		}, log)
		if err := em.Connect(ctx); err != nil {
			// Auto-reconnect keeps trying in the background.
			log.Warn("mqtt connect failed", "broker", cfg.MQTT.Broker, "error", err)
		}
		sinks = append(sinks, em)
	}

	if cfg.Plugins.Enabled {
		if runner := startPlugins(cfg, log); runner != nil {
			sinks = append(sinks, runner)
		}
	}

	coach := app.New(app.Config{
		Camera:       cam,
		Detector:     det,
		Speaker:      speech.NewChannel(buildSynthesizer(cfg, log), log),
		Store:        st,
		Sinks:        sinks,
		Settings:     sessionSettings(cfg),
		TickInterval: cfg.Workout.TickInterval,
		Logger:       log,
	})
	defer func() {
		if err := coach.Close(); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	if cmd.Flags().Changed("sets") || cmd.Flags().Changed("reps") {
		plan := workout.Plan{Sets: cfg.Workout.Sets, RepsPerSet: cfg.Workout.RepsPerSet}
		if err := coach.SetPlan(ctx, plan); err != nil {
			return fmt.Errorf("setting plan: %w", err)
		}
	}

	loopErr := make(chan error, 1)
	go func() {
		err := coach.Run(ctx)
		if err != nil {
			log.Error("coaching loop stopped", "error", err)
			stop()
		}
		loopErr <- err
	}()

	dashboard := ""
	if cfg.Server.Enabled {
		var mcpHandler http.Handler
		if cfg.Server.MCP {
			mcpHandler = mcpserver.NewStreamableHTTPServer(mcp.New(coach, st, version, log))
		}
		srv := server.New(server.Config{
			Coach:          coach,
			Store:          st,
			MCP:            mcpHandler,
			Stream:         cfg.Server.Stream,
			Logger:         log,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr()); err != nil {
				log.Error("http server", "error", err)
			}
		}()
		dashboard = "http://" + cfg.Server.Addr() + "/"
	}

	switch cfg.UI.Mode {
	case config.ModeTUI:
		if err := tui.Run(ctx, coach); err != nil {
			log.Error("tui", "error", err)
		}
		stop()
	case config.ModeTray:
		runTray(ctx, stop, coach, dashboard, log)
	default:
		if dashboard != "" {
			fmt.Printf("RepCoach running, dashboard at %s\n", dashboard)
		}
		<-ctx.Done()
	}

	return <-loopErr
}

// applyFlags overrides config fields with flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("camera") {
		cfg.Camera.DeviceID = flagCamera
	}
	if flags.Changed("sets") {
		cfg.Workout.Sets = flagSets
	}
	if flags.Changed("reps") {
		cfg.Workout.RepsPerSet = flagReps
	}
	if flags.Changed("ui") {
		cfg.UI.Mode = flagUI
	}
	if flags.Changed("no-server") {
		cfg.Server.Enabled = !flagNoServer
	}
	if flags.Changed("no-speech") {
		cfg.Speech.Enabled = !flagNoSpeech
	}
	if flagAddr != "" {
		host, port, err := splitAddr(flagAddr)
		if err != nil {
			return err
		}
		cfg.Server.Host, cfg.Server.Port = host, port
	}
	return cfg.Validate()
}

func splitAddr(addr string) (string, int, error) {
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("invalid --addr %q: want host:port", addr)
	}
	var port int
	if _, err := fmt.Sscanf(addr[i+1:], "%d", &port); err != nil || port <= 0 {
		return "", 0, fmt.Errorf("invalid --addr %q: bad port", addr)
	}
	return addr[:i], port, nil
}

// newLogger builds the process logger. The TUI owns the terminal, so in
// that mode logs go to the configured file.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flagLogLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level %q: %w", flagLogLevel, err)
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.UI.Mode == config.ModeTUI {
		if err := os.MkdirAll(filepath.Dir(cfg.UI.LogFile), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	if flagLogJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), closeFn, nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), closeFn, nil
}

func buildVision(cfg *config.Config, log *slog.Logger) (capture.Camera, pose.Detector, error) {
	if flagDemo {
		log.Info("demo mode: simulated camera and pose")
		cam := capture.NewBlankCamera(cfg.Camera.Width, cfg.Camera.Height)
		cam.SetFPS(cfg.Camera.FPS)
		det := pose.NewSquatSimulator(4*time.Second, cfg.Camera.Width, cfg.Camera.Height)
		return cam, det, nil
	}

	cam := capture.NewCamera(capture.Config{
		DeviceID: cfg.Camera.DeviceID,
		FPS:      cfg.Camera.FPS,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
	})

	// The service's stderr shares the log destination.
	var stderr io.Writer = os.Stderr
	if cfg.UI.Mode == config.ModeTUI {
		stderr = nil
	}
	det, err := pose.NewMediaPipeDetector(pose.Config{
		Python:        cfg.Pose.Python,
		Script:        cfg.Pose.Script,
		MinConfidence: cfg.Pose.MinConfidence,
		IdleTimeout:   cfg.Pose.IdleTimeout,
	}, stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("pose detector: %w (try --demo)", err)
	}
	return cam, det, nil
}

// startPlugins discovers event plugins. It returns nil when there are none.
func startPlugins(cfg *config.Config, log *slog.Logger) *plugin.Runner {
	manager := plugin.NewManager(cfg.Plugins.Dir)
	if err := manager.Discover(); err != nil {
		log.Warn("plugin discovery failed", "dir", cfg.Plugins.Dir, "error", err)
		return nil
	}
	plugins := manager.List()
	if len(plugins) == 0 {
		return nil
	}
	for _, p := range plugins {
		log.Info("plugin loaded", "name", p.Manifest.Name, "version", p.Manifest.Version, "events", p.Manifest.Events)
	}
	return plugin.NewRunner(manager, plugin.NewExecutor(cfg.Plugins.Timeout), log)
}

func buildSynthesizer(cfg *config.Config, log *slog.Logger) speech.Synthesizer {
	if !cfg.Speech.Enabled {
		return speech.NewLogSynthesizer(log)
	}
	command := cfg.Speech.Command
	if command == "" {
		command = speech.DetectCommand()
	}
	if command == "" {
		log.Warn("no text-to-speech command found, prompts will be logged")
		return speech.NewLogSynthesizer(log)
	}
	log.Info("speech enabled", "command", command)
	return speech.NewCommandSynthesizer(command, cfg.Speech.Rate, cfg.Speech.Timeout)
}

func sessionSettings(cfg *config.Config) workout.Settings {
	s := workout.DefaultSettings()
	s.RestSeconds = cfg.Workout.RestSeconds
	s.Debounce = cfg.Workout.Debounce
	s.DefaultThreshold = cfg.Workout.DefaultThreshold
	s.CalibrationSteps = cfg.Workout.CalibrationSeconds
	s.MinVisibility = cfg.Workout.MinVisibility
	s.Plan = workout.Plan{Sets: cfg.Workout.Sets, RepsPerSet: cfg.Workout.RepsPerSet}
	return s
}

func runTray(ctx context.Context, stop context.CancelFunc, coach *app.App, dashboard string, log *slog.Logger) {
	t := tray.New()

	act := func(name string, fn func(context.Context) error) func() {
		return func() {
			if err := fn(ctx); err != nil {
				log.Info("tray action rejected", "action", name, "reason", workout.Feedback(err), "error", err)
			}
		}
	}
	t.OnCalibrate(act("calibrate", coach.Calibrate))
	t.OnCancelCalibration(act("cancel", coach.CancelCalibration))
	t.OnStart(act("start", func(ctx context.Context) error {
		return coach.StartWorkout(ctx, coach.Snapshot().Plan)
	}))
	if dashboard != "" {
		t.OnDashboard(func() {
			if err := openBrowser(dashboard); err != nil {
				log.Warn("open dashboard", "error", err)
			}
		})
	}
	t.OnQuit(stop)

	updates, unsubscribe := coach.Subscribe()
	defer unsubscribe()
	go t.Watch(updates)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	stop()
}
