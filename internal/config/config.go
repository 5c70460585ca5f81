// Package config loads RepCoach settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Camera  CameraConfig  `yaml:"camera"`
	Pose    PoseConfig    `yaml:"pose"`
	Workout WorkoutConfig `yaml:"workout"`
	Speech  SpeechConfig  `yaml:"speech"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Plugins PluginsConfig `yaml:"plugins"`
	UI      UIConfig      `yaml:"ui"`
}

type CameraConfig struct {
	DeviceID int `yaml:"device_id"`
	FPS      int `yaml:"fps"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
}

type PoseConfig struct {
	Python        string        `yaml:"python"`
	Script        string        `yaml:"script"`
	MinConfidence float64       `yaml:"min_confidence"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type WorkoutConfig struct {
	Sets               int           `yaml:"sets"`
	RepsPerSet         int           `yaml:"reps_per_set"`
	RestSeconds        int           `yaml:"rest_seconds"`
	Debounce           time.Duration `yaml:"debounce"`
	DefaultThreshold   float64       `yaml:"default_threshold"`
	CalibrationSeconds int           `yaml:"calibration_seconds"`
	MinVisibility      float64       `yaml:"min_visibility"`
	TickInterval       time.Duration `yaml:"tick_interval"`
}

type SpeechConfig struct {
	Enabled bool          `yaml:"enabled"`
	Command string        `yaml:"command"`
	Rate    int           `yaml:"rate"`
	Timeout time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Stream  bool   `yaml:"stream"`
	MCP     bool   `yaml:"mcp"`

	// AllowedOrigins are browser origins, besides the server's own, that
	// may call the API.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

type PluginsConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

type UIConfig struct {
	Mode    string `yaml:"mode"`
	LogFile string `yaml:"log_file"`
}

// UI modes.
const (
	ModeTUI      = "tui"
	ModeTray     = "tray"
	ModeHeadless = "headless"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	dataDir := DataDir()
	return &Config{
		Camera: CameraConfig{
			DeviceID: 0,
			FPS:      30,
			Width:    640,
			Height:   480,
		},
		Pose: PoseConfig{
			MinConfidence: 0.5,
			IdleTimeout:   30 * time.Second,
		},
		Workout: WorkoutConfig{
			Sets:               3,
			RepsPerSet:         5,
			RestSeconds:        45,
			Debounce:           1200 * time.Millisecond,
			DefaultThreshold:   90,
			CalibrationSeconds: 10,
			MinVisibility:      0.6,
			TickInterval:       10 * time.Millisecond,
		},
		Speech: SpeechConfig{
			Enabled: true,
			Rate:    150,
			Timeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "repcoach.db"),
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
			Stream:  true,
			MCP:     true,
		},
		MQTT: MQTTConfig{
			Broker:      "localhost:1883",
			ClientID:    "repcoach",
			TopicPrefix: "repcoach",
		},
		Plugins: PluginsConfig{
			Enabled: true,
			Dir:     filepath.Join(dataDir, "plugins"),
			Timeout: 5 * time.Second,
		},
		UI: UIConfig{
			Mode:    ModeTUI,
			LogFile: filepath.Join(dataDir, "repcoach.log"),
		},
	}
}

// DataDir returns ~/.repcoach, or a relative .repcoach when the home
// directory cannot be resolved.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repcoach"
	}
	return filepath.Join(home, ".repcoach")
}

// Load reads config from a YAML file layered over Default, then applies
// environment variable overrides. An empty path skips the file.
// Env vars use the prefix REPCOACH_:
//
//	REPCOACH_CAMERA_DEVICE, REPCOACH_POSE_PYTHON, REPCOACH_POSE_SCRIPT,
//	REPCOACH_WORKOUT_SETS, REPCOACH_WORKOUT_REPS, REPCOACH_WORKOUT_REST_SECONDS,
//	REPCOACH_SPEECH_ENABLED, REPCOACH_SPEECH_COMMAND, REPCOACH_SPEECH_RATE,
//	REPCOACH_STORE_PATH, REPCOACH_SERVER_ENABLED, REPCOACH_SERVER_HOST,
//	REPCOACH_SERVER_PORT, REPCOACH_SERVER_ALLOWED_ORIGINS (comma separated),
//	REPCOACH_MQTT_ENABLED, REPCOACH_MQTT_BROKER,
//	REPCOACH_PLUGINS_ENABLED, REPCOACH_PLUGINS_DIR, REPCOACH_UI_MODE
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Camera.DeviceID, "REPCOACH_CAMERA_DEVICE")
	setString(&cfg.Pose.Python, "REPCOACH_POSE_PYTHON")
	setString(&cfg.Pose.Script, "REPCOACH_POSE_SCRIPT")
	setInt(&cfg.Workout.Sets, "REPCOACH_WORKOUT_SETS")
	setInt(&cfg.Workout.RepsPerSet, "REPCOACH_WORKOUT_REPS")
	setInt(&cfg.Workout.RestSeconds, "REPCOACH_WORKOUT_REST_SECONDS")
	setBool(&cfg.Speech.Enabled, "REPCOACH_SPEECH_ENABLED")
	setString(&cfg.Speech.Command, "REPCOACH_SPEECH_COMMAND")
	setInt(&cfg.Speech.Rate, "REPCOACH_SPEECH_RATE")
	setString(&cfg.Store.Path, "REPCOACH_STORE_PATH")
	setBool(&cfg.Server.Enabled, "REPCOACH_SERVER_ENABLED")
	setString(&cfg.Server.Host, "REPCOACH_SERVER_HOST")
	setInt(&cfg.Server.Port, "REPCOACH_SERVER_PORT")
	setList(&cfg.Server.AllowedOrigins, "REPCOACH_SERVER_ALLOWED_ORIGINS")
	setBool(&cfg.MQTT.Enabled, "REPCOACH_MQTT_ENABLED")
	setString(&cfg.MQTT.Broker, "REPCOACH_MQTT_BROKER")
	setBool(&cfg.Plugins.Enabled, "REPCOACH_PLUGINS_ENABLED")
	setString(&cfg.Plugins.Dir, "REPCOACH_PLUGINS_DIR")
	setString(&cfg.UI.Mode, "REPCOACH_UI_MODE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var list []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	*dst = list
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera.width and camera.height must be positive")
	}
	if c.Workout.Sets <= 0 {
		return fmt.Errorf("workout.sets must be greater than zero")
	}
	if c.Workout.RepsPerSet <= 0 {
		return fmt.Errorf("workout.reps_per_set must be greater than zero")
	}
	if c.Workout.RestSeconds <= 0 {
		return fmt.Errorf("workout.rest_seconds must be greater than zero")
	}
	if c.Workout.Debounce < 0 {
		return fmt.Errorf("workout.debounce must not be negative")
	}
	if c.Workout.DefaultThreshold <= 0 || c.Workout.DefaultThreshold >= 180 {
		return fmt.Errorf("workout.default_threshold must be between 0 and 180")
	}
	if c.Workout.CalibrationSeconds <= 0 {
		return fmt.Errorf("workout.calibration_seconds must be greater than zero")
	}
	if c.Workout.MinVisibility < 0 || c.Workout.MinVisibility > 1 {
		return fmt.Errorf("workout.min_visibility must be between 0 and 1")
	}
	if c.Workout.TickInterval <= 0 {
		return fmt.Errorf("workout.tick_interval must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if c.Plugins.Enabled && c.Plugins.Dir == "" {
		return fmt.Errorf("plugins.dir is required when plugins are enabled")
	}
	if c.Plugins.Timeout < 0 {
		return fmt.Errorf("plugins.timeout must not be negative")
	}
	switch c.UI.Mode {
	case ModeTUI, ModeTray, ModeHeadless:
	default:
		return fmt.Errorf("ui.mode must be one of %q, %q, %q", ModeTUI, ModeTray, ModeHeadless)
	}
	return nil
}
