// Package config loads the formcheck settings from a TOML file with
// per-environment tables, then applies FORMCHECK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/ayusman/formcheck/internal/logging"
	"github.com/ayusman/formcheck/internal/movement"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	DataDir   string `toml:"data_dir"`
	DBPath    string `toml:"db_path"`
	PluginDir string `toml:"plugin_dir"`
	StaticDir string `toml:"static_dir"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`

	// camera
	CameraID        int     `toml:"camera_id"`
	ProbeDevices    int     `toml:"probe_devices"`
	Width           int     `toml:"width"`
	Height          int     `toml:"height"`
	Mirror          bool    `toml:"mirror"`
	IdleFPS         int     `toml:"idle_fps"`
	ActiveFPS       int     `toml:"active_fps"`
	MotionThreshold float64 `toml:"motion_threshold"`

	// detector
	ModelComplexity   int     `toml:"model_complexity"`
	MinDetectionConf  float64 `toml:"min_detection_confidence"`
	MinTrackingConf   float64 `toml:"min_tracking_confidence"`
	DetectorIdleSec   int     `toml:"detector_idle_sec"`
	PluginTimeoutMs   int     `toml:"plugin_timeout_ms"`
	InitialMovement   string  `toml:"movement"`
	Tolerance         float64 `toml:"tolerance"`
	AutoStartAnalysis bool    `toml:"auto_start_analysis"`

	// Movements maps a movement name to its rule override.
	Movements map[string]movement.Override `toml:"movements"`
}

type Toml struct {
	Development Config
	Production  Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return &t.Development, nil
	case "prod", "production":
		return &t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Default returns the built-in settings.
func Default() *Config {
	dataDir := ".formcheck"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".formcheck")
	}

	return &Config{
		Host:              "127.0.0.1",
		Port:              8080,
		DataDir:           dataDir,
		LogLevel:          "info",
		LogToStdout:       true,
		ProbeDevices:      5,
		Width:             640,
		Height:            480,
		Mirror:            true,
		IdleFPS:           5,
		ActiveFPS:         15,
		MotionThreshold:   1.0,
		ModelComplexity:   1,
		MinDetectionConf:  0.5,
		MinTrackingConf:   0.5,
		DetectorIdleSec:   30,
		PluginTimeoutMs:   5000,
		InitialMovement:   movement.Squat.Slug(),
		Tolerance:         movement.DefaultTolerance,
		AutoStartAnalysis: false,
	}
}

// Load reads env's table from the TOML file at path, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(env, path string) (*Config, error) {
	t := Toml{Development: *Default(), Production: *Default()}
	t.Production.LogFormatJSON = true

	if path != "" {
		if _, err := toml.DecodeFile(path, &t); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			log.Warnf("config file %s not found, using defaults", path)
		}
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes TOML data for env on top of the defaults, without the
// environment and without validation.
func Parse(env, data string) (*Config, error) {
	t := Toml{Development: *Default(), Production: *Default()}
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, err
	}
	return t.Get(env)
}

// ApplyEnv overrides fields from FORMCHECK_* variables found by lookup.
// Unparseable values are reported together.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("FORMCHECK_HOST", &c.Host)
	integer("FORMCHECK_PORT", &c.Port)
	str("FORMCHECK_DATA_DIR", &c.DataDir)
	str("FORMCHECK_DB_PATH", &c.DBPath)
	str("FORMCHECK_PLUGIN_DIR", &c.PluginDir)
	str("FORMCHECK_STATIC_DIR", &c.StaticDir)
	str("FORMCHECK_LOG_LEVEL", &c.LogLevel)
	str("FORMCHECK_LOGS_PATH", &c.LogsPath)
	boolean("FORMCHECK_LOG_TO_STDOUT", &c.LogToStdout)
	integer("FORMCHECK_CAMERA_ID", &c.CameraID)
	boolean("FORMCHECK_MIRROR", &c.Mirror)
	str("FORMCHECK_MOVEMENT", &c.InitialMovement)
	float("FORMCHECK_TOLERANCE", &c.Tolerance)

	return errs
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Port <= 0 || c.Port > 65535 {
		add("port %d out of range", c.Port)
	}
	if !logging.ValidLevel(c.LogLevel) {
		add("unknown log level %q", c.LogLevel)
	}
	if c.CameraID < 0 {
		add("camera_id must not be negative")
	}
	if c.IdleFPS <= 0 || c.ActiveFPS <= 0 {
		add("frame rates must be positive")
	} else if c.IdleFPS > c.ActiveFPS {
		add("idle_fps %d above active_fps %d", c.IdleFPS, c.ActiveFPS)
	}
	if c.ModelComplexity < 0 || c.ModelComplexity > 2 {
		add("model_complexity %d not in 0..2", c.ModelComplexity)
	}
	if c.MinDetectionConf < 0 || c.MinDetectionConf > 1 || c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		add("confidences must be within 0..1")
	}
	if _, err := movement.ParseType(c.InitialMovement); err != nil {
		add("movement: %v", err)
	}
	if math.IsNaN(c.Tolerance) || math.IsInf(c.Tolerance, 0) || c.Tolerance < 0 {
		add("tolerance %v must be a non-negative number", c.Tolerance)
	}
	if _, err := c.MovementConfig(); err != nil {
		add("movements: %v", err)
	}

	return errs
}

// MovementConfig converts the tolerance and per-movement overrides and
// checks them by building a rule set.
func (c *Config) MovementConfig() (movement.Config, error) {
	mc := movement.Config{Tolerance: c.Tolerance}
	if len(c.Movements) > 0 {
		mc.Overrides = make(map[movement.Type]movement.Override, len(c.Movements))
	}
	for name, o := range c.Movements {
		t, err := movement.ParseType(name)
		if err != nil {
			return mc, err
		}
		mc.Overrides[t] = o
	}

	if _, err := movement.NewRuleSet(mc); err != nil {
		return mc, err
	}
	return mc, nil
}

// Movement returns the initial movement.
func (c *Config) Movement() movement.Type {
	t, err := movement.ParseType(c.InitialMovement)
	if err != nil {
		return movement.Squat
	}
	return t
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Database returns the sqlite path, defaulting to formcheck.db in DataDir.
func (c *Config) Database() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "formcheck.db")
}

// Plugins returns the plugin directory, defaulting to plugins in DataDir.
func (c *Config) Plugins() string {
	if c.PluginDir != "" {
		return c.PluginDir
	}
	return filepath.Join(c.DataDir, "plugins")
}

// LoggerParams returns the logging setup for this config.
func (c *Config) LoggerParams() logging.LoggerSetupParams {
	return logging.LoggerSetupParams{
		LogFileName:   c.LogsPath,
		LogToStdout:   c.LogToStdout,
		LogLevel:      c.LogLevel,
		LogFormatJSON: c.LogFormatJSON,
	}
}
