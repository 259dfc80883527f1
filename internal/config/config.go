package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/safebite/handheld/internal/wav"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (SAFEBITE_WIFI_SSID, ...).
const EnvPrefix = "SAFEBITE"

// MaxBars is the capacity of the level history shown while recording.
const MaxBars = 16

const (
	inherited       = "inherited"
	profileSpecific = "profile-specific"
)

type RootConfig struct {
	ActiveConfig string             `mapstructure:"active_config" yaml:"active_config"`
	Configs      map[string]*Config `mapstructure:"configs" yaml:"configs"`
}

type Config struct {
	Audio   AudioConfig   `mapstructure:"audio" yaml:"audio"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Wifi    WifiConfig    `mapstructure:"wifi" yaml:"wifi"`
	Loop    LoopConfig    `mapstructure:"loop" yaml:"loop"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`

	// Internal field to track inheritance information for info command
	Inheritance *InheritanceInfo `mapstructure:"-" yaml:"-"`
}

// InheritanceInfo maps dotted keys ("audio.sample_rate") to "inherited" or
// "profile-specific".
type InheritanceInfo struct {
	Profile string
	Fields  map[string]string
}

type AudioConfig struct {
	Driver           string        `mapstructure:"driver" yaml:"driver"` // "synthetic", "malgo", "auto"
	Device           string        `mapstructure:"device" yaml:"device"` // capture device name snippet (malgo)
	SampleRate       int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	Duration         time.Duration `mapstructure:"duration" yaml:"duration"`
	ChunkSamples     int           `mapstructure:"chunk_samples" yaml:"chunk_samples"`
	Gain             int           `mapstructure:"gain" yaml:"gain"`
	BufferLimit      int           `mapstructure:"buffer_limit" yaml:"buffer_limit"`             // bytes, 0 = unlimited
	MaxChunkFailures int           `mapstructure:"max_chunk_failures" yaml:"max_chunk_failures"` // 0 = retry forever
	ToneHz           float64       `mapstructure:"tone_hz" yaml:"tone_hz"`                       // synthetic driver only
}

type DisplayConfig struct {
	BlinkInterval     time.Duration `mapstructure:"blink_interval" yaml:"blink_interval"`
	BarUpdateInterval time.Duration `mapstructure:"bar_update_interval" yaml:"bar_update_interval"`
	Bars              int           `mapstructure:"bars" yaml:"bars"`
}

type WifiConfig struct {
	SSID              string        `mapstructure:"ssid" yaml:"ssid"`
	Password          string        `mapstructure:"password" yaml:"password"`
	ProbeAddress      string        `mapstructure:"probe_address" yaml:"probe_address"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" yaml:"reconnect_interval"`
	BlinkRate         time.Duration `mapstructure:"blink_rate" yaml:"blink_rate"`
}

type LoopConfig struct {
	TickInterval      time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout" yaml:"inactivity_timeout"` // 0 = never halt
}

type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// TotalSamples returns the number of samples in one clip.
func (a AudioConfig) TotalSamples() int {
	return int(int64(a.SampleRate) * int64(a.Duration) / int64(time.Second))
}

// DurationSeconds returns the clip duration in whole seconds.
func (a AudioConfig) DurationSeconds() int {
	return int(a.Duration / time.Second)
}

// BufferSize returns the capture buffer size: 44-byte header plus payload.
func (a AudioConfig) BufferSize() int {
	return 44 + a.TotalSamples()*2
}

// HasCredentials reports whether the device should run in online mode.
func (w WifiConfig) HasCredentials() bool {
	return strings.TrimSpace(w.SSID) != ""
}

var defaultConfig = Config{
	Audio: AudioConfig{
		Driver:       "synthetic",
		SampleRate:   8000,
		Duration:     6 * time.Second,
		ChunkSamples: 240,
		Gain:         32,
		ToneHz:       440,
	},
	Display: DisplayConfig{
		BlinkInterval:     500 * time.Millisecond,
		BarUpdateInterval: 80 * time.Millisecond,
		Bars:              MaxBars,
	},
	Wifi: WifiConfig{
		ProbeAddress:      "connectivitycheck.gstatic.com:80",
		ConnectionTimeout: 10 * time.Second,
		ReconnectInterval: 30 * time.Second,
		BlinkRate:         500 * time.Millisecond,
	},
	Loop: LoopConfig{
		TickInterval:      20 * time.Millisecond,
		InactivityTimeout: 60 * time.Second,
	},
	Log: LogConfig{
		MaxSizeMB:  10,
		MaxBackups: 3,
	},
}

// Default returns the built-in configuration. It has no credentials, so the
// device starts in offline mode.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("no config file specified, use --config flag")
	}

	v := viper.New()
	rootConfig, err := readRootConfig(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Determine which config to use
	configName := profile
	if configName == "" {
		configName = rootConfig.ActiveConfig
	}
	if configName == "" {
		configName = "default"
	}
	configName = strings.ToLower(configName)

	selectedProfile, exists := rootConfig.Configs[configName]
	if !exists {
		return nil, fmt.Errorf("configuration profile '%s' not found", configName)
	}

	// Built-in defaults, then the file's default profile, then the selection.
	base := Default()
	if defaultProfile, ok := rootConfig.Configs["default"]; ok && configName != "default" {
		base = mergeConfigs(base, defaultProfile)
	}
	selectedConfig := mergeConfigs(base, selectedProfile)
	selectedConfig.Inheritance.Profile = configName

	applyEnvOverrides(v, selectedConfig)
	selectedConfig.Log.File = expandPath(selectedConfig.Log.File)

	if err := Validate(selectedConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return selectedConfig, nil
}

// LoadIfExists behaves like LoadWithProfile but falls back to the built-in
// defaults (plus environment overrides) when configFile does not exist.
func LoadIfExists(configFile, profile string) (*Config, error) {
	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.Inheritance = &InheritanceInfo{Profile: "built-in", Fields: map[string]string{}}
		v := viper.New()
		v.SetEnvPrefix(EnvPrefix)
		v.AutomaticEnv()
		applyEnvOverrides(v, cfg)
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
		return cfg, nil
	}
	return LoadWithProfile(configFile, profile)
}

func readRootConfig(v *viper.Viper, configFile string) (*RootConfig, error) {
	v.SetConfigFile(configFile)

	// Set environment variable prefix
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(rootConfig.Configs) == 0 {
		return nil, fmt.Errorf("configs section is required")
	}
	for name, profile := range rootConfig.Configs {
		if profile == nil {
			return nil, fmt.Errorf("config '%s' is empty", name)
		}
	}

	return &rootConfig, nil
}

// applyEnvOverrides lets SAFEBITE_WIFI_SSID / SAFEBITE_WIFI_PASSWORD supply
// credentials without writing them to the config file.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if ssid := v.GetString("wifi_ssid"); ssid != "" {
		cfg.Wifi.SSID = ssid
		cfg.Inheritance.Fields["wifi.ssid"] = "environment"
	}
	if password := v.GetString("wifi_password"); password != "" {
		cfg.Wifi.Password = password
		cfg.Inheritance.Fields["wifi.password"] = "environment"
	}
}

// ListProfiles returns the profile names defined in configFile.
func ListProfiles(configFile string) ([]string, error) {
	rootConfig, err := readRootConfig(viper.New(), configFile)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rootConfig.Configs))
	for name := range rootConfig.Configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	// Create a new viper instance to avoid interfering with the global one
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	if !v.IsSet("configs." + strings.ToLower(newActiveConfig)) {
		return fmt.Errorf("configuration profile '%s' not found", newActiveConfig)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

// mergeConfigs implements the "Selection & Fallback" inheritance model:
// every zero-valued profile field falls back to the base value.
func mergeConfigs(base, profile *Config) *Config {
	result := &Config{
		Inheritance: &InheritanceInfo{Fields: make(map[string]string)},
	}
	if base != nil {
		result.Audio = base.Audio
		result.Display = base.Display
		result.Wifi = base.Wifi
		result.Loop = base.Loop
		result.Log = base.Log
	}
	if profile == nil {
		return result
	}

	info := result.Inheritance
	a, p := &result.Audio, profile.Audio
	inherit(info, "audio.driver", &a.Driver, p.Driver)
	inherit(info, "audio.device", &a.Device, p.Device)
	inherit(info, "audio.sample_rate", &a.SampleRate, p.SampleRate)
	inherit(info, "audio.duration", &a.Duration, p.Duration)
	inherit(info, "audio.chunk_samples", &a.ChunkSamples, p.ChunkSamples)
	inherit(info, "audio.gain", &a.Gain, p.Gain)
	inherit(info, "audio.buffer_limit", &a.BufferLimit, p.BufferLimit)
	inherit(info, "audio.max_chunk_failures", &a.MaxChunkFailures, p.MaxChunkFailures)
	inherit(info, "audio.tone_hz", &a.ToneHz, p.ToneHz)

	d, pd := &result.Display, profile.Display
	inherit(info, "display.blink_interval", &d.BlinkInterval, pd.BlinkInterval)
	inherit(info, "display.bar_update_interval", &d.BarUpdateInterval, pd.BarUpdateInterval)
	inherit(info, "display.bars", &d.Bars, pd.Bars)

	w, pw := &result.Wifi, profile.Wifi
	inherit(info, "wifi.ssid", &w.SSID, pw.SSID)
	inherit(info, "wifi.password", &w.Password, pw.Password)
	inherit(info, "wifi.probe_address", &w.ProbeAddress, pw.ProbeAddress)
	inherit(info, "wifi.connection_timeout", &w.ConnectionTimeout, pw.ConnectionTimeout)
	inherit(info, "wifi.reconnect_interval", &w.ReconnectInterval, pw.ReconnectInterval)
	inherit(info, "wifi.blink_rate", &w.BlinkRate, pw.BlinkRate)

	l, pl := &result.Loop, profile.Loop
	inherit(info, "loop.tick_interval", &l.TickInterval, pl.TickInterval)
	inherit(info, "loop.inactivity_timeout", &l.InactivityTimeout, pl.InactivityTimeout)

	g, pg := &result.Log, profile.Log
	inherit(info, "log.file", &g.File, pg.File)
	inherit(info, "log.max_size_mb", &g.MaxSizeMB, pg.MaxSizeMB)
	inherit(info, "log.max_backups", &g.MaxBackups, pg.MaxBackups)

	return result
}

func inherit[T comparable](info *InheritanceInfo, key string, dst *T, value T) {
	var zero T
	if value == zero {
		info.Fields[key] = inherited
		return
	}
	*dst = value
	info.Fields[key] = profileSpecific
}

// Source returns the inheritance status of a dotted key.
func (i *InheritanceInfo) Source(key string) string {
	if i == nil {
		return ""
	}
	return i.Fields[key]
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Validate checks the resolved configuration.
func Validate(cfg *Config) error {
	if err := validateAudio(cfg.Audio); err != nil {
		return err
	}
	if err := validateDisplay(cfg.Display); err != nil {
		return err
	}
	if err := validateWifi(cfg.Wifi); err != nil {
		return err
	}

	if cfg.Loop.TickInterval <= 0 {
		return fmt.Errorf("loop: 'tick_interval' must be > 0, got: %s", cfg.Loop.TickInterval)
	}
	if cfg.Loop.InactivityTimeout < 0 {
		return fmt.Errorf("loop: 'inactivity_timeout' must be >= 0, got: %s", cfg.Loop.InactivityTimeout)
	}
	return nil
}

func validateAudio(a AudioConfig) error {
	switch strings.ToLower(a.Driver) {
	case "synthetic", "malgo", "auto":
	default:
		return fmt.Errorf("audio: 'driver' must be 'synthetic', 'malgo' or 'auto', got: %s", a.Driver)
	}
	if a.SampleRate <= 0 {
		return fmt.Errorf("audio: 'sample_rate' must be > 0, got: %d", a.SampleRate)
	}
	if a.Duration <= 0 {
		return fmt.Errorf("audio: 'duration' must be > 0, got: %s", a.Duration)
	}
	if a.TotalSamples() < 1 {
		return fmt.Errorf("audio: duration %s at %d Hz holds no samples", a.Duration, a.SampleRate)
	}
	if int64(a.TotalSamples())*2 > wav.MaxDataSize {
		return fmt.Errorf("audio: duration %s at %d Hz exceeds the %d byte clip limit", a.Duration, a.SampleRate, int64(wav.MaxDataSize))
	}
	if a.ChunkSamples <= 0 {
		return fmt.Errorf("audio: 'chunk_samples' must be > 0, got: %d", a.ChunkSamples)
	}
	if a.Gain <= 0 {
		return fmt.Errorf("audio: 'gain' must be > 0, got: %d", a.Gain)
	}
	if a.BufferLimit < 0 {
		return fmt.Errorf("audio: 'buffer_limit' must be >= 0, got: %d", a.BufferLimit)
	}
	if a.MaxChunkFailures < 0 {
		return fmt.Errorf("audio: 'max_chunk_failures' must be >= 0, got: %d", a.MaxChunkFailures)
	}
	return nil
}

func validateDisplay(d DisplayConfig) error {
	if d.Bars < 1 || d.Bars > MaxBars {
		return fmt.Errorf("display: 'bars' must be between 1 and %d, got: %d", MaxBars, d.Bars)
	}
	if d.BlinkInterval <= 0 {
		return fmt.Errorf("display: 'blink_interval' must be > 0, got: %s", d.BlinkInterval)
	}
	if d.BarUpdateInterval <= 0 {
		return fmt.Errorf("display: 'bar_update_interval' must be > 0, got: %s", d.BarUpdateInterval)
	}
	return nil
}

func validateWifi(w WifiConfig) error {
	if w.ConnectionTimeout <= 0 {
		return fmt.Errorf("wifi: 'connection_timeout' must be > 0, got: %s", w.ConnectionTimeout)
	}
	if w.ReconnectInterval <= 0 {
		return fmt.Errorf("wifi: 'reconnect_interval' must be > 0, got: %s", w.ReconnectInterval)
	}
	if w.BlinkRate <= 0 {
		return fmt.Errorf("wifi: 'blink_rate' must be > 0, got: %s", w.BlinkRate)
	}
	if w.HasCredentials() && w.ProbeAddress != "" && !strings.Contains(w.ProbeAddress, ":") {
		return fmt.Errorf("wifi: 'probe_address' must be host:port, got: %s", w.ProbeAddress)
	}
	return nil
}
