// ABOUTME: Player configuration backed by viper
// ABOUTME: Defaults, optional soundbuffer.yaml, SOUNDBUFFER_* environment and flag overrides
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SOUNDBUFFER_LOG_LEVEL
const EnvPrefix = "SOUNDBUFFER"

// Config is the resolved player configuration
type Config struct {
	Output OutputConfig
	Device DeviceConfig
	Log    LogConfig
	Remote RemoteConfig
	MDNS   MDNSConfig
	Player PlayerConfig
}

type OutputConfig struct {
	Backend string
}

type DeviceConfig struct {
	SampleRate int
	Channels   int
	Bits       int
}

type LogConfig struct {
	Level string
	File  string
}

type RemoteConfig struct {
	Enabled bool
	Addr    string
	Name    string
}

type MDNSConfig struct {
	Enabled bool
}

// PlayerConfig holds playback options for the file player
type PlayerConfig struct {
	Loop      bool
	LoopStart int
	LoopEnd   int
	LoopCount int
	Repeat    bool
	// Volume in hundredths of a decibel, -10000 to 0
	Volume  int
	Markers []int
}

// New returns a viper instance carrying every default
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("output.backend", "oto")
	v.SetDefault("device.sample_rate", 48000)
	v.SetDefault("device.channels", 2)
	v.SetDefault("device.bits", 16)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("remote.enabled", false)
	v.SetDefault("remote.addr", "127.0.0.1:8930")
	v.SetDefault("remote.name", "soundbuffer")
	v.SetDefault("mdns.enabled", false)
	v.SetDefault("player.loop", false)
	v.SetDefault("player.loop_start", 0)
	v.SetDefault("player.loop_end", 0)
	v.SetDefault("player.loop_count", 0)
	v.SetDefault("player.repeat", false)
	v.SetDefault("player.volume", 0)
	v.SetDefault("player.markers", []int{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path into v. An empty path looks for soundbuffer.yaml in
// the working directory; a missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		v.SetConfigName("soundbuffer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			slog.Debug("no config file found")
			return nil
		}
		return fmt.Errorf("error during config read: %w", err)
	}
	slog.Debug("config file loaded", "file", v.ConfigFileUsed())
	return nil
}

// Load reads defaults, the config file and the environment. Callers that
// need flag overrides use New, ReadFile and Decode with Set in between.
func Load(path string) (*Config, error) {
	v := New()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode resolves v into a validated Config
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Output: OutputConfig{Backend: v.GetString("output.backend")},
		Device: DeviceConfig{
			SampleRate: v.GetInt("device.sample_rate"),
			Channels:   v.GetInt("device.channels"),
			Bits:       v.GetInt("device.bits"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		Remote: RemoteConfig{
			Enabled: v.GetBool("remote.enabled"),
			Addr:    v.GetString("remote.addr"),
			Name:    v.GetString("remote.name"),
		},
		MDNS: MDNSConfig{Enabled: v.GetBool("mdns.enabled")},
		Player: PlayerConfig{
			Loop:      v.GetBool("player.loop"),
			LoopStart: v.GetInt("player.loop_start"),
			LoopEnd:   v.GetInt("player.loop_end"),
			LoopCount: v.GetInt("player.loop_count"),
			Repeat:    v.GetBool("player.repeat"),
			Volume:    v.GetInt("player.volume"),
			Markers:   v.GetIntSlice("player.markers"),
		},
	}

	if cfg.Player.Volume < -10000 || cfg.Player.Volume > 0 {
		return nil, fmt.Errorf("player.volume %d outside [-10000, 0]", cfg.Player.Volume)
	}
	if cfg.Player.LoopCount < 0 {
		return nil, fmt.Errorf("player.loop_count %d is negative", cfg.Player.LoopCount)
	}
	if cfg.Remote.Enabled && cfg.Remote.Addr == "" {
		return nil, errors.New("remote.addr must be set when remote.enabled is true")
	}
	return cfg, nil
}
