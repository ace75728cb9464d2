package narration

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper resolves the pipeline configuration with the usual
// precedence: environment variables override the config file, which
// overrides the defaults. Flag bindings layered on top of viper keep the
// flag > env > file > default order.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("engine") {
		cfg.Engine = viper.GetString("engine")
	}
	if viper.IsSet("model") {
		cfg.Model = viper.GetString("model")
	}
	if viper.IsSet("max_chars_per_batch") {
		cfg.MaxCharsPerBatch = viper.GetInt("max_chars_per_batch")
	}
	if viper.IsSet("inter_batch_delay") {
		cfg.InterBatchDelaySec = viper.GetInt("inter_batch_delay")
	}
	if viper.IsSet("sample_rate") {
		cfg.SampleRate = viper.GetInt("sample_rate")
	}
	if viper.IsSet("default_voice") {
		cfg.DefaultVoice = viper.GetString("default_voice")
	}
	if viper.IsSet("temperature") {
		cfg.DefaultTemperature = viper.GetFloat64("temperature")
	}
	if viper.IsSet("separate") {
		cfg.Separate = viper.GetBool("separate")
	}

	// Environment wins over the file.
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid narration configuration: %w", err)
	}
	return cfg, nil
}

// SpeakerOverrides reads per-speaker settings from the config file's
// speakers section and applies them to the parsed tracks. Only listed
// fields are overridden.
func SpeakerOverrides(tracks []SpeakerTrack) []SpeakerTrack {
	for i := range tracks {
		key := "speakers." + tracks[i].Speaker
		if !viper.IsSet(key) {
			continue
		}
		if v := viper.GetString(key + ".voice"); v != "" {
			tracks[i].Config.Voice = v
		}
		if viper.IsSet(key + ".volume") {
			tracks[i].Config.Volume = viper.GetFloat64(key + ".volume")
		}
		if viper.IsSet(key + ".tone") {
			tracks[i].Config.ToneDescription = viper.GetString(key + ".tone")
		}
		if viper.IsSet(key + ".temperature") {
			tracks[i].Config.Temperature = viper.GetFloat64(key + ".temperature")
		}
	}
	return tracks
}
