// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"

	"github.com/videosentinel/videosentinel/internal/log"
)

// applyEnv overlays VS_* environment variables onto cfg. Unparsable values
// are logged and ignored so a typo cannot silently zero a limit.
func applyEnv(cfg *Config) {
	logger := log.WithComponent("config")

	if v, ok := os.LookupEnv("VS_STAGING_DIR"); ok && v != "" {
		cfg.StagingDir = v
	}
	if v, ok := os.LookupEnv("VS_MAX_BUFFER_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxBufferSize = n
		} else {
			logger.Warn().Str("key", "VS_MAX_BUFFER_SIZE").Str("value", v).Msg("ignoring unparsable environment override")
		}
	}
	if v, ok := os.LookupEnv("VS_MAX_STAGING_GB"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxStagingGB = f
		} else {
			logger.Warn().Str("key", "VS_MAX_STAGING_GB").Str("value", v).Msg("ignoring unparsable environment override")
		}
	}
	if v, ok := os.LookupEnv("VS_REPLACE_ORIGINAL"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ReplaceOriginal = b
		} else {
			logger.Warn().Str("key", "VS_REPLACE_ORIGINAL").Str("value", v).Msg("ignoring unparsable environment override")
		}
	}
	if v, ok := os.LookupEnv("VS_OUTPUT_EXT"); ok && v != "" {
		cfg.OutputExt = v
	}
	if v, ok := os.LookupEnv("VS_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
}
