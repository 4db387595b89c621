package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"tlsync/internal/structures"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "TLSYNC_LOG_LEVEL")
	viper.BindEnv("trakt.clientId", "TLSYNC_TRAKT_CLIENT_ID")
	viper.BindEnv("trakt.clientSecret", "TLSYNC_TRAKT_CLIENT_SECRET")
	viper.BindEnv("sync.interval", "TLSYNC_SYNC_INTERVAL")
	viper.BindEnv("export.dir", "TLSYNC_EXPORT_DIR")
	viper.BindEnv("cache.enabled", "TLSYNC_CACHE_ENABLED")
	viper.BindEnv("cache.size", "TLSYNC_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	applyDefaults(&conf)

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "TraktLetterboxdSync"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

// applyDefaults fills the knobs that are safe to leave out of the YAML.
func applyDefaults(conf *structures.Config) {
	if conf.Trakt.BaseURL == "" {
		conf.Trakt.BaseURL = "https://api.trakt.tv"
	}
	if conf.Trakt.RequestsPerSecond <= 0 {
		conf.Trakt.RequestsPerSecond = 3
	}
	if conf.Trakt.MaxRetries <= 0 {
		conf.Trakt.MaxRetries = 4
	}
	if conf.Trakt.Timeout <= 0 {
		conf.Trakt.Timeout = 15 * time.Second
	}
	if conf.Trakt.AuthTimeout <= 0 {
		// the device-code grant itself lives about ten minutes
		conf.Trakt.AuthTimeout = 10 * time.Minute
	}
	if conf.Trakt.PageLimit <= 0 {
		conf.Trakt.PageLimit = 100
	}
	if conf.Sync.SkewMargin <= 0 {
		conf.Sync.SkewMargin = time.Minute
	}
	if conf.Export.Retention <= 0 {
		conf.Export.Retention = 10
	}
	if conf.Export.SweepInterval <= 0 {
		conf.Export.SweepInterval = time.Hour
	}
	if conf.Export.MaxFileBytes <= 0 {
		conf.Export.MaxFileBytes = 1 << 20 // Letterboxd importer ceiling
	}
	if conf.Cache.TTL <= 0 {
		conf.Cache.TTL = 5 * time.Second
	}
}
