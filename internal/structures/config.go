package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type TraktConfig struct {
	BaseURL           string        `yaml:"baseUrl" validate:"required|fullUrl"`
	ClientID          string        `yaml:"clientId" validate:"required"`
	ClientSecret      string        `yaml:"clientSecret" validate:"required"`
	TokenFile         string        `yaml:"tokenFile" validate:"required|unixPath"`
	RequestsPerSecond int           `yaml:"requestsPerSecond"`
	MaxRetries        int           `yaml:"maxRetries"`
	Timeout           time.Duration `yaml:"timeout"`
	AuthTimeout       time.Duration `yaml:"authTimeout"`
	PageLimit         int           `yaml:"pageLimit"`
}

type SyncConfig struct {
	Interval   time.Duration `yaml:"interval" validate:"required|min:1"`
	SkewMargin time.Duration `yaml:"skewMargin"`
	StartDate  string        `yaml:"startDate"`
	StateFile  string        `yaml:"stateFile" validate:"required|unixPath"`
}

type ExportConfig struct {
	Dir           string        `yaml:"dir" validate:"required|unixPath"`
	Retention     int           `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	MaxFileBytes  int64         `yaml:"maxFileBytes"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	Trakt     TraktConfig   `yaml:"trakt"`
	Sync      SyncConfig    `yaml:"sync"`
	Export    ExportConfig  `yaml:"export"`
	WebServer Server        `yaml:"webServer"`
	Logger    LoggerConfig  `yaml:"logger"`
	Cache     CacheConfig   `yaml:"cache"`
	Metrics   MetricsConfig `yaml:"metrics"`
}
