package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultYAML []byte

type Config struct {
	App struct {
		Port     int    `yaml:"port" validate:"min=1,max=65535"`
		DataDir  string `yaml:"data_dir"`
		LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	} `yaml:"app"`

	Source struct {
		BaseURL     string        `yaml:"base_url" validate:"required,url"`
		Location    string        `yaml:"location"`
		PayBands    []string      `yaml:"pay_bands"`
		MaxPages    int           `yaml:"max_pages" validate:"min=1,max=100"`
		Delay       time.Duration `yaml:"delay"`
		PageTimeout time.Duration `yaml:"page_timeout"`
		UserAgent   string        `yaml:"user_agent"`
	} `yaml:"source"`

	Schedule struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
		MaxPages int           `yaml:"max_pages" validate:"min=0,max=100"`
	} `yaml:"schedule"`

	Store struct {
		Backend         string `yaml:"backend" validate:"oneof=sqlite csv postgres memory"`
		Path            string `yaml:"path"`
		DSN             string `yaml:"dsn"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"store"`

	Lock struct {
		RedisURL string        `yaml:"redis_url"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"lock"`
}

// Default returns the embedded default config.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic("config: embedded default.yml: " + err.Error())
	}
	return cfg
}

// Load overlays the file at path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// StorePath resolves the sqlite/csv path against the data dir.
func (c Config) StorePath() string {
	p := c.Store.Path
	if p == "" {
		switch c.Store.Backend {
		case "csv":
			p = "snapshot.csv"
		default:
			p = "snapshot.db"
		}
	}
	if filepath.IsAbs(p) || c.App.DataDir == "" {
		return p
	}
	return filepath.Join(c.App.DataDir, p)
}

func (c Config) LockPath() string {
	return filepath.Join(c.App.DataDir, "cycle.lock")
}
