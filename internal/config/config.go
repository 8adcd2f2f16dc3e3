package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	defaultRunAt    = "00:00"

	configPathEnv    = "DAILYRELEASES_CONFIG"
	dataDirEnv       = "DAILYRELEASES_DATA_DIR"
	logLevelEnv      = "DAILYRELEASES_LOG_LEVEL"
	discordURLEnv    = "DISCORD_WEBHOOK_URL"
	googleAPIKeyEnv  = "GOOGLE_API_KEY"
	googleEngineEnv  = "GOOGLE_CX"
	databaseFileName = "dailyreleases.db"
	lockFileName     = "dailyreleases.lock"
)

// Config holds high-level settings required across the application.
type Config struct {
	DataDir       string             `yaml:"dataDir"`
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Web           WebConfig          `yaml:"web"`
	Main          MainConfig         `yaml:"main"`
	Sources       []SourceConfig     `yaml:"sources"`
	Stores        StoresConfig       `yaml:"stores"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig controls the slog output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File also writes logs to <dataDir>/logs/main.log.
	File bool `yaml:"file"`
}

// SchedulerConfig defines when the daemon runs the pipeline.
type SchedulerConfig struct {
	Timezone   string         `yaml:"timezone"`
	RunAt      string         `yaml:"runAt"`
	RunOnStart bool           `yaml:"runOnStart"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// TimeOfDay parses RunAt as hours and minutes.
func (s SchedulerConfig) TimeOfDay() (hour, minute int, err error) {
	runAt := s.RunAt
	if runAt == "" {
		runAt = defaultRunAt
	}
	t, err := time.Parse("15:04", runAt)
	if err != nil {
		return 0, 0, fmt.Errorf("scheduler.runAt %q: %w", runAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

// WebConfig tunes the response cache and HTTP client.
type WebConfig struct {
	CacheTime time.Duration `yaml:"cacheTime"`
	Retention time.Duration `yaml:"retention"`
	RateLimit float64       `yaml:"rateLimit"`
	UserAgent string        `yaml:"userAgent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// MainConfig holds pipeline behaviour switches.
type MainConfig struct {
	RetryAttempts    int           `yaml:"retryAttempts"`
	RetryDelay       time.Duration `yaml:"retryDelay"`
	BackupNFOs       bool          `yaml:"backupNfos"`
	RequireStoreLink bool          `yaml:"requireStoreLink"`
	Post             bool          `yaml:"post"`
}

// SourceConfig describes one listing source. Sources are listed from least to most trusted.
type SourceConfig struct {
	Name       string   `yaml:"name"`
	Scanner    string   `yaml:"scanner"`
	Categories []string `yaml:"categories"`
	Pages      int      `yaml:"pages"`
}

// StoresConfig toggles storefront providers.
type StoresConfig struct {
	Steam  StoreToggle  `yaml:"steam"`
	GOG    StoreToggle  `yaml:"gog"`
	Epic   StoreToggle  `yaml:"epic"`
	Google GoogleConfig `yaml:"google"`
}

// StoreToggle enables a single provider.
type StoreToggle struct {
	Enabled bool `yaml:"enabled"`
}

// GoogleConfig carries custom search credentials for the web-search fallback.
type GoogleConfig struct {
	Key string `yaml:"key"`
	CX  string `yaml:"cx"`
}

// Enabled reports whether both credentials are present.
func (g GoogleConfig) Enabled() bool {
	return g.Key != "" && g.CX != ""
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig wires the webhook used to publish posts.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
}

// PathFromEnv returns the config path set in the environment, if any.
func PathFromEnv() string {
	return os.Getenv(configPathEnv)
}

// Load reads the YAML file at path over the defaults and applies environment overrides.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	// An explicit empty list disables collection; a null one means the defaults.
	if cfg.Sources == nil {
		cfg.Sources = Default().Sources
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataDirEnv); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(discordURLEnv); v != "" {
		c.Notifications.Discord.WebhookURL = v
	}
	if v := os.Getenv(googleAPIKeyEnv); v != "" {
		c.Stores.Google.Key = v
	}
	if v := os.Getenv(googleEngineEnv); v != "" {
		c.Stores.Google.CX = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler.timezone %q: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("dataDir must be set"))
	}
	if c.Web.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("web.rateLimit must be positive, got %v", c.Web.RateLimit))
	}
	if c.Web.CacheTime <= 0 {
		errs = append(errs, fmt.Errorf("web.cacheTime must be positive, got %s", c.Web.CacheTime))
	}
	if c.Main.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("main.retryAttempts must be at least 1, got %d", c.Main.RetryAttempts))
	}
	if c.Main.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("main.retryDelay must not be negative, got %s", c.Main.RetryDelay))
	}
	if _, _, err := c.Scheduler.TimeOfDay(); err != nil {
		errs = append(errs, err)
	}
	if c.Main.Post && c.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("main.post requires notifications.discord.webhookUrl"))
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		switch {
		case src.Name == "":
			errs = append(errs, fmt.Errorf("sources[%d]: name must be set", i))
		case seen[src.Name]:
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, src.Name))
		}
		seen[src.Name] = true
		if src.Scanner == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: scanner must be set", i))
		}
		if src.Pages < 1 {
			errs = append(errs, fmt.Errorf("sources[%d]: pages must be at least 1", i))
		}
	}
	return errors.Join(errs...)
}

// CheckScanners rejects sources whose scanner is not one of known.
func (c Config) CheckScanners(known []string) error {
	var errs []error
	for i, src := range c.Sources {
		if src.Scanner != "" && !slices.Contains(known, src.Scanner) {
			errs = append(errs, fmt.Errorf("sources[%d]: unknown scanner %q, expected one of %s",
				i, src.Scanner, strings.Join(known, ", ")))
		}
	}
	return errors.Join(errs...)
}

// EnsureDirectories creates the data and log directories.
func (c Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding the cache and the processed ledger.
func (c Config) DatabasePath() string { return filepath.Join(c.DataDir, databaseFileName) }

// LockPath is the single-instance lock file.
func (c Config) LockPath() string { return filepath.Join(c.DataDir, lockFileName) }

// LogDir holds main.log when file logging is enabled.
func (c Config) LogDir() string { return filepath.Join(c.DataDir, "logs") }

// NFODir holds archived NFO files.
func (c Config) NFODir() string { return filepath.Join(c.DataDir, "nfo") }

// EpiloguePath is the optional text appended to every post.
func (c Config) EpiloguePath() string { return filepath.Join(c.DataDir, "epilogue.txt") }

// Default returns the built-in configuration.
func Default() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		DataDir:   defaultDataDir(),
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, RunAt: defaultRunAt, location: tz},
		Web: WebConfig{
			CacheTime: time.Hour,
			Retention: 7 * 24 * time.Hour,
			RateLimit: 1,
			Timeout:   30 * time.Second,
		},
		Main: MainConfig{
			RetryAttempts:    3,
			RetryDelay:       120 * time.Second,
			RequireStoreLink: true,
		},
		Sources: []SourceConfig{
			{Name: "predb", Scanner: "predb", Categories: []string{"GAMES"}, Pages: 1},
			{Name: "xrel-p2p", Scanner: "xrel-p2p", Pages: 1},
			{Name: "xrel", Scanner: "xrel", Categories: []string{"CRACKED", "UPDATE"}, Pages: 1},
		},
		Stores: StoresConfig{
			Steam: StoreToggle{Enabled: true},
			GOG:   StoreToggle{Enabled: true},
			Epic:  StoreToggle{Enabled: true},
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".dailyreleases"
	}
	return filepath.Join(home, ".dailyreleases")
}
