package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for any configuration that cannot be used to start a run.
var ErrInvalidConfig = errors.New("invalid configuration")

// SourceConfig configures one source adapter. The order of Sources in Config is the
// order adapters run in, which decides which duplicate survives.
type SourceConfig struct {
	Name    string   `yaml:"name" validate:"required"`
	Enabled bool     `yaml:"enabled"`
	BaseURL string   `yaml:"base_url" validate:"omitempty,url"`
	Engine  string   `yaml:"engine" validate:"omitempty,oneof=http headed firecrawl"`
	Feeds   []string `yaml:"feeds" validate:"omitempty,dive,url"`
	Boards  []string `yaml:"boards"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" validate:"min=1,max=65535"`
		Host         string        `yaml:"host"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
		CORSOrigins  []string      `yaml:"cors_origins"`
	} `yaml:"server"`

	BackgroundTasks struct {
		Workers         int           `yaml:"workers" validate:"min=1"`
		QueueSize       int           `yaml:"queue_size" validate:"min=1"`
		TaskTimeout     time.Duration `yaml:"task_timeout"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
		MaxTaskAge      time.Duration `yaml:"max_task_age"`
	} `yaml:"background_tasks"`

	Scraper struct {
		UserAgent      string        `yaml:"user_agent"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxRetries     int           `yaml:"max_retries" validate:"min=1,max=10"`
		RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
		RequestDelay   time.Duration `yaml:"request_delay"`
		MaxPages       int           `yaml:"max_pages" validate:"min=1,max=10"`
		Parallel       bool          `yaml:"parallel"`
		MaxParallel    int           `yaml:"max_parallel" validate:"min=1"`
		Engine         string        `yaml:"engine" validate:"oneof=http headed firecrawl"`
		HeadlessMode   bool          `yaml:"headless_mode"`
		CircuitBreaker struct {
			MaxFailures  int           `yaml:"max_failures" validate:"min=1"`
			ResetTimeout time.Duration `yaml:"reset_timeout"`
		} `yaml:"circuit_breaker"`
		Captcha struct {
			APIKey          string        `yaml:"api_key"`
			Timeout         time.Duration `yaml:"timeout"`
			EnableAutoSolve bool          `yaml:"enable_auto_solve"`
		} `yaml:"captcha"`
	} `yaml:"scraper"`

	Sources []SourceConfig `yaml:"sources" validate:"dive"`

	Search struct {
		Keywords   []string `yaml:"keywords"`
		Locations  []string `yaml:"locations"`
		RemoteOnly bool     `yaml:"remote_only"`
		MinSalary  int      `yaml:"min_salary" validate:"min=0"`
	} `yaml:"search"`

	Adzuna struct {
		AppID          string `yaml:"app_id"`
		AppKey         string `yaml:"app_key"`
		Country        string `yaml:"country"`
		ResultsPerPage int    `yaml:"results_per_page" validate:"min=1,max=50"`
	} `yaml:"adzuna"`

	JSearch struct {
		APIKey string `yaml:"api_key"`
		Host   string `yaml:"host"`
	} `yaml:"jsearch"`

	Firecrawl struct {
		APIKey string `yaml:"api_key"`
		APIURL string `yaml:"api_url"`
	} `yaml:"firecrawl"`

	Output struct {
		JSONPath  string `yaml:"json_path"`
		CSVPath   string `yaml:"csv_path"`
		PerJobDir string `yaml:"per_job_dir"`
	} `yaml:"output"`

	Database struct {
		URL      string `yaml:"url"`
		Table    string `yaml:"table"`
		MaxConns int32  `yaml:"max_conns"`
		MinConns int32  `yaml:"min_conns"`
	} `yaml:"database"`

	SQLite struct {
		Path  string `yaml:"path"`
		Table string `yaml:"table"`
	} `yaml:"sqlite"`

	Redis struct {
		URL       string        `yaml:"url"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		Timeout   time.Duration `yaml:"timeout"`
		KeyPrefix string        `yaml:"key_prefix"`
		SeenTTL   time.Duration `yaml:"seen_ttl"`
	} `yaml:"redis"`

	Dedup struct {
		CrossRun bool `yaml:"cross_run"`
	} `yaml:"dedup"`

	Portal struct {
		URL         string `yaml:"url" validate:"omitempty,url"`
		AdminAPIKey string `yaml:"admin_api_key"`
		BatchSize   int    `yaml:"batch_size" validate:"min=1"`
	} `yaml:"portal"`

	Schedule struct {
		Enabled    bool          `yaml:"enabled"`
		Interval   time.Duration `yaml:"interval"`
		RunOnStart bool          `yaml:"run_on_start"`
	} `yaml:"schedule"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Logging struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn warning error fatal"`
		Format string `yaml:"format" validate:"oneof=json text"`
		Output string `yaml:"output"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})

	return s
}

// Default returns a configuration populated with built-in defaults only
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.CORSOrigins = []string{"*"}

	config.BackgroundTasks.Workers = 1
	config.BackgroundTasks.QueueSize = 10
	config.BackgroundTasks.TaskTimeout = 30 * time.Minute
	config.BackgroundTasks.CleanupInterval = 1 * time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour

	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	config.Scraper.RequestTimeout = 20 * time.Second
	config.Scraper.MaxRetries = 3
	config.Scraper.RetryBaseDelay = 2 * time.Second
	config.Scraper.RequestDelay = 2 * time.Second
	config.Scraper.MaxPages = 3
	config.Scraper.MaxParallel = 4
	config.Scraper.Engine = "http"
	config.Scraper.HeadlessMode = true
	config.Scraper.CircuitBreaker.MaxFailures = 5
	config.Scraper.CircuitBreaker.ResetTimeout = 30 * time.Second
	config.Scraper.Captcha.Timeout = 120 * time.Second

	config.Sources = []SourceConfig{
		{Name: "indeed", Enabled: true},
		{Name: "linkedin", Enabled: true},
		{Name: "soa", Enabled: true},
		{Name: "cas", Enabled: true},
	}

	config.Adzuna.Country = "us"
	config.Adzuna.ResultsPerPage = 50
	config.JSearch.Host = "jsearch.p.rapidapi.com"
	config.Firecrawl.APIURL = "https://api.firecrawl.dev"

	config.Output.JSONPath = "public/jobs.json"

	config.Database.Table = "jobs"
	config.Database.MaxConns = 10
	config.Database.MinConns = 2
	config.SQLite.Table = "jobs"

	config.Redis.Timeout = 5 * time.Second
	config.Redis.KeyPrefix = "jobharvest:seen:"
	config.Redis.SeenTTL = 30 * 24 * time.Hour

	config.Portal.BatchSize = 50

	config.Schedule.Interval = 6 * time.Hour
	config.Schedule.RunOnStart = true

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	return config
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			yamlContent := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, configPath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, configPath, err)
		}
	}

	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if appID := os.Getenv("ADZUNA_APP_ID"); appID != "" {
		c.Adzuna.AppID = appID
	}

	if appKey := os.Getenv("ADZUNA_APP_KEY"); appKey != "" {
		c.Adzuna.AppKey = appKey
	}

	if country := os.Getenv("ADZUNA_COUNTRY"); country != "" {
		c.Adzuna.Country = country
	}

	if key := os.Getenv("JSEARCH_API_KEY"); key != "" {
		c.JSearch.APIKey = key
	}

	// RapidAPI keys are commonly exported under this name as well
	if key := os.Getenv("RAPIDAPI_KEY"); key != "" && c.JSearch.APIKey == "" {
		c.JSearch.APIKey = key
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Firecrawl.APIKey = firecrawlAPIKey
	}

	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Firecrawl.APIURL = firecrawlAPIURL
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Scraper.Captcha.APIKey = captchaAPIKey
	}

	if delay := os.Getenv("SCRAPER_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			c.Scraper.RequestDelay = d
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		c.Database.URL = dbURL
	}

	if sqlitePath := os.Getenv("SQLITE_PATH"); sqlitePath != "" {
		c.SQLite.Path = sqlitePath
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if portalURL := os.Getenv("PORTAL_URL"); portalURL != "" {
		c.Portal.URL = portalURL
	}

	if adminKey := os.Getenv("ADMIN_API_KEY"); adminKey != "" {
		c.Portal.AdminAPIKey = adminKey
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.BotToken = token
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}

	if interval := os.Getenv("SCRAPE_INTERVAL_HOURS"); interval != "" {
		if hours, err := strconv.Atoi(interval); err == nil && hours > 0 {
			c.Schedule.Interval = time.Duration(hours) * time.Hour
		}
	}
}

// EnabledSources returns the enabled source configurations in run order
func (c *Config) EnabledSources() []SourceConfig {
	var enabled []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// Source returns the configuration for the named source
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// SelectSources enables exactly the named sources, in the given order. Names not
// present in the configuration are added with default settings.
func (c *Config) SelectSources(names []string) {
	if len(names) == 0 {
		return
	}

	selected := make([]SourceConfig, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		src, ok := c.Source(name)
		if !ok {
			src = SourceConfig{Name: name}
		}
		src.Enabled = true
		selected = append(selected, src)
	}
	c.Sources = selected
}

var validate = validator.New()

// Validate checks field constraints and credentials required by the enabled
// components. It never touches the network.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var problems []string
	for _, src := range c.EnabledSources() {
		switch src.Name {
		case "adzuna":
			if c.Adzuna.AppID == "" || c.Adzuna.AppKey == "" {
				problems = append(problems, "adzuna requires ADZUNA_APP_ID and ADZUNA_APP_KEY")
			}
		case "jsearch":
			if c.JSearch.APIKey == "" {
				problems = append(problems, "jsearch requires JSEARCH_API_KEY")
			}
		case "rss":
			if len(src.Feeds) == 0 {
				problems = append(problems, "rss requires at least one feed URL")
			}
		case "greenhouse", "lever", "workday":
			if len(src.Boards) == 0 {
				problems = append(problems, src.Name+" requires at least one board")
			}
		}

		engine := src.Engine
		if engine == "" {
			engine = c.Scraper.Engine
		}
		if engine == "firecrawl" && c.Firecrawl.APIKey == "" {
			problems = append(problems, src.Name+" uses the firecrawl engine but FIRECRAWL_API_KEY is not set")
		}
	}

	if len(c.EnabledSources()) == 0 {
		problems = append(problems, "no sources enabled")
	}

	if c.Portal.URL != "" && c.Portal.AdminAPIKey == "" {
		problems = append(problems, "portal url set without ADMIN_API_KEY")
	}

	if c.Dedup.CrossRun && c.Redis.URL == "" {
		problems = append(problems, "dedup.cross_run requires REDIS_URL")
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		problems = append(problems, "telegram requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}

	if c.Schedule.Enabled && c.Schedule.Interval < time.Minute {
		problems = append(problems, "schedule interval must be at least one minute")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}
