package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Snapshot    SnapshotConfig `toml:"snapshot"`
	Sources     SourcesConfig  `toml:"sources"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	LLM         LLMConfig      `toml:"llm"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Schedule    ScheduleConfig `toml:"schedule"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`                                            // "json" or "text"
	Output     []string `toml:"output"`                                            // "stdout", "file"
	TimeFormat string   `toml:"time_format"`                                       // Time format for logs (default: "15:04:05")
}

// SnapshotConfig controls how chart screenshots are acquired.
type SnapshotConfig struct {
	Engine          string        `toml:"engine" validate:"oneof=service chromedp"` // "service" uses the puppeteer microservice, "chromedp" captures in-process
	ServiceURL      string        `toml:"service_url"`                              // Base URL of the screenshot microservice
	CandidateDirs   []string      `toml:"candidate_dirs"`                           // Directories probed for the service's package.json, in order
	StartCommand    []string      `toml:"start_command"`                            // Command used to launch the service (default: npm start)
	StartupAttempts int           `toml:"startup_attempts" validate:"gte=1"`        // Liveness polls before giving up on startup
	StartupPoll     time.Duration `toml:"startup_poll"`                             // Delay between liveness polls
	RequestTimeout  time.Duration `toml:"request_timeout"`                          // Per-capture HTTP timeout
	Timeframe       string        `toml:"timeframe"`                                // Chart timeframe requested from the service (default: "1d")
	TempDir         string        `toml:"temp_dir"`                                 // Directory for decoded screenshot files ("" = os temp)
}

// SourcesConfig locates the data source URL list.
type SourcesConfig struct {
	File string `toml:"file" validate:"required"` // Path to the URLs file, one URL per line, # comments
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for text and vision operations (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`    // Anthropic API key (ANTHROPIC_API_KEY or config)
	Model       string  `toml:"model"`      // Model for text and vision operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"` // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`    // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"` // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"` // "gemini" or "claude" (default: "gemini")
}

// AnalysisConfig controls the historical analysis generation.
type AnalysisConfig struct {
	WindowDays int    `toml:"window_days" validate:"gte=1"` // Days of history fed to the model (default: 30)
	Topic      string `toml:"topic"`                        // Topic key the analysis document is stored under (default: "macro")
}

// ScheduleConfig controls the serve-mode collection schedule.
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"` // Standard 5-field cron expression (default: "0 6 * * *")
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in macroscope.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Snapshot: SnapshotConfig{
			Engine:     "service",
			ServiceURL: "http://localhost:3000",
			CandidateDirs: []string{
				"../../../puppeteer-service",
				"../../puppeteer-service",
				"../puppeteer-service",
				"./puppeteer-service",
			},
			StartCommand:    []string{"npm", "start"},
			StartupAttempts: 10,
			StartupPoll:     1 * time.Second,
			RequestTimeout:  60 * time.Second,
			Timeframe:       "1d",
		},
		Sources: SourcesConfig{
			File: "./datasources.txt",
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			RateLimit:   "4s", // 15 RPM for free tier
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Analysis: AnalysisConfig{
			WindowDays: 30,
			Topic:      "macro",
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 6 * * *", // Daily at 06:00
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration using go-playground/validator tags
// plus cross-field checks the tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Schedule.Enabled {
		if err := ValidateSchedule(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: MACROSCOPE_ENV, fallback: GO_ENV)
	if env := os.Getenv("MACROSCOPE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MACROSCOPE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MACROSCOPE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("MACROSCOPE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("MACROSCOPE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("MACROSCOPE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("MACROSCOPE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Snapshot configuration
	if engine := os.Getenv("MACROSCOPE_SNAPSHOT_ENGINE"); engine != "" {
		config.Snapshot.Engine = engine
	}
	if serviceURL := os.Getenv("MACROSCOPE_SNAPSHOT_SERVICE_URL"); serviceURL != "" {
		config.Snapshot.ServiceURL = serviceURL
	}
	if attempts := os.Getenv("MACROSCOPE_SNAPSHOT_STARTUP_ATTEMPTS"); attempts != "" {
		if a, err := strconv.Atoi(attempts); err == nil {
			config.Snapshot.StartupAttempts = a
		}
	}
	if poll := os.Getenv("MACROSCOPE_SNAPSHOT_STARTUP_POLL"); poll != "" {
		if d, err := time.ParseDuration(poll); err == nil {
			config.Snapshot.StartupPoll = d
		}
	}
	if timeout := os.Getenv("MACROSCOPE_SNAPSHOT_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Snapshot.RequestTimeout = d
		}
	}
	if timeframe := os.Getenv("MACROSCOPE_SNAPSHOT_TIMEFRAME"); timeframe != "" {
		config.Snapshot.Timeframe = timeframe
	}
	if tempDir := os.Getenv("MACROSCOPE_SNAPSHOT_TEMP_DIR"); tempDir != "" {
		config.Snapshot.TempDir = tempDir
	}

	// Sources configuration
	if sourcesFile := os.Getenv("MACROSCOPE_SOURCES_FILE"); sourcesFile != "" {
		config.Sources.File = sourcesFile
	}

	// Gemini configuration
	if apiKey := os.Getenv("MACROSCOPE_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("MACROSCOPE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("MACROSCOPE_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("MACROSCOPE_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("MACROSCOPE_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("MACROSCOPE_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // MACROSCOPE_ prefix takes priority
	}
	if model := os.Getenv("MACROSCOPE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("MACROSCOPE_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("MACROSCOPE_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("MACROSCOPE_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("MACROSCOPE_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("MACROSCOPE_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Analysis configuration
	if windowDays := os.Getenv("MACROSCOPE_ANALYSIS_WINDOW_DAYS"); windowDays != "" {
		if wd, err := strconv.Atoi(windowDays); err == nil {
			config.Analysis.WindowDays = wd
		}
	}
	if topic := os.Getenv("MACROSCOPE_ANALYSIS_TOPIC"); topic != "" {
		config.Analysis.Topic = topic
	}

	// Schedule configuration
	if enabled := os.Getenv("MACROSCOPE_SCHEDULE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Schedule.Enabled = e
		}
	}
	if cronExpr := os.Getenv("MACROSCOPE_SCHEDULE_CRON"); cronExpr != "" {
		config.Schedule.Cron = cronExpr
	}
}

// FlagOverrides carries command-line values that take priority over config.
type FlagOverrides struct {
	Port        int
	Host        string
	SourcesFile string
	WindowDays  int
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Command-line flags have highest priority.
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.Port > 0 {
		config.Server.Port = flags.Port
	}
	if flags.Host != "" {
		config.Server.Host = flags.Host
	}
	if flags.SourcesFile != "" {
		config.Sources.File = flags.SourcesFile
	}
	if flags.WindowDays > 0 {
		config.Analysis.WindowDays = flags.WindowDays
	}
}

// ResolveAPIKey resolves an API key with environment variable priority.
// Resolution order: environment variables -> config fallback -> error.
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"MACROSCOPE_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"MACROSCOPE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"claude_api_key":    {"MACROSCOPE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ValidateSchedule validates a standard 5-field cron schedule expression.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	if len(strings.Fields(schedule)) != 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
