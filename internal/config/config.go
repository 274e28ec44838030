package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	md2pdf "github.com/alnah/go-md2pdf-server"
	"github.com/alnah/go-md2pdf-server/internal/broadcast"
	"github.com/alnah/go-md2pdf-server/internal/fileutil"
	"github.com/alnah/go-md2pdf-server/internal/queue"
	"github.com/alnah/go-md2pdf-server/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Storage drivers. StorageNone keeps artifacts in the job record only.
const (
	StorageNone  = "none"
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Log formats.
const (
	LogText = "text"
	LogJSON = "json"
)

// Server defaults.
const (
	DefaultAddr              = ":4000"
	DefaultCORSOrigin        = "http://localhost:3000"
	DefaultMaxBodyBytes      = 4 << 20
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultBroadcastBuffer   = 16
)

// appDirName is the directory searched under the user config dir.
const appDirName = "md2pdf-server"

// Config holds all configuration for the rendering service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Worker    WorkerConfig    `yaml:"worker"`
	Queue     QueueConfig     `yaml:"queue"`
	Store     StoreConfig     `yaml:"store"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	CORSOrigin        string        `yaml:"corsOrigin"` // "*" allows any origin
	MaxBodyBytes      int64         `yaml:"maxBodyBytes"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
}

// EngineConfig defines the headless browser and its wait bounds.
type EngineConfig struct {
	BrowserBin       string        `yaml:"browserBin"` // empty = download on demand
	NoSandbox        bool          `yaml:"noSandbox"`
	Contexts         int           `yaml:"contexts"` // 0 = auto from CPU count
	LoadTimeout      time.Duration `yaml:"loadTimeout"`
	DiagramTimeout   time.Duration `yaml:"diagramTimeout"`
	PollInterval     time.Duration `yaml:"pollInterval"`
	PrintTimeout     time.Duration `yaml:"printTimeout"`
	RelaunchInterval time.Duration `yaml:"relaunchInterval"`
	MermaidSource    string        `yaml:"mermaidSource"`
}

// WorkerConfig defines the rendering worker pool.
type WorkerConfig struct {
	Slots            int           `yaml:"slots"` // 0 = engine contexts
	TransformTimeout time.Duration `yaml:"transformTimeout"`
}

// QueueConfig defines redelivery after a worker could not record an outcome.
type QueueConfig struct {
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

// StoreConfig selects the job store.
type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"databaseURL"`
}

// BroadcastConfig defines progress fan-out.
type BroadcastConfig struct {
	BufferSize    int    `yaml:"bufferSize"`
	NATSURL       string `yaml:"natsURL"` // empty = WebSocket only
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// StorageConfig selects where finished PDFs are archived.
type StorageConfig struct {
	Driver string   `yaml:"driver"`
	Dir    string   `yaml:"dir"`
	S3     S3Config `yaml:"s3"`
}

// S3Config defines the S3 archive target.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"pathStyle"`
}

// LogConfig defines the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns a config that runs the service on one machine with no
// external dependencies.
func Default() *Config {
	retry := queue.DefaultRetryPolicy()
	return &Config{
		Server: ServerConfig{
			Addr:              DefaultAddr,
			CORSOrigin:        DefaultCORSOrigin,
			MaxBodyBytes:      DefaultMaxBodyBytes,
			ShutdownTimeout:   DefaultShutdownTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
		},
		Engine: EngineConfig{
			LoadTimeout:      md2pdf.DefaultLoadTimeout,
			DiagramTimeout:   md2pdf.DefaultDiagramTimeout,
			PollInterval:     md2pdf.DefaultPollInterval,
			PrintTimeout:     md2pdf.DefaultPrintTimeout,
			RelaunchInterval: md2pdf.DefaultRelaunchInterval,
			MermaidSource:    md2pdf.DefaultMermaidSource,
		},
		Worker: WorkerConfig{
			TransformTimeout: 10 * time.Second,
		},
		Queue: QueueConfig{
			Attempts: retry.Attempts,
			Backoff:  retry.BaseDelay,
		},
		Store: StoreConfig{
			Driver: StoreMemory,
		},
		Broadcast: BroadcastConfig{
			BufferSize:    DefaultBroadcastBuffer,
			SubjectPrefix: broadcast.DefaultSubjectPrefix,
		},
		Storage: StorageConfig{
			Driver: StorageNone,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogText,
		},
	}
}

// Validate checks the config for values the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr: required", ErrInvalidConfig)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: server.maxBodyBytes: must be positive, got %d", ErrInvalidConfig, c.Server.MaxBodyBytes)
	}

	durations := []struct {
		field string
		value time.Duration
	}{
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
		{"server.readHeaderTimeout", c.Server.ReadHeaderTimeout},
		{"engine.loadTimeout", c.Engine.LoadTimeout},
		{"engine.diagramTimeout", c.Engine.DiagramTimeout},
		{"engine.pollInterval", c.Engine.PollInterval},
		{"engine.printTimeout", c.Engine.PrintTimeout},
		{"engine.relaunchInterval", c.Engine.RelaunchInterval},
		{"worker.transformTimeout", c.Worker.TransformTimeout},
		{"queue.backoff", c.Queue.Backoff},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidConfig, d.field, d.value)
		}
	}

	if c.Engine.Contexts < 0 || c.Engine.Contexts > md2pdf.MaxPoolSize {
		return fmt.Errorf("%w: engine.contexts: must be between 0 and %d, got %d",
			ErrInvalidConfig, md2pdf.MaxPoolSize, c.Engine.Contexts)
	}
	if c.Engine.MermaidSource != "" && !fileutil.IsURL(c.Engine.MermaidSource) {
		return fmt.Errorf("%w: engine.mermaidSource: must be an http(s) URL, got %q", ErrInvalidConfig, c.Engine.MermaidSource)
	}
	if c.Worker.Slots < 0 {
		return fmt.Errorf("%w: worker.slots: must not be negative, got %d", ErrInvalidConfig, c.Worker.Slots)
	}
	if c.Queue.Attempts < 1 {
		return fmt.Errorf("%w: queue.attempts: must be at least 1, got %d", ErrInvalidConfig, c.Queue.Attempts)
	}
	if c.Broadcast.BufferSize < 1 {
		return fmt.Errorf("%w: broadcast.bufferSize: must be at least 1, got %d", ErrInvalidConfig, c.Broadcast.BufferSize)
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%w: store.databaseURL: required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store.driver: invalid value %q (must be memory or postgres)", ErrInvalidConfig, c.Store.Driver)
	}

	switch c.Storage.Driver {
	case "", StorageNone:
	case StorageLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("%w: storage.dir: required for the local driver", ErrInvalidConfig)
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("%w: storage.s3.bucket: required for the s3 driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.driver: invalid value %q (must be none, local, or s3)", ErrInvalidConfig, c.Storage.Driver)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case LogText, LogJSON:
	default:
		return fmt.Errorf("%w: log.format: invalid value %q (must be text or json)", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level: invalid value %q (must be debug, info, warn, or error)", ErrInvalidConfig, l.Level)
	}
	return level, nil
}

// Retry returns the queue redelivery policy.
func (q QueueConfig) Retry() queue.RetryPolicy {
	return queue.RetryPolicy{Attempts: q.Attempts, BaseDelay: q.Backoff}
}

// Load reads a YAML config on top of Default and validates the result.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their default value.
func Load(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SearchPaths lists where a config name is looked up, in order:
// the current directory, then ~/.config/md2pdf-server/, each with
// .yaml and .yml extensions.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, appDirName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file from SearchPaths.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
