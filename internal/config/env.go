package config

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidEnv indicates an MD2PDF_* variable whose value cannot be parsed.
var ErrInvalidEnv = errors.New("invalid environment variable")

// EnvPrefix marks the variables read by ApplyEnv.
const EnvPrefix = "MD2PDF_"

// EnvConfigPath names the config file to load. It is read by the server
// entrypoint, not by ApplyEnv.
const EnvConfigPath = "MD2PDF_CONFIG"

// otherEnvVars are read outside this package and must not trigger warnings.
var otherEnvVars = map[string]bool{
	EnvConfigPath:              true,
	"MD2PDF_SERVER":            true, // CLI client base URL
	"MD2PDF_TEST_DATABASE_URL": true, // Postgres integration tests
}

// envSetter applies one variable's raw value to the config.
type envSetter func(c *Config, value string) error

func setString(field func(*Config) *string) envSetter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func setDuration(field func(*Config) *time.Duration) envSetter {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

// envSetters binds each MD2PDF_* variable to its config field.
var envSetters = map[string]envSetter{
	// Server
	"MD2PDF_ADDR":        setString(func(c *Config) *string { return &c.Server.Addr }),
	"MD2PDF_CORS_ORIGIN": setString(func(c *Config) *string { return &c.Server.CORSOrigin }),
	// Engine
	"MD2PDF_BROWSER_BIN":     setString(func(c *Config) *string { return &c.Engine.BrowserBin }),
	"MD2PDF_NO_SANDBOX":      setBool(func(c *Config) *bool { return &c.Engine.NoSandbox }),
	"MD2PDF_CONTEXTS":        setInt(func(c *Config) *int { return &c.Engine.Contexts }),
	"MD2PDF_LOAD_TIMEOUT":    setDuration(func(c *Config) *time.Duration { return &c.Engine.LoadTimeout }),
	"MD2PDF_DIAGRAM_TIMEOUT": setDuration(func(c *Config) *time.Duration { return &c.Engine.DiagramTimeout }),
	"MD2PDF_PRINT_TIMEOUT":   setDuration(func(c *Config) *time.Duration { return &c.Engine.PrintTimeout }),
	"MD2PDF_MERMAID_SOURCE":  setString(func(c *Config) *string { return &c.Engine.MermaidSource }),
	// Worker and queue
	"MD2PDF_WORKERS":        setInt(func(c *Config) *int { return &c.Worker.Slots }),
	"MD2PDF_QUEUE_ATTEMPTS": setInt(func(c *Config) *int { return &c.Queue.Attempts }),
	"MD2PDF_QUEUE_BACKOFF":  setDuration(func(c *Config) *time.Duration { return &c.Queue.Backoff }),
	// Store and broadcast
	"MD2PDF_STORE":          setString(func(c *Config) *string { return &c.Store.Driver }),
	"MD2PDF_DATABASE_URL":   setString(func(c *Config) *string { return &c.Store.DatabaseURL }),
	"MD2PDF_NATS_URL":       setString(func(c *Config) *string { return &c.Broadcast.NATSURL }),
	"MD2PDF_NATS_PREFIX":    setString(func(c *Config) *string { return &c.Broadcast.SubjectPrefix }),
	"MD2PDF_STORAGE":        setString(func(c *Config) *string { return &c.Storage.Driver }),
	"MD2PDF_STORAGE_DIR":    setString(func(c *Config) *string { return &c.Storage.Dir }),
	"MD2PDF_S3_BUCKET":      setString(func(c *Config) *string { return &c.Storage.S3.Bucket }),
	"MD2PDF_S3_PREFIX":      setString(func(c *Config) *string { return &c.Storage.S3.Prefix }),
	"MD2PDF_S3_REGION":      setString(func(c *Config) *string { return &c.Storage.S3.Region }),
	"MD2PDF_S3_ENDPOINT":    setString(func(c *Config) *string { return &c.Storage.S3.Endpoint }),
	"MD2PDF_S3_PATH_STYLE":  setBool(func(c *Config) *bool { return &c.Storage.S3.PathStyle }),
	"MD2PDF_LOG_LEVEL":      setString(func(c *Config) *string { return &c.Log.Level }),
	"MD2PDF_LOG_FORMAT":     setString(func(c *Config) *string { return &c.Log.Format }),
}

// knownEnvVar reports whether name is a recognized MD2PDF_* variable.
// Used to detect typos and warn users about unknown variables.
func knownEnvVar(name string) bool {
	if otherEnvVars[name] {
		return true
	}
	_, ok := envSetters[name]
	return ok
}

// ApplyEnv overrides c with every set, non-empty MD2PDF_* variable.
// lookup is usually os.LookupEnv. Call Validate afterwards.
func ApplyEnv(c *Config, lookup func(string) (string, bool)) error {
	names := make([]string, 0, len(envSetters))
	for name := range envSetters {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		if err := envSetters[name](c, value); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, name, value, err)
		}
	}
	return nil
}

// UnknownEnvVars returns the MD2PDF_* names in environ (KEY=value form)
// that are not recognized, sorted.
func UnknownEnvVars(environ []string) []string {
	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix) && !knownEnvVar(name) {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	return unknown
}

// WarnUnknownEnvVars prints a warning for each unknown MD2PDF_* variable.
func WarnUnknownEnvVars(w io.Writer, environ []string) {
	for _, name := range UnknownEnvVars(environ) {
		fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
	}
}
