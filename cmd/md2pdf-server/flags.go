package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-md2pdf-server/internal/config"
)

// ErrUsage indicates invalid command-line arguments.
var ErrUsage = errors.New("usage error")

// serveFlags holds flags for the serve, config and doctor commands.
// Only flags the user set override the config file and environment.
type serveFlags struct {
	config     string
	envFile    string
	addr       string
	corsOrigin string
	workers    int
	contexts   int
	browserBin string
	noSandbox  bool
	store      string
	natsURL    string
	storage    string
	logLevel   string
	logFormat  string
	jsonOutput bool

	set *flag.FlagSet
}

// defaultEnvFile is loaded when present; --env-file makes it mandatory.
const defaultEnvFile = ".env"

// parseServeFlags parses args (without the program and command names).
func parseServeFlags(command string, args []string, stderr io.Writer) (*serveFlags, error) {
	f := &serveFlags{}
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printCommandUsage(stderr, command) }

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.envFile, "env-file", defaultEnvFile, "dotenv file to load")
	fs.StringVar(&f.addr, "addr", "", "listen address")
	fs.StringVar(&f.corsOrigin, "cors-origin", "", "allowed CORS origin (* for any)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "rendering worker slots (0 = engine contexts)")
	fs.IntVar(&f.contexts, "contexts", 0, "browser render contexts (0 = auto)")
	fs.StringVar(&f.browserBin, "browser-bin", "", "path to Chrome/Chromium")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (Docker/CI)")
	fs.StringVar(&f.store, "store", "", "job store: memory, postgres")
	fs.StringVar(&f.natsURL, "nats-url", "", "also publish progress to NATS")
	fs.StringVar(&f.storage, "storage", "", "archive PDFs: none, local, s3")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "text, json")
	if command == cmdDoctor {
		fs.BoolVar(&f.jsonOutput, "json", false, "machine-readable output")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	f.set = fs
	return f, nil
}

func (f *serveFlags) changed(name string) bool {
	return f.set != nil && f.set.Changed(name)
}

// apply overrides cfg with every flag set on the command line.
func (f *serveFlags) apply(cfg *config.Config) {
	if f.changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if f.changed("cors-origin") {
		cfg.Server.CORSOrigin = f.corsOrigin
	}
	if f.changed("workers") {
		cfg.Worker.Slots = f.workers
	}
	if f.changed("contexts") {
		cfg.Engine.Contexts = f.contexts
	}
	if f.changed("browser-bin") {
		cfg.Engine.BrowserBin = f.browserBin
	}
	if f.changed("no-sandbox") {
		cfg.Engine.NoSandbox = f.noSandbox
	}
	if f.changed("store") {
		cfg.Store.Driver = f.store
	}
	if f.changed("nats-url") {
		cfg.Broadcast.NATSURL = f.natsURL
	}
	if f.changed("storage") {
		cfg.Storage.Driver = f.storage
	}
	if f.changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if f.changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
}

// configName returns the config file named by --config or MD2PDF_CONFIG.
func (f *serveFlags) configName(env *Environment) string {
	if f.config != "" {
		return f.config
	}
	return env.getenv(config.EnvConfigPath)
}

// loadConfig resolves the effective config.
// Precedence: flags > environment > config file > defaults.
func loadConfig(f *serveFlags, env *Environment) (*config.Config, error) {
	if err := env.LoadDotenv(f.envFile); err != nil && f.changed("env-file") {
		return nil, fmt.Errorf("%w: loading %s: %v", ErrUsage, f.envFile, err)
	}

	config.WarnUnknownEnvVars(env.Stderr, env.Environ())

	name := f.configName(env)
	cfg := config.Default()
	if name != "" {
		loaded, err := config.Load(name)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := config.ApplyEnv(cfg, env.LookupEnv); err != nil {
		return nil, err
	}
	f.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
