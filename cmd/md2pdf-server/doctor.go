package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-md2pdf-server/internal/broadcast"
	"github.com/alnah/go-md2pdf-server/internal/config"
	"github.com/alnah/go-md2pdf-server/internal/job"
)

// doctorProbeTimeout bounds each backing service check.
const doctorProbeTimeout = 5 * time.Second

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string        `json:"status"`
	Chrome   chromeInfo    `json:"chrome"`
	Env      envInfo       `json:"environment"`
	System   systemInfo    `json:"system"`
	Backends []backendInfo `json:"backends"`
	Warnings []string      `json:"warnings,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// backendInfo is the outcome of one backing service probe.
type backendInfo struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// doctor runs the checks; probes are replaceable in tests.
type doctor struct {
	cfg       *config.Config
	lookupEnv func(string) (string, bool)
	lookPath  func() (string, bool)
	version   func(bin string) (string, error)
	probes    map[string]func(ctx context.Context) error
}

func newDoctor(cfg *config.Config, env *Environment) *doctor {
	d := &doctor{
		cfg:       cfg,
		lookupEnv: env.LookupEnv,
		lookPath:  launcher.LookPath,
		version:   chromeVersion,
		probes:    make(map[string]func(context.Context) error),
	}
	if cfg.Store.Driver == config.StorePostgres {
		d.probes[config.StorePostgres] = func(ctx context.Context) error {
			pool, err := job.OpenPostgres(ctx, cfg.Store.DatabaseURL)
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		}
	}
	if cfg.Broadcast.NATSURL != "" {
		d.probes["nats"] = func(context.Context) error {
			p, err := broadcast.ConnectNATS(cfg.Broadcast.NATSURL, cfg.Broadcast.SubjectPrefix, slog.New(slog.DiscardHandler))
			if err != nil {
				return err
			}
			p.Close()
			return nil
		}
	}
	return d
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, cfg *config.Config, jsonOutput bool, env *Environment) int {
	result := newDoctor(cfg, env).run(ctx)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// run performs all diagnostic checks.
func (d *doctor) run(ctx context.Context) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Env:    envInfo{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}

	d.checkChrome(result)
	d.checkEnvironment(result)
	d.checkSystem(result)
	d.checkBackends(ctx, result)

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}
	return result
}

// checkChrome detects Chrome/Chromium installation.
func (d *doctor) checkChrome(result *doctorResult) {
	chromePath := d.cfg.Engine.BrowserBin
	result.Chrome.Sandbox = !d.cfg.Engine.NoSandbox

	if chromePath == "" {
		var found bool
		chromePath, found = d.lookPath()
		if !found {
			// The engine downloads a Chromium on first launch.
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found. A browser will be downloaded at startup; set MD2PDF_BROWSER_BIN to use an installed one")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	v, err := d.version(chromePath)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
		return
	}
	result.Chrome.Version = v
}

func chromeVersion(bin string) (string, error) {
	out, err := exec.Command(bin, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// checkEnvironment detects container and CI environments.
func (d *doctor) checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = d.isContainer()

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if val, _ := d.lookupEnv(v); val != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && !d.cfg.Engine.NoSandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the sandbox is enabled. Set MD2PDF_NO_SANDBOX=true")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func (d *doctor) isContainer() (bool, string) {
	if v, _ := d.lookupEnv("MD2PDF_CONTAINER"); v == "1" {
		return true, "MD2PDF_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v, _ := d.lookupEnv("container"); v != "" {
		return true, "container=" + v
	}
	if v, _ := d.lookupEnv("KUBERNETES_SERVICE_HOST"); v != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory and the local archive are writable.
func (d *doctor) checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	if err := probeWritable(tmpDir); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		result.System.TempWritable = true
	}

	if d.cfg.Storage.Driver == config.StorageLocal {
		b := backendInfo{Name: "archive", Target: d.cfg.Storage.Dir, OK: true}
		if err := os.MkdirAll(d.cfg.Storage.Dir, 0o750); err != nil {
			b.OK, b.Detail = false, err.Error()
		} else if err := probeWritable(d.cfg.Storage.Dir); err != nil {
			b.OK, b.Detail = false, err.Error()
		}
		d.record(result, b)
	}
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, "md2pdf-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}

// checkBackends probes the configured job store and event bus.
func (d *doctor) checkBackends(ctx context.Context, result *doctorResult) {
	if d.cfg.Store.Driver == config.StoreMemory {
		result.Backends = append(result.Backends,
			backendInfo{Name: "store", Target: config.StoreMemory, OK: true, Detail: "jobs are lost on restart"})
	}
	if d.cfg.Storage.Driver == config.StorageS3 {
		result.Backends = append(result.Backends,
			backendInfo{Name: "archive", Target: "s3://" + d.cfg.Storage.S3.Bucket, OK: true, Detail: "not probed"})
	}

	targets := map[string]string{
		config.StorePostgres: redactURL(d.cfg.Store.DatabaseURL),
		"nats":               d.cfg.Broadcast.NATSURL,
	}
	for _, name := range []string{config.StorePostgres, "nats"} {
		probe, ok := d.probes[name]
		if !ok {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
		err := probe(pctx)
		cancel()

		b := backendInfo{Name: name, Target: targets[name], OK: err == nil}
		if err != nil {
			b.Detail = err.Error()
		}
		d.record(result, b)
	}
}

func (d *doctor) record(result *doctorResult, b backendInfo) {
	result.Backends = append(result.Backends, b)
	if !b.OK {
		result.Errors = append(result.Errors, fmt.Sprintf("%s unreachable at %s: %s", b.Name, b.Target, b.Detail))
	}
}

// redactURL hides the password of a connection URL.
func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	creds := raw[scheme+3 : at]
	if user, _, ok := strings.Cut(creds, ":"); ok {
		return raw[:scheme+3] + user + ":***" + raw[at:]
	}
	return raw
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "md2pdf-server doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (MD2PDF_NO_SANDBOX)")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Backends) > 0 {
		fmt.Fprintln(w, "Backends")
		for _, b := range r.Backends {
			tag := "[OK]"
			if !b.OK {
				tag = "[ERROR]"
			}
			line := fmt.Sprintf("  %s %s: %s", tag, b.Name, b.Target)
			if b.Detail != "" && b.OK {
				line += " (" + b.Detail + ")"
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to serve")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
