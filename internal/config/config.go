// Package config loads pipios settings.
//
// Settings come from three layers, later ones winning: built-in defaults
// derived from the host, a TOML file ($XDG_CONFIG_HOME/pipios/config.toml
// unless another path is given), and PIPIOS_* environment variables.
//
//	target = "~/Documents/site-packages"
//	python = "3.10.4"
//	platform = "macosx_10_9_x86_64"
//	workers = 4
//	timeout = "20s"
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/integrations/pypi"
	"github.com/matzehuels/pipios/pkg/requirement"
	"github.com/matzehuels/pipios/pkg/version"
)

const (
	appName  = "pipios"
	fileName = "config.toml"
)

// Defaults.
const (
	DefaultPython         = "3.10.4"
	DefaultImplementation = "cpython"
	DefaultTarget         = "site-packages"
	DefaultWorkers        = 8
	DefaultTimeout        = 30 * time.Second
	DefaultRetries        = 3
	DefaultRetryDelay     = time.Second
)

// Environment variables that override the file.
const (
	EnvTarget   = "PIPIOS_TARGET"
	EnvIndexURL = "PIPIOS_INDEX_URL"
	EnvPython   = "PIPIOS_PYTHON"
	EnvPlatform = "PIPIOS_PLATFORM"
)

// Config holds every user-tunable setting.
type Config struct {
	Target         string        `toml:"target"`
	IndexURL       string        `toml:"index_url"`
	Python         string        `toml:"python"`
	Platform       string        `toml:"platform"`     // Binary artifact platform tag
	SysPlatform    string        `toml:"sys_platform"` // Value of the sys_platform marker
	Machine        string        `toml:"machine"`      // Value of the platform_machine marker
	Implementation string        `toml:"implementation"`
	Workers        int           `toml:"workers"`
	Timeout        time.Duration `toml:"timeout"`
	Retries        int           `toml:"retries"`
	RetryDelay     time.Duration `toml:"retry_delay"`
}

// Default returns the configuration for the host this binary runs on.
func Default() *Config {
	return defaultFor(runtime.GOOS, runtime.GOARCH)
}

func defaultFor(goos, goarch string) *Config {
	platform, sys := hostPlatform(goos, goarch)
	return &Config{
		Target:         DefaultTarget,
		IndexURL:       pypi.DefaultBaseURL,
		Python:         DefaultPython,
		Platform:       platform,
		SysPlatform:    sys,
		Machine:        hostMachine(goos, goarch),
		Implementation: DefaultImplementation,
		Workers:        DefaultWorkers,
		Timeout:        DefaultTimeout,
		Retries:        DefaultRetries,
		RetryDelay:     DefaultRetryDelay,
	}
}

// hostPlatform maps a Go target to the wheel platform tag and sys.platform
// value of the matching interpreter. Apple platforms share the macOS tag.
func hostPlatform(goos, goarch string) (platform, sys string) {
	switch goos {
	case "darwin":
		return "macosx_10_9_x86_64", "darwin"
	case "ios":
		return "macosx_10_9_x86_64", "ios"
	case "linux", "android":
		return "manylinux_2_17_x86_64", "linux"
	case "windows":
		if goarch == "386" {
			return "win32", "win32"
		}
		return "win_amd64", "win32"
	}
	return "any", goos
}

func hostMachine(goos, goarch string) string {
	switch goarch {
	case "amd64":
		if goos == "windows" {
			return "AMD64"
		}
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		if goos == "linux" || goos == "android" {
			return "aarch64"
		}
		return "arm64"
	}
	return goarch
}

// Dir returns the configuration directory, following XDG on every OS.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFilesystem, err, "locate home directory")
	}
	return filepath.Join(home, ".config", appName), nil
}

// Load builds the configuration. An empty path reads the default file if it
// exists; an explicit path must exist. Environment overrides are applied
// last.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		dir, err := Dir()
		if err == nil {
			path = filepath.Join(dir, fileName)
		}
	}
	if path != "" {
		if err := cfg.decodeFile(path, explicit); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string, required bool) error {
	md, err := toml.DecodeFile(path, c)
	switch {
	case os.IsNotExist(err) && !required:
		return nil
	case os.IsNotExist(err):
		return errors.Wrap(errors.ErrCodeFilesystem, err, "config file %s", path)
	case err != nil:
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for key, field := range map[string]*string{
		EnvTarget:   &c.Target,
		EnvIndexURL: &c.IndexURL,
		EnvPython:   &c.Python,
		EnvPlatform: &c.Platform,
	} {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Target == "" {
		return errors.New(errors.ErrCodeInvalidInput, "target directory is empty")
	}
	if err := errors.ValidateURL(c.IndexURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "index_url %q", c.IndexURL)
	}
	if _, err := version.Parse(c.Python); err != nil {
		return err
	}
	if c.Platform == "" {
		return errors.New(errors.ErrCodeInvalidInput, "platform is empty")
	}
	if c.Workers < 0 || c.Retries < 0 || c.Timeout < 0 || c.RetryDelay < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers, retries, timeout and retry_delay must not be negative")
	}
	return nil
}

// TargetDir returns Target with a leading "~" expanded and made absolute.
func (c *Config) TargetDir() (string, error) {
	target := c.Target
	if target == "~" || strings.HasPrefix(target, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeFilesystem, err, "expand %s", target)
		}
		target = filepath.Join(home, strings.TrimPrefix(target, "~"))
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFilesystem, err, "resolve %s", target)
	}
	return abs, nil
}

// Environment returns the target runtime described by the configuration.
func (c *Config) Environment() (requirement.Environment, error) {
	v, err := version.Parse(c.Python)
	if err != nil {
		return requirement.Environment{}, err
	}
	return requirement.Environment{
		Interpreter:    v,
		Platform:       c.Platform,
		SysPlatform:    c.SysPlatform,
		Machine:        c.Machine,
		Implementation: c.Implementation,
	}, nil
}
