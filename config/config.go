// Package config holds the workflow configuration. Values come from
// defaults, an optional config file and the environment; validation
// happens once, at construction time, and returns typed errors.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/cardimport/cardimport/fserrors"
)

// stagingName is the folder created under the raw root to hold copied
// raw files until the reorganizer relocates them.
const stagingName = "Import Bucket"

// Config is the validated workflow configuration.
type Config struct {
	// CardPath is the mounted source volume. Empty means auto-detect.
	CardPath string `mapstructure:"card_path"`

	// RawRoot is the raw-file archive the staging bucket lives under.
	RawRoot string `mapstructure:"raw_root"`

	// JpgRoot receives preview images.
	JpgRoot string `mapstructure:"jpg_root"`

	// BackupRoot receives a verbatim mirror of the card.
	BackupRoot string `mapstructure:"backup_root"`

	// RawExtension routes files to the raw archive, e.g. "arw".
	RawExtension string `mapstructure:"raw_extension"`

	// Retries bounds external copy attempts per destination.
	Retries int `mapstructure:"retries"`

	// RetrySleep is the fixed delay between copy attempts.
	RetrySleep time.Duration `mapstructure:"retry_sleep"`

	// CollisionBound limits the reorganizer's " (n)" probe.
	CollisionBound int `mapstructure:"collision_bound"`

	// PathLimit is the filesystem path length limit.
	PathLimit int `mapstructure:"path_limit"`

	// Checkers bounds parallel checksum computation.
	Checkers int `mapstructure:"checkers"`

	DryRun bool `mapstructure:"dry_run"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("raw_extension", "arw")
	v.SetDefault("retries", 3)
	v.SetDefault("retry_sleep", time.Second)
	v.SetDefault("collision_bound", 1000)
	v.SetDefault("path_limit", 254)
	v.SetDefault("checkers", 8)
}

// Load builds a Config from defaults, the config file (when file is
// non-empty or ~/.config/cardimport/cardimport.yaml exists) and
// CARDIMPORT_* environment variables. Paths are ~-expanded. The result
// is not yet validated; callers run Validate before use so flag
// overrides can be applied in between.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("cardimport")
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %q", file)
		}
	} else {
		v.SetConfigName("cardimport")
		v.SetConfigType("yaml")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "cardimport"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.expand(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expand() error {
	for _, p := range []*string{&c.CardPath, &c.RawRoot, &c.JpgRoot, &c.BackupRoot} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return errors.Wrapf(err, "expand %q", *p)
		}
		*p = filepath.Clean(expanded)
	}
	return nil
}

// Validate checks the structural preconditions: every configured root
// must exist, and every destination root must be writable. It returns
// ErrPathNotFound or ErrNotWritable naming the offending root.
func (c *Config) Validate() error {
	for name, path := range map[string]string{
		"raw root":    c.RawRoot,
		"jpg root":    c.JpgRoot,
		"backup root": c.BackupRoot,
	} {
		if path == "" {
			return errors.Wrapf(fserrors.ErrPathNotFound, "%s is not configured", name)
		}
		if !isDir(path) {
			return errors.Wrapf(fserrors.ErrPathNotFound, "%s %q", name, path)
		}
		if !isWritable(path) {
			return errors.Wrapf(fserrors.ErrNotWritable, "%s %q", name, path)
		}
	}
	return nil
}

// StagingRoot returns the staging bucket path under the raw root.
func (c *Config) StagingRoot() string {
	return filepath.Join(c.RawRoot, stagingName)
}

// EnsureStaging creates the staging bucket if needed and checks it is
// writable.
func (c *Config) EnsureStaging() (string, error) {
	staging := c.StagingRoot()
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", errors.Wrapf(fserrors.ErrNotWritable, "create staging bucket %q: %v", staging, err)
	}
	if !isWritable(staging) {
		return "", errors.Wrapf(fserrors.ErrNotWritable, "staging bucket %q", staging)
	}
	return staging, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isWritable probes path by creating and removing a temp file, which
// works on network mounts where permission bits lie.
func isWritable(path string) bool {
	f, err := os.CreateTemp(path, ".cardimport-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
