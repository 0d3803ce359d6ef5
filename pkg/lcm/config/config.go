// Copyright (c) 2026 The OpenDSC Authors
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config loads and hot-reloads the LCM's configuration. It
// layers, lowest priority first: built-in defaults, a bundled
// appsettings.json, an environment-specific overlay, a platform
// directory overlay, LCM_-prefixed environment variables, and
// command-line flags, following the layering used throughout the rest
// of the corpus's viper-based config packages.
package config

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigurationMode selects whether the worker only observes
// (Monitor) or also remediates (Remediate) drift.
type ConfigurationMode string

// Valid ConfigurationMode values.
const (
	ModeMonitor   ConfigurationMode = "Monitor"
	ModeRemediate ConfigurationMode = "Remediate"
)

// ConfigurationSource selects where the worker reads its DSC
// configuration document from.
type ConfigurationSource string

// Valid ConfigurationSource values.
const (
	SourceLocal ConfigurationSource = "Local"
	SourcePull  ConfigurationSource = "Pull"
)

// CertificateSource selects how the LCM obtains its mTLS client
// certificate.
type CertificateSource string

// Valid CertificateSource values.
const (
	CertificateSourceManaged  CertificateSource = "Managed"
	CertificateSourcePlatform CertificateSource = "Platform"
)

// PullServer holds the settings needed to register with, and pull
// configuration from, a Pull Server.
type PullServer struct {
	ServerURL             string            `mapstructure:"server-url"`
	RegistrationKey       string            `mapstructure:"registration-key"`
	ReportCompliance      bool              `mapstructure:"report-compliance"`
	CertificateSource     CertificateSource `mapstructure:"certificate-source"`
	CertificateThumbprint string            `mapstructure:"certificate-thumbprint"`
	CertificatePath       string            `mapstructure:"certificate-path"`
	CertificatePassword   string            `mapstructure:"certificate-password"`
}

// LCM holds every setting under the configuration file's "lcm"
// section.
type LCM struct {
	ConfigurationMode         ConfigurationMode   `mapstructure:"configuration-mode"`
	ConfigurationSource       ConfigurationSource `mapstructure:"configuration-source"`
	ConfigurationPath         string              `mapstructure:"configuration-path"`
	ConfigurationModeInterval time.Duration       `mapstructure:"configuration-mode-interval"`
	DscExecutablePath         string              `mapstructure:"dsc-executable-path"`
	PullServer                PullServer          `mapstructure:"pull-server"`
}

// Config is the LCM's top-level, fully resolved configuration.
type Config struct {
	LCM LCM `mapstructure:"lcm"`
}

//go:embed appsettings.json
var defaultAppSettings []byte

// Validate checks the invariants the worker depends on, returning the
// first violation found.
func (c *Config) Validate() error {
	switch c.LCM.ConfigurationMode {
	case ModeMonitor, ModeRemediate:
	default:
		return fmt.Errorf("lcm.configuration-mode: invalid value %q", c.LCM.ConfigurationMode)
	}
	switch c.LCM.ConfigurationSource {
	case SourceLocal, SourcePull:
	default:
		return fmt.Errorf("lcm.configuration-source: invalid value %q", c.LCM.ConfigurationSource)
	}
	if c.LCM.ConfigurationModeInterval <= 0 {
		return fmt.Errorf("lcm.configuration-mode-interval: must be > 0, got %s", c.LCM.ConfigurationModeInterval)
	}
	if c.LCM.ConfigurationSource == SourcePull {
		if c.LCM.PullServer.ServerURL == "" {
			return fmt.Errorf("lcm.pull-server.server-url: required when configuration-source is Pull")
		}
		switch c.LCM.PullServer.CertificateSource {
		case CertificateSourceManaged, CertificateSourcePlatform:
		default:
			return fmt.Errorf("lcm.pull-server.certificate-source: invalid value %q", c.LCM.PullServer.CertificateSource)
		}
	}
	return nil
}

// PlatformConfigPath returns the platform-specific configuration
// directory overlay file searched by Load, per the current OS.
func PlatformConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		root := os.Getenv("ProgramData")
		if root == "" {
			root = `C:\ProgramData`
		}
		return filepath.Join(root, "OpenDSC", "LCM", "appsettings.json")
	case "darwin":
		return "/Library/Preferences/OpenDSC/LCM/appsettings.json"
	default:
		return "/etc/opendsc/lcm/appsettings.json"
	}
}

// Load builds the layered Config. explicitPath, when non-empty, is
// merged last among files (still below environment variables and
// flags) and is typically supplied via a command-line flag. flags,
// when non-nil, is bound so that any flag the caller defined
// (e.g. --lcm.configuration-mode) takes precedence over every other
// layer.
func Load(explicitPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	if err := v.ReadConfig(bytes.NewReader(defaultAppSettings)); err != nil {
		return nil, fmt.Errorf("reading built-in defaults: %w", err)
	}

	if env := os.Getenv("LCM_ENVIRONMENT"); env != "" {
		if err := mergeFileIfExists(v, fmt.Sprintf("appsettings.%s.json", env)); err != nil {
			return nil, err
		}
	}
	if err := mergeFileIfExists(v, PlatformConfigPath()); err != nil {
		return nil, err
	}
	if explicitPath != "" {
		if err := mergeFileIfExists(v, explicitPath); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("LCM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return c, nil
}

func mergeFileIfExists(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merging %s: %w", path, err)
	}
	return nil
}

// Watch reloads the configuration whenever the file at path changes
// and invokes onChange with the newly loaded, already-validated
// Config. A reload that fails to parse or fails Validate is logged by
// the caller-supplied onInvalid callback instead, leaving the
// worker's previously accepted Config untouched, matching the "log
// each failure and keep the previous valid config" rule. Watch blocks
// until ctx is cancelled.
func Watch(
	ctx context.Context,
	path, explicitPath string,
	flags *pflag.FlagSet,
	onChange func(*Config),
	onInvalid func(error),
) error {
	if path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			c, err := Load(explicitPath, flags)
			if err != nil {
				onInvalid(err)
				continue
			}
			onChange(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onInvalid(fmt.Errorf("watcher error: %w", err))
		}
	}
}
