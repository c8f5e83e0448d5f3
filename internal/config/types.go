// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

var (
	themes = []string{"default", "charm", "dracula", "catppuccin", "base16"}
	styles = []string{"auto", "dark", "light", "notty"}
)

type (
	// Config is the root configuration structure.
	Config struct {
		Container ContainerConfig `json:"container" mapstructure:"container"`
		App       AppConfig       `json:"app" mapstructure:"app"`
		Timeouts  TimeoutsConfig  `json:"timeouts" mapstructure:"timeouts"`
		UI        UIConfig        `json:"ui" mapstructure:"ui"`
	}

	// ContainerConfig holds the container defaults.
	ContainerConfig struct {
		Storage         string `json:"storage" mapstructure:"storage"`
		TemplateStorage string `json:"template_storage" mapstructure:"template_storage"`
		OS              string `json:"os" mapstructure:"os"`
		OSVersion       string `json:"os_version" mapstructure:"os_version"`
		// Arch is the template architecture; empty means the host's.
		Arch         string `json:"arch" mapstructure:"arch"`
		DiskGB       int    `json:"disk_gb" mapstructure:"disk_gb"`
		MemoryMB     int    `json:"memory_mb" mapstructure:"memory_mb"`
		SwapMB       int    `json:"swap_mb" mapstructure:"swap_mb"`
		Cores        int    `json:"cores" mapstructure:"cores"`
		Unprivileged bool   `json:"unprivileged" mapstructure:"unprivileged"`
		Fuse         bool   `json:"fuse" mapstructure:"fuse"`
		Bridge       string `json:"bridge" mapstructure:"bridge"`
		MTU          int    `json:"mtu" mapstructure:"mtu"`
	}

	// AppConfig selects and configures the deployed application.
	AppConfig struct {
		Name string `json:"name" mapstructure:"name"`
		// InstallDir defaults to /opt/<name>.
		InstallDir string `json:"install_dir" mapstructure:"install_dir"`
		// ComposeURL, EnvURL and Port configure the generic "compose" app.
		ComposeURL string `json:"compose_url" mapstructure:"compose_url"`
		EnvURL     string `json:"env_url" mapstructure:"env_url"`
		Port       int    `json:"port" mapstructure:"port"`
	}

	// TimeoutsConfig bounds the waiting phases.
	TimeoutsConfig struct {
		Boot            time.Duration `json:"boot" mapstructure:"boot"`
		AddressAttempts int           `json:"address_attempts" mapstructure:"address_attempts"`
		AddressInterval time.Duration `json:"address_interval" mapstructure:"address_interval"`
	}

	// UIConfig holds terminal settings.
	UIConfig struct {
		// Verbose enables debug logging, like --debug.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// Interactive is the default mode when neither flag is given.
		Interactive bool `json:"interactive" mapstructure:"interactive"`
		// Theme is the prompt theme.
		Theme string `json:"theme" mapstructure:"theme"`
		// Style is the glamour style of the final summary.
		Style string `json:"style" mapstructure:"style"`
	}

	// InvalidConfigError is returned when Config has invalid fields.
	InvalidConfigError struct {
		FieldErrs []error
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	d := request.DefaultDefaults()
	return &Config{
		Container: ContainerConfig{
			Storage:         d.Storage,
			TemplateStorage: d.TemplateStorage,
			OS:              d.OS,
			OSVersion:       d.OSVersion,
			DiskGB:          d.DiskGB,
			MemoryMB:        d.MemoryMB,
			SwapMB:          d.SwapMB,
			Cores:           d.Cores,
			Unprivileged:    d.Unprivileged,
			Fuse:            d.Fuse,
			Bridge:          d.Bridge,
		},
		App: AppConfig{
			Name: d.App,
		},
		Timeouts: TimeoutsConfig{
			Boot:            2 * time.Minute,
			AddressAttempts: 10,
			AddressInterval: 5 * time.Second,
		},
		UI: UIConfig{
			Interactive: true,
			Theme:       "default",
			Style:       "auto",
		},
	}
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks values that may have bypassed the CUE schema through
// environment overrides.
func (c *Config) Validate() error {
	var errs []error
	if c.Container.Arch != "" {
		if err := pve.Arch(c.Container.Arch).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("container.arch: %w", err))
		}
	}
	for name, v := range map[string]int{
		"container.disk_gb":   c.Container.DiskGB,
		"container.cores":     c.Container.Cores,
		"container.memory_mb": c.Container.MemoryMB,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	if c.Container.SwapMB < 0 {
		errs = append(errs, fmt.Errorf("container.swap_mb must not be negative, got %d", c.Container.SwapMB))
	}
	if c.Timeouts.Boot <= 0 || c.Timeouts.AddressInterval <= 0 || c.Timeouts.AddressAttempts <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if !slices.Contains(themes, c.UI.Theme) {
		errs = append(errs, fmt.Errorf("ui.theme %q must be one of %v", c.UI.Theme, themes))
	}
	if !slices.Contains(styles, c.UI.Style) {
		errs = append(errs, fmt.Errorf("ui.style %q must be one of %v", c.UI.Style, styles))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrs: errs}
	}
	return nil
}

// RequestDefaults maps the configuration onto the bottom layer of request
// building. hostArch is used when no architecture is configured.
func (c *Config) RequestDefaults(hostArch pve.Arch) request.Defaults {
	arch := pve.Arch(c.Container.Arch)
	if arch == "" {
		arch = hostArch
	}
	return request.Defaults{
		DiskGB:          c.Container.DiskGB,
		MemoryMB:        c.Container.MemoryMB,
		SwapMB:          c.Container.SwapMB,
		Cores:           c.Container.Cores,
		Unprivileged:    c.Container.Unprivileged,
		Fuse:            c.Container.Fuse,
		Bridge:          c.Container.Bridge,
		MTU:             c.Container.MTU,
		OS:              c.Container.OS,
		OSVersion:       c.Container.OSVersion,
		Arch:            arch,
		TemplateStorage: c.Container.TemplateStorage,
		Storage:         c.Container.Storage,
		App:             c.App.Name,
		InstallDir:      c.App.InstallDir,
		Interactive:     c.UI.Interactive,
	}
}
