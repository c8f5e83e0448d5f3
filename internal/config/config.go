// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pveprov/pveprov/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "pveprov"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. PVEPROV_CONTAINER_STORAGE.
	EnvPrefix = "PVEPROV"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the pveprov configuration directory: $XDG_CONFIG_HOME/pveprov,
// defaulting to ~/.config/pveprov.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, AppName), nil
}

// ConfigPath returns the path of the config file inside ConfigDir.
func ConfigPath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading and reports the file
// that was used, or "" when only defaults and environment applied.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := Locate(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestions(
					"Check that the file contains valid CUE syntax",
					"Verify the configuration values match the expected schema",
					"Run 'pveprov config show' to see the effective configuration",
				).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.WrapWithOperation(err, "decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check the " + EnvPrefix + "_* environment variables").
			Wrap(err).
			BuildError()
	}

	return &cfg, path, nil
}

// Locate picks the config file: an explicit path must exist, otherwise the
// config directory is tried first, then the working directory.
func Locate(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestions(
					"Verify the file path is correct",
					"Run 'pveprov config init' to create a default configuration",
				).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	for _, candidate := range []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("container.storage", d.Container.Storage)
	v.SetDefault("container.template_storage", d.Container.TemplateStorage)
	v.SetDefault("container.os", d.Container.OS)
	v.SetDefault("container.os_version", d.Container.OSVersion)
	v.SetDefault("container.arch", d.Container.Arch)
	v.SetDefault("container.disk_gb", d.Container.DiskGB)
	v.SetDefault("container.memory_mb", d.Container.MemoryMB)
	v.SetDefault("container.swap_mb", d.Container.SwapMB)
	v.SetDefault("container.cores", d.Container.Cores)
	v.SetDefault("container.unprivileged", d.Container.Unprivileged)
	v.SetDefault("container.fuse", d.Container.Fuse)
	v.SetDefault("container.bridge", d.Container.Bridge)
	v.SetDefault("container.mtu", d.Container.MTU)
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.install_dir", d.App.InstallDir)
	v.SetDefault("app.compose_url", d.App.ComposeURL)
	v.SetDefault("app.env_url", d.App.EnvURL)
	v.SetDefault("app.port", d.App.Port)
	v.SetDefault("timeouts.boot", d.Timeouts.Boot)
	v.SetDefault("timeouts.address_attempts", d.Timeouts.AddressAttempts)
	v.SetDefault("timeouts.address_interval", d.Timeouts.AddressInterval)
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.interactive", d.UI.Interactive)
	v.SetDefault("ui.theme", d.UI.Theme)
	v.SetDefault("ui.style", d.UI.Style)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// The file decodes to map[string]any rather than Config so that keys absent
// from the file keep their Viper defaults and environment overrides.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := checkFileSize(data, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file unless one already exists.
// It returns the file path and whether the file was written.
func CreateDefaultConfig() (string, bool, error) {
	cfgPath, err := ConfigPath()
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// pveprov configuration file\n")
	sb.WriteString("// Command-line flags override every value below.\n\n")

	sb.WriteString("container: {\n")
	fmt.Fprintf(&sb, "\tstorage:          %q\n", cfg.Container.Storage)
	fmt.Fprintf(&sb, "\ttemplate_storage: %q\n", cfg.Container.TemplateStorage)
	fmt.Fprintf(&sb, "\tos:               %q\n", cfg.Container.OS)
	fmt.Fprintf(&sb, "\tos_version:       %q\n", cfg.Container.OSVersion)
	if cfg.Container.Arch != "" {
		fmt.Fprintf(&sb, "\tarch:             %q\n", cfg.Container.Arch)
	}
	fmt.Fprintf(&sb, "\tdisk_gb:          %d\n", cfg.Container.DiskGB)
	fmt.Fprintf(&sb, "\tmemory_mb:        %d\n", cfg.Container.MemoryMB)
	fmt.Fprintf(&sb, "\tswap_mb:          %d\n", cfg.Container.SwapMB)
	fmt.Fprintf(&sb, "\tcores:            %d\n", cfg.Container.Cores)
	fmt.Fprintf(&sb, "\tunprivileged:     %v\n", cfg.Container.Unprivileged)
	fmt.Fprintf(&sb, "\tfuse:             %v\n", cfg.Container.Fuse)
	fmt.Fprintf(&sb, "\tbridge:           %q\n", cfg.Container.Bridge)
	if cfg.Container.MTU > 0 {
		fmt.Fprintf(&sb, "\tmtu:              %d\n", cfg.Container.MTU)
	}
	sb.WriteString("}\n")

	sb.WriteString("\napp: {\n")
	fmt.Fprintf(&sb, "\tname: %q\n", cfg.App.Name)
	if cfg.App.InstallDir != "" {
		fmt.Fprintf(&sb, "\tinstall_dir: %q\n", cfg.App.InstallDir)
	}
	if cfg.App.ComposeURL != "" {
		fmt.Fprintf(&sb, "\tcompose_url: %q\n", cfg.App.ComposeURL)
	}
	if cfg.App.EnvURL != "" {
		fmt.Fprintf(&sb, "\tenv_url: %q\n", cfg.App.EnvURL)
	}
	if cfg.App.Port > 0 {
		fmt.Fprintf(&sb, "\tport: %d\n", cfg.App.Port)
	}
	sb.WriteString("}\n")

	sb.WriteString("\ntimeouts: {\n")
	fmt.Fprintf(&sb, "\tboot:             %q\n", cfg.Timeouts.Boot.String())
	fmt.Fprintf(&sb, "\taddress_attempts: %d\n", cfg.Timeouts.AddressAttempts)
	fmt.Fprintf(&sb, "\taddress_interval: %q\n", cfg.Timeouts.AddressInterval.String())
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose:     %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tinteractive: %v\n", cfg.UI.Interactive)
	fmt.Fprintf(&sb, "\ttheme:       %q\n", cfg.UI.Theme)
	fmt.Fprintf(&sb, "\tstyle:       %q\n", cfg.UI.Style)
	sb.WriteString("}\n")

	return sb.String()
}
