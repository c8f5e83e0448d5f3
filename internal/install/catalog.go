// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
)

const (
	// AppImmich is the default application.
	AppImmich = "immich"
	// AppCompose deploys any compose file given by URL.
	AppCompose = "compose"

	immichRelease = "https://github.com/immich-app/immich/releases/latest/download/"
)

// ErrUnknownApp is returned by Catalog.Lookup for names not in the catalog.
var ErrUnknownApp = errors.New("unknown application")

type (
	// App describes a docker compose application the installer can deploy.
	App struct {
		Name        string
		Description string
		// ComposeURL is fetched to <install_dir>/docker-compose.yml.
		ComposeURL string
		// EnvURL, when set, is fetched to <install_dir>/.env.
		EnvURL string
		// Port is the published HTTP port shown in the summary.
		Port int
	}

	// ComposeSource configures the generic compose application.
	ComposeSource struct {
		ComposeURL string
		EnvURL     string
		Port       int
	}

	// Catalog is the set of deployable applications, keyed by name.
	Catalog struct {
		apps map[string]App
	}
)

// Validate checks that the app can be fetched.
func (a App) Validate() error {
	if a.Name == "" {
		return errors.New("app name is required")
	}
	if err := checkURL(a.ComposeURL); err != nil {
		return fmt.Errorf("app %s compose file: %w", a.Name, err)
	}
	if a.EnvURL != "" {
		if err := checkURL(a.EnvURL); err != nil {
			return fmt.Errorf("app %s env file: %w", a.Name, err)
		}
	}
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("app %s: port %d out of range", a.Name, a.Port)
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	return nil
}

// NewCatalog returns the built-in applications. The generic compose app is
// only listed when compose.ComposeURL is set.
func NewCatalog(compose ComposeSource) *Catalog {
	c := &Catalog{apps: map[string]App{
		AppImmich: {
			Name:        AppImmich,
			Description: "Immich photo and video management",
			ComposeURL:  immichRelease + "docker-compose.yml",
			EnvURL:      immichRelease + "example.env",
			Port:        2283,
		},
	}}
	if compose.ComposeURL != "" {
		port := compose.Port
		if port == 0 {
			port = 80
		}
		c.apps[AppCompose] = App{
			Name:        AppCompose,
			Description: "Custom docker compose stack",
			ComposeURL:  compose.ComposeURL,
			EnvURL:      compose.EnvURL,
			Port:        port,
		}
	}
	return c
}

// Lookup returns the named app.
func (c *Catalog) Lookup(name string) (App, error) {
	app, ok := c.apps[name]
	if !ok {
		return App{}, fmt.Errorf("%w %q (available: %v)", ErrUnknownApp, name, c.Names())
	}
	if err := app.Validate(); err != nil {
		return App{}, err
	}
	return app, nil
}

// Names returns the sorted app names.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.apps))
}

// Apps returns every app, sorted by name.
func (c *Catalog) Apps() []App {
	apps := make([]App, 0, len(c.apps))
	for _, name := range c.Names() {
		apps = append(apps, c.apps[name])
	}
	return apps
}
