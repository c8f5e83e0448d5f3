// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"slices"
	"testing"
)

func TestCatalog(t *testing.T) {
	t.Parallel()

	c := NewCatalog(ComposeSource{})
	if !slices.Equal(c.Names(), []string{AppImmich}) {
		t.Errorf("Names() = %v, compose needs a URL", c.Names())
	}
	app, err := c.Lookup(AppImmich)
	if err != nil || app.Port != 2283 {
		t.Fatalf("Lookup(immich) = %+v, %v", app, err)
	}
	if _, err := c.Lookup("nextcloud"); !errors.Is(err, ErrUnknownApp) {
		t.Errorf("Lookup(nextcloud) error = %v", err)
	}

	c = NewCatalog(ComposeSource{ComposeURL: "https://example.com/compose.yml"})
	if !slices.Equal(c.Names(), []string{AppCompose, AppImmich}) {
		t.Errorf("Names() = %v", c.Names())
	}
	app, err = c.Lookup(AppCompose)
	if err != nil || app.Port != 80 {
		t.Errorf("Lookup(compose) = %+v, %v", app, err)
	}
	if len(c.Apps()) != 2 {
		t.Errorf("Apps() = %v", c.Apps())
	}
}

func TestApp_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		app  App
		ok   bool
	}{
		{"ok", App{Name: "x", ComposeURL: "https://h/c.yml", Port: 80}, true},
		{"with env", App{Name: "x", ComposeURL: "https://h/c.yml", EnvURL: "http://h/e", Port: 80}, true},
		{"no name", App{ComposeURL: "https://h/c.yml", Port: 80}, false},
		{"file url", App{Name: "x", ComposeURL: "file:///c.yml", Port: 80}, false},
		{"bad env", App{Name: "x", ComposeURL: "https://h/c.yml", EnvURL: "ftp://h/e", Port: 80}, false},
		{"bad port", App{Name: "x", ComposeURL: "https://h/c.yml", Port: 70000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.app.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
