// SPDX-License-Identifier: MPL-2.0

package install

import (
	"slices"
	"strings"
	"testing"
)

func TestSteps_OrderAndValidity(t *testing.T) {
	t.Parallel()

	steps, err := Steps(immich(t), testRequest(t))
	if err != nil {
		t.Fatalf("Steps() error = %v", err)
	}
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
		if !strings.HasPrefix(s.Run, scriptPrologue) {
			t.Errorf("%s: missing prologue", s.Name)
		}
	}
	if !slices.Equal(names, StepNames) {
		t.Errorf("names = %v", names)
	}
}

func TestSteps_QuotesInterpolatedValues(t *testing.T) {
	t.Parallel()

	req := testRequest(t)
	req.InstallDir = "/opt/my apps/immich"
	steps, err := Steps(immich(t), req)
	if err != nil {
		t.Fatalf("Steps() error = %v", err)
	}
	fetch := steps[3]
	if !strings.Contains(fetch.Run, "mkdir -p '/opt/my apps/immich'") {
		t.Errorf("install dir not quoted:\n%s", fetch.Run)
	}
	if err := ValidateScript("fetch", fetch.Run); err != nil {
		t.Error(err)
	}
}

func TestSteps_SecretsScript(t *testing.T) {
	t.Parallel()

	req := testRequest(t)
	steps, err := Steps(immich(t), req)
	if err != nil {
		t.Fatal(err)
	}
	script := steps[4].Run
	for _, want := range []string{
		"touch /opt/immich/.env",
		"sed -i 's|^DB_PASSWORD=.*|DB_PASSWORD=" + req.Secrets.DBPassword + "|' /opt/immich/.env",
		"JWT_SECRET=" + req.Secrets.JWTSecret,
		">> /opt/immich/.env",
		"if grep -qxF '" + secretsSentinel + "' /opt/immich/.env; then\n\texit 0\nfi\n",
		"printf '%s\\n' '" + secretsSentinel + "' >> /opt/immich/.env",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("secrets script missing %q:\n%s", want, script)
		}
	}
	if want := "grep -qxF '" + secretsSentinel + "' /opt/immich/.env\n"; steps[4].Check != want {
		t.Errorf("secrets check = %q, want %q", steps[4].Check, want)
	}
}

func TestSteps_FetchKeepsExistingEnvFile(t *testing.T) {
	t.Parallel()

	steps, err := Steps(immich(t), testRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	fetch := steps[3].Run
	if !strings.Contains(fetch, "if [ ! -s /opt/immich/.env ]; then\n\tcurl -fsSL --retry 3 -o /opt/immich/.env ") {
		t.Errorf("env download should be guarded by an existence test:\n%s", fetch)
	}
}

func TestSteps_ComposeWithoutEnvFile(t *testing.T) {
	t.Parallel()

	app, err := NewCatalog(ComposeSource{ComposeURL: "https://example.com/compose.yml", Port: 8080}).Lookup(AppCompose)
	if err != nil {
		t.Fatal(err)
	}
	steps, err := Steps(app, testRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(steps[3].Run, ".env") {
		t.Errorf("no env URL, no env download:\n%s", steps[3].Run)
	}
}

func TestValidateScript(t *testing.T) {
	t.Parallel()

	if err := ValidateScript("ok", "if true; then echo ok; fi\n"); err != nil {
		t.Errorf("valid script rejected: %v", err)
	}
	if err := ValidateScript("bad", "if true; then echo\n"); err == nil {
		t.Error("unterminated if accepted")
	}
}
