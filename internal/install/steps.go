// SPDX-License-Identifier: MPL-2.0

package install

import (
	"fmt"
	"path"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/pveprov/pveprov/internal/request"
)

// Step names, in execution order.
const (
	StepAptUpgrade    = "apt-upgrade"
	StepBasePackages  = "base-packages"
	StepDockerEngine  = "docker-engine"
	StepFetchApp      = "fetch-app"
	StepInjectSecrets = "inject-secrets"
	StepStartStack    = "start-stack"

	scriptPrologue = "set -euo pipefail\n"

	// secretsSentinel is appended to .env once the secrets are set. Its
	// presence keeps later runs from rotating them under an existing
	// database volume.
	secretsSentinel = "# pveprov: secrets set"
)

// StepNames lists every step in execution order.
var StepNames = []string{
	StepAptUpgrade,
	StepBasePackages,
	StepDockerEngine,
	StepFetchApp,
	StepInjectSecrets,
	StepStartStack,
}

// Step is one named unit of installation work.
type Step struct {
	Name string
	// Run performs the step. It must be safe to run again after a partial
	// failure.
	Run string
	// Check exits 0 when the step's effect is already present. Empty means
	// a recorded completion is trusted as is.
	Check string
}

// Steps builds the ordered step list for app and req. Every script is parsed
// as bash before it is returned; interpolated values are shell-quoted.
func Steps(app App, req request.Request) ([]Step, error) {
	dir, err := quote(req.InstallDir)
	if err != nil {
		return nil, err
	}
	compose, err := quote(path.Join(req.InstallDir, "docker-compose.yml"))
	if err != nil {
		return nil, err
	}
	composeURL, err := quote(app.ComposeURL)
	if err != nil {
		return nil, err
	}

	fetch := fmt.Sprintf("mkdir -p %s\ncurl -fsSL --retry 3 -o %s %s\n", dir, compose, composeURL)
	if app.EnvURL != "" {
		envFile, err := quote(path.Join(req.InstallDir, ".env"))
		if err != nil {
			return nil, err
		}
		envURL, err := quote(app.EnvURL)
		if err != nil {
			return nil, err
		}
		// An existing .env already carries this container's secrets.
		fetch += fmt.Sprintf("if [ ! -s %s ]; then\n\tcurl -fsSL --retry 3 -o %s %s\nfi\n", envFile, envFile, envURL)
	}

	envPath := path.Join(req.InstallDir, ".env")
	secrets, err := secretsScript(envPath, []envVar{
		{"DB_PASSWORD", req.Secrets.DBPassword},
		{"JWT_SECRET", req.Secrets.JWTSecret},
	})
	if err != nil {
		return nil, err
	}
	secretsCheck, err := sentinelCheck(envPath)
	if err != nil {
		return nil, err
	}

	steps := []Step{
		{
			Name: StepAptUpgrade,
			Run:  "apt-get update\napt-get -y -o Dpkg::Options::=--force-confdef -o Dpkg::Options::=--force-confold dist-upgrade\n",
		},
		{
			Name:  StepBasePackages,
			Run:   "apt-get install -y curl ca-certificates gnupg sudo\n",
			Check: "command -v curl >/dev/null && command -v gpg >/dev/null\n",
		},
		{
			Name:  StepDockerEngine,
			Run:   dockerEngineScript,
			Check: "docker compose version >/dev/null 2>&1\n",
		},
		{
			Name:  StepFetchApp,
			Run:   fetch,
			Check: fmt.Sprintf("test -s %s\n", compose),
		},
		{
			Name:  StepInjectSecrets,
			Run:   secrets,
			Check: secretsCheck,
		},
		{
			Name:  StepStartStack,
			Run:   fmt.Sprintf("cd %s\ndocker compose pull\ndocker compose up -d\n", dir),
			Check: fmt.Sprintf("cd %s\ntest -n \"$(docker compose ps -q)\"\n", dir),
		},
	}

	for i, s := range steps {
		steps[i].Run = scriptPrologue + s.Run
		if err := ValidateScript(s.Name, steps[i].Run); err != nil {
			return nil, err
		}
		if s.Check != "" {
			if err := ValidateScript(s.Name+" check", s.Check); err != nil {
				return nil, err
			}
		}
	}
	return steps, nil
}

const dockerEngineScript = `install -m 0755 -d /etc/apt/keyrings
. /etc/os-release
curl -fsSL "https://download.docker.com/linux/${ID}/gpg" -o /etc/apt/keyrings/docker.asc
chmod a+r /etc/apt/keyrings/docker.asc
echo "deb [arch=$(dpkg --print-architecture) signed-by=/etc/apt/keyrings/docker.asc] https://download.docker.com/linux/${ID} ${VERSION_CODENAME} stable" > /etc/apt/sources.list.d/docker.list
apt-get update
apt-get install -y docker-ce docker-ce-cli containerd.io docker-buildx-plugin docker-compose-plugin
systemctl enable --now docker
`

type envVar struct {
	Key   string
	Value string
}

// secretsScript sets each key in file: substituted in place when a line for
// the key exists, appended otherwise. A file that already carries the
// sentinel is left untouched.
func secretsScript(file string, vars []envVar) (string, error) {
	f, err := quote(file)
	if err != nil {
		return "", err
	}
	sentinel, err := quote(secretsSentinel)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "touch %s\n", f)
	fmt.Fprintf(&b, "if grep -qxF %s %s; then\n\texit 0\nfi\n", sentinel, f)
	for _, v := range vars {
		line := v.Key + "=" + v.Value
		pattern, err := quote("^" + v.Key + "=")
		if err != nil {
			return "", err
		}
		expr, err := quote("s|^" + v.Key + "=.*|" + line + "|")
		if err != nil {
			return "", err
		}
		appended, err := quote(line)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "if grep -q %s %s; then\n\tsed -i %s %s\nelse\n\tprintf '%%s\\n' %s >> %s\nfi\n",
			pattern, f, expr, f, appended, f)
	}
	fmt.Fprintf(&b, "printf '%%s\\n' %s >> %s\n", sentinel, f)
	return b.String(), nil
}

// sentinelCheck exits 0 when file already carries the secrets sentinel.
func sentinelCheck(file string) (string, error) {
	f, err := quote(file)
	if err != nil {
		return "", err
	}
	sentinel, err := quote(secretsSentinel)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("grep -qxF %s %s\n", sentinel, f), nil
}

// ValidateScript parses script as bash and reports syntax errors.
func ValidateScript(name, script string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(strings.NewReader(script), name); err != nil {
		return fmt.Errorf("step %s: invalid script: %w", name, err)
	}
	return nil
}

func quote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("cannot quote %q for bash: %w", s, err)
	}
	return q, nil
}
