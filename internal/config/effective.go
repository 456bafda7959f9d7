package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
)

// DefaultGitHost is the host embedded in the repository URL when GIT_HOST is unset.
const DefaultGitHost = "github.com"

// Effective is the configuration one operation runs with. It is rebuilt by
// Resolve at the start of every backup, restore or check and must not be
// cached across operations: the secret file may change between runs.
type Effective struct {
	RepoToken      string `env:"GITHUB_TOKEN"`
	RepoIdentifier string `env:"GITHUB_REPO"`
	GitHost        string `env:"GIT_HOST"`
	StoreHost      string `env:"CHROMA_HOST"`
	StorePort      int    `env:"CHROMA_PORT"`
	StoreToken     string `env:"CHROMA_TOKEN"`
	AllowReset     *bool  `env:"ALLOW_RESET"`
}

// RemoteEnabled reports whether a repository token was resolved. Without one
// every remote-touching operation must short-circuit.
func (e *Effective) RemoteEnabled() bool {
	return e.RepoToken != ""
}

// ResetAllowed reports whether restore may replace collections that already
// exist in the store. Defaults to true.
func (e *Effective) ResetAllowed() bool {
	return e.AllowReset == nil || *e.AllowReset
}

// RepoURL returns the HTTPS remote with the token embedded. It is empty when
// remote sync is disabled.
func (e *Effective) RepoURL() string {
	if !e.RemoteEnabled() {
		return ""
	}
	return fmt.Sprintf("https://%s@%s/%s.git", e.RepoToken, e.GitHost, e.RepoIdentifier)
}

// String renders the configuration with the token redacted.
func (e *Effective) String() string {
	token := "absent"
	if e.RepoToken != "" {
		token = "set"
	}
	return fmt.Sprintf("repo=%s token=%s store=%s:%d allow_reset=%t",
		e.RepoIdentifier, token, e.StoreHost, e.StorePort, e.ResetAllowed())
}

func (e *Effective) validate() error {
	if e.StorePort <= 0 || e.StorePort > 65535 {
		return &ConfigurationError{Key: "CHROMA_PORT", Reason: fmt.Sprintf("out of range: %d", e.StorePort)}
	}
	if !e.RemoteEnabled() {
		return nil
	}
	owner, name, ok := strings.Cut(e.RepoIdentifier, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return &ConfigurationError{Key: "GITHUB_REPO", Reason: fmt.Sprintf("want owner/name, got %q", e.RepoIdentifier)}
	}
	return nil
}

// Resolver layers the secret file under the process environment.
type Resolver struct {
	SecretPath string
	// Environ returns the process environment. Defaults to os.Environ.
	Environ func() []string
	// Logf receives informational messages (e.g. a missing secret file). May be nil.
	Logf func(format string, args ...any)
}

// Resolve produces the effective configuration. A missing secret file is not
// an error. A missing token is not an error either: RemoteEnabled reports false.
func (r *Resolver) Resolve() (*Effective, error) {
	fileVars, err := r.readSecretFile()
	if err != nil {
		return nil, err
	}

	environ := os.Environ
	if r.Environ != nil {
		environ = r.Environ
	}

	envCfg := &Effective{}
	if err := env.ParseWithOptions(envCfg, env.Options{Environment: env.ToMap(environ())}); err != nil {
		return nil, &ConfigurationError{Key: "environment", Reason: "parse failed", Err: err}
	}

	fileCfg := &Effective{}
	if err := env.ParseWithOptions(fileCfg, env.Options{Environment: fileVars}); err != nil {
		return nil, &ConfigurationError{Key: r.SecretPath, Reason: "parse failed", Err: err}
	}

	// mergo only fills zero fields, so the first source merged wins. Pointers
	// are taken as set values: an explicit ALLOW_RESET=false must not be
	// filled in from a later source.
	eff := &Effective{}
	for _, src := range []*Effective{envCfg, fileCfg, defaultEffective()} {
		if err := mergo.Merge(eff, src, mergo.WithoutDereference); err != nil {
			return nil, fmt.Errorf("merging configuration: %w", err)
		}
	}

	if err := eff.validate(); err != nil {
		return nil, err
	}
	return eff, nil
}

func defaultEffective() *Effective {
	return &Effective{
		GitHost:   DefaultGitHost,
		StoreHost: "localhost",
		StorePort: 8000,
	}
}

func (r *Resolver) readSecretFile() (map[string]string, error) {
	if r.SecretPath == "" {
		return map[string]string{}, nil
	}

	f, err := os.Open(r.SecretPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logf("secret file %s not found, using environment only", r.SecretPath)
			return map[string]string{}, nil
		}
		return nil, &ConfigurationError{Key: r.SecretPath, Reason: "unreadable", Err: err}
	}
	defer f.Close()

	vars, err := ParseSecretFile(f)
	if err != nil {
		return nil, &ConfigurationError{Key: r.SecretPath, Reason: "malformed", Err: err}
	}
	r.logf("loaded %d keys from secret file %s", len(vars), r.SecretPath)
	return vars, nil
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

// ParseSecretFile reads KEY=VALUE lines. Blank lines and # comments are
// skipped, an optional "export " prefix is accepted, and one pair of matching
// surrounding quotes is stripped from values. Lines without '=' are rejected.
func ParseSecretFile(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '='", lineNo)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo)
		}
		vars[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	return vars, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		if v[0] == '"' {
			if s, err := strconv.Unquote(v); err == nil {
				return s
			}
		}
		return v[1 : len(v)-1]
	}
	return v
}
