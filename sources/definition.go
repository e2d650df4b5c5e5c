// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/net/http/httpguts"

	"github.com/fastskill/fastskill-core/env"
)

// Kind identifies a source backend implementation.
type Kind string

// Supported source kinds.
const (
	KindGit          Kind = "git"
	KindZipURL       Kind = "zip_url"
	KindLocal        Kind = "local"
	KindHTTPRegistry Kind = "http_registry"
)

// Valid reports whether the kind is one of the supported backends.
func (k Kind) Valid() bool {
	switch k {
	case KindGit, KindZipURL, KindLocal, KindHTTPRegistry:
		return true
	}
	return false
}

// AuthType identifies how a source is authenticated.
type AuthType string

// Supported authentication types.
const (
	AuthPAT    AuthType = "pat"
	AuthSSH    AuthType = "ssh"
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "api_key"
)

// Auth describes how to authenticate against a source. Credentials are
// referenced by environment variable name (or key file path for SSH) and
// read only when a client is constructed, never stored in configuration.
type Auth struct {
	Type AuthType `yaml:"type"`

	// TokenEnv names the environment variable holding a PAT or API key.
	TokenEnv string `yaml:"token_env,omitempty"`

	// UserEnv and PasswordEnv name the variables for basic auth.
	UserEnv     string `yaml:"user_env,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`

	// KeyPath is the SSH private key path (git sources only).
	KeyPath string `yaml:"key_path,omitempty"`

	// Header overrides the header an API key is sent in. Default X-API-Key.
	Header string `yaml:"header,omitempty"`
}

// validate checks the auth block is internally consistent for the given kind.
func (a *Auth) validate(kind Kind) error {
	switch a.Type {
	case AuthPAT, AuthAPIKey:
		if a.TokenEnv == "" {
			return fmt.Errorf("%s auth requires token_env", a.Type)
		}
	case AuthBasic:
		if a.UserEnv == "" || a.PasswordEnv == "" {
			return fmt.Errorf("basic auth requires user_env and password_env")
		}
	case AuthSSH:
		if kind != KindGit {
			return fmt.Errorf("ssh auth is only valid for git sources")
		}
		if a.KeyPath == "" {
			return fmt.Errorf("ssh auth requires key_path")
		}
	default:
		return fmt.Errorf("unknown auth type %q", a.Type)
	}
	return nil
}

// header resolves the auth block into an HTTP header name and value,
// reading credentials from the environment. SSH material cannot be carried
// in a header and returns an error.
func (a *Auth) header(reader env.Reader) (string, string, error) {
	switch a.Type {
	case AuthPAT:
		token := reader.Getenv(a.TokenEnv)
		if token == "" {
			return "", "", fmt.Errorf("auth environment variable %s is not set", a.TokenEnv)
		}
		return "Authorization", "Bearer " + token, a.checkValue("Bearer " + token)
	case AuthBasic:
		user := reader.Getenv(a.UserEnv)
		pass := reader.Getenv(a.PasswordEnv)
		if user == "" || pass == "" {
			return "", "", fmt.Errorf("auth environment variables %s/%s are not set", a.UserEnv, a.PasswordEnv)
		}
		value := "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
		return "Authorization", value, a.checkValue(value)
	case AuthAPIKey:
		key := reader.Getenv(a.TokenEnv)
		if key == "" {
			return "", "", fmt.Errorf("auth environment variable %s is not set", a.TokenEnv)
		}
		header := a.Header
		if header == "" {
			header = "X-API-Key"
		}
		return header, key, a.checkValue(key)
	case AuthSSH:
		return "", "", fmt.Errorf("ssh credentials cannot be applied to HTTP requests")
	}
	return "", "", fmt.Errorf("unknown auth type %q", a.Type)
}

// checkValue rejects credentials that are not legal header values, so a
// malformed secret cannot smuggle CRLF into a request.
func (*Auth) checkValue(value string) error {
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("credential is not a valid header value")
	}
	return nil
}

// Definition is the configuration of one source: a unique name, a backend
// kind with its location, a priority (lower wins), and optional auth.
type Definition struct {
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	Location string `yaml:"location"`
	Priority uint   `yaml:"priority"`
	Auth     *Auth  `yaml:"auth,omitempty"`
}

// Validate checks the definition is complete and internally consistent.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("source %s: unknown kind %q", d.Name, d.Kind)
	}
	if d.Location == "" {
		return fmt.Errorf("source %s: location is required", d.Name)
	}
	if d.Auth != nil {
		if err := d.Auth.validate(d.Kind); err != nil {
			return fmt.Errorf("source %s: %w", d.Name, err)
		}
	}
	return nil
}
