// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"
)

const (
	DefaultConfigFilename = "deploy.yaml"
	DefaultPort           = 22
)

// ErrInvalidConfig is returned for any missing, malformed or invalid config.
var ErrInvalidConfig = errors.New("invalid config")

type AuthType string

const (
	AuthSSHKey   AuthType = "ssh_key"
	AuthPassword AuthType = "password"
)

type UploadMode string

const (
	ModeCopy UploadMode = "copy"
	ModeSync UploadMode = "sync"
)

type Config struct {
	Vault   *VaultConfig `json:"vault,omitempty"`
	Servers []*Server    `json:"servers"`
}

type Server struct {
	Name          string                   `json:"name"`
	Host          string                   `json:"host"`
	Port          int                      `json:"port,omitempty"`
	Username      string                   `json:"username"`
	Auth          Auth                     `json:"auth"`
	Upload        map[string][]UploadRule  `json:"upload,omitempty"`
	Commands      map[string][]string      `json:"commands,omitempty"`
	LocalCommands map[string]LocalCommands `json:"local_commands,omitempty"`
}

type Auth struct {
	Type     AuthType   `json:"type"`
	KeyPath  string     `json:"key_path,omitempty"`
	Password string     `json:"password,omitempty"`
	Vault    *SecretRef `json:"vault,omitempty"`
}

type UploadRule struct {
	LocalPath   string     `json:"local_path"`
	RemotePath  string     `json:"remote_path"`
	Mode        UploadMode `json:"mode,omitempty"`
	DeleteExtra bool       `json:"delete_extra,omitempty"`
}

// LocalCommands are run on the operator machine before the upload group
// they are keyed by.
type LocalCommands struct {
	WorkingDir  string   `json:"working_dir,omitempty"`
	StopOnError *bool    `json:"stop_on_error,omitempty"`
	Commands    []string `json:"commands"`
}

type VaultConfig struct {
	Address       string          `json:"address"`
	TLSSkipVerify bool            `json:"tls_skip_verify,omitempty"`
	Auth          VaultAuthConfig `json:"auth"`
}

type VaultAuthConfig struct {
	Method   string `json:"method"`
	Token    string `json:"token,omitempty"`
	RoleID   string `json:"role_id,omitempty"`
	SecretID string `json:"secret_id,omitempty"`
}

// SecretRef points to a key inside a Vault KV v2 secret.
type SecretRef struct {
	Path string `json:"path"`
	Key  string `json:"key"`
}

// Load reads, decodes and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("%w: read file failed: %w", ErrInvalidConfig, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, applies defaults and validates it.
// Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal yaml failed: %w", ErrInvalidConfig, err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	for _, s := range c.Servers {
		if s == nil {
			continue
		}
		if s.Port == 0 {
			s.Port = DefaultPort
		}
		for group, rules := range s.Upload {
			for i := range rules {
				if rules[i].Mode == "" {
					rules[i].Mode = ModeCopy
				}
			}
			s.Upload[group] = rules
		}
	}
}

// Validate checks the whole config and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Servers) == 0 {
		errs = append(errs, errors.New("'servers' must contain at least one server"))
	}

	names := make(map[string]bool)
	for i, s := range c.Servers {
		if s == nil {
			errs = append(errs, fmt.Errorf("server #%d is empty", i))
			continue
		}
		if s.Name != "" {
			if names[s.Name] {
				errs = append(errs, fmt.Errorf("duplicate server name %q", s.Name))
			}
			names[s.Name] = true
		}
		errs = append(errs, s.validate(i)...)
	}

	if c.Vault != nil && c.Vault.Address == "" {
		errs = append(errs, errors.New("vault: 'address' is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (s *Server) validate(idx int) []error {
	var errs []error
	id := fmt.Sprintf("server #%d", idx)
	if s.Name == "" {
		errs = append(errs, fmt.Errorf("%s: 'name' is required", id))
	} else {
		id = fmt.Sprintf("server %q", s.Name)
	}
	if s.Host == "" {
		errs = append(errs, fmt.Errorf("%s: 'host' is required", id))
	}
	if s.Username == "" {
		errs = append(errs, fmt.Errorf("%s: 'username' is required", id))
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s: invalid port %d (must be 1-65535)", id, s.Port))
	}

	switch s.Auth.Type {
	case AuthSSHKey:
		if s.Auth.KeyPath == "" {
			errs = append(errs, fmt.Errorf("%s: 'auth.key_path' is required for ssh_key auth", id))
		}
	case AuthPassword:
		// password may come from the environment, vault or a prompt
	case "":
		errs = append(errs, fmt.Errorf("%s: 'auth.type' is required", id))
	default:
		errs = append(errs, fmt.Errorf("%s: unsupported auth type %q (supported: %s, %s)", id, s.Auth.Type, AuthSSHKey, AuthPassword))
	}
	if ref := s.Auth.Vault; ref != nil && (ref.Path == "" || ref.Key == "") {
		errs = append(errs, fmt.Errorf("%s: 'auth.vault' requires both 'path' and 'key'", id))
	}

	for group, rules := range s.Upload {
		for i, r := range rules {
			if r.LocalPath == "" {
				errs = append(errs, fmt.Errorf("%s: upload %q item %d: 'local_path' is required", id, group, i))
			}
			if r.RemotePath == "" {
				errs = append(errs, fmt.Errorf("%s: upload %q item %d: 'remote_path' is required", id, group, i))
			}
			if r.Mode != ModeCopy && r.Mode != ModeSync {
				errs = append(errs, fmt.Errorf("%s: upload %q item %d: invalid mode %q (supported: %s, %s)", id, group, i, r.Mode, ModeSync, ModeCopy))
			}
		}
	}

	for group, lc := range s.LocalCommands {
		if _, ok := s.Upload[group]; !ok {
			errs = append(errs, fmt.Errorf("%s: local_commands %q does not match any upload group", id, group))
		}
		if len(lc.Commands) == 0 {
			errs = append(errs, fmt.Errorf("%s: local_commands %q: 'commands' must not be empty", id, group))
		}
	}
	return errs
}

// ServerByName returns the server with the given name, or nil.
func (c *Config) ServerByName(name string) *Server {
	for _, s := range c.Servers {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// UploadGroups returns the upload group names of s in sorted order.
func (s *Server) UploadGroups() []string {
	return sortedKeys(s.Upload)
}

// CommandGroups returns the command group names of s in sorted order.
func (s *Server) CommandGroups() []string {
	return sortedKeys(s.Commands)
}

// Address returns host:port.
func (s *Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StopsOnError reports whether a failing local command aborts the group.
func (lc LocalCommands) StopsOnError() bool {
	return lc.StopOnError == nil || *lc.StopOnError
}

// ExpandPath expands a leading "~" and environment variables in p.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
