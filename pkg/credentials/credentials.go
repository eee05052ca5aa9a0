// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

// Package credentials resolves the secret needed to open an ssh session.
// Sources are consulted in order and the first non-empty value wins; the
// value is handed to the dialer and never written anywhere.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/remote"
)

// EnvPrefix is shared by all REMOTE_DEPLOY_* environment variables.
const EnvPrefix = "REMOTE_DEPLOY"

var ErrMissingCredential = errors.New("no credential available")

// Kind tells a source which secret is wanted.
type Kind int

const (
	// Password is the login password of a password-auth server.
	Password Kind = iota
	// Passphrase unlocks the private key of a key-auth server.
	Passphrase
)

func (k Kind) String() string {
	if k == Passphrase {
		return "passphrase"
	}
	return "password"
}

// Source returns "" when it has nothing for the server.
type Source interface {
	Name() string
	Lookup(ctx context.Context, server *config.Server, kind Kind) (string, error)
}

// ConfigSource reads auth.password from the config file.
type ConfigSource struct{}

func (ConfigSource) Name() string { return "config" }

func (ConfigSource) Lookup(_ context.Context, server *config.Server, _ Kind) (string, error) {
	return server.Auth.Password, nil
}

// EnvSource reads REMOTE_DEPLOY_<SERVER>_PASSWORD, then REMOTE_DEPLOY_PASSWORD
// (PASSPHRASE for key auth).
type EnvSource struct {
	v *viper.Viper
}

func NewEnvSource() *EnvSource {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &EnvSource{v: v}
}

func (s *EnvSource) Name() string { return "environment" }

func (s *EnvSource) Lookup(_ context.Context, server *config.Server, kind Kind) (string, error) {
	if v := s.v.GetString(server.Name + "." + kind.String()); v != "" {
		return v, nil
	}
	return s.v.GetString(kind.String()), nil
}

// VaultSource reads the secret referenced by auth.vault. The client is
// created and authenticated on first use.
type VaultSource struct {
	Config *config.VaultConfig

	client *VaultClient
}

func (s *VaultSource) Name() string { return "vault" }

func (s *VaultSource) Lookup(ctx context.Context, server *config.Server, _ Kind) (string, error) {
	ref := server.Auth.Vault
	if ref == nil {
		return "", nil
	}
	if s.client == nil {
		client, err := NewVaultClient(s.Config)
		if err != nil {
			return "", err
		}
		if err := client.Authenticate(ctx); err != nil {
			return "", err
		}
		s.client = client
	}
	return s.client.GetSecret(ctx, ref.Path, ref.Key)
}

// PromptSource asks the operator.
type PromptSource struct {
	Prompt func(label string) (string, error)
}

func (s *PromptSource) Name() string { return "prompt" }

func (s *PromptSource) Lookup(_ context.Context, server *config.Server, kind Kind) (string, error) {
	label := fmt.Sprintf("Password for %s@%s", server.Username, server.Address())
	if kind == Passphrase {
		label = fmt.Sprintf("Passphrase for %s", server.Auth.KeyPath)
	}
	return s.Prompt(label)
}

// Resolver walks its sources in order.
type Resolver struct {
	Sources []Source
}

// NewResolver returns the default chain: config file, environment, Vault
// when configured, then the prompt when one is given.
func NewResolver(vaultConfig *config.VaultConfig, prompt func(label string) (string, error)) *Resolver {
	r := &Resolver{Sources: []Source{ConfigSource{}, NewEnvSource()}}
	if vaultConfig != nil {
		r.Sources = append(r.Sources, &VaultSource{Config: vaultConfig})
	}
	if prompt != nil {
		r.Sources = append(r.Sources, &PromptSource{Prompt: prompt})
	}
	return r
}

func (r *Resolver) lookup(ctx context.Context, server *config.Server, kind Kind) (string, error) {
	for _, src := range r.Sources {
		v, err := src.Lookup(ctx, server, kind)
		if err != nil {
			return "", fmt.Errorf("%s lookup for %s failed: %w", src.Name(), server.Name, err)
		}
		if v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s for server %s", ErrMissingCredential, kind, server.Name)
}

// Resolve builds the connection target for server with its secret filled in.
// For key auth the key file must exist; a passphrase is only looked up when
// the key is encrypted.
func (r *Resolver) Resolve(ctx context.Context, server *config.Server) (remote.Target, error) {
	target := remote.Target{
		Host: server.Host,
		Port: server.Port,
		User: server.Username,
	}

	switch server.Auth.Type {
	case config.AuthPassword:
		password, err := r.lookup(ctx, server, Password)
		if err != nil {
			return remote.Target{}, err
		}
		target.Password = password

	case config.AuthSSHKey:
		keyPath := config.ExpandPath(server.Auth.KeyPath)
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return remote.Target{}, fmt.Errorf("%w: private key %s: %w", ErrMissingCredential, keyPath, err)
		}
		target.PrivateKeyPath = keyPath
		checkKeyPermission(keyPath)

		var missing *ssh.PassphraseMissingError
		if _, err := ssh.ParsePrivateKey(data); errors.As(err, &missing) {
			passphrase, err := r.lookup(ctx, server, Passphrase)
			if err != nil {
				return remote.Target{}, err
			}
			target.Passphrase = passphrase
		}

	default:
		return remote.Target{}, fmt.Errorf("unsupported auth type %q", server.Auth.Type)
	}

	return target, nil
}

// checkKeyPermission warns when the private key is not mode 0600. ssh
// clients may refuse keys readable by others.
func checkKeyPermission(keyPath string) {
	info, err := os.Stat(keyPath)
	if err != nil {
		return
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		log.Printf("warning: private key %s has permissions %#o, run: chmod 600 %s", keyPath, mode, keyPath)
	}
}
