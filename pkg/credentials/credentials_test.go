// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package credentials

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"encoding/pem"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/vmware/remote-deploy/pkg/config"
	"github.com/vmware/remote-deploy/pkg/remote"
)

func passwordServer() *config.Server {
	return &config.Server{
		Name:     "web-prod",
		Host:     "10.0.0.7",
		Port:     2222,
		Username: "deploy",
		Auth:     config.Auth{Type: config.AuthPassword},
	}
}

func writeKey(t *testing.T, passphrase string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	require.NoError(t, err)

	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))
	return keyPath
}

func failPrompt(t *testing.T) func(string) (string, error) {
	return func(label string) (string, error) {
		t.Fatalf("unexpected prompt %q", label)
		return "", nil
	}
}

func TestResolvePasswordFromConfig(t *testing.T) {
	t.Setenv("REMOTE_DEPLOY_PASSWORD", "from-env")
	server := passwordServer()
	server.Auth.Password = "from-config"

	target, err := NewResolver(nil, failPrompt(t)).Resolve(context.Background(), server)
	require.NoError(t, err)
	require.Equal(t, remote.Target{Host: "10.0.0.7", Port: 2222, User: "deploy", Password: "from-config"}, target)
}

func TestResolvePasswordFromEnv(t *testing.T) {
	t.Setenv("REMOTE_DEPLOY_PASSWORD", "generic")

	target, err := NewResolver(nil, failPrompt(t)).Resolve(context.Background(), passwordServer())
	require.NoError(t, err)
	require.Equal(t, "generic", target.Password)

	t.Setenv("REMOTE_DEPLOY_WEB_PROD_PASSWORD", "specific")
	target, err = NewResolver(nil, failPrompt(t)).Resolve(context.Background(), passwordServer())
	require.NoError(t, err)
	require.Equal(t, "specific", target.Password)
}

func TestResolvePasswordFromPrompt(t *testing.T) {
	t.Setenv("REMOTE_DEPLOY_PASSWORD", "")
	t.Setenv("REMOTE_DEPLOY_WEB_PROD_PASSWORD", "")
	var labels []string
	prompt := func(label string) (string, error) {
		labels = append(labels, label)
		return "typed", nil
	}

	target, err := NewResolver(nil, prompt).Resolve(context.Background(), passwordServer())
	require.NoError(t, err)
	require.Equal(t, "typed", target.Password)
	require.Equal(t, []string{"Password for deploy@10.0.0.7:2222"}, labels)
}

func TestResolvePasswordMissing(t *testing.T) {
	t.Setenv("REMOTE_DEPLOY_PASSWORD", "")
	t.Setenv("REMOTE_DEPLOY_WEB_PROD_PASSWORD", "")
	_, err := NewResolver(nil, nil).Resolve(context.Background(), passwordServer())
	require.ErrorIs(t, err, ErrMissingCredential)

	prompt := func(string) (string, error) { return "", errors.New("cancelled") }
	_, err = NewResolver(nil, prompt).Resolve(context.Background(), passwordServer())
	require.ErrorContains(t, err, "prompt lookup for web-prod failed")
}

func TestResolveKey(t *testing.T) {
	keyPath := writeKey(t, "")
	server := passwordServer()
	server.Auth = config.Auth{Type: config.AuthSSHKey, KeyPath: keyPath}

	target, err := NewResolver(nil, failPrompt(t)).Resolve(context.Background(), server)
	require.NoError(t, err)
	require.Equal(t, keyPath, target.PrivateKeyPath)
	require.Empty(t, target.Passphrase)
	require.Empty(t, target.Password)
}

func TestResolveKeyPermissionWarning(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	keyPath := writeKey(t, "")
	server := passwordServer()
	server.Auth = config.Auth{Type: config.AuthSSHKey, KeyPath: keyPath}
	resolver := NewResolver(nil, failPrompt(t))

	_, err := resolver.Resolve(context.Background(), server)
	require.NoError(t, err)
	require.Empty(t, logs.String())

	require.NoError(t, os.Chmod(keyPath, 0o644))
	target, err := resolver.Resolve(context.Background(), server)
	require.NoError(t, err)
	require.Equal(t, keyPath, target.PrivateKeyPath)
	require.Contains(t, logs.String(), "has permissions 0644")
	require.Contains(t, logs.String(), "chmod 600 "+keyPath)
}

func TestResolveEncryptedKey(t *testing.T) {
	t.Setenv("REMOTE_DEPLOY_PASSPHRASE", "")
	keyPath := writeKey(t, "hunter2")
	server := passwordServer()
	server.Auth = config.Auth{Type: config.AuthSSHKey, KeyPath: keyPath}

	_, err := NewResolver(nil, nil).Resolve(context.Background(), server)
	require.ErrorIs(t, err, ErrMissingCredential)

	t.Setenv("REMOTE_DEPLOY_PASSPHRASE", "hunter2")
	target, err := NewResolver(nil, nil).Resolve(context.Background(), server)
	require.NoError(t, err)
	require.Equal(t, "hunter2", target.Passphrase)
}

func TestResolveMissingKeyFile(t *testing.T) {
	server := passwordServer()
	server.Auth = config.Auth{Type: config.AuthSSHKey, KeyPath: filepath.Join(t.TempDir(), "nope")}

	_, err := NewResolver(nil, failPrompt(t)).Resolve(context.Background(), server)
	require.ErrorIs(t, err, ErrMissingCredential)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// newVaultStub serves one KV v2 secret and an approle login endpoint.
func newVaultStub(t *testing.T, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/approle/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["role_id"] != "role" || body["secret_id"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors":["invalid role or secret ID"]}`))
			return
		}
		_, _ = w.Write([]byte(`{"auth":{"client_token":"` + token + `"}}`))
	})
	mux.HandleFunc("/v1/secret/data/deploy/web", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != token {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"data":{"password":"from-vault","port":22}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func vaultServer(key string) *config.Server {
	server := passwordServer()
	server.Auth.Vault = &config.SecretRef{Path: "secret/data/deploy/web", Key: key}
	return server
}

func TestResolvePasswordFromVault(t *testing.T) {
	srv := newVaultStub(t, "tok")

	tests := []struct {
		name string
		auth config.VaultAuthConfig
	}{
		{name: "token", auth: config.VaultAuthConfig{Method: "token", Token: "tok"}},
		{name: "approle", auth: config.VaultAuthConfig{Method: "approle", RoleID: "role", SecretID: "secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.VaultConfig{Address: srv.URL, Auth: tt.auth}
			target, err := NewResolver(cfg, failPrompt(t)).Resolve(context.Background(), vaultServer("password"))
			require.NoError(t, err)
			require.Equal(t, "from-vault", target.Password)
		})
	}
}

func TestVaultErrors(t *testing.T) {
	srv := newVaultStub(t, "tok")

	tests := []struct {
		name    string
		cfg     *config.VaultConfig
		key     string
		wantMsg string
	}{
		{
			name:    "bad token",
			cfg:     &config.VaultConfig{Address: srv.URL, Auth: config.VaultAuthConfig{Token: "wrong"}},
			key:     "password",
			wantMsg: "failed to read secret",
		},
		{
			name:    "missing key",
			cfg:     &config.VaultConfig{Address: srv.URL, Auth: config.VaultAuthConfig{Token: "tok"}},
			key:     "nope",
			wantMsg: "key nope not found",
		},
		{
			name:    "non string value",
			cfg:     &config.VaultConfig{Address: srv.URL, Auth: config.VaultAuthConfig{Token: "tok"}},
			key:     "port",
			wantMsg: "is not a string",
		},
		{
			name:    "bad approle",
			cfg:     &config.VaultConfig{Address: srv.URL, Auth: config.VaultAuthConfig{Method: "approle", RoleID: "x", SecretID: "y"}},
			key:     "password",
			wantMsg: "approle login failed",
		},
		{
			name:    "unsupported method",
			cfg:     &config.VaultConfig{Address: srv.URL, Auth: config.VaultAuthConfig{Method: "aws-iam"}},
			key:     "password",
			wantMsg: "unsupported vault auth method",
		},
		{
			name:    "no vault section",
			key:     "password",
			wantMsg: "vault address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &VaultSource{Config: tt.cfg}
			_, err := src.Lookup(context.Background(), vaultServer(tt.key), Password)
			require.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestVaultSourceWithoutRef(t *testing.T) {
	src := &VaultSource{}
	v, err := src.Lookup(context.Background(), passwordServer(), Password)
	require.NoError(t, err)
	require.Empty(t, v)
}
