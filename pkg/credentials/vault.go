// Copyright (c) 2025 Broadcom. All Rights Reserved.
// Broadcom Confidential. The term "Broadcom" refers to Broadcom Inc.
// and/or its subsidiaries.

package credentials

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/vmware/remote-deploy/pkg/config"
)

// VaultClient reads secrets from a Vault KV v2 engine.
type VaultClient struct {
	client *vault.Client
	config *config.VaultConfig
}

// NewVaultClient creates the client. Authentication happens in Authenticate.
func NewVaultClient(cfg *config.VaultConfig) (*VaultClient, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("vault address is required")
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	return &VaultClient{client: client, config: cfg}, nil
}

// Authenticate logs in with the configured method: token or approle.
func (c *VaultClient) Authenticate(ctx context.Context) error {
	switch c.config.Auth.Method {
	case "token", "":
		if c.config.Auth.Token == "" {
			return fmt.Errorf("vault token is required for token authentication")
		}
		c.client.SetToken(c.config.Auth.Token)
		return nil

	case "approle":
		return c.authenticateWithAppRole(ctx)

	default:
		return fmt.Errorf("unsupported vault auth method: %s", c.config.Auth.Method)
	}
}

func (c *VaultClient) authenticateWithAppRole(ctx context.Context) error {
	if c.config.Auth.RoleID == "" || c.config.Auth.SecretID == "" {
		return fmt.Errorf("role_id and secret_id are required for approle authentication")
	}

	resp, err := c.client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]any{
		"role_id":   c.config.Auth.RoleID,
		"secret_id": c.config.Auth.SecretID,
	})
	if err != nil {
		return fmt.Errorf("approle login failed: %w", err)
	}
	if resp == nil || resp.Auth == nil {
		return fmt.Errorf("approle login returned no auth token")
	}

	c.client.SetToken(resp.Auth.ClientToken)
	return nil
}

// GetSecret returns key from the KV v2 secret at path. The path includes the
// "/data/" segment, e.g. secret/data/deploy/web.
func (c *VaultClient) GetSecret(ctx context.Context, path, key string) (string, error) {
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret at %s: %w", path, err)
	}
	if secret == nil {
		return "", fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected secret format at path: %s", path)
	}

	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %s not found in secret at path: %s", key, path)
	}

	valueStr, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key %s is not a string at path: %s", key, path)
	}
	return valueStr, nil
}
