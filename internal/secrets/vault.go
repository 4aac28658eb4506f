// Package secrets resolves runtime credentials from Vault. The service falls
// back to plain env configuration when no Vault token is provided.
package secrets

import (
	"fmt"
	"path"

	vault "github.com/hashicorp/vault/api"

	"github.com/EngageMedia-video/featured-storage/internal/config"
)

const dbSecretKey = "database_dsn"

// DatabaseDSN reads the database connection string from the Vault KV store.
func DatabaseDSN(cfg config.Vault) (string, error) {
	client, err := vault.NewClient(&vault.Config{Address: cfg.Address})
	if err != nil {
		return "", fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	secret, err := client.Logical().Read(path.Join(cfg.BasePath, "database"))
	if err != nil {
		return "", fmt.Errorf("read database secret: %w", err)
	}
	if secret == nil {
		return "", fmt.Errorf("database secret not found at %s", cfg.BasePath)
	}

	data := secret.Data
	if nested, ok := secret.Data["data"].(map[string]interface{}); ok {
		data = nested
	}

	dsn, ok := data[dbSecretKey].(string)
	if !ok || dsn == "" {
		return "", fmt.Errorf("database secret has no %s field", dbSecretKey)
	}

	return dsn, nil
}
