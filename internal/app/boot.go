package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/config"
	"github.com/yanizio/vitrine/internal/vault"
)

// LoadConfig installs the Vault resolver when VAULT_ADDR is set, then loads
// the configuration.  The Vault client lives until ctx ends.
func LoadConfig(ctx context.Context) (*config.Config, error) {
	if vault.Enabled() {
		cli, err := vault.New(ctx, zap.L())
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		config.UseSecrets(cli)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
