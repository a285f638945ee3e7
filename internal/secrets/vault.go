package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/coretrack/warranty-api/internal/cache"
	"go.uber.org/zap"
)

// VaultClient wraps the Azure Key Vault client for secret retrieval
type VaultClient struct {
	client    *azsecrets.Client
	vaultName string
	logger    *zap.Logger
	// cache is nil when caching is disabled
	cache *cache.TTLCache
}

// VaultConfig holds configuration for the vault client
type VaultConfig struct {
	VaultName    string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewVaultClient creates an Azure Key Vault client authenticated through
// DefaultAzureCredential (environment, managed identity, or Azure CLI).
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", cfg.VaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key vault client: %w", err)
	}

	v := &VaultClient{
		client:    client,
		vaultName: cfg.VaultName,
		logger:    logger,
	}
	if cfg.CacheEnabled {
		ttl := cfg.CacheTTL
		if ttl == 0 {
			ttl = 5 * time.Minute
		}
		v.cache = cache.New(ttl)
	}

	logger.Info("key vault client initialized", zap.String("vault_url", vaultURL))
	return v, nil
}

// GetSecret retrieves a secret from the vault, serving cached values while
// they are fresh
func (v *VaultClient) GetSecret(ctx context.Context, secretName string) (string, error) {
	if cached, ok := v.cache.Get(secretName); ok {
		return cached.(string), nil
	}

	resp, err := v.client.GetSecret(ctx, secretName, "", nil)
	if err != nil {
		v.logger.Error("failed to get secret from key vault",
			zap.String("secret_name", secretName),
			zap.Error(err))
		return "", fmt.Errorf("failed to get secret %q: %w", secretName, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %q has no value", secretName)
	}

	v.cache.Set(secretName, *resp.Value)
	return *resp.Value, nil
}

// ClearCache drops all cached secrets
func (v *VaultClient) ClearCache() {
	v.cache.Clear()
}
