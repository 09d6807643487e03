package service

import (
	"context"
	"fmt"

	"app/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// LoadStripeSecretKey resolves the Stripe secret key for the process. When the
// config names a Secret Manager secret, the latest version is fetched;
// otherwise the key from the environment is used as-is.
func LoadStripeSecretKey(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (string, error) {
	if cfg.StripeSecretKeyName == "" {
		if cfg.StripeSecretKey == "" {
			return "", fmt.Errorf("neither STRIPE_SECRET_KEY nor STRIPE_SECRET_KEY_NAME is set")
		}
		return cfg.StripeSecretKey, nil
	}
	if cfg.GCPProjectID == "" {
		return "", fmt.Errorf("GCP_PROJECT_ID is required to fetch the Stripe key from Secret Manager")
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	defer client.Close()

	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", cfg.GCPProjectID, cfg.StripeSecretKeyName)
	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}

	return string(result.Payload.Data), nil
}
