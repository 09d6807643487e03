package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`

	// Identity provider settings. AUTH_JWT_KEY holds either the HMAC secret or
	// a PEM public key, depending on the algorithm the provider signs with.
	AuthJWTKey string `envconfig:"AUTH_JWT_KEY" required:"true"`

	// Admin endpoints are gated by a shared bearer secret.
	AdminAPISecret string `envconfig:"ADMIN_API_SECRET" required:"true"`

	// Stripe settings. The secret key may be provided directly or indirected
	// through Secret Manager (STRIPE_SECRET_KEY_NAME takes precedence when set).
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeSecretKeyName string `envconfig:"STRIPE_SECRET_KEY_NAME"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`

	// Pub/Sub settings for purchase delivery events.
	GCPProjectID        string `envconfig:"GCP_PROJECT_ID"`
	PurchaseEventsTopic string `envconfig:"PURCHASE_EVENTS_TOPIC" default:"purchase-events"`

	// Object storage holding the guide documents.
	S3URL       string `envconfig:"GUIDE_S3_URL" required:"true"`
	S3Bucket    string `envconfig:"GUIDE_S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"GUIDE_S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"GUIDE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"GUIDE_S3_SECRET_KEY" required:"true"`

	DownloadURLTTLMin int `envconfig:"DOWNLOAD_URL_TTL_MIN" default:"15"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
