package config

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	ClientURL   string `yaml:"client_url"`

	StripeSecretKey      string `yaml:"stripe_secret_key"`
	MidtransServerKey    string `yaml:"midtrans_server_key"`
	MidtransClientKey    string `yaml:"midtrans_client_key"`
	MidtransIsProduction bool   `yaml:"midtrans_is_production"`

	// WebhookSecret is the shared HMAC key for gateway callbacks.
	WebhookSecret string `yaml:"webhook_secret"`

	// TokenEncryptionKey is the 64-hex-char AES key for gateway tokens at rest.
	TokenEncryptionKey string `yaml:"token_encryption_key"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Output      string `yaml:"output"`
	Development bool   `yaml:"development"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}
