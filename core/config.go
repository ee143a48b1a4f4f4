package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string
		Build    string
		Debug    bool
		TestMode bool
		AppName  string

		SecretKey          []byte
		JWTExpirationDelta time.Duration

		DefaultFromEmail string
		FrontendBaseURL  string

		Server   ServerConfig
		Admin    AdminConfig
		Sheets   SheetsConfig
		Sendgrid SendgridConfig
		Rollbar  RollbarConfig
	}

	ServerConfig struct {
		Host string
		Port string
	}

	// AdminConfig holds the single operator account; there is no user table.
	AdminConfig struct {
		Username     string
		PasswordHash string // bcrypt; generate with `admin hashpassword`
	}

	SheetsConfig struct {
		SpreadsheetID   string
		CredentialsFile string

		CacheTTL time.Duration

		MaxRetries        int
		InitialRetryDelay time.Duration
		MaxRetryDelay     time.Duration
		RetryJitterFactor float64

		BatchSize     int
		BatchInterval time.Duration
	}

	SendgridConfig struct {
		APIKey string
	}

	RollbarConfig struct {
		Token string
	}
)

func (c ServerConfig) Address() string { return c.Host + ":" + c.Port }

// NewConfig loads the Config from the environment, after sourcing an
// optional config/.env.<env> file.
func NewConfig(workDir string) (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("secretKey", "w3n$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("jwtExpirationDelta", 12*time.Hour)
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("adminUsername", "admin")
	v.SetDefault("adminPasswordHash", "")
	v.SetDefault("spreadsheetId", "")
	v.SetDefault("credentialsFile", "config/credentials.json")
	v.SetDefault("cacheTtl", 5*time.Minute)
	v.SetDefault("maxRetries", 5)
	v.SetDefault("initialRetryDelay", time.Second)
	v.SetDefault("maxRetryDelay", 30*time.Second)
	v.SetDefault("retryJitterFactor", 0.2)
	v.SetDefault("batchSize", 20)
	v.SetDefault("batchInterval", 500*time.Millisecond)
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                env,
		Build:              v.GetString("build"),
		Debug:              v.GetBool("debug"),
		TestMode:           env == "TEST",
		AppName:            v.GetString("appName"),
		SecretKey:          []byte(v.GetString("secretKey")),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		DefaultFromEmail:   v.GetString("defaultFromEmail"),
		FrontendBaseURL:    v.GetString("frontendBaseUrl"),
		Server: ServerConfig{
			Host: v.GetString("serverHost"),
			Port: v.GetString("serverPort"),
		},
		Admin: AdminConfig{
			Username:     v.GetString("adminUsername"),
			PasswordHash: v.GetString("adminPasswordHash"),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:     v.GetString("spreadsheetId"),
			CredentialsFile:   v.GetString("credentialsFile"),
			CacheTTL:          v.GetDuration("cacheTtl"),
			MaxRetries:        v.GetInt("maxRetries"),
			InitialRetryDelay: v.GetDuration("initialRetryDelay"),
			MaxRetryDelay:     v.GetDuration("maxRetryDelay"),
			RetryJitterFactor: v.GetFloat64("retryJitterFactor"),
			BatchSize:         v.GetInt("batchSize"),
			BatchInterval:     v.GetDuration("batchInterval"),
		},
		Sendgrid: SendgridConfig{APIKey: v.GetString("sendgridApiKey")},
		Rollbar:  RollbarConfig{Token: v.GetString("rollbarToken")},
	}
	return conf, nil
}
