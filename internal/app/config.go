package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/jwtgate/internal/credstore"
	"github.com/florianilch/jwtgate/internal/hostname"
	"github.com/florianilch/jwtgate/internal/jwttoken"
	"github.com/florianilch/jwtgate/internal/observability"
)

// CredentialStorageType represents the storage backends supported for credentials.
type CredentialStorageType string

const (
	CredentialStorageTypeFile    CredentialStorageType = "file"
	CredentialStorageTypeEnv     CredentialStorageType = "env"
	CredentialStorageTypeKeyring CredentialStorageType = "keyring"
)

// keyringService is the keyring service name credentials are stored under.
const keyringService = "jwtgate-credentials"

// Default configuration values
const (
	DefaultConfigLogFormat          = observability.FormatText
	DefaultConfigLogExport          = observability.ExportNone
	DefaultConfigServerHost         = "127.0.0.1"
	DefaultConfigServerPort         = 4100
	DefaultConfigShutdownTimeout    = 5 * time.Second
	DefaultConfigPollInterval       = jwttoken.DefaultPollInterval
	DefaultConfigHTTPTimeout        = jwttoken.DefaultHTTPTimeout
	DefaultConfigAcquireTimeout     = 30 * time.Second
	DefaultConfigCredentialsStorage = CredentialStorageTypeFile
	DefaultConfigTokenIDEnv         = "API_TOKEN_ID"
	DefaultConfigAccessTokenEnv     = "API_ACCESS_TOKEN"
)

// ServerConfig holds broker server configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// EnvironmentConfig describes where the runtime hostname comes from.
type EnvironmentConfig struct {
	// Origin is the URL the client runs under. The OS hostname is used when empty.
	Origin string `json:"origin,omitempty" validate:"omitempty,url"`
}

// TablesConfig points at an external hostname/route/auth table file.
type TablesConfig struct {
	// File is a TOML or JSON file; inline config keys take precedence over it.
	File string `json:"file,omitempty"`
}

// TokenConfig tunes the JWT exchange and polling.
type TokenConfig struct {
	PollInterval   time.Duration `json:"poll_interval" validate:"gt=0"`
	HTTPTimeout    time.Duration `json:"http_timeout" validate:"gt=0"`
	AcquireTimeout time.Duration `json:"acquire_timeout" validate:"gt=0"`

	// AcquireOnStart exchanges stored credentials when the broker starts.
	AcquireOnStart bool `json:"acquire_on_start"`
}

// CredentialsConfig describes where exchange credentials are stored.
type CredentialsConfig struct {
	Storage CredentialStorageType `json:"storage" validate:"required,oneof=file env keyring"`

	// Storage-specific settings (used depending on Storage type)
	File           string `json:"file,omitempty"`             // For file storage: path to credentials file
	TokenIDEnv     string `json:"token_id_env,omitempty"`     // For env storage: variable holding the token id
	AccessTokenEnv string `json:"access_token_env,omitempty"` // For env storage: variable holding the access token
	KeyringUser    string `json:"keyring_user,omitempty"`     // For keyring storage: user identifier
}

// NewStore creates a credential store from the configuration.
func (c *CredentialsConfig) NewStore() (credstore.Store, error) {
	switch c.Storage {
	case CredentialStorageTypeFile:
		return credstore.NewFileStore(c.File)
	case CredentialStorageTypeEnv:
		return credstore.NewEnvStore(c.TokenIDEnv, c.AccessTokenEnv, nil)
	case CredentialStorageTypeKeyring:
		return credstore.NewKeyringStore(keyringService, c.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level           `json:"log_level"`
	LogFormat observability.Format `json:"log_format" validate:"oneof=text json"`
	LogExport observability.Export `json:"log_export" validate:"oneof=none stdout otlp-http otlp-grpc"`

	Server      ServerConfig      `json:"server"`
	Shutdown    ShutdownConfig    `json:"shutdown"`
	Environment EnvironmentConfig `json:"environment"`
	Tables      TablesConfig      `json:"tables"`
	Token       TokenConfig       `json:"token"`
	Credentials CredentialsConfig `json:"credentials"`

	// Offline resolves every route against the local table.
	Offline bool `json:"offline"`

	// Hostnames maps an environment hostname to its API base URL.
	Hostnames map[string]string `json:"hostnames" validate:"dive,required"`

	// Routes maps an online route key to its path suffix.
	Routes map[string]string `json:"routes"`

	// Local is the offline base URL and route table.
	Local hostname.LocalTable `json:"local"`

	// Auth maps an environment hostname to its OAuth endpoint.
	Auth hostname.AuthTable `json:"auth" validate:"dive"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// Table returns the read-only hostname table described by the configuration.
func (c *Config) Table() hostname.Table {
	return hostname.Table{
		Online:    !c.Offline,
		Hostnames: c.Hostnames,
		Routes:    c.Routes,
		Local:     c.Local,
	}
}

// Env builds the runtime environment reference.
func (c *Config) Env() (*hostname.Environment, error) {
	if c.Environment.Origin == "" {
		return hostname.EnvironmentFromOS(), nil
	}
	return hostname.EnvironmentFromURL(c.Environment.Origin)
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LogExport == "" {
		c.LogExport = DefaultConfigLogExport
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Token.PollInterval == 0 {
		c.Token.PollInterval = DefaultConfigPollInterval
	}
	if c.Token.HTTPTimeout == 0 {
		c.Token.HTTPTimeout = DefaultConfigHTTPTimeout
	}
	if c.Token.AcquireTimeout == 0 {
		c.Token.AcquireTimeout = DefaultConfigAcquireTimeout
	}
	if c.Credentials.Storage == "" {
		c.Credentials.Storage = DefaultConfigCredentialsStorage
	}

	// Dynamic defaults based on storage type
	switch c.Credentials.Storage {
	case CredentialStorageTypeFile:
		if c.Credentials.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("credentials.file required (auto-detect failed: %w)", err)
			}
			c.Credentials.File = filepath.Join(configDir, "jwtgate", "credentials.json")
		}
	case CredentialStorageTypeEnv:
		if c.Credentials.TokenIDEnv == "" {
			c.Credentials.TokenIDEnv = DefaultConfigTokenIDEnv
		}
		if c.Credentials.AccessTokenEnv == "" {
			c.Credentials.AccessTokenEnv = DefaultConfigAccessTokenEnv
		}
	case CredentialStorageTypeKeyring:
		if c.Credentials.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("credentials.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Credentials.KeyringUser = currentUser.Username
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if len(c.Auth) == 0 {
		return errors.New("auth table is empty, at least one hostname needs an oauth_url")
	}

	switch c.Credentials.Storage {
	case CredentialStorageTypeFile:
		if c.Credentials.File == "" {
			return errors.New("file path required for file storage")
		}
	case CredentialStorageTypeEnv:
		if c.Credentials.TokenIDEnv == "" || c.Credentials.AccessTokenEnv == "" {
			return errors.New("token_id_env and access_token_env required for env storage")
		}
	case CredentialStorageTypeKeyring:
		if c.Credentials.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
