package config

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"serper-mcp/internal/domain"
)

// Environment variables read by the server. The two API key names match the
// ones the tools have always been configured with.
const (
	EnvSearchAPIKey = "SERPER_API_KEY"
	EnvLLMAPIKey    = "OPENAI_API_KEY"
	EnvConfigPath   = "SERPERMCP_CONFIG"
	EnvConfigKey    = "SERPERMCP_CONFIG_KEY"

	DefaultConfigPath = "config.yaml"
	DefaultEndpoint   = "https://google.serper.dev/search"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Search   SearchConfig `yaml:"search"`
	LLM      LLMConfig    `yaml:"llm"`
	Logger   LoggerConfig `yaml:"logger"`
	Tracer   TracerConfig `yaml:"tracer"`
	Includes []string     `yaml:"includes,omitempty"`
}

// ServerConfig identifies the MCP server to connecting clients.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SearchConfig holds the Serper upstream settings.
type SearchConfig struct {
	APIKey      string        `yaml:"api_key"`
	Endpoint    string        `yaml:"endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl"` // 0 disables the result cache
	MaxBodySize int64         `yaml:"max_body_size"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the optional circuit breaker in front of Serper.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// LLMConfig carries the LLM API key. It is loaded for parity with existing
// deployments and is not read by any tool.
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "generate_medium_article",
			Version: "1.0.0",
		},
		Search: SearchConfig{
			Endpoint:    DefaultEndpoint,
			Timeout:     30 * time.Second,
			MaxBodySize: 1 << 20,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Path returns the config file path from SERPERMCP_CONFIG, or the default.
func Path() string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return DefaultConfigPath
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads a YAML config file, applies env var overrides, decrypts secrets
// and validates the result. A missing file yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return finish(cfg)
		}
		return nil, domain.NewDomainError("Config.Load", domain.ErrConfigLoad, fmt.Sprintf("read config: %v", err))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	// First pass: unmarshal to get the includes list.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, domain.NewDomainError("Config.Load", domain.ErrConfigLoad, fmt.Sprintf("parse config: %v", err))
	}

	if len(cfg.Includes) > 0 {
		visited := map[string]bool{absPath: true}
		if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
			return nil, err
		}

		// Second pass: re-unmarshal main config so it takes precedence over includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv(EnvConfigKey); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
	}
	return cfg, nil
}

// ApplyEnvOverrides maps environment variables to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvSearchAPIKey); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv(EnvLLMAPIKey); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SERPERMCP_SEARCH_ENDPOINT"); v != "" {
		cfg.Search.Endpoint = v
	}
	if v := os.Getenv("SERPERMCP_SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Search.Timeout = d
		}
	}
	if v := os.Getenv("SERPERMCP_SEARCH_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Search.CacheTTL = d
		}
	}
	if v := os.Getenv("SERPERMCP_SEARCH_MAX_BODY_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Search.MaxBodySize = n
		}
	}
	if v := os.Getenv("SERPERMCP_SEARCH_BREAKER_ENABLED"); v == "true" {
		cfg.Search.Breaker.Enabled = true
	}
	if v := os.Getenv("SERPERMCP_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("SERPERMCP_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("SERPERMCP_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("SERPERMCP_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("SERPERMCP_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// decryptSecrets finds "enc:..." values in API keys and decrypts them.
func decryptSecrets(cfg *Config, passphrase string) error {
	secrets := map[string]*string{
		"search.api_key": &cfg.Search.APIKey,
		"llm.api_key":    &cfg.LLM.APIKey,
	}
	for name, fp := range secrets {
		if !strings.HasPrefix(*fp, "enc:") {
			continue
		}
		decrypted, err := DecryptValue(strings.TrimPrefix(*fp, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*fp = decrypted
	}
	return nil
}

// DecryptValue decrypts an AES-256-GCM encrypted value of the form
// hex(salt) + ":" + hex(nonce+ciphertext), keyed with Argon2id(passphrase, salt).
func DecryptValue(encrypted, passphrase string) (string, error) {
	parts := strings.SplitN(encrypted, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: invalid encrypted format", domain.ErrDecryption)
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode salt: %v", domain.ErrDecryption, err)
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", domain.ErrDecryption, err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}

	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
