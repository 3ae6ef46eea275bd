package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
	"github.com/joho/godotenv"
	"github.com/tphan267/arqut-fleet/pkg/utils"
	"go.yaml.in/yaml/v3"
)

// Password hashing schemes
const (
	HashSHA256   = "sha256"
	HashArgon2ID = "argon2id"
)

// Config holds the application configuration
type Config struct {
	EdgeID       string `yaml:"edge_id"` // Unique edge identifier (auto-generated if not set)
	APIKey       string `yaml:"api_key"` // API key for the cloud uplink
	CloudURL     string `yaml:"cloud_url"`
	ServerAddr   string `yaml:"server_addr"`
	LogLevel     string `yaml:"log_level"`
	DBDriver     string `yaml:"db_driver"` // sqlite, postgres or mysql
	DBPath       string `yaml:"db_path"`   // sqlite file
	DBDSN        string `yaml:"db_dsn"`    // postgres/mysql connection string
	PasswordHash string `yaml:"password_hash"`

	Version string `yaml:"-"`

	mu   sync.Mutex `yaml:"-"`
	file string     `yaml:"-"`
}

// GetServerPort returns the port part of ServerAddr
func (c *Config) GetServerPort() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := strings.LastIndex(c.ServerAddr, ":")
	if idx < 0 {
		return ""
	}
	return c.ServerAddr[idx+1:]
}

// DSN returns the connection string for the configured driver
func (c *Config) DSN() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.DBDriver == "" || c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return c.DBDSN
}

// Save writes the current configuration back to the file
func (c *Config) Save() error {
	if c.file == "" {
		return fmt.Errorf("config file path is not set")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.WriteFile(c.file, data, 0o600); err != nil {
		return err
	}

	return nil
}

// EnsureDefaultConfig applies env overrides and fills in missing values
func (c *Config) EnsureDefaultConfig(save bool) error {
	changed := false
	c.mu.Lock()

	// Env overrides
	if apiKey := utils.Env("ARQUT_API_KEY", ""); apiKey != "" {
		c.APIKey = apiKey
	}
	if cloudURL := utils.Env("ARQUT_CLOUD_URL", ""); cloudURL != "" {
		c.CloudURL = cloudURL
	}
	if logLevel := utils.Env("ARQUT_LOG_LEVEL", ""); logLevel != "" {
		c.LogLevel = logLevel
	}
	if addr := utils.Env("ARQUT_SERVER_ADDR", ""); addr != "" {
		c.ServerAddr = addr
	}
	if driver := utils.Env("ARQUT_DB_DRIVER", ""); driver != "" {
		c.DBDriver = driver
	}
	if dsn := utils.Env("ARQUT_DB_DSN", ""); dsn != "" {
		c.DBDSN = dsn
	}
	if dbPath := utils.Env("ARQUT_DB_PATH", ""); dbPath != "" {
		c.DBPath = dbPath
	}

	// Create defaults
	if c.EdgeID == "" {
		edgeID, _ := utils.GenerateID()
		c.EdgeID = edgeID
		changed = true
	}

	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
		changed = true
	}

	if c.DBPath == "" {
		dir := "."
		if c.file != "" {
			dir = filepath.Dir(c.file)
		}
		c.DBPath = filepath.Join(dir, "arqut-fleet.db")
		changed = true
	}

	if c.ServerAddr == "" {
		c.ServerAddr = ":3030"
		changed = true
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
		changed = true
	}

	if c.PasswordHash == "" {
		c.PasswordHash = HashSHA256
		changed = true
	}

	c.mu.Unlock()

	if err := c.validate(); err != nil {
		return err
	}

	if changed && save {
		return c.Save()
	}
	return nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported db_driver: %s", c.DBDriver)
	}
	if c.DBDriver != "sqlite" && c.DBDSN == "" {
		return fmt.Errorf("db_dsn is required for %s", c.DBDriver)
	}
	switch c.PasswordHash {
	case HashSHA256, HashArgon2ID:
	default:
		return fmt.Errorf("unsupported password_hash: %s", c.PasswordHash)
	}
	return nil
}

// Load loads configuration from the specified file and environment
// variables. A missing file is created with defaults.
func Load(version, file, logLevel string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Version: version,
		file:    file,
	}

	if file != "" {
		if _, err := os.Stat(file); err == nil {
			yamlFeeder := feeder.Yaml{Path: file}
			if err := config.New().AddFeeder(yamlFeeder).AddStruct(cfg).Feed(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", file, err)
			}
		}
	}

	if err := cfg.EnsureDefaultConfig(file != ""); err != nil {
		return nil, err
	}

	// Override log level from command-line argument
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}
