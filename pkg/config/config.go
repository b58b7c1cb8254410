// Package config loads the AIFS engine's configuration (spec §6.4's option
// table) from a YAML file, with built-in defaults and cobra flags
// overriding file values.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors spec §6.4's configuration option table.
type Config struct {
	RootDir                  string `yaml:"root_dir"`
	CompressionLevel         int    `yaml:"compression_level"`
	EmbeddingDim             int    `yaml:"embedding_dim"`
	EnableStrongCausality    bool   `yaml:"enable_strong_causality"`
	KMSMasterKeyHex          string `yaml:"kms_master_key"`
	DefaultNamespaceKeyTTLs  int64  `yaml:"default_namespace_key_expiry_seconds"`
	MaxMessageBytes          int    `yaml:"max_message_bytes"`

	RPCAddr    string `yaml:"rpc_addr"`
	HealthAddr string `yaml:"health_addr"`

	LogLevel  string `yaml:"log_level"`
	LogJSON   bool   `yaml:"log_json"`
}

// Default returns the configuration the engine boots with absent a config
// file, matching spec §6.4's stated defaults.
func Default() *Config {
	return &Config{
		RootDir:          "./data",
		CompressionLevel: 1,
		EmbeddingDim:     128,
		MaxMessageBytes:  100 << 20, // 100 MiB
		RPCAddr:          ":9090",
		HealthAddr:       ":9091",
		LogLevel:         "info",
	}
}

// Load reads and parses a YAML config file at path, applying it over
// Default(). A missing path is not an error — it is treated as "use
// defaults", matching how an optional --config flag is usually handled.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// MasterKey decodes KMSMasterKeyHex, if set, into the 32-byte master key
// used for KMS envelope encryption (spec §4.2). An empty value tells the
// KMS to generate one on first use.
func (c *Config) MasterKey() ([]byte, error) {
	if c.KMSMasterKeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.KMSMasterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("kms_master_key must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("kms_master_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
